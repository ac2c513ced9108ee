package orchestrator

import (
	"sort"

	"github.com/castlemilk/thirdeye/backend/internal/store"
)

// aggregateMetrics folds every document's StatementMetrics in a group into
// one AggregatedMetrics row, plus monthly charting arrays built from the
// raw transaction stream (bucketed by the "MMM" token in each
// transaction's normalised "DD MMM" date — statements rarely carry a year
// in every row, so month-name bucketing is the reliable granularity).
func aggregateMetrics(groupID string, statements []*store.StatementMetrics, txns []*store.RawTransaction) *store.AggregatedMetrics {
	agg := &store.AggregatedMetrics{GroupID: groupID}
	if len(statements) == 0 {
		return agg
	}

	agg.AccountHolder = statements[0].AccountHolder
	agg.Currency = statements[0].Currency

	var balances []float64
	for _, s := range statements {
		agg.TotalNoOfCreditTransactions += s.TotalNoOfCreditTransactions
		agg.TotalNoOfDebitTransactions += s.TotalNoOfDebitTransactions
		agg.TotalAmountOfCredits += s.TotalAmountOfCredits
		agg.TotalAmountOfDebits += s.TotalAmountOfDebits
		agg.TotalNoOfCashDeposits += s.TotalNoOfCashDeposits
		agg.TotalNoOfCashWithdrawals += s.TotalNoOfCashWithdrawals
		agg.TotalAmountOfCashDeposits += s.TotalAmountOfCashDeposits
		agg.TotalAmountOfCashWithdrawals += s.TotalAmountOfCashWithdrawals
		agg.TotalNoOfChequeDeposits += s.TotalNoOfChequeDeposits
		agg.TotalNoOfChequeWithdrawals += s.TotalNoOfChequeWithdrawals
		agg.TotalAmountOfChequeDeposits += s.TotalAmountOfChequeDeposits
		agg.TotalAmountOfChequeWithdrawals += s.TotalAmountOfChequeWithdrawals
		agg.TotalFeesCharged += s.TotalFeesCharged
		if s.MinBalance != 0 {
			balances = append(balances, s.MinBalance)
		}
		if s.MaxBalance != 0 {
			balances = append(balances, s.MaxBalance)
		}
	}

	oldest, newest := statements[0], statements[0]
	for _, s := range statements {
		if s.StatementPeriod < oldest.StatementPeriod {
			oldest = s
		}
		if s.StatementPeriod > newest.StatementPeriod {
			newest = s
		}
	}
	agg.OpeningBalance = oldest.OpeningBalance
	agg.ClosingBalance = newest.ClosingBalance

	if len(balances) > 0 {
		min, max, sum := balances[0], balances[0], 0.0
		for _, b := range balances {
			if b < min {
				min = b
			}
			if b > max {
				max = b
			}
			sum += b
		}
		agg.MinBalance = min
		agg.MaxBalance = max
		agg.AvgBalance = sum / float64(len(balances))
	}

	agg.MonthlyCreditTotals = monthlyTotals(txns, store.TxCredit)
	agg.MonthlyDebitTotals = monthlyTotals(txns, store.TxDebit)
	agg.MonthlyBalances = monthlyBalances(txns)

	return agg
}

var monthOrder = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

func monthOf(date string) string {
	fields := splitFields(date)
	if len(fields) == 0 {
		return ""
	}
	last := fields[len(fields)-1]
	if _, ok := monthOrder[last]; ok {
		return last
	}
	return ""
}

func splitFields(s string) []string {
	var out []string
	var cur []rune
	for _, r := range s {
		if r == ' ' {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

func monthlyTotals(txns []*store.RawTransaction, txType store.TransactionType) []store.MonthlyTotal {
	sums := map[string]float64{}
	for _, t := range txns {
		if t.Type != txType {
			continue
		}
		month := monthOf(t.Date)
		if month == "" {
			continue
		}
		sums[month] += t.Amount
	}
	return sortedMonthlyTotals(sums)
}

func monthlyBalances(txns []*store.RawTransaction) []store.MonthlyTotal {
	latestBalance := map[string]float64{}
	for _, t := range txns {
		if t.Balance == nil {
			continue
		}
		month := monthOf(t.Date)
		if month == "" {
			continue
		}
		latestBalance[month] = *t.Balance
	}
	return sortedMonthlyTotals(latestBalance)
}

func sortedMonthlyTotals(sums map[string]float64) []store.MonthlyTotal {
	months := make([]string, 0, len(sums))
	for m := range sums {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return monthOrder[months[i]] < monthOrder[months[j]] })

	out := make([]store.MonthlyTotal, 0, len(months))
	for _, m := range months {
		out = append(out, store.MonthlyTotal{Month: m, Value: sums[m]})
	}
	return out
}
