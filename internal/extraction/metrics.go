package extraction

import (
	"strings"

	"github.com/castlemilk/thirdeye/backend/internal/store"
)

// cashKeywords flag the cash channel counters, mirroring classifyChannel's
// ATM bucket plus "CASH DEPOSIT"/"CASH WITHDRAWAL" descriptions for
// over-the-counter cash that never goes through an ATM code.
var cashKeywords = []string{"CASH DEPOSIT", "CASH WITHDRAWAL", "ATM"}

// feeKeywords flag transactions that count toward TotalFeesCharged.
var feeKeywords = []string{"FEE", "CHARGE", "COMMISSION"}

// computeMetrics derives the per-statement financial summary:
// opening/closing/min/max/avg balance, per-direction counts and sums,
// cash/cheque counts and sums, total fees, and a currency breakdown when
// the statement spans more than one currency section.
func computeMetrics(documentID, groupID string, txns []*txn, info AccountInfo) store.StatementMetrics {
	m := store.StatementMetrics{
		DocumentID:      documentID,
		GroupID:         groupID,
		AccountHolder:   info.AccountHolder,
		Bank:            info.Bank,
		AccountNumber:   info.AccountNumber,
		Currency:        info.Currency,
		StatementPeriod: info.StatementPeriod,
		MonthsCovered:   monthsCovered(info.StatementPeriod),
	}

	if info.OpeningBalance != nil {
		m.OpeningBalance = *info.OpeningBalance
	}
	if info.ClosingBalance != nil {
		m.ClosingBalance = *info.ClosingBalance
	}

	var balances []float64
	byCurrency := map[string]*store.CurrencyBreakdown{}
	currencies := map[string]bool{}

	for _, t := range txns {
		if t.Currency != "" {
			currencies[t.Currency] = true
		}
		if t.Balance != nil {
			balances = append(balances, *t.Balance)
		}

		switch t.Type {
		case store.TxOpeningBalance:
			if t.Balance != nil && m.OpeningBalance == 0 {
				m.OpeningBalance = *t.Balance
			}
			continue
		case store.TxClosingBalance:
			if t.Balance != nil && m.ClosingBalance == 0 {
				m.ClosingBalance = *t.Balance
			}
			continue
		}

		if t.Amount == nil {
			continue
		}
		amount := *t.Amount
		desc := strings.ToUpper(t.Description)

		switch t.Type {
		case store.TxCredit:
			m.TotalNoOfCreditTransactions++
			m.TotalAmountOfCredits += amount
		case store.TxDebit:
			m.TotalNoOfDebitTransactions++
			m.TotalAmountOfDebits += amount
		}

		if t.IsCash || containsAny(desc, cashKeywords) {
			if t.Type == store.TxCredit {
				m.TotalNoOfCashDeposits++
				m.TotalAmountOfCashDeposits += amount
			} else if t.Type == store.TxDebit {
				m.TotalNoOfCashWithdrawals++
				m.TotalAmountOfCashWithdrawals += amount
			}
		}
		if t.IsCheque || strings.Contains(desc, "CHEQUE") {
			if t.Type == store.TxCredit {
				m.TotalNoOfChequeDeposits++
				m.TotalAmountOfChequeDeposits += amount
			} else if t.Type == store.TxDebit {
				m.TotalNoOfChequeWithdrawals++
				m.TotalAmountOfChequeWithdrawals += amount
			}
		}
		if containsAny(desc, feeKeywords) {
			m.TotalFeesCharged += amount
		}

		if t.Currency != "" {
			cb, ok := byCurrency[t.Currency]
			if !ok {
				cb = &store.CurrencyBreakdown{Currency: t.Currency}
				byCurrency[t.Currency] = cb
			}
			if t.Type == store.TxCredit {
				cb.TotalCredits += amount
				cb.CreditCount++
			} else if t.Type == store.TxDebit {
				cb.TotalDebits += amount
				cb.DebitCount++
			}
		}
	}

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
		m.MinBalance = min
		m.MaxBalance = max
		m.AvgBalance = sum / float64(len(balances))

		// No explicit opening/closing marker anywhere: fall back to the
		// first/last known running balance.
		if m.OpeningBalance == 0 {
			m.OpeningBalance = balances[0]
		}
		if m.ClosingBalance == 0 {
			m.ClosingBalance = balances[len(balances)-1]
		}
	}

	if len(currencies) > 1 {
		for currency := range currencies {
			cb, ok := byCurrency[currency]
			if !ok {
				cb = &store.CurrencyBreakdown{Currency: currency}
			}
			m.CurrencyBreakdown = append(m.CurrencyBreakdown, *cb)
		}
	}

	return m
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// monthsCovered is a rough span estimate from a "DD MMM TO DD MMM"-shaped
// statement period: the last token of each side (the month) is compared,
// giving 1 when they match and 2 otherwise. Statements that don't carry a
// parsed period return 1 (assume single-month) rather than 0.
func monthsCovered(period string) int {
	if period == "" {
		return 1
	}
	parts := strings.Split(period, " TO ")
	if len(parts) != 2 {
		return 1
	}
	startMonth := lastToken(parts[0])
	endMonth := lastToken(parts[1])
	if startMonth == endMonth {
		return 1
	}
	return 2
}

func lastToken(s string) string {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
