package extraction

import (
	"github.com/castlemilk/thirdeye/backend/internal/store"
)

const balanceChainTolerance = 0.02
const maxReportedBreaks = 20

// validateBalanceChain runs the per-section balance-chain
// check: transactions are partitioned by SectionID (a new section starts at
// a currency change or an opening-balance marker), and within each section
// every consecutive credit/debit pair must satisfy prev_balance ± amount =
// curr_balance within balanceChainTolerance.
func validateBalanceChain(txns []*txn) BalanceChainDetail {
	sections := partitionBySection(txns)

	detail := BalanceChainDetail{}
	for id, group := range sections {
		sc := validateSection(id, group)
		detail.TotalChecked += sc.TotalChecked
		detail.Valid += sc.Valid
		detail.Invalid += sc.Invalid
		detail.Sections = append(detail.Sections, sc)
		for _, b := range sc.Breaks {
			if len(detail.Breaks) < maxReportedBreaks {
				detail.Breaks = append(detail.Breaks, b)
			}
		}
	}
	// An empty chain (no credit/debit pair carrying both amount and balance)
	// has nothing to contradict it and counts as fully accurate.
	detail.ChainAccuracyPct = 100
	if detail.TotalChecked > 0 {
		detail.ChainAccuracyPct = 100 * float64(detail.Valid) / float64(detail.TotalChecked)
	}
	return detail
}

func partitionBySection(txns []*txn) map[int][]*txn {
	sections := make(map[int][]*txn)
	section := 0
	for i, t := range txns {
		if t.Type == store.TxOpeningBalance && i > 0 {
			section++
		}
		if t.SectionID != 0 {
			section = t.SectionID
		}
		sections[section] = append(sections[section], t)
	}
	return sections
}

func validateSection(id int, txns []*txn) SectionChain {
	sc := SectionChain{SectionID: id}
	if len(txns) > 0 {
		sc.Currency = txns[0].Currency
	}

	var prevBalance *float64
	for idx, t := range txns {
		if t.Type == store.TxOpeningBalance || t.Type == store.TxClosingBalance {
			prevBalance = t.Balance
			continue
		}
		if t.Type != store.TxCredit && t.Type != store.TxDebit {
			continue
		}
		if t.Balance == nil || t.Amount == nil {
			prevBalance = t.Balance
			continue
		}
		if prevBalance == nil {
			prevBalance = t.Balance
			continue
		}

		expected := *prevBalance
		if t.Type == store.TxCredit {
			expected += *t.Amount
		} else {
			expected -= *t.Amount
		}

		sc.TotalChecked++
		if absF(expected-*t.Balance) <= balanceChainTolerance {
			sc.Valid++
		} else {
			sc.Invalid++
			sc.Breaks = append(sc.Breaks, BalanceChainBreak{
				Index:       idx,
				Date:        t.Date,
				PrevBalance: *prevBalance,
				Amount:      *t.Amount,
				Type:        string(t.Type),
				CurrBalance: *t.Balance,
				Expected:    expected,
			})
		}
		prevBalance = t.Balance
	}

	sc.ChainAccuracyPct = 100
	if sc.TotalChecked > 0 {
		sc.ChainAccuracyPct = 100 * float64(sc.Valid) / float64(sc.TotalChecked)
	}
	return sc
}
