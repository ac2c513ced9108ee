package extraction

import (
	"github.com/castlemilk/thirdeye/backend/internal/store"
)

const accountingEquationTolerance = 0.02

// scoreAccuracy computes the weighted extraction accuracy score:
// 40% balance_chain + 20% opening_closing_present + 20% accounting_equation
// + 10% completeness + 10% balance_completeness, mapped to a letter grade.
func scoreAccuracy(txns []*txn, info AccountInfo, chain BalanceChainDetail) AccuracyReport {
	report := AccuracyReport{BalanceChainDetail: chain}

	report.BalanceChain = chain.ChainAccuracyPct

	report.OpeningClosingPresent = openingClosingScore(txns, info)
	report.AccountingEquation = accountingEquationScore(txns, info, chain)
	report.Completeness = completenessScore(txns)
	report.BalanceCompleteness = balanceCompletenessScore(txns)

	report.Score = 0.40*report.BalanceChain +
		0.20*report.OpeningClosingPresent +
		0.20*report.AccountingEquation +
		0.10*report.Completeness +
		0.10*report.BalanceCompleteness

	report.Grade = letterGrade(report.Score)
	return report
}

func openingClosingScore(txns []*txn, info AccountInfo) float64 {
	hasOpening := info.OpeningBalance != nil
	hasClosing := info.ClosingBalance != nil
	for _, t := range txns {
		if t.Type == store.TxOpeningBalance {
			hasOpening = true
		}
		if t.Type == store.TxClosingBalance {
			hasClosing = true
		}
	}
	switch {
	case hasOpening && hasClosing:
		return 100
	case hasOpening || hasClosing:
		return 50
	default:
		return 0
	}
}

// accountingEquationScore checks opening_balance + sum(credits) -
// sum(debits) against closing_balance. A near-perfect balance chain already
// proves the ledger is internally consistent, so it scores 100 outright;
// otherwise, with both anchors known, the score decays linearly with the
// relative error (100 - relative_error*2000, floored at 0); with an anchor
// missing the equation can't be evaluated and scores a neutral 50.
func accountingEquationScore(txns []*txn, info AccountInfo, chain BalanceChainDetail) float64 {
	if chain.ChainAccuracyPct >= 99.9 {
		return 100
	}

	opening := info.OpeningBalance
	closing := info.ClosingBalance
	for _, t := range txns {
		if t.Type == store.TxOpeningBalance && t.Balance != nil && opening == nil {
			opening = t.Balance
		}
		if t.Type == store.TxClosingBalance && t.Balance != nil && closing == nil {
			closing = t.Balance
		}
	}
	if opening == nil || closing == nil {
		return 50
	}

	running := *opening
	for _, t := range txns {
		if t.Amount == nil {
			continue
		}
		switch t.Type {
		case store.TxCredit:
			running += *t.Amount
		case store.TxDebit:
			running -= *t.Amount
		}
	}
	relativeError := absF(running-*closing) / maxF(absF(*closing), 1)
	score := 100 - relativeError*2000
	if score < 0 {
		return 0
	}
	return score
}

// completenessScore penalises credit/debit rows that carry no amount at
// all: 100 minus 5 points per percent of rows missing one.
func completenessScore(txns []*txn) float64 {
	total := 0
	missing := 0
	for _, t := range txns {
		if t.Type != store.TxCredit && t.Type != store.TxDebit {
			continue
		}
		total++
		if t.Amount == nil {
			missing++
		}
	}
	if total == 0 {
		return 0
	}
	pctMissing := 100 * float64(missing) / float64(total)
	score := 100 - 5*pctMissing
	if score < 0 {
		return 0
	}
	return score
}

// balanceCompletenessScore applies the same 5-points-per-percent penalty to
// credit/debit rows missing a running balance — the precondition for the
// balance-chain check to mean anything at all.
func balanceCompletenessScore(txns []*txn) float64 {
	total := 0
	missing := 0
	for _, t := range txns {
		if t.Type != store.TxCredit && t.Type != store.TxDebit {
			continue
		}
		total++
		if t.Balance == nil {
			missing++
		}
	}
	if total == 0 {
		return 0
	}
	pctMissing := 100 * float64(missing) / float64(total)
	score := 100 - 5*pctMissing
	if score < 0 {
		return 0
	}
	return score
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func letterGrade(score float64) string {
	switch {
	case score >= 95:
		return "A+"
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}
