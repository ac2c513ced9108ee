// Package extraction implements the three-tier extraction cascade (table
// reconstruction, word-position column inference, model-assisted parsing)
// that converts a heterogeneous bank-statement PDF into a canonical
// transaction stream, plus the canonicalisation, de-duplication,
// balance-chain validation, accuracy scoring, account-info extraction, and
// statement-metric computation that run over the result regardless of
// which tier produced it.
//
// The cascade always tries the cheap deterministic method first and
// escalates to the model client only for what's left.
package extraction

import "github.com/castlemilk/thirdeye/backend/internal/store"

// txn is the single canonical transaction record every tier emits: all
// inter-tier and inter-stage code operates on this shape only.
type txn struct {
	Date         string // raw, as read off the page; normalised later
	Description  string
	Type         store.TransactionType
	Amount       *float64
	Balance      *float64
	Reference    string
	Counterparty string
	Channel      string
	Category     string
	IsCash       bool
	IsCheque     bool
	Currency     string
	Page         int
	SectionID    int
	RawText      string
}

// toRawTransaction converts a canonical txn into the persisted shape.
// Opening/closing-balance markers are never persisted; callers must filter
// those out before calling this.
func (t *txn) toRawTransaction(documentID, groupID string) *store.RawTransaction {
	var amount float64
	if t.Amount != nil {
		amount = *t.Amount
	}
	return &store.RawTransaction{
		DocumentID:   documentID,
		GroupID:      groupID,
		Date:         t.Date,
		Description:  t.Description,
		Type:         t.Type,
		Amount:       amount,
		Balance:      t.Balance,
		Reference:    t.Reference,
		Category:     t.Category,
		Counterparty: t.Counterparty,
		Channel:      t.Channel,
		IsCash:       t.IsCash,
		IsCheque:     t.IsCheque,
		Currency:     t.Currency,
		Page:         t.Page,
		SectionID:    t.SectionID,
		RawText:      t.RawText,
	}
}

// AccountInfo is the statement-level metadata Tier A's account-info table,
// the generic regex sweep, or (as a last resort) a single model call fills
// in. Any field left empty by the cheaper strategies is attempted by the
// next.
type AccountInfo struct {
	AccountNumber   string
	AccountHolder   string
	Bank            string
	ProductType     string
	Currency        string
	StatementPeriod string
	OpeningBalance  *float64
	ClosingBalance  *float64
	AvailableBalance *float64
}

// TierResult is what each tier hands back to the cascade: the transaction
// list plus which tier produced it (carried into the accuracy report's
// "method_used" field).
type TierResult struct {
	Transactions []*txn
	Method       string // "table_reconstruction" | "word_position" | "model_assisted"
}

// Result is the complete output of Engine.Extract: canonical transactions
// ready to persist, the computed account info, and the accuracy report.
type Result struct {
	Transactions []*store.RawTransaction
	AccountInfo  AccountInfo
	Accuracy     AccuracyReport
	MethodUsed   string
	Warnings     []string
}

// BalanceChainBreak is one consecutive pair that failed prev±amount=curr.
type BalanceChainBreak struct {
	Index       int     `json:"index"`
	Date        string  `json:"date"`
	PrevBalance float64 `json:"prev_balance"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	CurrBalance float64 `json:"curr_balance"`
	Expected    float64 `json:"expected"`
}

// SectionChain is the balance-chain check result for one currency/opening
// -closing section.
type SectionChain struct {
	SectionID        int                 `json:"section_id"`
	Currency         string              `json:"currency"`
	TotalChecked     int                 `json:"total_checked"`
	Valid            int                 `json:"valid"`
	Invalid          int                 `json:"invalid"`
	ChainAccuracyPct float64             `json:"chain_accuracy_pct"`
	Breaks           []BalanceChainBreak `json:"breaks"`
}

// BalanceChainDetail is the aggregate balance-chain report across all
// sections.
type BalanceChainDetail struct {
	TotalChecked     int                 `json:"total_checked"`
	Valid            int                 `json:"valid"`
	Invalid          int                 `json:"invalid"`
	ChainAccuracyPct float64             `json:"chain_accuracy_pct"`
	Breaks           []BalanceChainBreak `json:"breaks"`
	Sections         []SectionChain      `json:"sections"`
}

// AccuracyReport is the weighted 0-100 accuracy score plus its components.
type AccuracyReport struct {
	Score                  float64             `json:"score"`
	Grade                  string              `json:"grade"`
	BalanceChain           float64             `json:"balance_chain"`
	OpeningClosingPresent  float64             `json:"opening_closing_present"`
	AccountingEquation     float64             `json:"accounting_equation"`
	Completeness           float64             `json:"completeness"`
	BalanceCompleteness    float64             `json:"balance_completeness"`
	BalanceChainDetail     BalanceChainDetail  `json:"balance_chain_detail"`
}
