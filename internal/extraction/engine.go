package extraction

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/castlemilk/thirdeye/backend/internal/agents"
	"github.com/castlemilk/thirdeye/backend/internal/modelclient"
	"github.com/castlemilk/thirdeye/backend/internal/pdfprimitives"
	"github.com/castlemilk/thirdeye/backend/internal/store"
)

// Engine runs the three-tier extraction cascade and every canonicalisation
// step that follows it. It implements agents.Agent so the orchestrator can
// dispatch it the same way it dispatches Layout/Tampering/Fraud/Insights:
// try the cheapest deterministic method first, escalate to the model
// client only for what's left over.
type Engine struct {
	model *modelclient.Client
}

// NewEngine builds an extraction Engine. model may be nil; Tier C then
// degrades to ErrNotApplicable and the cascade's final result is whatever
// Tier A/B produced (or failure, if neither did).
func NewEngine(model *modelclient.Client) *Engine {
	return &Engine{model: model}
}

func (e *Engine) Name() store.AgentType { return store.AgentExtraction }

// Analyse implements agents.Agent. It consumes dctx.LayoutResults (Layout
// ran in the preceding wave) only indirectly — Layout's bank/column
// detection informs a human reading the result, but the cascade here
// re-derives its own header/column structure rather than trusting a prior
// agent's heuristic, so a Layout misdetection cannot corrupt extraction.
func (e *Engine) Analyse(ctx context.Context, dctx *agents.DocumentContext) (agents.AgentOutcome, error) {
	doc, err := pdfprimitives.Open(dctx.PDFData)
	if err != nil {
		return agents.AgentOutcome{
			Results:   map[string]interface{}{"error": err.Error()},
			Summary:   fmt.Sprintf("Extraction error: %v", err),
			RiskLevel: store.RiskLow,
		}, nil
	}

	result, metrics := e.Extract(ctx, doc, dctx.PDFData, dctx.Document.ID, dctx.Document.GroupID)

	results := map[string]interface{}{
		"account_info":      result.AccountInfo,
		"accuracy":          result.Accuracy,
		"method_used":       result.MethodUsed,
		"warnings":          result.Warnings,
		"transaction_count": len(result.Transactions),
		"transactions":      result.Transactions,
		"metrics":           metrics,
	}

	summary := fmt.Sprintf("Extracted %d transactions via %s (grade %s, %.1f%% accuracy)",
		len(result.Transactions), result.MethodUsed, result.Accuracy.Grade, result.Accuracy.Score)
	if len(result.Warnings) > 0 {
		summary += ". " + strings.Join(result.Warnings, "; ")
	}

	return agents.AgentOutcome{Results: results, Summary: summary, RiskLevel: store.RiskLow}, nil
}

// Extract runs the cascade end to end: tier fallthrough, canonicalisation,
// de-duplication, balance-chain validation, accuracy scoring, account-info
// resolution, and statement metrics.
func (e *Engine) Extract(ctx context.Context, doc *pdfprimitives.Document, pdfData []byte, documentID, groupID string) (Result, store.StatementMetrics) {
	var warnings []string

	txns, accountInfoFromTier, method, err := e.runCascade(ctx, doc, pdfData)
	if err != nil {
		log.Printf("[Extraction] cascade exhausted for document %s: %v", documentID, err)
		warnings = append(warnings, fmt.Sprintf("extraction cascade failed: %v", err))
		empty := Result{
			AccountInfo: e.resolveAccountInfo(ctx, doc, accountInfoFromTier),
			Accuracy:    AccuracyReport{Grade: "F"},
			MethodUsed:  "none",
			Warnings:    warnings,
		}
		return empty, computeMetrics(documentID, groupID, nil, empty.AccountInfo)
	}
	log.Printf("[Extraction] document %s: %s yielded %d transactions", documentID, method, len(txns))

	canonicalizeAll(txns)
	before := len(txns)
	txns = dedupe(txns)
	if removed := before - len(txns); removed > 0 {
		warnings = append(warnings, fmt.Sprintf("%d duplicate rows removed", removed))
	}

	info := e.resolveAccountInfo(ctx, doc, accountInfoFromTier)

	chain := validateBalanceChain(txns)
	accuracy := scoreAccuracy(txns, info, chain)
	metrics := computeMetrics(documentID, groupID, txns, info)

	raw := make([]*store.RawTransaction, 0, len(txns))
	for _, t := range txns {
		if t.Type == store.TxOpeningBalance || t.Type == store.TxClosingBalance {
			continue
		}
		raw = append(raw, t.toRawTransaction(documentID, groupID))
	}

	return Result{
		Transactions: raw,
		AccountInfo:  info,
		Accuracy:     accuracy,
		MethodUsed:   method,
		Warnings:     warnings,
	}, metrics
}

// runCascade runs the tiers in order: Tier A, then Tier B, then Tier C, in
// that order, each only attempted once the previous tier has declined
// (ErrNotApplicable) or come up empty (ErrNoTransactions).
func (e *Engine) runCascade(ctx context.Context, doc *pdfprimitives.Document, pdfData []byte) ([]*txn, *AccountInfo, string, error) {
	tierA, accountInfo, errA := extractTierA(doc)
	if errA == nil && len(tierA.Transactions) > 0 {
		return tierA.Transactions, accountInfo, tierA.Method, nil
	}

	tierB, errB := extractTierB(doc)
	if errB == nil && len(tierB.Transactions) > 0 {
		return tierB.Transactions, accountInfo, tierB.Method, nil
	}

	var tierC TierResult
	var errC error
	if doc.IsScanned() {
		tierC, errC = extractTierCVision(ctx, e.model, doc, pdfData)
	} else {
		tierC, errC = extractTierCText(ctx, e.model, doc)
	}
	if errC == nil && len(tierC.Transactions) > 0 {
		return tierC.Transactions, accountInfo, tierC.Method, nil
	}

	return nil, accountInfo, "", fmt.Errorf("tier A: %v; tier B: %v; tier C: %v", errA, errB, errC)
}

func (e *Engine) resolveAccountInfo(ctx context.Context, doc *pdfprimitives.Document, fromTier *AccountInfo) AccountInfo {
	var info AccountInfo
	if fromTier != nil {
		info = *fromTier
	}
	if info.AccountNumber == "" || info.AccountHolder == "" || info.Currency == "" || info.StatementPeriod == "" {
		swept := sweepAccountInfo(doc)
		info = mergeAccountInfo(info, swept)
	}
	return fillAccountInfoFromModel(ctx, e.model, doc, info)
}

func mergeAccountInfo(base, fallback AccountInfo) AccountInfo {
	if base.AccountNumber == "" {
		base.AccountNumber = fallback.AccountNumber
	}
	if base.AccountHolder == "" {
		base.AccountHolder = fallback.AccountHolder
	}
	if base.Currency == "" {
		base.Currency = fallback.Currency
	}
	if base.StatementPeriod == "" {
		base.StatementPeriod = fallback.StatementPeriod
	}
	if base.OpeningBalance == nil {
		base.OpeningBalance = fallback.OpeningBalance
	}
	if base.ClosingBalance == nil {
		base.ClosingBalance = fallback.ClosingBalance
	}
	return base
}

// canonicalizeAll fills in channel, counterparty, category, and the
// cash/cheque flags for every transaction. It runs
// after the cascade regardless of which tier produced the rows, so all
// three tiers share one canonicalisation path.
func canonicalizeAll(txns []*txn) {
	for _, t := range txns {
		t.Date = normaliseDate(t.Date)
		t.Channel = classifyChannel(t.Description)
		t.Counterparty = extractCounterparty(t.Description)
		t.Category = classifyCategory(t.Description)
		upper := strings.ToUpper(t.Description)
		t.IsCash = t.Channel == "ATM" || strings.Contains(upper, "CASH DEPOSIT") || strings.Contains(upper, "CASH WITHDRAWAL")
		t.IsCheque = t.Channel == "CHEQUE" || strings.Contains(upper, "CHEQUE")
	}
}
