// Package agents implements the analytical agents (Layout, Tampering,
// Fraud, Insights) that the orchestrator runs over a Document and, for a
// subset of agents, over an entire UploadGroup. The Extraction engine in
// package extraction implements the same Agent interface.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/castlemilk/thirdeye/backend/internal/store"
)

// AgentOutcome is the structured result every agent produces, mirrored
// straight into an AgentResult/GroupAgentResult by the orchestrator.
type AgentOutcome struct {
	Results   map[string]interface{}
	Summary   string
	RiskLevel store.RiskLevel
}

// DocumentContext is everything an agent needs to analyse one document.
// LayoutResults is populated from Layout's AgentOutcome.Results once
// Layout's wave has finished (nil for agents running in that same wave).
type DocumentContext struct {
	Document      *store.Document
	PDFData       []byte
	LayoutResults map[string]interface{}
	Transactions  []*store.RawTransaction
	Metrics       *store.StatementMetrics
}

// GroupContext is everything a group-mode agent needs.
type GroupContext struct {
	Group        *store.UploadGroup
	Documents    []*store.Document
	DocumentPDFs map[string][]byte // documentID -> raw bytes, for cross-doc visual checks
	Transactions []*store.RawTransaction
	Metrics      []*store.StatementMetrics
	PriorResults map[store.AgentType][]*store.AgentResult // per-document results for this group, keyed by agent type
}

// Agent is the capability every analytical agent provides: per-document analysis.
type Agent interface {
	Name() store.AgentType
	Analyse(ctx context.Context, dctx *DocumentContext) (AgentOutcome, error)
}

// GroupAgent is the narrower capability of agents that additionally support
// cross-document group analysis (Tampering, Fraud, Insights).
type GroupAgent interface {
	Agent
	AnalyseGroup(ctx context.Context, gctx *GroupContext) (AgentOutcome, error)
}

// Check is one independent pass/fail/warning test within Tampering or Fraud.
type Check struct {
	Name    string `json:"check"`
	Status  string `json:"status"` // pass | fail | warning
	Details string `json:"details"`
}

// ComputeRisk applies the shared fail*3+warning*1 scoring formula used by
// both Tampering and Fraud.
func ComputeRisk(checks []Check) (store.RiskLevel, int, string) {
	var failCount, warnCount, passCount int
	for _, c := range checks {
		switch c.Status {
		case "fail":
			failCount++
		case "warning":
			warnCount++
		case "pass":
			passCount++
		}
	}
	score := failCount*3 + warnCount

	var risk store.RiskLevel
	switch {
	case failCount >= 4:
		risk = store.RiskCritical
	case failCount >= 2:
		risk = store.RiskHigh
	case failCount >= 1 || warnCount >= 3:
		risk = store.RiskMedium
	default:
		risk = store.RiskLow
	}

	summary := summarise(passCount, failCount, warnCount, len(checks), checks)
	return risk, score, summary
}

func summarise(passCount, failCount, warnCount, total int, checks []Check) string {
	parts := []string{fmt.Sprintf("%d/%d checks passed", passCount, total)}
	if failCount > 0 {
		parts = append(parts, fmt.Sprintf("%d failed: %s", failCount, joinNames(checks, "fail")))
	}
	if warnCount > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings: %s", warnCount, joinNames(checks, "warning")))
	}
	return strings.Join(parts, ". ") + "."
}

func joinNames(checks []Check, status string) string {
	var names []string
	for _, c := range checks {
		if c.Status == status {
			names = append(names, c.Name)
		}
	}
	return strings.Join(names, ", ")
}
