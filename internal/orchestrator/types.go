// Package orchestrator drives a Document (and, once every sibling in its
// UploadGroup is done, the whole group) through the analytical agents in
// wave order: Layout and Tampering run in
// parallel first (tampering never needs extraction's output), Extraction
// runs alone once layout context exists, then Fraud and Insights run in
// parallel over the canonical transaction stream. Group-mode Tampering,
// Fraud, and Insights run serially once every document in the group has
// completed its document-level pass.
package orchestrator

import (
	"errors"

	"github.com/castlemilk/thirdeye/backend/internal/agents"
	"github.com/castlemilk/thirdeye/backend/internal/extraction"
	"github.com/castlemilk/thirdeye/backend/internal/store"
)

// errAlreadyRunning is returned internally when a (group,agent) gate is
// already Running — the losing caller in an at-most-once race. It is never
// surfaced as a document/group processing failure.
var errAlreadyRunning = errors.New("orchestrator: agent already running")

// Orchestrator wires the Store and the five analytical agents together.
// Extraction is held as a concrete *extraction.Engine; ProcessDocument runs
// it through the agents.Agent interface and reads the "transactions" and
// "metrics" entries of its AgentOutcome.Results to populate
// dctx.Transactions/dctx.Metrics for wave 3, the same way Layout's raw map
// gets threaded through as dctx.LayoutResults.
type Orchestrator struct {
	store      store.Store
	layout     agents.Agent
	tampering  agents.GroupAgent
	extraction *extraction.Engine
	fraud      agents.GroupAgent
	insights   agents.GroupAgent

	// loadPDF fetches a document's raw bytes given its stored Path. Exposed
	// as a field (not hardcoded os.ReadFile) so tests can substitute an
	// in-memory fixture loader.
	loadPDF func(path string) ([]byte, error)
}

// New builds an Orchestrator. loadPDF is typically os.ReadFile, wired by
// the cmd/thirdeye driver.
func New(
	st store.Store,
	layout agents.Agent,
	tampering agents.GroupAgent,
	engine *extraction.Engine,
	fraud agents.GroupAgent,
	insights agents.GroupAgent,
	loadPDF func(path string) ([]byte, error),
) *Orchestrator {
	return &Orchestrator{
		store:      st,
		layout:     layout,
		tampering:  tampering,
		extraction: engine,
		fraud:      fraud,
		insights:   insights,
		loadPDF:    loadPDF,
	}
}
