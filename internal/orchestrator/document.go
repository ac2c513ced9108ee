package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/castlemilk/thirdeye/backend/internal/agents"
	"github.com/castlemilk/thirdeye/backend/internal/store"
)

// ProcessDocument runs the full per-document pipeline: Layout ‖ Tampering,
// then Extraction, then Fraud ‖ Insights. Each agent's run is idempotent —
// a document already marked AgentCompleted for a given agent type is not
// re-run, so ProcessDocument is safe to call again after a partial failure.
func (o *Orchestrator) ProcessDocument(ctx context.Context, documentID string) error {
	doc, err := o.store.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}

	pdfData, err := o.loadPDF(doc.Path)
	if err != nil {
		doc.Status = store.DocumentFailed
		_ = o.store.UpdateDocument(ctx, doc)
		return fmt.Errorf("read PDF for document %s: %w", documentID, err)
	}

	doc.Status = store.DocumentProcessing
	if err := o.store.UpdateDocument(ctx, doc); err != nil {
		return fmt.Errorf("mark document %s processing: %w", documentID, err)
	}

	dctx := &agents.DocumentContext{Document: doc, PDFData: pdfData}
	log.Printf("[Orchestrator] document %s: wave 1 (layout, tampering)", documentID)

	wave1 := o.runParallel(ctx, dctx, []agents.Agent{o.layout, o.tampering})
	if wave1[0].err != nil {
		log.Printf("[Orchestrator] document %s: layout failed: %v", documentID, wave1[0].err)
	}
	dctx.LayoutResults = wave1[0].outcome.Results

	// An extraction failure is recorded on its AgentResult; wave 3 still runs
	// so Fraud/Insights can degrade to their no-data outcomes and the document
	// still reaches Completed.
	log.Printf("[Orchestrator] document %s: wave 2 (extraction)", documentID)
	extractionOutcome, err := o.runDocumentAgent(ctx, dctx, o.extraction)
	if err != nil {
		log.Printf("[Orchestrator] document %s: extraction failed, continuing with no transactions: %v", documentID, err)
	} else if err := o.absorbExtraction(ctx, dctx, extractionOutcome); err != nil {
		doc.Status = store.DocumentFailed
		_ = o.store.UpdateDocument(ctx, doc)
		return fmt.Errorf("persist extraction output for document %s: %w", documentID, err)
	}

	log.Printf("[Orchestrator] document %s: wave 3 (fraud, insights)", documentID)
	o.runParallel(ctx, dctx, []agents.Agent{o.fraud, o.insights})

	doc.Status = store.DocumentCompleted
	if err := o.store.UpdateDocument(ctx, doc); err != nil {
		return fmt.Errorf("mark document %s completed: %w", documentID, err)
	}

	return o.maybeProcessGroup(ctx, doc.GroupID)
}

// absorbExtraction pulls the transaction list and statement metrics out of
// Extraction's AgentOutcome.Results, persists both, and threads them into
// dctx so Fraud/Insights see real data in wave 3.
func (o *Orchestrator) absorbExtraction(ctx context.Context, dctx *agents.DocumentContext, outcome agents.AgentOutcome) error {
	txns, _ := outcome.Results["transactions"].([]*store.RawTransaction)
	metrics, _ := outcome.Results["metrics"].(store.StatementMetrics)

	if err := o.store.DeleteRawTransactionsByDocument(ctx, dctx.Document.ID); err != nil {
		return fmt.Errorf("clear prior transactions: %w", err)
	}
	if len(txns) > 0 {
		if err := o.store.CreateRawTransactions(ctx, txns); err != nil {
			return fmt.Errorf("save transactions: %w", err)
		}
	}
	metrics.DocumentID = dctx.Document.ID
	metrics.GroupID = dctx.Document.GroupID
	if err := o.store.UpsertStatementMetrics(ctx, &metrics); err != nil {
		return fmt.Errorf("save statement metrics: %w", err)
	}

	dctx.Transactions = txns
	dctx.Metrics = &metrics
	return nil
}

type agentRunResult struct {
	outcome agents.AgentOutcome
	err     error
}

// runParallel runs each agent's document-level Analyse concurrently and
// waits for all to finish: a sync.WaitGroup plus one buffered channel
// slot per branch, no sibling cancellation when one branch errors.
func (o *Orchestrator) runParallel(ctx context.Context, dctx *agents.DocumentContext, ags []agents.Agent) []agentRunResult {
	results := make([]agentRunResult, len(ags))
	ch := make(chan struct {
		idx int
		res agentRunResult
	}, len(ags))

	var wg sync.WaitGroup
	for i, a := range ags {
		wg.Add(1)
		go func(i int, a agents.Agent) {
			defer wg.Done()
			outcome, err := o.runDocumentAgent(ctx, dctx, a)
			ch <- struct {
				idx int
				res agentRunResult
			}{i, agentRunResult{outcome, err}}
		}(i, a)
	}
	wg.Wait()
	close(ch)
	for entry := range ch {
		results[entry.idx] = entry.res
	}
	return results
}

// runDocumentAgent applies the idempotent (document,agent) status gate:
// a result already Completed is returned from the store without re-running
// the agent; otherwise the gate transitions Pending/Failed -> Running ->
// Completed|Failed around the call.
func (o *Orchestrator) runDocumentAgent(ctx context.Context, dctx *agents.DocumentContext, agent agents.Agent) (agents.AgentOutcome, error) {
	result, err := o.store.GetOrCreateAgentResult(ctx, dctx.Document.ID, dctx.Document.GroupID, agent.Name())
	if err != nil {
		return agents.AgentOutcome{}, fmt.Errorf("load agent result: %w", err)
	}
	if result.Status == store.AgentCompleted {
		return agents.AgentOutcome{Results: result.Results, Summary: result.Summary, RiskLevel: result.RiskLevel}, nil
	}

	started := time.Now()
	result.Status = store.AgentRunning
	result.StartedAt = &started
	if err := o.store.UpdateAgentResult(ctx, result); err != nil {
		return agents.AgentOutcome{}, fmt.Errorf("mark agent running: %w", err)
	}

	outcome, runErr := agent.Analyse(ctx, dctx)
	completed := time.Now()
	result.CompletedAt = &completed

	if runErr != nil {
		result.Status = store.AgentFailed
		result.ErrorMessage = runErr.Error()
		_ = o.store.UpdateAgentResult(ctx, result)
		log.Printf("[Orchestrator] document %s: agent %s failed: %v", dctx.Document.ID, agent.Name(), runErr)
		return outcome, runErr
	}

	result.Status = store.AgentCompleted
	result.Results = outcome.Results
	result.Summary = outcome.Summary
	result.RiskLevel = outcome.RiskLevel
	if err := o.store.UpdateAgentResult(ctx, result); err != nil {
		return outcome, fmt.Errorf("mark agent completed: %w", err)
	}
	return outcome, nil
}
