package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/castlemilk/thirdeye/backend/internal/agents"
	"github.com/castlemilk/thirdeye/backend/internal/store"
)

// maybeProcessGroup checks whether every document in groupID has finished
// its document-level pipeline and, if so, runs the group-level stage.
// Several documents can finish within the same instant and all reach this
// check true; the loser in the (group,agent) race inside runGroupAgent
// simply returns without re-running anything, so calling ProcessGroup more
// than once here is harmless, not just tolerated.
func (o *Orchestrator) maybeProcessGroup(ctx context.Context, groupID string) error {
	docs, err := o.store.ListDocumentsByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list documents for group %s: %w", groupID, err)
	}
	for _, d := range docs {
		if d.Status != store.DocumentCompleted {
			return nil // not all siblings done yet
		}
	}

	// A single-document group has nothing to cross-check: persist its
	// aggregated metrics and skip the group-level agents.
	if len(docs) <= 1 {
		return o.aggregateAndSave(ctx, groupID)
	}
	return o.ProcessGroup(ctx, groupID)
}

func (o *Orchestrator) aggregateAndSave(ctx context.Context, groupID string) error {
	txns, err := o.store.ListRawTransactionsByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list transactions for group %s: %w", groupID, err)
	}
	metricsList, err := o.store.ListStatementMetricsByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list statement metrics for group %s: %w", groupID, err)
	}
	aggregated := aggregateMetrics(groupID, metricsList, txns)
	if err := o.store.UpsertAggregatedMetrics(ctx, aggregated); err != nil {
		return fmt.Errorf("save aggregated metrics for group %s: %w", groupID, err)
	}
	return nil
}

// ProcessGroup runs the group-level stage: Tampering, then Fraud, then
// Insights, serially (unlike the document-level wave 3, group mode's
// Fraud/Insights lean on each other's prior findings rather than running
// independently). Requires every document in the group to already be
// DocumentCompleted.
func (o *Orchestrator) ProcessGroup(ctx context.Context, groupID string) error {
	group, err := o.store.GetUploadGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("load group %s: %w", groupID, err)
	}
	docs, err := o.store.ListDocumentsByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list documents for group %s: %w", groupID, err)
	}
	for _, d := range docs {
		if d.Status != store.DocumentCompleted {
			return fmt.Errorf("group %s: document %s not yet completed", groupID, d.ID)
		}
	}

	documentPDFs := map[string][]byte{}
	for _, d := range docs {
		data, err := o.loadPDF(d.Path)
		if err != nil {
			log.Printf("[Orchestrator] group %s: could not reload PDF for document %s: %v", groupID, d.ID, err)
			continue
		}
		documentPDFs[d.ID] = data
	}

	txns, err := o.store.ListRawTransactionsByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list transactions for group %s: %w", groupID, err)
	}
	metricsList, err := o.store.ListStatementMetricsByGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("list statement metrics for group %s: %w", groupID, err)
	}

	priorResults := map[store.AgentType][]*store.AgentResult{}
	for _, at := range []store.AgentType{store.AgentTampering, store.AgentFraud, store.AgentInsights} {
		var perDoc []*store.AgentResult
		for _, d := range docs {
			r, err := o.store.GetAgentResult(ctx, d.ID, at)
			if err == nil {
				perDoc = append(perDoc, r)
			}
		}
		priorResults[at] = perDoc
	}

	gctx := &agents.GroupContext{
		Group:        group,
		Documents:    docs,
		DocumentPDFs: documentPDFs,
		Transactions: txns,
		Metrics:      metricsList,
		PriorResults: priorResults,
	}

	// A group agent failure is recorded on its own GroupAgentResult and must
	// not stop the remaining agents or the metrics aggregation. The one early
	// return is the at-most-once race loser: a sibling ProcessGroup call owns
	// the Running gate and will finish the whole serial stage itself.
	for _, ga := range []agents.GroupAgent{o.tampering, o.fraud, o.insights} {
		log.Printf("[Orchestrator] group %s: %s", groupID, ga.Name())
		if _, err := o.runGroupAgent(ctx, gctx, ga); err != nil {
			if errors.Is(err, errAlreadyRunning) {
				return nil
			}
			log.Printf("[Orchestrator] group %s: agent %s failed, continuing: %v", groupID, ga.Name(), err)
		}
	}

	aggregated := aggregateMetrics(groupID, metricsList, txns)
	if err := o.store.UpsertAggregatedMetrics(ctx, aggregated); err != nil {
		return fmt.Errorf("save aggregated metrics for group %s: %w", groupID, err)
	}
	return nil
}

// runGroupAgent applies the idempotent (group,agent) status gate, mirroring
// runDocumentAgent. A gate already Running when this call arrives means a
// concurrent ProcessGroup call is handling it; this call returns
// errAlreadyRunning and the caller treats that as a no-op, not a failure.
func (o *Orchestrator) runGroupAgent(ctx context.Context, gctx *agents.GroupContext, agent agents.GroupAgent) (agents.AgentOutcome, error) {
	result, err := o.store.GetOrCreateGroupAgentResult(ctx, gctx.Group.ID, agent.Name())
	if err != nil {
		return agents.AgentOutcome{}, fmt.Errorf("load group agent result: %w", err)
	}
	if result.Status == store.AgentCompleted {
		return agents.AgentOutcome{Results: result.Results, Summary: result.Summary, RiskLevel: result.RiskLevel}, nil
	}
	if result.Status == store.AgentRunning {
		return agents.AgentOutcome{}, errAlreadyRunning
	}

	started := time.Now()
	result.Status = store.AgentRunning
	result.StartedAt = &started
	if err := o.store.UpdateGroupAgentResult(ctx, result); err != nil {
		return agents.AgentOutcome{}, fmt.Errorf("mark group agent running: %w", err)
	}

	outcome, runErr := agent.AnalyseGroup(ctx, gctx)
	completed := time.Now()
	result.CompletedAt = &completed

	if runErr != nil {
		result.Status = store.AgentFailed
		result.ErrorMessage = runErr.Error()
		_ = o.store.UpdateGroupAgentResult(ctx, result)
		log.Printf("[Orchestrator] group %s: agent %s failed: %v", gctx.Group.ID, agent.Name(), runErr)
		return outcome, runErr
	}

	result.Status = store.AgentCompleted
	result.Results = outcome.Results
	result.Summary = outcome.Summary
	result.RiskLevel = outcome.RiskLevel
	if err := o.store.UpdateGroupAgentResult(ctx, result); err != nil {
		return outcome, fmt.Errorf("mark group agent completed: %w", err)
	}
	return outcome, nil
}
