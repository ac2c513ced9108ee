package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_DocumentCRUD(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	doc := &Document{GroupID: "g1", Path: "/tmp/a.pdf", Status: DocumentUploaded}
	require.NoError(t, s.CreateDocument(ctx, doc))
	require.NotEmpty(t, doc.ID, "CreateDocument assigns an ID")

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.pdf", got.Path)
	assert.Equal(t, DocumentUploaded, got.Status)

	got.Status = DocumentCompleted
	require.NoError(t, s.UpdateDocument(ctx, got))
	reGot, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, DocumentCompleted, reGot.Status)

	require.NoError(t, s.DeleteDocument(ctx, doc.ID))
	_, err = s.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetDocument_MissingReturnsErrNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetDocument(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetDocument_ReturnsACopyNotAnAlias(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	doc := &Document{Path: "/tmp/a.pdf"}
	require.NoError(t, s.CreateDocument(ctx, doc))

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	got.Path = "/tmp/mutated.pdf"

	reGot, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.pdf", reGot.Path, "mutating a returned copy must not affect stored state")
}

func TestMemoryStore_ListDocumentsByGroup(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, g := range []string{"g1", "g1", "g2"} {
		require.NoError(t, s.CreateDocument(ctx, &Document{GroupID: g}))
	}
	docs, err := s.ListDocumentsByGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestMemoryStore_RawTransactions_ByDocumentAndGroup(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	txns := []*RawTransaction{
		{DocumentID: "d1", GroupID: "g1", Amount: 100},
		{DocumentID: "d1", GroupID: "g1", Amount: 200},
		{DocumentID: "d2", GroupID: "g1", Amount: 300},
	}
	require.NoError(t, s.CreateRawTransactions(ctx, txns))
	for _, tx := range txns {
		assert.NotEmpty(t, tx.ID, "CreateRawTransactions assigns IDs")
	}

	byDoc, err := s.ListRawTransactionsByDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, byDoc, 2)

	byGroup, err := s.ListRawTransactionsByGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, byGroup, 3)

	require.NoError(t, s.DeleteRawTransactionsByDocument(ctx, "d1"))
	byDoc, err = s.ListRawTransactionsByDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, byDoc)
}

func TestMemoryStore_StatementMetrics_UpsertOverwrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.UpsertStatementMetrics(ctx, &StatementMetrics{DocumentID: "d1", GroupID: "g1", ClosingBalance: 100}))
	require.NoError(t, s.UpsertStatementMetrics(ctx, &StatementMetrics{DocumentID: "d1", GroupID: "g1", ClosingBalance: 500}))

	m, err := s.GetStatementMetrics(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 500.0, m.ClosingBalance, "upsert overwrites")

	list, err := s.ListStatementMetricsByGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryStore_AggregatedMetrics(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.GetAggregatedMetrics(ctx, "g1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpsertAggregatedMetrics(ctx, &AggregatedMetrics{GroupID: "g1", ClosingBalance: 42}))
	m, err := s.GetAggregatedMetrics(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 42.0, m.ClosingBalance)
}

// Grounds the at-most-once (document, agent) gating the orchestrator relies
// on: a second call against the same key must return the already
// Running/Completed row, never reset it back to pending.
func TestMemoryStore_GetOrCreateAgentResult_IsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.GetOrCreateAgentResult(ctx, "doc1", "group1", AgentLayout)
	require.NoError(t, err)
	assert.Equal(t, AgentPending, first.Status, "freshly created row is pending")

	first.Status = AgentRunning
	require.NoError(t, s.UpdateAgentResult(ctx, first))

	second, err := s.GetOrCreateAgentResult(ctx, "doc1", "group1", AgentLayout)
	require.NoError(t, err)
	assert.Equal(t, AgentRunning, second.Status, "existing running row is returned, not reset")
}

func TestMemoryStore_AgentResult_ListByDocumentPreservesAgentOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, at := range []AgentType{AgentInsights, AgentLayout, AgentFraud} {
		_, err := s.GetOrCreateAgentResult(ctx, "doc1", "group1", at)
		require.NoError(t, err)
	}
	results, err := s.ListAgentResultsByDocument(ctx, "doc1")
	require.NoError(t, err)
	require.Len(t, results, 3)

	// ListAgentResultsByDocument iterates the fixed AgentLayout..AgentInsights
	// order, not insertion order.
	want := []AgentType{AgentLayout, AgentFraud, AgentInsights}
	for i, w := range want {
		assert.Equal(t, w, results[i].AgentType, "result[%d]", i)
	}
}

func TestMemoryStore_GetAgentResult_MissingReturnsErrNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetAgentResult(context.Background(), "doc1", AgentFraud)
	assert.ErrorIs(t, err, ErrNotFound)
}

// Grounds the group-level race-loser gating ProcessGroup depends on.
func TestMemoryStore_GetOrCreateGroupAgentResult_IsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.GetOrCreateGroupAgentResult(ctx, "group1", AgentTampering)
	require.NoError(t, err)
	first.Status = AgentRunning
	require.NoError(t, s.UpdateGroupAgentResult(ctx, first))

	second, err := s.GetOrCreateGroupAgentResult(ctx, "group1", AgentTampering)
	require.NoError(t, err)
	assert.Equal(t, AgentRunning, second.Status)

	got, err := s.GetGroupAgentResult(ctx, "group1", AgentTampering)
	require.NoError(t, err)
	assert.Equal(t, AgentRunning, got.Status)
}

func TestMemoryStore_GetGroupAgentResult_MissingReturnsErrNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetGroupAgentResult(context.Background(), "group1", AgentFraud)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_UploadGroup_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	g := &UploadGroup{OwnerID: "owner1"}
	require.NoError(t, s.CreateUploadGroup(ctx, g))
	require.NotEmpty(t, g.ID)

	got, err := s.GetUploadGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner1", got.OwnerID)
}
