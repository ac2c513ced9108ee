package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
)

// Collection names. Firestore's Go client serialises structs using their
// `firestore` struct tags, so the entities in types.go round-trip through
// Set/Get/DataTo directly.
const (
	collUploadGroups       = "uploadGroups"
	collDocuments          = "documents"
	collRawTransactions    = "rawTransactions"
	collStatementMetrics   = "statementMetrics"
	collAggregatedMetrics  = "aggregatedMetrics"
	collAgentResults       = "agentResults"
	collGroupAgentResults  = "groupAgentResults"
)

// FirestoreStore implements Store using Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) Store {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) CreateUploadGroup(ctx context.Context, group *UploadGroup) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	_, err := s.client.Collection(collUploadGroups).Doc(group.ID).Set(ctx, group)
	return err
}

func (s *FirestoreStore) GetUploadGroup(ctx context.Context, groupID string) (*UploadGroup, error) {
	doc, err := s.client.Collection(collUploadGroups).Doc(groupID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("upload group not found: %w", err)
	}
	var g UploadGroup
	if err := doc.DataTo(&g); err != nil {
		return nil, fmt.Errorf("parse upload group: %w", err)
	}
	return &g, nil
}

func (s *FirestoreStore) CreateDocument(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	_, err := s.client.Collection(collDocuments).Doc(doc.ID).Set(ctx, doc)
	return err
}

func (s *FirestoreStore) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	snap, err := s.client.Collection(collDocuments).Doc(documentID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("document not found: %w", err)
	}
	var d Document
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &d, nil
}

func (s *FirestoreStore) UpdateDocument(ctx context.Context, doc *Document) error {
	_, err := s.client.Collection(collDocuments).Doc(doc.ID).Set(ctx, doc)
	return err
}

func (s *FirestoreStore) DeleteDocument(ctx context.Context, documentID string) error {
	batch := s.client.Batch()
	batch.Delete(s.client.Collection(collDocuments).Doc(documentID))
	batch.Delete(s.client.Collection(collStatementMetrics).Doc(documentID))
	for _, at := range []AgentType{AgentLayout, AgentExtraction, AgentTampering, AgentFraud, AgentInsights} {
		batch.Delete(s.client.Collection(collAgentResults).Doc(documentID + "_" + string(at)))
	}
	txns, err := s.client.Collection(collRawTransactions).Where("documentId", "==", documentID).Documents(ctx).GetAll()
	if err == nil {
		for _, t := range txns {
			batch.Delete(t.Ref)
		}
	}
	_, err = batch.Commit(ctx)
	return err
}

func (s *FirestoreStore) ListDocumentsByGroup(ctx context.Context, groupID string) ([]*Document, error) {
	snaps, err := s.client.Collection(collDocuments).Where("groupId", "==", groupID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]*Document, 0, len(snaps))
	for _, snap := range snaps {
		var d Document
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("parse document: %w", err)
		}
		out = append(out, &d)
	}
	return out, nil
}

func (s *FirestoreStore) CreateRawTransactions(ctx context.Context, txns []*RawTransaction) error {
	if len(txns) == 0 {
		return nil
	}
	batch := s.client.Batch()
	for _, t := range txns {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		batch.Set(s.client.Collection(collRawTransactions).Doc(t.ID), t)
	}
	_, err := batch.Commit(ctx)
	return err
}

func (s *FirestoreStore) ListRawTransactionsByDocument(ctx context.Context, documentID string) ([]*RawTransaction, error) {
	return s.queryTransactions(ctx, "documentId", documentID)
}

func (s *FirestoreStore) ListRawTransactionsByGroup(ctx context.Context, groupID string) ([]*RawTransaction, error) {
	return s.queryTransactions(ctx, "groupId", groupID)
}

func (s *FirestoreStore) queryTransactions(ctx context.Context, field, value string) ([]*RawTransaction, error) {
	snaps, err := s.client.Collection(collRawTransactions).Where(field, "==", value).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]*RawTransaction, 0, len(snaps))
	for _, snap := range snaps {
		var t RawTransaction
		if err := snap.DataTo(&t); err != nil {
			return nil, fmt.Errorf("parse raw transaction: %w", err)
		}
		out = append(out, &t)
	}
	return out, nil
}

func (s *FirestoreStore) DeleteRawTransactionsByDocument(ctx context.Context, documentID string) error {
	snaps, err := s.client.Collection(collRawTransactions).Where("documentId", "==", documentID).Documents(ctx).GetAll()
	if err != nil {
		return err
	}
	batch := s.client.Batch()
	for _, snap := range snaps {
		batch.Delete(snap.Ref)
	}
	_, err = batch.Commit(ctx)
	return err
}

func (s *FirestoreStore) UpsertStatementMetrics(ctx context.Context, m *StatementMetrics) error {
	_, err := s.client.Collection(collStatementMetrics).Doc(m.DocumentID).Set(ctx, m)
	return err
}

func (s *FirestoreStore) GetStatementMetrics(ctx context.Context, documentID string) (*StatementMetrics, error) {
	snap, err := s.client.Collection(collStatementMetrics).Doc(documentID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("statement metrics not found: %w", err)
	}
	var m StatementMetrics
	if err := snap.DataTo(&m); err != nil {
		return nil, fmt.Errorf("parse statement metrics: %w", err)
	}
	return &m, nil
}

func (s *FirestoreStore) ListStatementMetricsByGroup(ctx context.Context, groupID string) ([]*StatementMetrics, error) {
	snaps, err := s.client.Collection(collStatementMetrics).Where("groupId", "==", groupID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]*StatementMetrics, 0, len(snaps))
	for _, snap := range snaps {
		var m StatementMetrics
		if err := snap.DataTo(&m); err != nil {
			return nil, fmt.Errorf("parse statement metrics: %w", err)
		}
		out = append(out, &m)
	}
	return out, nil
}

func (s *FirestoreStore) UpsertAggregatedMetrics(ctx context.Context, m *AggregatedMetrics) error {
	_, err := s.client.Collection(collAggregatedMetrics).Doc(m.GroupID).Set(ctx, m)
	return err
}

func (s *FirestoreStore) GetAggregatedMetrics(ctx context.Context, groupID string) (*AggregatedMetrics, error) {
	snap, err := s.client.Collection(collAggregatedMetrics).Doc(groupID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregated metrics not found: %w", err)
	}
	var m AggregatedMetrics
	if err := snap.DataTo(&m); err != nil {
		return nil, fmt.Errorf("parse aggregated metrics: %w", err)
	}
	return &m, nil
}

func (s *FirestoreStore) GetOrCreateAgentResult(ctx context.Context, documentID, groupID string, agentType AgentType) (*AgentResult, error) {
	docRef := s.client.Collection(collAgentResults).Doc(documentID + "_" + string(agentType))
	snap, err := docRef.Get(ctx)
	if err == nil {
		var r AgentResult
		if err := snap.DataTo(&r); err != nil {
			return nil, fmt.Errorf("parse agent result: %w", err)
		}
		return &r, nil
	}
	r := &AgentResult{DocumentID: documentID, GroupID: groupID, AgentType: agentType, Status: AgentPending}
	if _, err := docRef.Set(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *FirestoreStore) UpdateAgentResult(ctx context.Context, result *AgentResult) error {
	docRef := s.client.Collection(collAgentResults).Doc(result.DocumentID + "_" + string(result.AgentType))
	_, err := docRef.Set(ctx, result)
	return err
}

func (s *FirestoreStore) GetAgentResult(ctx context.Context, documentID string, agentType AgentType) (*AgentResult, error) {
	snap, err := s.client.Collection(collAgentResults).Doc(documentID + "_" + string(agentType)).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("agent result not found: %w", err)
	}
	var r AgentResult
	if err := snap.DataTo(&r); err != nil {
		return nil, fmt.Errorf("parse agent result: %w", err)
	}
	return &r, nil
}

func (s *FirestoreStore) ListAgentResultsByDocument(ctx context.Context, documentID string) ([]*AgentResult, error) {
	snaps, err := s.client.Collection(collAgentResults).Where("documentId", "==", documentID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]*AgentResult, 0, len(snaps))
	for _, snap := range snaps {
		var r AgentResult
		if err := snap.DataTo(&r); err != nil {
			return nil, fmt.Errorf("parse agent result: %w", err)
		}
		out = append(out, &r)
	}
	return out, nil
}

func (s *FirestoreStore) GetOrCreateGroupAgentResult(ctx context.Context, groupID string, agentType AgentType) (*GroupAgentResult, error) {
	docRef := s.client.Collection(collGroupAgentResults).Doc(groupID + "_" + string(agentType))
	snap, err := docRef.Get(ctx)
	if err == nil {
		var r GroupAgentResult
		if err := snap.DataTo(&r); err != nil {
			return nil, fmt.Errorf("parse group agent result: %w", err)
		}
		return &r, nil
	}
	r := &GroupAgentResult{GroupID: groupID, AgentType: agentType, Status: AgentPending}
	if _, err := docRef.Set(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *FirestoreStore) UpdateGroupAgentResult(ctx context.Context, result *GroupAgentResult) error {
	docRef := s.client.Collection(collGroupAgentResults).Doc(result.GroupID + "_" + string(result.AgentType))
	_, err := docRef.Set(ctx, result)
	return err
}

func (s *FirestoreStore) GetGroupAgentResult(ctx context.Context, groupID string, agentType AgentType) (*GroupAgentResult, error) {
	snap, err := s.client.Collection(collGroupAgentResults).Doc(groupID + "_" + string(agentType)).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("group agent result not found: %w", err)
	}
	var r GroupAgentResult
	if err := snap.DataTo(&r); err != nil {
		return nil, fmt.Errorf("parse group agent result: %w", err)
	}
	return &r, nil
}

var _ Store = (*FirestoreStore)(nil)
