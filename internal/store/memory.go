package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store backed by maps guarded by a single
// RWMutex, used for local development and tests in place of Firestore.
type MemoryStore struct {
	mu sync.RWMutex

	groups       map[string]*UploadGroup
	documents    map[string]*Document
	txByDoc      map[string][]*RawTransaction
	stmtMetrics  map[string]*StatementMetrics
	aggMetrics   map[string]*AggregatedMetrics
	agentResults map[string]*AgentResult      // key: documentID+"|"+agentType
	groupResults map[string]*GroupAgentResult // key: groupID+"|"+agentType
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		groups:       make(map[string]*UploadGroup),
		documents:    make(map[string]*Document),
		txByDoc:      make(map[string][]*RawTransaction),
		stmtMetrics:  make(map[string]*StatementMetrics),
		aggMetrics:   make(map[string]*AggregatedMetrics),
		agentResults: make(map[string]*AgentResult),
		groupResults: make(map[string]*GroupAgentResult),
	}
}

func agentKey(documentID string, agentType AgentType) string {
	return documentID + "|" + string(agentType)
}

func groupAgentKey(groupID string, agentType AgentType) string {
	return groupID + "|" + string(agentType)
}

func (s *MemoryStore) CreateUploadGroup(_ context.Context, group *UploadGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	cp := *group
	s.groups[group.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUploadGroup(_ context.Context, groupID string) (*UploadGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *MemoryStore) CreateDocument(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	cp := *doc
	s.documents[doc.ID] = &cp
	return nil
}

func (s *MemoryStore) GetDocument(_ context.Context, documentID string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[documentID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) UpdateDocument(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; !ok {
		return ErrNotFound
	}
	cp := *doc
	s.documents[doc.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, documentID)
	delete(s.txByDoc, documentID)
	delete(s.stmtMetrics, documentID)
	for _, at := range []AgentType{AgentLayout, AgentExtraction, AgentTampering, AgentFraud, AgentInsights} {
		delete(s.agentResults, agentKey(documentID, at))
	}
	return nil
}

func (s *MemoryStore) ListDocumentsByGroup(_ context.Context, groupID string) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Document
	for _, d := range s.documents {
		if d.GroupID == groupID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateRawTransactions(_ context.Context, txns []*RawTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range txns {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		cp := *t
		s.txByDoc[t.DocumentID] = append(s.txByDoc[t.DocumentID], &cp)
	}
	return nil
}

func (s *MemoryStore) ListRawTransactionsByDocument(_ context.Context, documentID string) ([]*RawTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.txByDoc[documentID]
	out := make([]*RawTransaction, len(src))
	for i, t := range src {
		cp := *t
		out[i] = &cp
	}
	return out, nil
}

func (s *MemoryStore) ListRawTransactionsByGroup(_ context.Context, groupID string) ([]*RawTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*RawTransaction
	for _, txns := range s.txByDoc {
		for _, t := range txns {
			if t.GroupID == groupID {
				cp := *t
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteRawTransactionsByDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.txByDoc, documentID)
	return nil
}

func (s *MemoryStore) UpsertStatementMetrics(_ context.Context, m *StatementMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.stmtMetrics[m.DocumentID] = &cp
	return nil
}

func (s *MemoryStore) GetStatementMetrics(_ context.Context, documentID string) (*StatementMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.stmtMetrics[documentID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) ListStatementMetricsByGroup(_ context.Context, groupID string) ([]*StatementMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*StatementMetrics
	for _, m := range s.stmtMetrics {
		if m.GroupID == groupID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpsertAggregatedMetrics(_ context.Context, m *AggregatedMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.aggMetrics[m.GroupID] = &cp
	return nil
}

func (s *MemoryStore) GetAggregatedMetrics(_ context.Context, groupID string) (*AggregatedMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.aggMetrics[groupID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) GetOrCreateAgentResult(_ context.Context, documentID, groupID string, agentType AgentType) (*AgentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := agentKey(documentID, agentType)
	if r, ok := s.agentResults[key]; ok {
		cp := *r
		return &cp, nil
	}
	r := &AgentResult{DocumentID: documentID, GroupID: groupID, AgentType: agentType, Status: AgentPending}
	s.agentResults[key] = r
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) UpdateAgentResult(_ context.Context, result *AgentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *result
	s.agentResults[agentKey(result.DocumentID, result.AgentType)] = &cp
	return nil
}

func (s *MemoryStore) GetAgentResult(_ context.Context, documentID string, agentType AgentType) (*AgentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.agentResults[agentKey(documentID, agentType)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListAgentResultsByDocument(_ context.Context, documentID string) ([]*AgentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*AgentResult
	for _, at := range []AgentType{AgentLayout, AgentExtraction, AgentTampering, AgentFraud, AgentInsights} {
		if r, ok := s.agentResults[agentKey(documentID, at)]; ok {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetOrCreateGroupAgentResult(_ context.Context, groupID string, agentType AgentType) (*GroupAgentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := groupAgentKey(groupID, agentType)
	if r, ok := s.groupResults[key]; ok {
		cp := *r
		return &cp, nil
	}
	r := &GroupAgentResult{GroupID: groupID, AgentType: agentType, Status: AgentPending}
	s.groupResults[key] = r
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) UpdateGroupAgentResult(_ context.Context, result *GroupAgentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *result
	s.groupResults[groupAgentKey(result.GroupID, result.AgentType)] = &cp
	return nil
}

func (s *MemoryStore) GetGroupAgentResult(_ context.Context, groupID string, agentType AgentType) (*GroupAgentResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.groupResults[groupAgentKey(groupID, agentType)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

var _ Store = (*MemoryStore)(nil)
