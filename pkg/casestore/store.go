// Package casestore persists decision records. Two implementations share one
// contract: an in-memory store for tests and single-process use, and a
// SQLite-backed store for durable audit retention.
package casestore

import (
	"context"
	"errors"
	"sync"

	"github.com/trustchain-labs/trustchain/pkg/decision"
)

var ErrNotFound = errors.New("decision record not found")

// Filter selects records; zero fields match everything.
type Filter struct {
	CaseID       string
	DecisionType string
	Status       decision.Status
	Limit        int
}

// Store is the persistence contract for decision records.
type Store interface {
	// Put inserts or replaces the record keyed by its ID.
	Put(ctx context.Context, rec *decision.Record) error
	// Get retrieves a record by decision ID.
	Get(ctx context.Context, id string) (*decision.Record, error)
	// List returns matching records in insertion order.
	List(ctx context.Context, f Filter) ([]*decision.Record, error)
}

func (f Filter) matches(rec *decision.Record) bool {
	if f.CaseID != "" && rec.CaseID != f.CaseID {
		return false
	}
	if f.DecisionType != "" && rec.DecisionType != f.DecisionType {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	return true
}

// MemoryStore keeps records in memory, preserving insertion order for List.
// Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*decision.Record
	order []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*decision.Record)}
}

func (s *MemoryStore) Put(_ context.Context, rec *decision.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	cp := *rec
	s.byID[rec.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*decision.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]*decision.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*decision.Record, 0)
	for _, id := range s.order {
		rec := s.byID[id]
		if !f.matches(rec) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}
