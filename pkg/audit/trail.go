// Package audit implements an append-only, hash-chained trail of decision
// lifecycle events. Each entry binds its payload hash to the previous entry's
// hash, so any retroactive edit breaks verification from that point on.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trustchain-labs/trustchain/pkg/canonicalize"
)

var (
	ErrEntryNotFound = errors.New("audit entry not found")
	ErrChainBroken   = errors.New("audit chain is broken")
)

// EventType categorizes trail entries by decision lifecycle stage.
type EventType string

const (
	EventDecisionRequested EventType = "decision_requested"
	EventProviderResponse  EventType = "provider_response"
	EventProviderFailure   EventType = "provider_failure"
	EventConsensusReached  EventType = "consensus_reached"
	EventSafetyAssessed    EventType = "safety_assessed"
	EventDecisionCompleted EventType = "decision_completed"
	EventDecisionFailed    EventType = "decision_failed"
)

// Entry is a single immutable trail record.
type Entry struct {
	EntryID      string          `json:"entry_id"`
	Sequence     uint64          `json:"sequence"`
	Timestamp    time.Time       `json:"timestamp"`
	EventType    EventType       `json:"event_type"`
	CaseID       string          `json:"case_id"`
	Payload      json.RawMessage `json:"payload"`
	PayloadHash  string          `json:"payload_hash"`
	PreviousHash string          `json:"previous_hash"`
	EntryHash    string          `json:"entry_hash"`
}

// Trail is an in-memory append-only audit log with hash chaining. Safe for
// concurrent use.
type Trail struct {
	mu       sync.RWMutex
	entries  []*Entry
	byID     map[string]*Entry
	sequence uint64
	head     string
}

// NewTrail creates an empty trail with a "genesis" chain head.
func NewTrail() *Trail {
	return &Trail{
		byID: make(map[string]*Entry),
		head: "genesis",
	}
}

// Record appends a lifecycle event. The payload is canonicalized before
// hashing so semantically equal payloads always produce the same hash.
func (t *Trail) Record(eventType EventType, caseID string, payload interface{}) (*Entry, error) {
	canonical, err := canonicalize.JCS(payload)
	if err != nil {
		return nil, fmt.Errorf("canonicalize audit payload: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.sequence++
	e := &Entry{
		EntryID:      uuid.New().String(),
		Sequence:     t.sequence,
		Timestamp:    time.Now().UTC(),
		EventType:    eventType,
		CaseID:       caseID,
		Payload:      canonical,
		PayloadHash:  hash(canonical),
		PreviousHash: t.head,
	}
	e.EntryHash = entryHash(e)
	t.head = e.EntryHash

	t.entries = append(t.entries, e)
	t.byID[e.EntryID] = e
	return e, nil
}

// Get retrieves an entry by ID.
func (t *Trail) Get(entryID string) (*Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.byID[entryID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return e, nil
}

// Head returns the current chain head hash.
func (t *Trail) Head() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.head
}

// Size returns the number of entries.
func (t *Trail) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Filter selects trail entries; zero fields match everything.
type Filter struct {
	EventType EventType
	CaseID    string
	StartSeq  uint64
	EndSeq    uint64
	Limit     int
}

func (f Filter) matches(e *Entry) bool {
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.CaseID != "" && e.CaseID != f.CaseID {
		return false
	}
	if f.StartSeq > 0 && e.Sequence < f.StartSeq {
		return false
	}
	if f.EndSeq > 0 && e.Sequence > f.EndSeq {
		return false
	}
	return true
}

// Query returns entries matching the filter in append order.
func (t *Trail) Query(f Filter) []*Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Entry, 0)
	for _, e := range t.entries {
		if f.matches(e) {
			out = append(out, e)
			if f.Limit > 0 && len(out) >= f.Limit {
				break
			}
		}
	}
	return out
}

// Verify walks the full chain from genesis, recomputing every entry hash.
func (t *Trail) Verify() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	expectedPrev := "genesis"
	for i, e := range t.entries {
		if e.PreviousHash != expectedPrev {
			return fmt.Errorf("%w: entry %d has previous_hash %s, expected %s",
				ErrChainBroken, i, e.PreviousHash, expectedPrev)
		}
		if hash(e.Payload) != e.PayloadHash {
			return fmt.Errorf("%w: entry %d payload hash mismatch", ErrChainBroken, i)
		}
		if computed := entryHash(e); computed != e.EntryHash {
			return fmt.Errorf("%w: entry %d hash mismatch (computed %s, stored %s)",
				ErrChainBroken, i, computed, e.EntryHash)
		}
		expectedPrev = e.EntryHash
	}
	return nil
}

func hash(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// entryHash covers every field that must be tamper-evident, including the
// previous hash that forms the chain link.
func entryHash(e *Entry) string {
	hashable := struct {
		Sequence     uint64    `json:"sequence"`
		Timestamp    time.Time `json:"timestamp"`
		EventType    EventType `json:"event_type"`
		CaseID       string    `json:"case_id"`
		PayloadHash  string    `json:"payload_hash"`
		PreviousHash string    `json:"previous_hash"`
	}{
		Sequence:     e.Sequence,
		Timestamp:    e.Timestamp,
		EventType:    e.EventType,
		CaseID:       e.CaseID,
		PayloadHash:  e.PayloadHash,
		PreviousHash: e.PreviousHash,
	}
	data, _ := json.Marshal(hashable)
	return hash(data)
}
