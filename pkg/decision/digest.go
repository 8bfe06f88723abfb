package decision

import (
	"errors"
	"time"

	"github.com/trustchain-labs/trustchain/pkg/canonicalize"
)

// ErrDigestAlreadyStamped is returned when StampDigest is called twice.
var ErrDigestAlreadyStamped = errors.New("decision: audit digest already stamped")

// ErrNotTerminal is returned when stamping a record that has not reached a
// terminal status yet.
var ErrNotTerminal = errors.New("decision: record status is not terminal")

// digestDecision is the canonical per-model slice entry hashed into the digest.
type digestDecision struct {
	Provider   string  `json:"provider"`
	Outcome    Outcome `json:"outcome"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
}

// digestPayload is the canonical structure covered by the audit digest.
// Field ordering is fixed by JCS key sorting, so adding fields here is a
// breaking change for previously stamped records.
type digestPayload struct {
	DecisionID  string                 `json:"decision_id"`
	CaseID      string                 `json:"case_id"`
	InputFields map[string]interface{} `json:"input_fields"`
	Decisions   []digestDecision       `json:"model_decisions"`
	Final       string                 `json:"final"`
	CreatedAt   string                 `json:"created_at"`
}

// ComputeDigest derives the audit digest from the record's current contents.
// It does not store the result; see StampDigest.
func (r *Record) ComputeDigest() (string, error) {
	payload := digestPayload{
		DecisionID:  r.ID,
		CaseID:      r.CaseID,
		InputFields: r.InputFields,
		Decisions:   make([]digestDecision, 0, len(r.Decisions)),
		Final:       string(r.Final),
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, d := range r.Decisions {
		payload.Decisions = append(payload.Decisions, digestDecision{
			Provider:   d.Provider,
			Outcome:    d.Outcome,
			Reasoning:  d.Reasoning,
			Confidence: d.Confidence,
		})
	}
	return canonicalize.Hash(payload)
}

// StampDigest computes and stores the audit digest. It may only be called
// once, after the record has reached a terminal status.
func (r *Record) StampDigest() error {
	if !r.Status.Terminal() {
		return ErrNotTerminal
	}
	if r.AuditDigest != "" {
		return ErrDigestAlreadyStamped
	}
	digest, err := r.ComputeDigest()
	if err != nil {
		return err
	}
	r.AuditDigest = digest
	return nil
}

// VerifyDigest recomputes the digest from current contents and compares it
// with the stored one. False means the record was altered after stamping
// (or was never stamped). Detection only; the record is not repaired.
func (r *Record) VerifyDigest() bool {
	if r.AuditDigest == "" {
		return false
	}
	digest, err := r.ComputeDigest()
	if err != nil {
		return false
	}
	return digest == r.AuditDigest
}
