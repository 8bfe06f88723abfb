// Package decision defines the data model for multi-model adjudication:
// per-model decisions, consensus results, safety assessments, and the
// aggregate decision record with its tamper-evident audit digest.
package decision

import "time"

// Outcome is the structured decision category extracted from a model response.
type Outcome string

const (
	OutcomeApprove     Outcome = "approve"
	OutcomeDeny        Outcome = "deny"
	OutcomeNeedsReview Outcome = "needs_review"
)

// Status tracks a record through its lifecycle.
// PENDING -> IN_PROGRESS -> {COMPLETED | REQUIRES_REVIEW | FAILED}.
type Status string

const (
	StatusPending        Status = "pending"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusRequiresReview Status = "requires_review"
	StatusFailed         Status = "failed"
)

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRequiresReview, StatusFailed:
		return true
	}
	return false
}

// ModelDecision is one provider's outcome reduced to a structured category.
// Derived deterministically from the raw response; never mutated afterwards.
type ModelDecision struct {
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Outcome    Outcome   `json:"outcome"`
	Reasoning  string    `json:"reasoning"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	TokensUsed int       `json:"tokens_used,omitempty"`
	LatencyMS  float64   `json:"latency_ms,omitempty"`
}

// Consensus is the agreement analysis over a full set of model decisions.
type Consensus struct {
	// AgreementLevel is majority votes / total valid decisions, in (0, 1].
	AgreementLevel float64 `json:"agreement_level"`
	// Majority is the category with the most votes; ties break by fixed
	// category priority (needs_review, then deny, then approve).
	Majority Outcome `json:"majority"`
	// Dissenting lists providers whose category differs from the majority.
	Dissenting []string `json:"dissenting,omitempty"`
	// ConfidenceVariance is the population variance of confidence values.
	ConfidenceVariance float64 `json:"confidence_variance"`
	// Divergence is an optional free-text note on the disagreement.
	Divergence string `json:"divergence,omitempty"`
}

// SafetyAssessment is the safety engine's verdict on a decision round.
// MandatoryReview is binding: it overrides the consensus threshold check.
type SafetyAssessment struct {
	BiasDetected       bool     `json:"bias_detected"`
	BiasType           string   `json:"bias_type,omitempty"`
	AffectedAttributes []string `json:"affected_attributes,omitempty"`
	Triggers           []string `json:"triggers,omitempty"`
	Recommendation     string   `json:"recommendation"`
	MandatoryReview    bool     `json:"mandatory_review"`
}

// Record aggregates everything about one adjudicated case: inputs, the
// per-model decisions, consensus, safety assessment, status, and the audit
// digest stamped after the terminal status is set.
type Record struct {
	ID            string                 `json:"id"`
	CaseID        string                 `json:"case_id"`
	DecisionType  string                 `json:"decision_type"`
	InputFields   map[string]interface{} `json:"input_fields"`
	PolicyContext string                 `json:"policy_context,omitempty"`

	Decisions []ModelDecision   `json:"decisions,omitempty"`
	Final     Outcome           `json:"final,omitempty"`
	Consensus *Consensus        `json:"consensus,omitempty"`
	Safety    *SafetyAssessment `json:"safety,omitempty"`

	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at"`

	// AuditDigest is computed exactly once, after Status turns terminal.
	// Any later mutation of the record breaks VerifyDigest.
	AuditDigest string `json:"audit_digest,omitempty"`
}
