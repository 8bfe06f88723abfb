package orchestrator

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trustchain-labs/trustchain/pkg/decision"
	"github.com/trustchain-labs/trustchain/pkg/provider"
)

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    decision.Outcome
	}{
		{
			name:    "plain approval",
			content: "After reviewing the criteria, I approve this application.",
			want:    decision.OutcomeApprove,
		},
		{
			name:    "plain denial",
			content: "The claim is denied due to voluntary resignation.",
			want:    decision.OutcomeDeny,
		},
		{
			name:    "case insensitive",
			content: "DECISION: APPROVED. All criteria satisfied.",
			want:    decision.OutcomeApprove,
		},
		{
			name:    "uncertainty keyword overrides approval votes",
			content: "The applicant appears eligible and I would approve, but there is insufficient information about prior earnings.",
			want:    decision.OutcomeNeedsReview,
		},
		{
			name:    "human review request",
			content: "This case requires human review before proceeding.",
			want:    decision.OutcomeNeedsReview,
		},
		{
			name:    "equal approval and denial counts",
			content: "Arguments exist to grant the claim, and arguments exist to reject it.",
			want:    decision.OutcomeNeedsReview,
		},
		{
			name:    "no keywords at all",
			content: "The weather today is pleasant.",
			want:    decision.OutcomeNeedsReview,
		},
		{
			name:    "empty content",
			content: "",
			want:    decision.OutcomeNeedsReview,
		},
		{
			name:    "denial outweighs stray approval keyword",
			content: "Although the applicant may qualify on tenure, the claim is denied: the separation was a disqualifying resignation, so I reject it.",
			want:    decision.OutcomeDeny,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyOutcome(tt.content))
		})
	}
}

func TestToModelDecision(t *testing.T) {
	conf := 0.85
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res := &provider.Result{
		Provider:   "openai",
		Model:      "gpt-4o-mini",
		Content:    "Decision: APPROVE. The applicant qualifies.",
		Reasoning:  "The applicant qualifies on all criteria.",
		Confidence: &conf,
		Timestamp:  ts,
		TokensUsed: 120,
		LatencyMS:  350,
	}

	md := toModelDecision(res)
	assert.Equal(t, "openai", md.Provider)
	assert.Equal(t, decision.OutcomeApprove, md.Outcome)
	assert.Equal(t, "The applicant qualifies on all criteria.", md.Reasoning)
	assert.Equal(t, 0.85, md.Confidence)
	assert.Equal(t, ts, md.Timestamp)
	assert.Equal(t, 120, md.TokensUsed)
}

func TestToModelDecision_DefaultsAndFallbacks(t *testing.T) {
	res := &provider.Result{
		Provider: "llama",
		Model:    "llama3.1:8b",
		Content:  "The claim is denied.",
	}

	md := toModelDecision(res)
	assert.Equal(t, decision.OutcomeDeny, md.Outcome)
	// Raw content stands in when no reasoning was extracted.
	assert.Equal(t, "The claim is denied.", md.Reasoning)
	assert.Equal(t, 0.5, md.Confidence)
}

func TestToModelDecision_TruncatesLongImplicitReasoning(t *testing.T) {
	res := &provider.Result{
		Provider: "llama",
		Model:    "llama3.1:8b",
		Content:  "approve " + strings.Repeat("x", 600),
	}

	md := toModelDecision(res)
	assert.Len(t, md.Reasoning, maxImplicitReasoning)
}
