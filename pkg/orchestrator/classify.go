package orchestrator

import (
	"strings"

	"github.com/trustchain-labs/trustchain/pkg/decision"
	"github.com/trustchain-labs/trustchain/pkg/provider"
)

// neutralConfidence substitutes for a missing confidence score before any
// statistics are computed over the round.
const neutralConfidence = 0.5

// maxImplicitReasoning bounds how much raw content stands in for reasoning
// when a provider supplied none.
const maxImplicitReasoning = 500

// Fixed keyword families for outcome extraction. Matching is
// case-insensitive substring search; the lists are frozen so historical
// classifications stay reproducible.
var (
	approvalKeywords = []string{
		"approve", "approved", "approval", "grant", "granted",
		"accept", "accepted", "eligible", "qualify", "qualifies",
	}
	denialKeywords = []string{
		"deny", "denied", "denial", "reject", "rejected",
		"ineligible", "disqualify", "disqualified",
	}
	uncertaintyKeywords = []string{
		"unclear", "uncertain", "needs review", "human review",
		"unable to determine", "insufficient information",
	}
)

// classifyOutcome reduces free text to a decision category. Any uncertainty
// keyword wins outright; otherwise the approval and denial counts are
// compared, with ties (including zero-zero) treated as needing review.
func classifyOutcome(content string) decision.Outcome {
	lower := strings.ToLower(content)

	for _, kw := range uncertaintyKeywords {
		if strings.Contains(lower, kw) {
			return decision.OutcomeNeedsReview
		}
	}

	var approvals, denials int
	for _, kw := range approvalKeywords {
		if strings.Contains(lower, kw) {
			approvals++
		}
	}
	for _, kw := range denialKeywords {
		if strings.Contains(lower, kw) {
			denials++
		}
	}

	switch {
	case approvals > denials:
		return decision.OutcomeApprove
	case denials > approvals:
		return decision.OutcomeDeny
	default:
		return decision.OutcomeNeedsReview
	}
}

// toModelDecision reduces a raw provider result to a structured decision.
func toModelDecision(res *provider.Result) decision.ModelDecision {
	reasoning := res.Reasoning
	if reasoning == "" {
		reasoning = res.Content
		if len(reasoning) > maxImplicitReasoning {
			reasoning = reasoning[:maxImplicitReasoning]
		}
	}

	confidence := neutralConfidence
	if res.Confidence != nil {
		confidence = *res.Confidence
	}

	return decision.ModelDecision{
		Provider:   res.Provider,
		Model:      res.Model,
		Outcome:    classifyOutcome(res.Content),
		Reasoning:  reasoning,
		Confidence: confidence,
		Timestamp:  res.Timestamp,
		TokensUsed: res.TokensUsed,
		LatencyMS:  res.LatencyMS,
	}
}
