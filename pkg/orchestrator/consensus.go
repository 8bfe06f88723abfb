package orchestrator

import (
	"fmt"
	"strings"

	"github.com/trustchain-labs/trustchain/pkg/decision"
)

// tieBreakPriority orders outcome categories safest-first. When vote counts
// tie, the earliest category in this list wins, so an even split can never
// silently approve.
var tieBreakPriority = []decision.Outcome{
	decision.OutcomeNeedsReview,
	decision.OutcomeDeny,
	decision.OutcomeApprove,
}

// analyzeConsensus tallies outcome votes and computes agreement statistics
// over the valid model decisions. Callers guarantee len(decisions) > 0.
func analyzeConsensus(decisions []decision.ModelDecision) *decision.Consensus {
	votes := make(map[decision.Outcome]int, len(tieBreakPriority))
	for _, d := range decisions {
		votes[d.Outcome]++
	}

	majority := tieBreakPriority[0]
	best := -1
	for _, o := range tieBreakPriority {
		if votes[o] > best {
			best = votes[o]
			majority = o
		}
	}

	var dissenting []string
	for _, d := range decisions {
		if d.Outcome != majority {
			dissenting = append(dissenting, d.Provider)
		}
	}

	c := &decision.Consensus{
		AgreementLevel:     float64(best) / float64(len(decisions)),
		Majority:           majority,
		Dissenting:         dissenting,
		ConfidenceVariance: confidenceVariance(decisions),
	}
	if len(dissenting) > 0 {
		c.Divergence = fmt.Sprintf("%d of %d models dissent from %s: %s",
			len(dissenting), len(decisions), majority, strings.Join(dissenting, ", "))
	}
	return c
}

// confidenceVariance is the population variance of the confidence scores.
func confidenceVariance(decisions []decision.ModelDecision) float64 {
	if len(decisions) < 2 {
		return 0
	}
	var sum float64
	for _, d := range decisions {
		sum += d.Confidence
	}
	mean := sum / float64(len(decisions))

	var ss float64
	for _, d := range decisions {
		diff := d.Confidence - mean
		ss += diff * diff
	}
	return ss / float64(len(decisions))
}
