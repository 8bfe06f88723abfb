//go:build property
// +build property

package orchestrator

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/trustchain-labs/trustchain/pkg/decision"
)

var outcomeValues = []decision.Outcome{
	decision.OutcomeApprove,
	decision.OutcomeDeny,
	decision.OutcomeNeedsReview,
}

func genDecisions() gopter.Gen {
	single := gopter.CombineGens(
		gen.IntRange(0, len(outcomeValues)-1),
		gen.Float64Range(0, 1),
	).Map(func(vals []interface{}) decision.ModelDecision {
		return decision.ModelDecision{
			Provider:   "p",
			Outcome:    outcomeValues[vals[0].(int)],
			Confidence: vals[1].(float64),
		}
	})
	return gen.SliceOfN(5, single).SuchThat(func(ds []decision.ModelDecision) bool {
		return len(ds) > 0
	})
}

// TestConsensusInvariants verifies structural invariants of the agreement
// analysis over arbitrary decision sets.
func TestConsensusInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("agreement level is majority share in (0, 1]", prop.ForAll(
		func(ds []decision.ModelDecision) bool {
			cons := analyzeConsensus(ds)

			votes := 0
			for _, d := range ds {
				if d.Outcome == cons.Majority {
					votes++
				}
			}
			if votes == 0 {
				return false
			}
			want := float64(votes) / float64(len(ds))
			return cons.AgreementLevel == want &&
				cons.AgreementLevel > 0 && cons.AgreementLevel <= 1
		},
		genDecisions(),
	))

	properties.Property("majority has at least as many votes as any category", prop.ForAll(
		func(ds []decision.ModelDecision) bool {
			cons := analyzeConsensus(ds)

			counts := make(map[decision.Outcome]int)
			for _, d := range ds {
				counts[d.Outcome]++
			}
			for _, n := range counts {
				if n > counts[cons.Majority] {
					return false
				}
			}
			return true
		},
		genDecisions(),
	))

	properties.Property("dissenting count complements majority votes", prop.ForAll(
		func(ds []decision.ModelDecision) bool {
			cons := analyzeConsensus(ds)

			votes := 0
			for _, d := range ds {
				if d.Outcome == cons.Majority {
					votes++
				}
			}
			return len(cons.Dissenting) == len(ds)-votes
		},
		genDecisions(),
	))

	properties.Property("variance is non-negative and bounded by 0.25", prop.ForAll(
		func(ds []decision.ModelDecision) bool {
			cons := analyzeConsensus(ds)
			return cons.ConfidenceVariance >= 0 && cons.ConfidenceVariance <= 0.25
		},
		genDecisions(),
	))

	properties.TestingRun(t)
}
