// Package safety screens decision rounds for bias and risk signals and can
// force human review regardless of how strongly the models agree. It never
// blocks or errors; it only annotates. The classifiers are deliberately
// simple, deterministic keyword and statistics checks so behavior stays
// reproducible and testable.
package safety

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/trustchain-labs/trustchain/pkg/decision"
)

// Trigger names a condition detected during safety assessment.
const (
	TriggerProtectedAttribute   = "protected_attribute_mentioned"
	TriggerLowConfidence        = "low_confidence_consensus"
	TriggerHighStakes           = "high_stakes_decision"
	TriggerConflictingReasoning = "conflicting_reasoning"
	TriggerInsufficientData     = "insufficient_data"
	TriggerDeportationRisk      = "deportation_risk"
)

// Options holds the heuristic thresholds. They are named configuration, not
// hard-coded literals, because the right values are policy decisions.
type Options struct {
	// ConfidenceThreshold is the minimum mean confidence for an automated
	// decision to stand.
	ConfidenceThreshold float64
	// VarianceThreshold flags full agreement reached with materially
	// different certainty, which suggests divergent justification paths.
	VarianceThreshold float64
	// ConsensusThreshold is the agreement level below which bias findings
	// escalate to mandatory review.
	ConsensusThreshold float64
}

// DefaultOptions returns the production thresholds.
func DefaultOptions() Options {
	return Options{
		ConfidenceThreshold: 0.7,
		VarianceThreshold:   0.1,
		ConsensusThreshold:  0.66,
	}
}

// Engine evaluates the safety rules. Stateless aside from configuration;
// safe for concurrent use.
type Engine struct {
	opts   Options
	logger *slog.Logger
}

// NewEngine builds an Engine, filling unset thresholds with defaults.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if opts.VarianceThreshold <= 0 {
		opts.VarianceThreshold = def.VarianceThreshold
	}
	if opts.ConsensusThreshold <= 0 {
		opts.ConsensusThreshold = def.ConsensusThreshold
	}
	return &Engine{
		opts:   opts,
		logger: slog.Default().With("component", "safety"),
	}
}

// Assess runs every rule, unions the results, and derives the binding
// mandatory-review flag. All rules are evaluated; nothing short-circuits.
func (e *Engine) Assess(decisions []decision.ModelDecision, cons decision.Consensus, decisionType string, inputFields map[string]interface{}) decision.SafetyAssessment {
	var (
		attrs    []Attribute
		attrSeen = map[Attribute]bool{}
		triggers []string
		trigSeen = map[string]bool{}
	)
	addTrigger := func(t string) {
		if !trigSeen[t] {
			trigSeen[t] = true
			triggers = append(triggers, t)
		}
	}

	// Rule 1: protected-attribute scan over each decision's reasoning.
	for _, d := range decisions {
		reasoning := strings.ToLower(d.Reasoning)
		for _, attr := range attributeOrder {
			for _, keyword := range protectedKeywords[attr] {
				if strings.Contains(reasoning, keyword) {
					if !attrSeen[attr] {
						attrSeen[attr] = true
						attrs = append(attrs, attr)
					}
					addTrigger(TriggerProtectedAttribute)
					e.logger.Warn("protected attribute mentioned",
						"attribute", attr, "keyword", keyword, "provider", d.Provider)
				}
			}
		}
	}

	// Rule 2: low mean confidence.
	meanConfidence := meanConfidence(decisions)
	if len(decisions) > 0 && meanConfidence < e.opts.ConfidenceThreshold {
		addTrigger(TriggerLowConfidence)
	}

	// Rule 3: high-stakes decision type.
	if highStakesTypes[decisionType] {
		addTrigger(TriggerHighStakes)
	}

	// Rule 4: full agreement with materially different certainty.
	if cons.AgreementLevel == 1.0 && cons.ConfidenceVariance > e.opts.VarianceThreshold {
		addTrigger(TriggerConflictingReasoning)
	}

	// Rule 5: required input fields missing for this decision type.
	var missing []string
	for _, field := range requiredFields[decisionType] {
		if _, ok := inputFields[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		addTrigger(TriggerInsufficientData)
		e.logger.Warn("missing required fields", "decision_type", decisionType, "fields", missing)
	}

	// Rule 6: deportation-class decisions always carry the critical trigger.
	if deportationTypes[decisionType] {
		addTrigger(TriggerDeportationRisk)
		e.logger.Error("deportation risk, mandatory human review required",
			"decision_type", decisionType)
	}

	biasDetected := len(attrs) > 0 || len(triggers) > 0

	assessment := decision.SafetyAssessment{
		BiasDetected:       biasDetected,
		BiasType:           categorize(attrs, trigSeen),
		AffectedAttributes: attributeNames(attrs),
		Triggers:           triggers,
		Recommendation:     e.recommendation(attrs, triggers, meanConfidence, missing),
		MandatoryReview:    e.mandatoryReview(attrs, decisionType, cons.AgreementLevel, biasDetected),
	}

	if biasDetected {
		e.logger.Warn("safety assessment flagged decision",
			"attributes", len(attrs), "triggers", len(triggers),
			"mandatory_review", assessment.MandatoryReview)
	} else {
		e.logger.Info("no bias indicators detected")
	}

	return assessment
}

// mandatoryReview applies the binding review rules. It overrides the
// consensus threshold check entirely: if any rule fires, a human reviews.
func (e *Engine) mandatoryReview(attrs []Attribute, decisionType string, agreement float64, biasDetected bool) bool {
	// Any protected attribute mention.
	if len(attrs) > 0 {
		return true
	}
	// Critical decision types are never automated.
	if criticalTypes[decisionType] {
		return true
	}
	// Weak consensus combined with bias indicators.
	if agreement < e.opts.ConsensusThreshold && biasDetected {
		return true
	}
	// Very weak consensus, full stop.
	if agreement < 0.5 {
		return true
	}
	return false
}

// recommendation assembles the human-readable explanation, one sentence per
// triggered condition.
func (e *Engine) recommendation(attrs []Attribute, triggers []string, meanConfidence float64, missing []string) string {
	if len(triggers) == 0 {
		return "No bias indicators detected. Decision may proceed if consensus is adequate."
	}

	var parts []string
	for _, trigger := range triggers {
		switch trigger {
		case TriggerProtectedAttribute:
			parts = append(parts, fmt.Sprintf(
				"CRITICAL: Protected attributes mentioned (%s). Verify decision is not based on discriminatory factors.",
				strings.Join(attributeNames(attrs), ", ")))
		case TriggerLowConfidence:
			parts = append(parts, fmt.Sprintf(
				"Models show low confidence (%.0f%%). Review case for missing information or ambiguity.",
				meanConfidence*100))
		case TriggerHighStakes:
			parts = append(parts,
				"High-stakes decision with significant impact on applicant. Ensure thorough review of all factors.")
		case TriggerConflictingReasoning:
			parts = append(parts,
				"Models agree on the outcome but with materially different certainty, suggesting divergent justifications. Compare their reasoning before finalizing.")
		case TriggerInsufficientData:
			parts = append(parts, fmt.Sprintf(
				"Required fields are missing (%s). Decision cannot be evaluated on complete information.",
				strings.Join(missing, ", ")))
		case TriggerDeportationRisk:
			parts = append(parts,
				"DEPORTATION RISK: This decision could result in removal from country. Mandatory legal review and applicant notification required.")
		}
	}
	return strings.Join(parts, " ")
}

// categorize labels the dominant bias signal.
func categorize(attrs []Attribute, triggered map[string]bool) string {
	if len(attrs) > 0 {
		return fmt.Sprintf("protected_attribute_bias (%s)", strings.Join(attributeNames(attrs), ", "))
	}
	if triggered[TriggerLowConfidence] {
		return "confidence_bias"
	}
	if triggered[TriggerConflictingReasoning] {
		return "reasoning_inconsistency"
	}
	if len(triggered) > 0 {
		return "safety_concern"
	}
	return ""
}

func attributeNames(attrs []Attribute) []string {
	if len(attrs) == 0 {
		return nil
	}
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = string(a)
	}
	return names
}

func meanConfidence(decisions []decision.ModelDecision) float64 {
	if len(decisions) == 0 {
		return 0
	}
	var sum float64
	for _, d := range decisions {
		sum += d.Confidence
	}
	return sum / float64(len(decisions))
}
