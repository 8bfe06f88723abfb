package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_UnemploymentBenefits(t *testing.T) {
	prompt := BuildPrompt("case-42", "unemployment_benefits", map[string]interface{}{
		"employment_duration_months": 18,
		"termination_reason":         "layoff",
		"prior_earnings_annual":      45000,
		"available_for_work":         true,
		"actively_seeking_work":      true,
		"refused_suitable_work":      false,
	})

	assert.Contains(t, prompt, "Unemployment Benefits Application - Case #case-42")
	assert.Contains(t, prompt, "Employment Duration: 18 months")
	assert.Contains(t, prompt, "Reason for Separation: layoff")
	assert.Contains(t, prompt, "Prior Annual Earnings: $45000")
	assert.Contains(t, prompt, "Has Refused Suitable Work: false")
	assert.Contains(t, prompt, "APPROVE or DENY")
}

func TestBuildPrompt_UnemploymentMissingFields(t *testing.T) {
	prompt := BuildPrompt("case-7", "unemployment_benefits", map[string]interface{}{})

	assert.Contains(t, prompt, "Employment Duration: N/A months")
	assert.Contains(t, prompt, "Has Refused Suitable Work: false")
}

func TestBuildPrompt_GenericFormat(t *testing.T) {
	prompt := BuildPrompt("case-9", "loan_approval", map[string]interface{}{
		"credit_score": 720,
		"amount":       25000,
	})

	assert.Contains(t, prompt, "Decision Request - Case #case-9")
	assert.Contains(t, prompt, "Type: loan_approval")
	assert.Contains(t, prompt, "- amount: 25000")
	assert.Contains(t, prompt, "- credit_score: 720")
	assert.Contains(t, prompt, "Step-by-step reasoning")
}

func TestBuildPrompt_GenericDeterministicOrder(t *testing.T) {
	input := map[string]interface{}{"zeta": 1, "alpha": 2, "mid": 3}
	first := BuildPrompt("c", "loan_approval", input)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildPrompt("c", "loan_approval", input))
	}

	alphaIdx := strings.Index(first, "- alpha")
	midIdx := strings.Index(first, "- mid")
	zetaIdx := strings.Index(first, "- zeta")
	assert.Less(t, alphaIdx, midIdx)
	assert.Less(t, midIdx, zetaIdx)
}
