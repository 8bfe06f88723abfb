package orchestrator

import (
	"fmt"
	"sort"
	"strings"
)

// BuildPrompt renders structured case input as a human-readable case
// description for the models. Unemployment benefits cases get a dedicated
// layout; everything else falls back to a generic field listing. Fields are
// emitted in sorted key order so the same case always yields the same prompt.
func BuildPrompt(caseID, decisionType string, input map[string]interface{}) string {
	if decisionType == "unemployment_benefits" {
		return fmt.Sprintf(`Unemployment Benefits Application - Case #%s

Applicant Details:
- Employment Duration: %v months
- Reason for Separation: %v
- Prior Annual Earnings: $%v
- Available for Work: %v
- Actively Seeking Work: %v
- Has Refused Suitable Work: %v

Please evaluate this application and provide:
1. Your decision (APPROVE or DENY)
2. Step-by-step reasoning based on eligibility criteria
3. Your confidence level in this decision
`,
			caseID,
			fieldOr(input, "employment_duration_months", "N/A"),
			fieldOr(input, "termination_reason", "N/A"),
			fieldOr(input, "prior_earnings_annual", "N/A"),
			fieldOr(input, "available_for_work", "N/A"),
			fieldOr(input, "actively_seeking_work", "N/A"),
			fieldOr(input, "refused_suitable_work", false),
		)
	}

	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, input[k])
	}

	return fmt.Sprintf(`Decision Request - Case #%s
Type: %s

Case Details:
%s
Please evaluate this case and provide:
1. Your decision
2. Step-by-step reasoning
3. Your confidence level
`, caseID, decisionType, b.String())
}

func fieldOr(input map[string]interface{}, key string, fallback interface{}) interface{} {
	if v, ok := input[key]; ok {
		return v
	}
	return fallback
}
