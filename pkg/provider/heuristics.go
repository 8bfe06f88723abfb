package provider

import "strings"

// Reasoning markers models commonly use to introduce their analysis.
var reasoningMarkers = []string{
	"let me think through this",
	"here's my reasoning:",
	"step-by-step analysis:",
	"my analysis:",
	"reasoning:",
}

var certaintyMarkers = []string{
	"clearly", "definitely", "certainly", "without doubt",
	"conclusively", "unambiguous",
}

var uncertaintyMarkers = []string{
	"might", "possibly", "perhaps", "unclear", "uncertain",
	"difficult to determine", "depends on",
}

// extractReasoning pulls the reasoning section out of a model response.
// If no explicit marker is present, the first paragraph serves as the
// implicit reasoning. Returns "" when nothing usable is found.
func extractReasoning(content string) string {
	lower := strings.ToLower(content)
	for _, marker := range reasoningMarkers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		rest := content[idx+len(marker):]
		if cut := strings.Index(rest, "\n\n"); cut >= 0 {
			rest = rest[:cut]
		}
		return strings.TrimSpace(rest)
	}

	paragraphs := strings.Split(content, "\n\n")
	if len(paragraphs) > 1 {
		return strings.TrimSpace(paragraphs[0])
	}
	return ""
}

// estimateConfidence scores a response in [0,1] from language certainty
// markers and whether generation stopped naturally. Deliberately simple and
// deterministic; this is a heuristic, not understanding.
func estimateConfidence(content string, stoppedNaturally, truncated bool) float64 {
	confidence := 0.5

	if stoppedNaturally {
		confidence += 0.2
	} else if truncated {
		confidence -= 0.1
	}

	lower := strings.ToLower(content)

	var certain int
	for _, marker := range certaintyMarkers {
		if strings.Contains(lower, marker) {
			certain++
		}
	}
	confidence += min(0.2, float64(certain)*0.05)

	var uncertain int
	for _, marker := range uncertaintyMarkers {
		if strings.Contains(lower, marker) {
			uncertain++
		}
	}
	confidence -= min(0.3, float64(uncertain)*0.1)

	return max(0, min(1, confidence))
}
