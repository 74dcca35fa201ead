package classify

import (
	"strings"

	"github.com/reveal-labs/reveal/internal/analysis"
)

// severityIndicator describes one escalation rule for the override merger.
type severityIndicator struct {
	status   analysis.Status
	patterns []string
	summary  string
	evidence []string
}

// safetyIndicators are evaluated in order on every classification regardless
// of source. They are independent, not mutually exclusive: every matching
// indicator contributes evidence, and the highest-ranking match wins the
// status and summary.
var safetyIndicators = []severityIndicator{
	{
		status: analysis.StatusCritical,
		patterns: []string{
			"keep it secret", "don't tell", "do not tell", "keep this secret",
			"send photo", "send a photo", "meet alone", "private chat",
			"switch apps", "video call",
		},
		summary: "Critical: Strong warning signs detected. Stop and involve a trusted adult immediately.",
		evidence: []string{
			"The message pressures for secrecy or moving platforms.",
			"Stop responding and talk to a caregiver or guardian right away.",
		},
	},
	{
		status: analysis.StatusWarning,
		patterns: []string{
			"gift", "surprise", "special favor", "how old are you", "are you alone",
		},
		summary: "Warning: Potential grooming signals. Stay cautious and involve trusted adults.",
		evidence: []string{
			"Discuss the conversation with a parent, guardian, or educator.",
		},
	},
}

// ApplyOverrides merges the fixed severity-indicator table into a
// classification result. Matching is case-insensitive substring search over
// the original, unsanitized text. The merge is strictly escalating: status
// and summary are only replaced by an indicator that outranks the current
// status, evidence is only ever appended, and the evidence cap is applied
// once after all indicators have been evaluated.
func ApplyOverrides(text string, result *analysis.Result) *analysis.Result {
	normalized := strings.ToLower(text)

	merged := &analysis.Result{
		Status:   result.Status,
		Summary:  result.Summary,
		Evidence: append([]string(nil), result.Evidence...),
		Source:   result.Source,
	}

	for _, indicator := range safetyIndicators {
		if !containsAny(normalized, indicator.patterns) {
			continue
		}

		if indicator.status.Severity() > merged.Status.Severity() {
			merged.Status = indicator.status
			merged.Summary = indicator.summary
		}

		for _, tip := range indicator.evidence {
			if !containsLine(merged.Evidence, tip) {
				merged.Evidence = append(merged.Evidence, tip)
			}
		}
	}

	merged.Evidence = analysis.CapEvidence(merged.Evidence)

	return merged
}

func containsLine(lines []string, line string) bool {
	for _, existing := range lines {
		if existing == line {
			return true
		}
	}

	return false
}
