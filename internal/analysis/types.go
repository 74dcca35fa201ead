// Package analysis defines the normalized result type shared by the model
// client, the rule-based fallback, the safety override layer, and every
// downstream consumer.
package analysis

import (
	"strings"

	"github.com/reveal-labs/reveal/pkg/utils"
)

// Status indicates the assessed risk level of an analyzed snippet.
type Status string

const (
	StatusSafe     Status = "safe"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Severity returns the escalation rank of the status.
// Higher values outrank lower ones and may never be downgraded.
func (s Status) Severity() int {
	switch s {
	case StatusSafe:
		return 0
	case StatusWarning:
		return 1
	case StatusCritical:
		return 2
	default:
		return 1
	}
}

// ParseStatus maps a raw status string to a Status. Unknown or missing values
// default to warning so that a parse ambiguity can never suppress risk.
func ParseStatus(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusSafe:
		return StatusSafe
	case StatusWarning:
		return StatusWarning
	case StatusCritical:
		return StatusCritical
	default:
		return StatusWarning
	}
}

// Source records which classifier produced a result.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

const (
	// MaxSummaryLength is the character cap applied to every summary.
	MaxSummaryLength = 240
	// MaxEvidence is the hard cap on evidence entries at every boundary.
	MaxEvidence = 3

	// FallbackSummary replaces an empty or unparseable summary.
	FallbackSummary = "Unable to interpret AI response. Stay cautious and consult a trusted adult."
	// DefaultEvidenceTip is injected when no evidence survives filtering.
	DefaultEvidenceTip = "Talk to a parent, guardian, or educator when something feels uncomfortable online."
)

// Result is the normalized outcome of classifying one snippet of chat text.
type Result struct {
	Status   Status   `json:"status"`
	Summary  string   `json:"summary"`
	Evidence []string `json:"evidence"`
	Source   Source   `json:"source"`
}

// ClampSummary sanitizes and caps a summary, substituting the fixed fallback
// string when nothing remains.
func ClampSummary(raw string) string {
	summary := utils.SanitizeField(raw)
	if summary == "" {
		return FallbackSummary
	}

	return utils.TruncateWithEllipsis(summary, MaxSummaryLength)
}

// CapEvidence sanitizes, drops empties, de-duplicates preserving order, and
// caps the list at MaxEvidence. The result is never empty: a generic tip is
// injected when everything was filtered out.
func CapEvidence(raw []string) []string {
	evidence := make([]string, 0, MaxEvidence)
	seen := make(map[string]struct{}, len(raw))

	for _, item := range raw {
		item = utils.SanitizeField(item)
		if item == "" {
			continue
		}

		if _, dup := seen[item]; dup {
			continue
		}

		seen[item] = struct{}{}

		evidence = append(evidence, item)
		if len(evidence) == MaxEvidence {
			break
		}
	}

	if len(evidence) == 0 {
		evidence = append(evidence, DefaultEvidenceTip)
	}

	return evidence
}
