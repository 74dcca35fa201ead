// Package classify implements the deterministic half of the classification
// pipeline: the keyword fallback classifier, the severity override merger,
// and the facade that orchestrates them around the model client.
package classify

import (
	"strings"

	"github.com/reveal-labs/reveal/internal/analysis"
)

// Keyword sets for the fallback classifier, checked in severity order.
var (
	secrecyKeywords = []string{"secret", "do not tell"}
	rewardKeywords  = []string{"gift", "surprise"}
)

// Fixed fallback summaries.
const (
	noTextSummary  = "No text selected for analysis."
	secrecySummary = "Critical: Requests for secrecy are strong warning signs."
	rewardSummary  = "Warning: Promises of gifts or rewards can be manipulative."
)

// ClassifyByRules runs the deterministic keyword classifier. It returns nil
// when no rule matches, signaling "no opinion" — deliberately distinct from a
// safe verdict, which the fallback is never confident enough to give.
func ClassifyByRules(text string) *analysis.Result {
	normalized := strings.ToLower(text)

	if strings.TrimSpace(normalized) == "" {
		return &analysis.Result{
			Status:   analysis.StatusWarning,
			Summary:  noTextSummary,
			Evidence: []string{"Highlight conversation text to get guidance."},
		}
	}

	if containsAny(normalized, secrecyKeywords) {
		return &analysis.Result{
			Status:   analysis.StatusCritical,
			Summary:  secrecySummary,
			Evidence: []string{"Encourage immediate discussion with guardians."},
		}
	}

	if containsAny(normalized, rewardKeywords) {
		return &analysis.Result{
			Status:   analysis.StatusWarning,
			Summary:  rewardSummary,
			Evidence: []string{"Pause and share with a trusted adult before responding."},
		}
	}

	return nil
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}

	return false
}
