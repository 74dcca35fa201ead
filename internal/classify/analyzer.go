package classify

import (
	"context"
	"fmt"

	"github.com/reveal-labs/reveal/internal/analysis"
	"go.uber.org/zap"
)

// Fixed evidence lines appended to every fallback-path result.
const (
	fallbackDisclosureLine = "No data was sent externally; analysis stayed on this device."
	fallbackNotePrefix     = "Technical note: "
)

// fallbackDefaultSummary is used when the rule classifier has no opinion.
const fallbackDefaultSummary = "Local AI unavailable. Review the text carefully with a trusted adult."

// ModelClassifier is the model-backed classification dependency.
type ModelClassifier interface {
	Classify(ctx context.Context, text string) (*analysis.Result, error)
}

// Analyzer orchestrates the model client and the deterministic fallback into
// a single classification path that never fails its caller.
type Analyzer struct {
	client ModelClassifier
	logger *zap.Logger
}

// NewAnalyzer creates a classification facade around the given model client.
func NewAnalyzer(client ModelClassifier, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		client: client,
		logger: logger.Named("analyzer"),
	}
}

// Analyze classifies text, preferring the model client and degrading to the
// rule-based fallback on any client error. The returned result is always
// normalized and never nil.
//
// Fallback results are not re-run through ApplyOverrides: the rule table
// already encodes the same escalation bias, and the model path applies the
// overrides inside the client.
func (a *Analyzer) Analyze(ctx context.Context, text string) *analysis.Result {
	result, err := a.client.Classify(ctx, text)
	if err == nil {
		return result
	}

	a.logger.Warn("Local model unavailable, using fallback classifier", zap.Error(err))

	return a.fallbackResult(text, err)
}

// fallbackResult runs the rule classifier and augments its output with the
// fixed disclosure and technical-note lines. When the rules have no opinion a
// default warning result is synthesized with the same augmentation.
func (a *Analyzer) fallbackResult(text string, clientErr error) *analysis.Result {
	result := ClassifyByRules(text)
	if result == nil {
		result = &analysis.Result{
			Status:  analysis.StatusWarning,
			Summary: fallbackDefaultSummary,
		}
	}

	result.Source = analysis.SourceFallback
	result.Summary = analysis.ClampSummary(result.Summary)
	result.Evidence = append(result.Evidence,
		fallbackDisclosureLine,
		fmt.Sprintf("%s%v", fallbackNotePrefix, clientErr),
	)
	result.Evidence = analysis.CapEvidence(result.Evidence)

	return result
}
