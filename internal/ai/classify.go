package ai

import (
	"context"
	"fmt"
	"regexp"

	"github.com/bytedance/sonic"
	"github.com/reveal-labs/reveal/internal/analysis"
	"github.com/reveal-labs/reveal/internal/classify"
	"github.com/reveal-labs/reveal/pkg/utils"
	"go.uber.org/zap"
)

// bracePattern extracts the first brace-delimited substring from model output
// that wrapped its JSON in prose or a code fence.
var bracePattern = regexp.MustCompile(`\{[\s\S]*\}`)

// Classify analyzes a snippet of chat text for grooming risk signals.
// The input is sanitized before it reaches the prompt; the raw text is still
// used for severity-override matching so pattern escalation cannot be dodged
// by content the sanitizer masks around.
func (c *Client) Classify(ctx context.Context, text string) (*analysis.Result, error) {
	sanitized := utils.MaskSensitive(text)

	ctx, cancel := context.WithTimeout(ctx, c.reqTimeout)
	defer cancel()

	body, err := c.generate(ctx, buildClassifyPrompt(sanitized), generateOptions{Temperature: 0})
	if err != nil {
		return nil, err
	}

	parsed, err := parseModelPayload(body)
	if err != nil {
		c.logger.Warn("Failed to parse model response", zap.Error(err))
		return nil, err
	}

	result := normalizeModelOutput(parsed)

	return classify.ApplyOverrides(text, result), nil
}

// parseModelPayload extracts the structured classification object from a raw
// generate response body. The `response` field may hold a pre-structured
// object or a string; strings get a strict parse first, then a first-brace
// substring extraction. Anything else is an invalid response.
func parseModelPayload(body []byte) (map[string]any, error) {
	var envelope map[string]any
	if err := sonic.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: unparseable response body: %w", ErrInvalidResponse, err)
	}

	raw, ok := envelope["response"]
	if !ok || raw == nil {
		// Some gateways return the object directly, without the envelope.
		raw = envelope
	}

	switch value := raw.(type) {
	case map[string]any:
		return value, nil
	case string:
		if parsed := tryParseObject(value); parsed != nil {
			return parsed, nil
		}

		if match := bracePattern.FindString(value); match != "" {
			if parsed := tryParseObject(match); parsed != nil {
				return parsed, nil
			}
		}

		return nil, fmt.Errorf("%w: model did not return valid JSON", ErrInvalidResponse)
	default:
		return nil, fmt.Errorf("%w: model response not understood", ErrInvalidResponse)
	}
}

func tryParseObject(candidate string) map[string]any {
	var parsed map[string]any
	if err := sonic.Unmarshal([]byte(candidate), &parsed); err != nil {
		return nil
	}

	return parsed
}

// normalizeModelOutput turns an untrusted parsed object into a valid Result.
// No field is trusted to exist or hold the right type: unknown status becomes
// warning (never safe), the summary is clamped, and evidence is filtered,
// capped, and backfilled so that it is never empty.
func normalizeModelOutput(output map[string]any) *analysis.Result {
	status, _ := output["status"].(string)
	summary, _ := output["summary"].(string)

	var evidence []string
	if items, ok := output["evidence"].([]any); ok {
		for _, item := range items {
			if line, ok := item.(string); ok {
				evidence = append(evidence, line)
			}
		}
	}

	return &analysis.Result{
		Status:   analysis.ParseStatus(status),
		Summary:  analysis.ClampSummary(summary),
		Evidence: analysis.CapEvidence(evidence),
		Source:   analysis.SourceModel,
	}
}
