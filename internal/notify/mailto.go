package notify

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// BuildMailtoURL assembles a mailto: URL with the recipient, subject, and body
// escaped for query placement. Spaces are encoded as %20 so mail clients
// render them correctly.
func BuildMailtoURL(to, subject, body string) string {
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s",
		url.PathEscape(to), queryEscape(subject), queryEscape(body))
}

func queryEscape(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}

// ExecComposer opens mailto URLs through the platform URL handler.
type ExecComposer struct {
	logger *zap.Logger
}

// NewExecComposer creates a composer that shells out to xdg-open.
func NewExecComposer(logger *zap.Logger) *ExecComposer {
	return &ExecComposer{logger: logger.Named("mail_composer")}
}

// OpenCompose implements Composer.
func (c *ExecComposer) OpenCompose(ctx context.Context, composeURL string) error {
	c.logger.Debug("Opening mail compose view", zap.Int("url_length", len(composeURL)))

	cmd := exec.CommandContext(ctx, "xdg-open", composeURL)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open mail compose view: %w", err)
	}

	return nil
}
