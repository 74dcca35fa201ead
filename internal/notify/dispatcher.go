// Package notify decides when an analysis result warrants a parent alert and
// delivers it through the configured relay with a mail-compose fallback.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/reveal-labs/reveal/internal/analysis"
	"github.com/reveal-labs/reveal/internal/setup/config"
	"github.com/reveal-labs/reveal/internal/storage"
	"github.com/reveal-labs/reveal/pkg/utils"
	"go.uber.org/zap"
)

// State keys in the injected store.
const (
	keyLastTimestamp = "parent_notify_last_ts"
	keyLastHash      = "parent_notify_last_hash"
)

// maxExcerptLength caps the conversation excerpt embedded in an alert.
const maxExcerptLength = 400

// EventContext describes where and why an analysis was triggered.
type EventContext struct {
	PageURL string
	Trigger string
	Snippet string
}

// Alert is a rendered notification ready for delivery.
type Alert struct {
	Subject string
	Body    string
	PageURL string
	Status  analysis.Status
}

// Relay delivers an alert through an out-of-band channel.
type Relay interface {
	// Send delivers the alert. ErrRelayNotConfigured signals that the
	// fallback path should be used without logging a delivery failure.
	Send(ctx context.Context, alert *Alert) error
}

// Composer opens a pre-filled mail-compose view as the delivery of last
// resort.
type Composer interface {
	OpenCompose(ctx context.Context, url string) error
}

// Dispatcher evaluates results for unusualness, suppresses duplicate alerts
// inside the dedupe window, and hands delivery to the relay or the compose
// fallback. It never propagates errors to its caller.
type Dispatcher struct {
	// mu serializes read-decide-write on the persisted state so two
	// concurrent unusual events cannot both slip past the dedupe check.
	mu       sync.Mutex
	cfg      *config.Notifier
	store    storage.Store
	relay    Relay
	composer Composer
	clock    func() time.Time
	logger   *zap.Logger
}

// NewDispatcher creates a notification dispatcher. The clock is injected so
// window arithmetic is testable; pass time.Now in production.
func NewDispatcher(
	cfg *config.Notifier, store storage.Store, relay Relay, composer Composer,
	clock func() time.Time, logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		store:    store,
		relay:    relay,
		composer: composer,
		clock:    clock,
		logger:   logger.Named("notifier"),
	}
}

// IsUnusual reports whether a result should trigger a parent notification.
func IsUnusual(result *analysis.Result) bool {
	if result == nil {
		return false
	}

	return result.Status == analysis.StatusWarning || result.Status == analysis.StatusCritical
}

// NotifyIfUnusual delivers a parent alert for unusual results, applying
// duplicate suppression within the dedupe window. It is fire-and-forget:
// every internal failure is logged and swallowed.
func (d *Dispatcher) NotifyIfUnusual(ctx context.Context, result *analysis.Result, event EventContext) {
	if !IsUnusual(result) {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock()
	hash := utils.ContentHash(result.Summary, event.PageURL, string(result.Status))

	if d.isDuplicate(ctx, hash, now) {
		d.logger.Debug("Suppressed duplicate notification within dedupe window",
			zap.String("hash", hash))

		return
	}

	alert := buildAlert(result, event, now)
	d.deliver(ctx, alert)

	// State is written after every attempt, success or fallback, so a
	// misconfigured relay cannot cause a notification storm.
	err := d.store.Set(ctx, map[string]string{
		keyLastTimestamp: strconv.FormatInt(now.UnixMilli(), 10),
		keyLastHash:      hash,
	})
	if err != nil {
		d.logger.Warn("Failed to persist notification state", zap.Error(err))
	}
}

// isDuplicate checks whether an identical alert was attempted inside the
// dedupe window. A different unusual event is never suppressed.
func (d *Dispatcher) isDuplicate(ctx context.Context, hash string, now time.Time) bool {
	state, err := d.store.Get(ctx, []string{keyLastTimestamp, keyLastHash})
	if err != nil {
		// Fail open: a broken store must not silence alerts.
		d.logger.Warn("Failed to read notification state", zap.Error(err))
		return false
	}

	lastTs, err := strconv.ParseInt(state[keyLastTimestamp], 10, 64)
	if err != nil || lastTs == 0 {
		return false
	}

	elapsed := now.Sub(time.UnixMilli(lastTs))

	return elapsed < d.cfg.DedupeWindow() && state[keyLastHash] == hash
}

// deliver attempts the relay first and degrades to the mail-compose fallback.
func (d *Dispatcher) deliver(ctx context.Context, alert *Alert) {
	if d.relay != nil {
		err := d.relay.Send(ctx, alert)
		if err == nil {
			d.logger.Info("Parent alert delivered via relay",
				zap.String("status", string(alert.Status)))

			return
		}

		if !errors.Is(err, ErrRelayNotConfigured) {
			d.logger.Warn("Relay delivery failed, falling back to mail compose", zap.Error(err))
		}
	}

	if d.composer == nil {
		d.logger.Warn("No mail-compose fallback configured, alert dropped")
		return
	}

	url := BuildMailtoURL(d.cfg.ParentEmail, alert.Subject, alert.Body)
	if err := d.composer.OpenCompose(ctx, url); err != nil {
		d.logger.Warn("Mail-compose fallback failed", zap.Error(err))
	}
}

// buildAlert renders the structured alert body.
func buildAlert(result *analysis.Result, event EventContext, now time.Time) *Alert {
	var body strings.Builder

	body.WriteString("Reveal automatic alert\n")
	body.WriteString("Time: " + now.UTC().Format(time.RFC3339) + "\n")

	if event.PageURL != "" {
		body.WriteString("Page: " + event.PageURL + "\n")
	}

	if event.Trigger != "" {
		body.WriteString("Trigger: " + event.Trigger + "\n")
	}

	body.WriteString("\n")
	body.WriteString("Status: " + string(result.Status) + "\n")
	body.WriteString("Summary: " + result.Summary + "\n")

	if len(result.Evidence) > 0 {
		body.WriteString("Evidence:\n")

		for i, line := range result.Evidence {
			body.WriteString(fmt.Sprintf("  %d. %s\n", i+1, line))
		}
	}

	if event.Snippet != "" {
		excerpt := event.Snippet
		if runes := []rune(excerpt); len(runes) > maxExcerptLength {
			excerpt = string(runes[:maxExcerptLength])
		}

		body.WriteString("\nConversation excerpt (first 400 chars):\n")
		body.WriteString(excerpt + "\n")
	}

	body.WriteString("\nWhat to review: Please look at the highlighted concerning parts of the conversation and discuss safe responses.\n")

	return &Alert{
		Subject: fmt.Sprintf("Reveal Alert: %s detected", strings.ToUpper(string(result.Status))),
		Body:    body.String(),
		PageURL: event.PageURL,
		Status:  result.Status,
	}
}
