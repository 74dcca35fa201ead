package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/reveal-labs/reveal/internal/analysis"
	"github.com/reveal-labs/reveal/internal/setup/config"
	"github.com/reveal-labs/reveal/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeRelay struct {
	mu     sync.Mutex
	alerts []*Alert
	err    error
}

func (r *fakeRelay) Send(_ context.Context, alert *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts = append(r.alerts, alert)

	return r.err
}

func (r *fakeRelay) sent() []*Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]*Alert(nil), r.alerts...)
}

type fakeComposer struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (c *fakeComposer) OpenCompose(_ context.Context, composeURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.urls = append(c.urls, composeURL)

	return c.err
}

func (c *fakeComposer) opened() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.urls...)
}

type dispatcherHarness struct {
	dispatcher *Dispatcher
	relay      *fakeRelay
	composer   *fakeComposer
	store      *storage.MemoryStore
	now        time.Time
}

func newDispatcherHarness(t *testing.T) *dispatcherHarness {
	t.Helper()

	h := &dispatcherHarness{
		relay:    &fakeRelay{},
		composer: &fakeComposer{},
		store:    storage.NewMemoryStore(),
		now:      time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	cfg := &config.Notifier{
		ParentEmail:      "parent@example.com",
		RateLimitMinutes: 5,
		ToName:           "Parent",
		FromName:         "Reveal",
	}

	h.dispatcher = NewDispatcher(cfg, h.store, h.relay, h.composer,
		func() time.Time { return h.now }, zaptest.NewLogger(t))

	return h
}

func warningResult(summary string) *analysis.Result {
	return &analysis.Result{
		Status:   analysis.StatusWarning,
		Summary:  summary,
		Evidence: []string{"Promises of rewards were detected."},
		Source:   analysis.SourceModel,
	}
}

func TestIsUnusual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result *analysis.Result
		want   bool
	}{
		{name: "nil result", result: nil, want: false},
		{name: "safe", result: &analysis.Result{Status: analysis.StatusSafe}, want: false},
		{name: "warning", result: &analysis.Result{Status: analysis.StatusWarning}, want: true},
		{name: "critical", result: &analysis.Result{Status: analysis.StatusCritical}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, IsUnusual(tt.result))
		})
	}
}

func TestNotifyIfUnusualSafeResultSkipped(t *testing.T) {
	t.Parallel()

	h := newDispatcherHarness(t)

	h.dispatcher.NotifyIfUnusual(context.Background(), &analysis.Result{
		Status:  analysis.StatusSafe,
		Summary: "Nothing concerning found.",
	}, EventContext{PageURL: "https://chat.example.com"})

	assert.Empty(t, h.relay.sent())
	assert.Empty(t, h.composer.opened())

	state, err := h.store.Get(context.Background(), []string{keyLastTimestamp})
	require.NoError(t, err)
	assert.Empty(t, state, "safe results must not touch notification state")
}

func TestNotifyIfUnusualDeliversViaRelay(t *testing.T) {
	t.Parallel()

	h := newDispatcherHarness(t)

	h.dispatcher.NotifyIfUnusual(context.Background(), warningResult("Warning: gifts mentioned."), EventContext{
		PageURL: "https://chat.example.com/room/7",
		Trigger: "context-menu",
		Snippet: "hey i got you a surprise",
	})

	alerts := h.relay.sent()
	require.Len(t, alerts, 1)
	assert.Equal(t, "Reveal Alert: WARNING detected", alerts[0].Subject)
	assert.Contains(t, alerts[0].Body, "Reveal automatic alert")
	assert.Contains(t, alerts[0].Body, "Page: https://chat.example.com/room/7")
	assert.Contains(t, alerts[0].Body, "Trigger: context-menu")
	assert.Contains(t, alerts[0].Body, "Summary: Warning: gifts mentioned.")
	assert.Contains(t, alerts[0].Body, "1. Promises of rewards were detected.")
	assert.Contains(t, alerts[0].Body, "hey i got you a surprise")
	assert.Empty(t, h.composer.opened(), "fallback must not fire when the relay succeeds")

	state, err := h.store.Get(context.Background(), []string{keyLastTimestamp, keyLastHash})
	require.NoError(t, err)
	assert.NotEmpty(t, state[keyLastTimestamp])
	assert.NotEmpty(t, state[keyLastHash])
}

func TestNotifyIfUnusualSuppressesDuplicateInWindow(t *testing.T) {
	t.Parallel()

	h := newDispatcherHarness(t)
	event := EventContext{PageURL: "https://chat.example.com"}

	h.dispatcher.NotifyIfUnusual(context.Background(), warningResult("Warning: gifts mentioned."), event)

	h.now = h.now.Add(2 * time.Minute)
	h.dispatcher.NotifyIfUnusual(context.Background(), warningResult("Warning: gifts mentioned."), event)

	assert.Len(t, h.relay.sent(), 1, "identical alert inside the window must be suppressed")
}

func TestNotifyIfUnusualDifferentContentNotSuppressed(t *testing.T) {
	t.Parallel()

	h := newDispatcherHarness(t)
	event := EventContext{PageURL: "https://chat.example.com"}

	h.dispatcher.NotifyIfUnusual(context.Background(), warningResult("Warning: gifts mentioned."), event)

	h.now = h.now.Add(time.Minute)
	h.dispatcher.NotifyIfUnusual(context.Background(), &analysis.Result{
		Status:  analysis.StatusCritical,
		Summary: "Critical: Requests for secrecy are strong warning signs.",
	}, event)

	assert.Len(t, h.relay.sent(), 2, "a different unusual event must never be suppressed")
}

func TestNotifyIfUnusualDeliversAgainAfterWindow(t *testing.T) {
	t.Parallel()

	h := newDispatcherHarness(t)
	event := EventContext{PageURL: "https://chat.example.com"}

	h.dispatcher.NotifyIfUnusual(context.Background(), warningResult("Warning: gifts mentioned."), event)

	h.now = h.now.Add(5*time.Minute + time.Second)
	h.dispatcher.NotifyIfUnusual(context.Background(), warningResult("Warning: gifts mentioned."), event)

	assert.Len(t, h.relay.sent(), 2)
}

func TestNotifyIfUnusualFallsBackToComposeOnRelayFailure(t *testing.T) {
	t.Parallel()

	h := newDispatcherHarness(t)
	h.relay.err = errors.New("relay rejected alert: status 500")

	h.dispatcher.NotifyIfUnusual(context.Background(), warningResult("Warning: gifts mentioned."),
		EventContext{PageURL: "https://chat.example.com"})

	urls := h.composer.opened()
	require.Len(t, urls, 1)
	assert.True(t, strings.HasPrefix(urls[0], "mailto:parent@example.com?"))
	assert.Contains(t, urls[0], "subject=Reveal%20Alert")

	// The attempt still updates state so a broken relay cannot spam.
	state, err := h.store.Get(context.Background(), []string{keyLastTimestamp})
	require.NoError(t, err)
	assert.NotEmpty(t, state[keyLastTimestamp])
}

func TestNotifyIfUnusualUnconfiguredRelayUsesFallback(t *testing.T) {
	t.Parallel()

	h := newDispatcherHarness(t)
	h.relay.err = ErrRelayNotConfigured

	h.dispatcher.NotifyIfUnusual(context.Background(), warningResult("Warning: gifts mentioned."),
		EventContext{PageURL: "https://chat.example.com"})

	assert.Len(t, h.composer.opened(), 1)
}

func TestBuildMailtoURL(t *testing.T) {
	t.Parallel()

	got := BuildMailtoURL("parent@example.com", "Reveal Alert: WARNING detected", "line one\nline two")

	assert.True(t, strings.HasPrefix(got, "mailto:parent@example.com?"))
	assert.Contains(t, got, "subject=Reveal%20Alert%3A%20WARNING%20detected")
	assert.Contains(t, got, "body=line%20one%0Aline%20two")
	assert.NotContains(t, got, "+", "spaces must use percent encoding for mail clients")
}
