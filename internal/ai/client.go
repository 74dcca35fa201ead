package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/reveal-labs/reveal/internal/setup/config"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// generateOptions mirrors the Ollama options object. Only temperature is
// always sent; the rest are omitted unless set.
type generateOptions struct {
	Temperature   float64  `json:"temperature"`
	TopP          *float64 `json:"top_p,omitempty"`
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty"`
	NumPredict    *int     `json:"num_predict,omitempty"`
}

// generateRequest is the Ollama generate request body.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

// Client talks to the local Ollama-compatible inference service. Every call
// carries its own bounded deadline; cancellation propagates to the underlying
// transport through the request context.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	sem        *semaphore.Weighted
	baseURL    string
	model      string
	reqTimeout time.Duration
	probeTO    time.Duration
	logger     *zap.Logger
}

// NewClient creates a client for the configured inference service.
func NewClient(cfg *config.Ollama, logger *zap.Logger) *Client {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	settings := gobreaker.Settings{
		Name:        "ollama",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		httpClient: &http.Client{},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		sem:        semaphore.NewWeighted(maxConcurrent),
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		reqTimeout: cfg.RequestDeadline(),
		probeTO:    cfg.ProbeDeadline(),
		logger:     logger.Named("ai_client"),
	}
}

// CheckStatus performs a lightweight availability check against the version
// endpoint using the short probe deadline.
func (c *Client) CheckStatus(ctx context.Context) (*ServiceStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTO)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/version", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	req.Header.Set("Accept", "application/json")

	body, err := c.execute(req)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Version string `json:"version"`
		Build   string `json:"build"`
	}

	// A malformed version body still means the service answered.
	version := "unknown"
	if err := sonic.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Version != "":
			version = payload.Version
		case payload.Build != "":
			version = payload.Build
		}
	}

	return &ServiceStatus{Available: true, Version: version}, nil
}

// ProbePermissions issues a minimal generate request to verify that POSTs are
// allowed from this origin. Only the transport outcome matters, not the
// model's answer.
func (c *Client) ProbePermissions(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.probeTO)
	defer cancel()

	_, err := c.generate(ctx, "ping", generateOptions{Temperature: 0})

	return err
}

// generate posts a generate request and returns the raw response body. The
// caller is responsible for setting a deadline on ctx.
func (c *Client) generate(ctx context.Context, prompt string, opts generateOptions) ([]byte, error) {
	payload, err := sonic.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: opts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.execute(req)
}

// execute runs one HTTP request through the semaphore and circuit breaker and
// maps failures onto the client error taxonomy.
func (c *Client) execute(req *http.Request) ([]byte, error) {
	if err := c.sem.Acquire(req.Context(), 1); err != nil {
		return nil, c.wrapTransportError(err)
	}
	defer c.sem.Release(1)

	result, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: HTTP 403: %s", ErrForbidden, truncateBody(body))
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable, resp.StatusCode, truncateBody(body))
		}

		return body, nil
	})
	if err != nil {
		err = c.wrapTransportError(err)
		c.logger.Warn("Inference request failed",
			zap.String("url", req.URL.Path),
			zap.Error(err))

		return nil, err
	}

	return result.([]byte), nil
}

// wrapTransportError maps a raw transport failure onto the error taxonomy.
// Already-classified errors pass through unchanged.
func (c *Client) wrapTransportError(err error) error {
	switch {
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrInvalidResponse),
		errors.Is(err, ErrUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: circuit breaker open: %w", ErrUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// truncateBody keeps error messages readable when the service returns a page
// of HTML or a long error body.
func truncateBody(body []byte) string {
	const maxErrBody = 200

	s := string(body)
	if len(s) > maxErrBody {
		s = s[:maxErrBody]
	}

	return s
}
