package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/reveal-labs/reveal/internal/setup/config"
	"go.uber.org/zap"
)

// DefaultEmailJSEndpoint is the public EmailJS REST send endpoint.
const DefaultEmailJSEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// ErrRelayNotConfigured indicates the relay has no credentials and delivery
// should skip straight to the fallback path.
var ErrRelayNotConfigured = errors.New("email relay is not configured")

// emailJSRequest is the EmailJS send payload.
type emailJSRequest struct {
	ServiceID      string               `json:"service_id"`
	TemplateID     string               `json:"template_id"`
	UserID         string               `json:"user_id"`
	TemplateParams emailJSTemplateParams `json:"template_params"`
}

type emailJSTemplateParams struct {
	ToEmail  string `json:"to_email"`
	ToName   string `json:"to_name"`
	FromName string `json:"from_name"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	PageURL  string `json:"page_url"`
	Status   string `json:"status"`
}

// EmailJSRelay delivers alerts through the EmailJS REST API.
type EmailJSRelay struct {
	httpClient *http.Client
	cfg        *config.Notifier
	endpoint   string
	logger     *zap.Logger
}

// NewEmailJSRelay creates an EmailJS relay. An empty endpoint selects the
// public API.
func NewEmailJSRelay(cfg *config.Notifier, endpoint string, logger *zap.Logger) *EmailJSRelay {
	if endpoint == "" {
		endpoint = DefaultEmailJSEndpoint
	}

	return &EmailJSRelay{
		httpClient: &http.Client{},
		cfg:        cfg,
		endpoint:   endpoint,
		logger:     logger.Named("emailjs"),
	}
}

// Send implements Relay.
func (r *EmailJSRelay) Send(ctx context.Context, alert *Alert) error {
	if !r.cfg.RelayConfigured() {
		return ErrRelayNotConfigured
	}

	payload := emailJSRequest{
		ServiceID:  r.cfg.ServiceID,
		TemplateID: r.cfg.TemplateID,
		UserID:     r.cfg.PublicKey,
		TemplateParams: emailJSTemplateParams{
			ToEmail:  r.cfg.ParentEmail,
			ToName:   r.cfg.ToName,
			FromName: r.cfg.FromName,
			Subject:  alert.Subject,
			Message:  alert.Body,
			PageURL:  alert.PageURL,
			Status:   string(alert.Status),
		},
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal relay payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create relay request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("relay rejected alert: status %d: %s", resp.StatusCode, string(respBody))
	}

	r.logger.Debug("Relay accepted alert", zap.Int("status_code", resp.StatusCode))

	return nil
}
