// Package notifications delivers packed report batches to a Discord
// webhook. When no webhook URL is configured, a noop implementation is
// returned so callers never need to branch on configuration.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"libwatch/internal/batch"
	"libwatch/internal/config"
)

const userAgent = "libwatch/0.1.0"

// Embed colors used across report kinds.
const (
	ColorGreen  = 5763719
	ColorOrange = 15105570
	ColorBlue   = 3447003
	ColorRed    = 16711680
)

// Service is the delivery surface exposed to the watch runners.
type Service interface {
	// Deliver sends one batch as a single embed. A nil error means the
	// webhook accepted it.
	Deliver(ctx context.Context, b batch.Batch, color int) error
	TestNotification(ctx context.Context) error
	Enabled() bool
}

// NewService builds a Discord webhook service when configured.
// When no webhook URL is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	url := strings.TrimSpace(cfg.Discord.WebhookURL)
	if url == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Discord.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &webhookService{
		endpoint: url,
		username: strings.TrimSpace(cfg.Discord.Username),
		client:   &http.Client{Timeout: timeout},
	}
}

type webhookService struct {
	endpoint string
	username string
	client   *http.Client
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

func (s *webhookService) Enabled() bool { return true }

func (s *webhookService) Deliver(ctx context.Context, b batch.Batch, color int) error {
	if len(b.Fields) == 0 {
		return nil
	}
	fields := make([]embedField, 0, len(b.Fields))
	for _, f := range b.Fields {
		fields = append(fields, embedField{Name: f.Name, Value: f.Value})
	}
	return s.send(ctx, webhookPayload{
		Username: s.username,
		Embeds: []embed{{
			Title:       b.Title,
			Description: b.Description,
			Color:       color,
			Fields:      fields,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
	})
}

func (s *webhookService) TestNotification(ctx context.Context) error {
	return s.send(ctx, webhookPayload{
		Username: s.username,
		Embeds: []embed{{
			Title:       "Libwatch - Test",
			Description: "Notification system test",
			Color:       ColorBlue,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
	})
}

func (s *webhookService) send(ctx context.Context, payload webhookPayload) error {
	if s == nil || s.client == nil {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Deliver(context.Context, batch.Batch, int) error { return nil }
func (noopService) TestNotification(context.Context) error          { return nil }
func (noopService) Enabled() bool                                   { return false }
