package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

type Sender interface {
	Send(ctx context.Context, token string, title string, body string) error
	ProviderID() string
}

// WebhookSender forwards pushes to an FCM-compatible relay endpoint.
type WebhookSender struct {
	url       string
	authToken string
	http      *http.Client
}

func NewWebhookSender(url string, authToken string) *WebhookSender {
	return &WebhookSender{
		url:       strings.TrimSpace(url),
		authToken: strings.TrimSpace(authToken),
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (s *WebhookSender) ProviderID() string {
	return "push-webhook"
}

func (s *WebhookSender) Send(ctx context.Context, token string, title string, body string) error {
	if s.url == "" {
		return errors.New("push webhook url not configured")
	}
	payload := map[string]string{
		"token": token,
		"title": title,
		"body":  body,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New("push webhook returned non-2xx")
	}
	return nil
}

type NoopSender struct{}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) ProviderID() string {
	return "push-noop"
}

func (s *NoopSender) Send(_ context.Context, _ string, _ string, _ string) error {
	return nil
}
