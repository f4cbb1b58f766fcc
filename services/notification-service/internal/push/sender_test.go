package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookSenderPostsPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, "secret")
	if err := s.Send(context.Background(), "tok-1", "New booking request", "details"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["token"] != "tok-1" || got["title"] != "New booking request" || got["body"] != "details" {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestWebhookSenderNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, "")
	if err := s.Send(context.Background(), "tok-1", "t", "b"); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}

func TestWebhookSenderMissingURL(t *testing.T) {
	s := NewWebhookSender("", "")
	if err := s.Send(context.Background(), "tok-1", "t", "b"); err == nil {
		t.Fatal("expected error when url not configured")
	}
}
