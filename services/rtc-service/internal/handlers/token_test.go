package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tutorhub/tutorhub/services/rtc-service/internal/rtc"
)

func newHandler(creds rtc.Credentials) *TokenHandler {
	return NewTokenHandler(creds, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type errorBody struct {
	Error struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestTokenMissingChannelName(t *testing.T) {
	h := newHandler(rtc.Credentials{AppID: "app", AppCertificate: "cert"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rtc/token", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Token(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Error.Status != "INVALID_ARGUMENT" {
		t.Fatalf("expected INVALID_ARGUMENT, got %q", body.Error.Status)
	}
}

func TestTokenMissingCredentials(t *testing.T) {
	h := newHandler(rtc.Credentials{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rtc/token",
		strings.NewReader(`{"channelName":"lesson-42"}`))
	rec := httptest.NewRecorder()
	h.Token(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Error.Status != "INTERNAL" {
		t.Fatalf("expected INTERNAL, got %q", body.Error.Status)
	}
}

func TestTokenSuccess(t *testing.T) {
	h := newHandler(rtc.Credentials{AppID: "app", AppCertificate: "cert"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rtc/token",
		strings.NewReader(`{"channelName":"lesson-42","uid":7}`))
	rec := httptest.NewRecorder()
	h.Token(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Token   string `json:"token"`
		Channel string `json:"channel"`
		UID     uint32 `json:"uid"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body.Token == "" {
		t.Fatal("expected non-empty token")
	}
	if body.Channel != "lesson-42" || body.UID != 7 {
		t.Fatalf("unexpected response: %+v", body)
	}
}

func TestTokenMethodNotAllowed(t *testing.T) {
	h := newHandler(rtc.Credentials{AppID: "app", AppCertificate: "cert"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rtc/token", nil)
	rec := httptest.NewRecorder()
	h.Token(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
