package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testHandler() *ChatHandler {
	return NewChatHandler(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEnsureRequiresIdentity(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats", strings.NewReader(`{"peer_id":"p1"}`))
	rec := httptest.NewRecorder()
	h.Ensure(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestEnsureRejectsSelfChat(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats", strings.NewReader(`{"peer_id":"u1"}`))
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	h.Ensure(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSendMessageRequiresFields(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/messages", strings.NewReader(`{"chat_id":"c1"}`))
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	h.SendMessage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSendMessageRejectsOversizedBody(t *testing.T) {
	h := testHandler()

	body := `{"chat_id":"c1","body":"` + strings.Repeat("a", maxMessageLength+1) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/messages", strings.NewReader(body))
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	h.SendMessage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListMessagesRejectsBadCursor(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chats/messages?chat_id=c1&after=yesterday", nil)
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	h.ListMessages(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
