package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tutorhub/tutorhub/libs/outboxx"
	"github.com/tutorhub/tutorhub/services/chat-service/internal/storage"
)

const maxMessageLength = 4000

type ChatHandler struct {
	repo       *storage.Repository
	outboxRepo *outboxx.Repository
	logger     *slog.Logger
}

func NewChatHandler(repo *storage.Repository, outboxRepo *outboxx.Repository, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{repo: repo, outboxRepo: outboxRepo, logger: logger}
}

func identity(r *http.Request) (userID, role string) {
	return strings.TrimSpace(r.Header.Get("X-User-Id")), strings.TrimSpace(r.Header.Get("X-Role"))
}

type chatView struct {
	ChatID    string `json:"chat_id"`
	StudentID string `json:"student_id"`
	TeacherID string `json:"teacher_id"`
	CreatedAt string `json:"created_at"`
}

type messageView struct {
	MessageID string `json:"message_id"`
	ChatID    string `json:"chat_id"`
	SenderID  string `json:"sender_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

func toChatView(c storage.Chat) chatView {
	return chatView{
		ChatID:    c.ID,
		StudentID: c.StudentID,
		TeacherID: c.TeacherID,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toMessageView(m storage.Message) messageView {
	return messageView{
		MessageID: m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Ensure opens (or returns) the chat between the caller and a peer. The
// caller's role decides which side of the pair they occupy.
func (h *ChatHandler) Ensure(w http.ResponseWriter, r *http.Request) {
	userID, role := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		PeerID string `json:"peer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.PeerID = strings.TrimSpace(req.PeerID)
	if req.PeerID == "" {
		http.Error(w, "peer_id is required", http.StatusBadRequest)
		return
	}
	if req.PeerID == userID {
		http.Error(w, "cannot open a chat with yourself", http.StatusBadRequest)
		return
	}

	studentID, teacherID := userID, req.PeerID
	if role == "teacher" {
		studentID, teacherID = req.PeerID, userID
	}

	chat, err := h.repo.EnsureChat(r.Context(), studentID, teacherID)
	if err != nil {
		http.Error(w, "failed to open chat", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toChatView(chat))
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	chats, err := h.repo.ListChats(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, "failed to list chats", http.StatusInternalServerError)
		return
	}
	items := make([]chatView, 0, len(chats))
	for _, c := range chats {
		items = append(items, toChatView(c))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		ChatID string `json:"chat_id"`
		Body   string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ChatID = strings.TrimSpace(req.ChatID)
	req.Body = strings.TrimSpace(req.Body)
	if req.ChatID == "" || req.Body == "" {
		http.Error(w, "chat_id and body are required", http.StatusBadRequest)
		return
	}
	if len(req.Body) > maxMessageLength {
		http.Error(w, "message too long", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	chat, err := h.repo.GetChat(ctx, req.ChatID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "chat not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load chat", http.StatusInternalServerError)
		return
	}
	if chat.StudentID != userID && chat.TeacherID != userID {
		http.Error(w, "not a chat member", http.StatusForbidden)
		return
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	msg, err := h.repo.InsertMessage(ctx, tx, chat.ID, userID, req.Body)
	if err != nil {
		http.Error(w, "failed to send message", http.StatusInternalServerError)
		return
	}

	recipient := chat.TeacherID
	if userID == chat.TeacherID {
		recipient = chat.StudentID
	}
	evtPayload, err := json.Marshal(map[string]any{
		"message_id":   msg.ID,
		"chat_id":      chat.ID,
		"sender_id":    userID,
		"recipient_id": recipient,
		"sent_at":      msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outboxx.Event{
		AggregateType: "chat",
		AggregateID:   chat.ID,
		EventType:     "chat.message.sent.v1",
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toMessageView(msg))
}

// ListMessages pages through a chat in send order. The after cursor is the
// created_at of the last message the client has.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, _ := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	chatID := strings.TrimSpace(r.URL.Query().Get("chat_id"))
	if chatID == "" {
		http.Error(w, "chat_id is required", http.StatusBadRequest)
		return
	}

	var after time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("after")); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			http.Error(w, "invalid after cursor", http.StatusBadRequest)
			return
		}
		after = parsed
	}

	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	ctx := r.Context()
	chat, err := h.repo.GetChat(ctx, chatID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "chat not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load chat", http.StatusInternalServerError)
		return
	}
	if chat.StudentID != userID && chat.TeacherID != userID {
		http.Error(w, "not a chat member", http.StatusForbidden)
		return
	}

	messages, err := h.repo.ListMessages(ctx, chatID, after, limit)
	if err != nil {
		http.Error(w, "failed to list messages", http.StatusInternalServerError)
		return
	}
	items := make([]messageView, 0, len(messages))
	for _, m := range messages {
		items = append(items, toMessageView(m))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}
