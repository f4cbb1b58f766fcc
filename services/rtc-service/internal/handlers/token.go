package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tutorhub/tutorhub/services/rtc-service/internal/rtc"
)

type TokenHandler struct {
	creds  rtc.Credentials
	ttl    time.Duration
	logger *slog.Logger
}

func NewTokenHandler(creds rtc.Credentials, ttl time.Duration, logger *slog.Logger) *TokenHandler {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenHandler{creds: creds, ttl: ttl, logger: logger}
}

type tokenRequest struct {
	ChannelName string `json:"channelName"`
	UID         uint32 `json:"uid"`
}

type tokenResponse struct {
	Token    string `json:"token"`
	AppID    string `json:"appId"`
	Channel  string `json:"channel"`
	UID      uint32 `json:"uid"`
	ExpireAt string `json:"expireAt"`
}

// Token issues a join credential for a video call channel.
func (h *TokenHandler) Token(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid json body")
		return
	}
	req.ChannelName = strings.TrimSpace(req.ChannelName)
	if req.ChannelName == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "channelName is required")
		return
	}

	expireAt := time.Now().Add(h.ttl)
	token, err := rtc.BuildToken(h.creds, req.ChannelName, req.UID, expireAt)
	if err != nil {
		if errors.Is(err, rtc.ErrMissingCredentials) {
			h.logger.Error("rtc credentials missing")
			writeError(w, http.StatusInternalServerError, "INTERNAL", "rtc credentials not configured")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to build token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tokenResponse{
		Token:    token,
		AppID:    h.creds.AppID,
		Channel:  req.ChannelName,
		UID:      req.UID,
		ExpireAt: expireAt.UTC().Format(time.RFC3339),
	})
}

func writeError(w http.ResponseWriter, code int, status string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"status":  status,
			"message": message,
		},
	})
}
