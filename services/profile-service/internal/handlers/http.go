package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tutorhub/tutorhub/libs/outboxx"
	"github.com/tutorhub/tutorhub/services/profile-service/internal/availability"
	"github.com/tutorhub/tutorhub/services/profile-service/internal/storage"
)

type Handler struct {
	repo       *storage.Repository
	outboxRepo *outboxx.Repository
	logger     *slog.Logger
}

func New(repo *storage.Repository, outboxRepo *outboxx.Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, outboxRepo: outboxRepo, logger: logger}
}

const dateLayout = "2006-01-02"

func identity(r *http.Request) (userID, role string) {
	return strings.TrimSpace(r.Header.Get("X-User-Id")), strings.TrimSpace(r.Header.Get("X-Role"))
}

type teacherView struct {
	UserID       string   `json:"user_id"`
	Name         string   `json:"name"`
	Bio          string   `json:"bio"`
	Subjects     []string `json:"subjects"`
	Timezone     string   `json:"timezone"`
	TotalCourses int      `json:"total_courses"`
}

type studentView struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

func toTeacherView(p storage.TeacherProfile) teacherView {
	subjects := p.Subjects
	if subjects == nil {
		subjects = []string{}
	}
	return teacherView{
		UserID:       p.UserID,
		Name:         p.Name,
		Bio:          p.Bio,
		Subjects:     subjects,
		Timezone:     p.Timezone,
		TotalCourses: p.TotalCourses,
	}
}

// GetProfile returns the caller's own profile, shaped by role. The response
// carries exactly one of the teacher/student objects so clients can switch
// on role without probing fields.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, role := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	if role == "teacher" {
		p, err := h.repo.GetOrCreateTeacher(r.Context(), userID)
		if err != nil {
			http.Error(w, "failed to load profile", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"role":    "teacher",
			"teacher": toTeacherView(p),
		})
		return
	}

	p, err := h.repo.GetOrCreateStudent(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to load profile", http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"role":    "student",
		"student": studentView{UserID: p.UserID, Name: p.Name},
	})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, role := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	if role == "teacher" {
		var req struct {
			Name     string   `json:"name"`
			Bio      string   `json:"bio"`
			Subjects []string `json:"subjects"`
			Timezone string   `json:"timezone"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Bio = strings.TrimSpace(req.Bio)
		req.Timezone = strings.TrimSpace(req.Timezone)
		if req.Timezone == "" {
			req.Timezone = "UTC"
		}
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			http.Error(w, "invalid timezone", http.StatusBadRequest)
			return
		}
		var subjects []string
		for _, s := range req.Subjects {
			s = strings.TrimSpace(s)
			if s != "" {
				subjects = append(subjects, s)
			}
		}
		if err := h.repo.UpdateTeacher(r.Context(), userID, req.Name, req.Bio, subjects, req.Timezone); err != nil {
			http.Error(w, "failed to update profile", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := h.repo.UpdateStudent(r.Context(), userID, strings.TrimSpace(req.Name)); err != nil {
		http.Error(w, "failed to update profile", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListTeachers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	subject := strings.TrimSpace(r.URL.Query().Get("subject"))
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	teachers, err := h.repo.ListTeachers(r.Context(), subject, limit)
	if err != nil {
		http.Error(w, "failed to list teachers", http.StatusInternalServerError)
		return
	}
	items := make([]teacherView, 0, len(teachers))
	for _, p := range teachers {
		items = append(items, toTeacherView(p))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

func (h *Handler) GetTeacher(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	p, err := h.repo.GetTeacher(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "teacher not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load teacher", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toTeacherView(p))
}

// GetUser resolves an id to a tagged teacher or student record. The role tag
// is decided here so callers never have to probe fields to tell them apart.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if p, err := h.repo.GetTeacher(ctx, id); err == nil {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"role":    "teacher",
			"teacher": toTeacherView(p),
		})
		return
	} else if !storage.IsNotFound(err) {
		http.Error(w, "failed to load user", http.StatusInternalServerError)
		return
	}

	s, err := h.repo.GetStudent(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load user", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"role":    "student",
		"student": studentView{UserID: s.UserID, Name: s.Name},
	})
}

// Follows handles the calling student's followed-teacher list.
func (h *Handler) Follows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listFollows(w, r)
	case http.MethodPost:
		h.follow(w, r)
	case http.MethodDelete:
		h.unfollow(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listFollows(w http.ResponseWriter, r *http.Request) {
	userID, role := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}
	if role == "teacher" {
		http.Error(w, "student role required", http.StatusForbidden)
		return
	}

	teachers, err := h.repo.ListFollowedTeachers(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to list follows", http.StatusInternalServerError)
		return
	}
	items := make([]teacherView, 0, len(teachers))
	for _, p := range teachers {
		items = append(items, toTeacherView(p))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

func (h *Handler) follow(w http.ResponseWriter, r *http.Request) {
	userID, role := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}
	if role == "teacher" {
		http.Error(w, "student role required", http.StatusForbidden)
		return
	}

	var req struct {
		TeacherID string `json:"teacher_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	if req.TeacherID == "" {
		http.Error(w, "teacher_id is required", http.StatusBadRequest)
		return
	}

	if err := h.repo.FollowTeacher(r.Context(), userID, req.TeacherID); err != nil {
		http.Error(w, "failed to follow", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unfollow(w http.ResponseWriter, r *http.Request) {
	userID, role := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}
	if role == "teacher" {
		http.Error(w, "student role required", http.StatusForbidden)
		return
	}

	teacherID := strings.TrimSpace(r.URL.Query().Get("teacher_id"))
	if teacherID == "" {
		http.Error(w, "teacher_id is required", http.StatusBadRequest)
		return
	}

	if err := h.repo.UnfollowTeacher(r.Context(), userID, teacherID); err != nil {
		http.Error(w, "failed to unfollow", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListStudents returns the students who have booked with the calling teacher.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, role := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}
	if role != "teacher" {
		http.Error(w, "teacher role required", http.StatusForbidden)
		return
	}

	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	students, err := h.repo.ListTeacherStudents(r.Context(), userID, limit)
	if err != nil {
		http.Error(w, "failed to list students", http.StatusInternalServerError)
		return
	}
	items := make([]studentView, 0, len(students))
	for _, s := range students {
		items = append(items, studentView{UserID: s.StudentID, Name: s.Name})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

type availabilitySetItem struct {
	ColorKey   string   `json:"color_key"`
	TimeRanges []string `json:"time_ranges"`
}

func (h *Handler) ListAvailabilitySets(w http.ResponseWriter, r *http.Request) {
	userID, role := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}
	if role != "teacher" {
		http.Error(w, "teacher role required", http.StatusForbidden)
		return
	}

	sets, err := h.repo.ListAvailabilitySets(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to list availability", http.StatusInternalServerError)
		return
	}
	items := make([]availabilitySetItem, 0, len(sets))
	for _, s := range sets {
		ranges := s.TimeRanges
		if ranges == nil {
			ranges = []string{}
		}
		items = append(items, availabilitySetItem{ColorKey: s.ColorKey, TimeRanges: ranges})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(items)
}

// UpsertAvailabilitySet stores one colored range set and notifies consumers
// which upcoming dates the edit affects.
func (h *Handler) UpsertAvailabilitySet(w http.ResponseWriter, r *http.Request) {
	userID, role := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}
	if role != "teacher" {
		http.Error(w, "teacher role required", http.StatusForbidden)
		return
	}

	var req struct {
		ColorKey   string   `json:"color_key"`
		TimeRanges []string `json:"time_ranges"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ColorKey = strings.TrimSpace(req.ColorKey)
	if req.ColorKey == "" {
		http.Error(w, "color_key is required", http.StatusBadRequest)
		return
	}

	ranges := availability.Normalize(req.TimeRanges)
	if !availability.Valid(ranges) {
		http.Error(w, "time_ranges must be HH:MM-HH:MM with end after start", http.StatusBadRequest)
		return
	}
	if availability.Overlap(ranges) {
		http.Error(w, "time_ranges must not overlap", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.repo.UpsertAvailabilitySet(ctx, tx, userID, req.ColorKey, ranges); err != nil {
		http.Error(w, "failed to save availability", http.StatusInternalServerError)
		return
	}

	dates, err := h.repo.DatesForColor(ctx, userID, req.ColorKey)
	if err != nil {
		http.Error(w, "failed to resolve affected dates", http.StatusInternalServerError)
		return
	}
	if err := h.insertAvailabilityEvent(ctx, tx, userID, dates); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignDateColor wires one calendar date to a colored range set, or clears
// the assignment when color_key is empty.
func (h *Handler) AssignDateColor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, role := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}
	if role != "teacher" {
		http.Error(w, "teacher role required", http.StatusForbidden)
		return
	}

	var req struct {
		Date     string `json:"date"`
		ColorKey string `json:"color_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Date = strings.TrimSpace(req.Date)
	req.ColorKey = strings.TrimSpace(req.ColorKey)
	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if req.ColorKey != "" {
		exists, err := h.repo.HasAvailabilitySet(ctx, userID, req.ColorKey)
		if err != nil {
			http.Error(w, "failed to check availability set", http.StatusInternalServerError)
			return
		}
		if !exists {
			http.Error(w, "unknown color_key", http.StatusBadRequest)
			return
		}
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if req.ColorKey == "" {
		err = h.repo.ClearDateColor(ctx, tx, userID, req.Date)
	} else {
		err = h.repo.AssignDateColor(ctx, tx, userID, req.Date, req.ColorKey)
	}
	if err != nil {
		http.Error(w, "failed to save assignment", http.StatusInternalServerError)
		return
	}

	if err := h.insertAvailabilityEvent(ctx, tx, userID, []string{req.Date}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) insertAvailabilityEvent(ctx context.Context, tx pgx.Tx, teacherID string, dates []string) error {
	if dates == nil {
		dates = []string{}
	}
	payload, err := json.Marshal(map[string]any{
		"teacher_id": teacherID,
		"dates":      dates,
	})
	if err != nil {
		return err
	}
	return h.outboxRepo.Insert(ctx, tx, outboxx.Event{
		AggregateType: "teacher",
		AggregateID:   teacherID,
		EventType:     "profile.availability.updated.v1",
		Payload:       payload,
	})
}

// Schedule is the internal read used by booking-service to expand slots.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	teacherID := strings.TrimSpace(r.URL.Query().Get("teacher_id"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if teacherID == "" || date == "" {
		http.Error(w, "teacher_id and date are required", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	timeRanges, timezone, ok, err := h.repo.DaySchedule(r.Context(), teacherID, date)
	if err != nil {
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no schedule for date", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"time_ranges": timeRanges,
		"timezone":    timezone,
	})
}

// RegisterPushToken stores the device token used for booking notifications.
// Only teachers receive pushes; for other roles the call is accepted and
// dropped so clients can register unconditionally on token refresh.
func (h *Handler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, role := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	if role != "teacher" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.repo.UpsertPushToken(ctx, tx, userID, req.Token); err != nil {
		http.Error(w, "failed to save push token", http.StatusInternalServerError)
		return
	}

	payload, err := json.Marshal(map[string]any{
		"user_id": userID,
		"token":   req.Token,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outboxx.Event{
		AggregateType: "push_token",
		AggregateID:   userID,
		EventType:     "profile.push_token.updated.v1",
		Payload:       payload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
