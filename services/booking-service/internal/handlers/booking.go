package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tutorhub/tutorhub/libs/outboxx"
	"github.com/tutorhub/tutorhub/services/booking-service/internal/availability"
	"github.com/tutorhub/tutorhub/services/booking-service/internal/lifecycle"
	"github.com/tutorhub/tutorhub/services/booking-service/internal/model"
	"github.com/tutorhub/tutorhub/services/booking-service/internal/schedule"
	"github.com/tutorhub/tutorhub/services/booking-service/internal/slotcache"
	"github.com/tutorhub/tutorhub/services/booking-service/internal/storage"
)

type BookingHandler struct {
	repo       *storage.BookingRepository
	outboxRepo *outboxx.Repository
	cache      *slotcache.Cache
	schedule   schedule.Provider
	logger     *slog.Logger
}

func NewBookingHandler(repo *storage.BookingRepository, outboxRepo *outboxx.Repository, cache *slotcache.Cache, scheduleProvider schedule.Provider, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		cache:      cache,
		schedule:   scheduleProvider,
		logger:     logger,
	}
}

type createBookingRequest struct {
	TeacherID string   `json:"teacher_id"`
	Date      string   `json:"date"`
	Times     []string `json:"times"`
}

type createBookingResponse struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type transitionRequest struct {
	BookingID string `json:"booking_id"`
}

type transitionResponse struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type listBookingItem struct {
	BookingID string   `json:"booking_id"`
	StudentID string   `json:"student_id"`
	TeacherID string   `json:"teacher_id"`
	Date      string   `json:"date"`
	Times     []string `json:"times"`
	Status    string   `json:"status"`
	CreatedAt string   `json:"created_at"`
}

const dateLayout = "2006-01-02"

func identity(r *http.Request) (userID, role string) {
	return strings.TrimSpace(r.Header.Get("X-User-Id")), strings.TrimSpace(r.Header.Get("X-Role"))
}

// Slots returns the bookable time points for a teacher on a date: the
// teacher's declared ranges expanded to discrete points, minus points held
// by active bookings, minus points already in the past.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
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

	sched, ok, err := h.schedule.DaySchedule(r.Context(), teacherID, date)
	if err != nil {
		h.logger.Warn("schedule fetch failed", "err", err, "teacher_id", teacherID)
		http.Error(w, "schedule service unavailable", http.StatusServiceUnavailable)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, []string{})
		return
	}

	loc := time.UTC
	if sched.Timezone != "" {
		if parsed, err := time.LoadLocation(sched.Timezone); err == nil {
			loc = parsed
		}
	}

	booked, err := h.cache.BookedTimes(r.Context(), teacherID, date)
	if err != nil {
		http.Error(w, "failed to load booked slots", http.StatusInternalServerError)
		return
	}

	points := availability.ExpandSlots(sched.TimeRanges, booked, date, time.Now(), loc)
	if points == nil {
		points = []string{}
	}
	writeJSON(w, http.StatusOK, points)
}

// Dispatch routes the bookings collection: POST creates, GET lists.
func (h *BookingHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.Create(w, r)
	case http.MethodGet:
		h.List(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	studentID, _ := identity(r)
	if studentID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	req.Date = strings.TrimSpace(req.Date)
	if req.TeacherID == "" || req.Date == "" || len(req.Times) == 0 {
		http.Error(w, "teacher_id, date and times are required", http.StatusBadRequest)
		return
	}
	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	if req.TeacherID == studentID {
		http.Error(w, "cannot book yourself", http.StatusBadRequest)
		return
	}

	availability.SortPoints(req.Times)
	if !availability.IsContiguous(req.Times) {
		http.Error(w, availability.ErrNonContiguous.Error(), http.StatusBadRequest)
		return
	}

	sched, ok, err := h.schedule.DaySchedule(r.Context(), req.TeacherID, req.Date)
	if err != nil {
		http.Error(w, "schedule service unavailable", http.StatusServiceUnavailable)
		return
	}
	if !ok {
		http.Error(w, "teacher is not available on this date", http.StatusUnprocessableEntity)
		return
	}

	loc := time.UTC
	if sched.Timezone != "" {
		if parsed, err := time.LoadLocation(sched.Timezone); err == nil {
			loc = parsed
		}
	}

	// Expand without subtracting existing bookings: past points and points
	// outside the declared ranges are rejected here, overlap with other
	// bookings is rejected under the row lock below.
	offered := availability.ExpandSlots(sched.TimeRanges, nil, req.Date, time.Now(), loc)
	offeredSet := make(map[string]struct{}, len(offered))
	for _, p := range offered {
		offeredSet[p] = struct{}{}
	}
	for _, p := range req.Times {
		if _, ok := offeredSet[p]; !ok {
			http.Error(w, "requested time is not bookable", http.StatusUnprocessableEntity)
			return
		}
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	booked, err := h.repo.LockBookedTimes(ctx, tx, req.TeacherID, req.Date)
	if err != nil {
		http.Error(w, "failed to load booked slots", http.StatusInternalServerError)
		return
	}
	if storage.Overlaps(req.Times, booked) {
		http.Error(w, "time slot already booked", http.StatusConflict)
		return
	}

	booking := &model.Booking{
		StudentID: studentID,
		TeacherID: req.TeacherID,
		Date:      req.Date,
		Times:     req.Times,
		Status:    lifecycle.StatusPending,
	}
	id, err := h.repo.Create(ctx, tx, booking)
	if err != nil {
		http.Error(w, "failed to create booking", http.StatusInternalServerError)
		return
	}

	evtPayload, err := json.Marshal(map[string]any{
		"booking_id": id,
		"student_id": studentID,
		"teacher_id": req.TeacherID,
		"date":       req.Date,
		"times":      req.Times,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outboxx.Event{
		AggregateType: "booking",
		AggregateID:   id,
		EventType:     "booking.request.created.v1",
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	h.cache.Refresh(ctx, req.TeacherID, req.Date)

	writeJSON(w, http.StatusCreated, createBookingResponse{
		BookingID: id,
		Status:    string(lifecycle.StatusPending),
	})
}

// Confirm moves a pending booking to confirmed. Teacher only.
func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, lifecycle.StatusConfirmed, "teacher", "booking.confirmed.v1")
}

// Reject moves a pending booking to rejected, freeing its time points.
func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, lifecycle.StatusRejected, "teacher", "booking.rejected.v1")
}

// Cancel records the student's cancellation request on a confirmed booking.
// The slot stays held until the teacher approves.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, lifecycle.StatusCanceling, "student", "booking.cancel.requested.v1")
}

// ApproveCancel finalizes a cancellation request, freeing the time points.
func (h *BookingHandler) ApproveCancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, lifecycle.StatusCanceled, "teacher", "booking.canceled.v1")
}

// Complete marks a confirmed booking as completed. Downstream, the teacher's
// course counter is incremented off the emitted event.
func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, lifecycle.StatusCompleted, "teacher", "booking.completed.v1")
}

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, target lifecycle.Status, actor string, eventType string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, _ := identity(r)
	if userID == "" {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		http.Error(w, "booking_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	booking, err := h.repo.GetForUpdate(ctx, tx, req.BookingID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load booking", http.StatusInternalServerError)
		return
	}

	owner := booking.TeacherID
	if actor == "student" {
		owner = booking.StudentID
	}
	if owner != userID {
		http.Error(w, "not allowed", http.StatusForbidden)
		return
	}

	if booking.Status == target {
		writeJSON(w, http.StatusOK, transitionResponse{BookingID: booking.ID, Status: string(target)})
		return
	}
	if err := lifecycle.Transition(booking.Status, target); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	if err := h.repo.UpdateStatus(ctx, tx, booking.ID, target); err != nil {
		http.Error(w, "failed to update booking", http.StatusInternalServerError)
		return
	}

	evtPayload, err := json.Marshal(map[string]any{
		"booking_id": booking.ID,
		"student_id": booking.StudentID,
		"teacher_id": booking.TeacherID,
		"date":       booking.Date,
		"times":      booking.Times,
		"status":     string(target),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, outboxx.Event{
		AggregateType: "booking",
		AggregateID:   booking.ID,
		EventType:     eventType,
		Payload:       evtPayload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	if !lifecycle.BlocksSlot(target) {
		h.cache.Refresh(ctx, booking.TeacherID, booking.Date)
	}

	writeJSON(w, http.StatusOK, transitionResponse{BookingID: booking.ID, Status: string(target)})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, role := identity(r)
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

	var (
		bookings []model.Booking
		err      error
	)
	if role == "teacher" {
		date := strings.TrimSpace(r.URL.Query().Get("date"))
		bookings, err = h.repo.ListByTeacher(r.Context(), userID, date, limit)
	} else {
		includeCanceled := r.URL.Query().Get("include_canceled") == "true"
		bookings, err = h.repo.ListByStudent(r.Context(), userID, includeCanceled, limit)
	}
	if err != nil {
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}

	items := make([]listBookingItem, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, listBookingItem{
			BookingID: b.ID,
			StudentID: b.StudentID,
			TeacherID: b.TeacherID,
			Date:      b.Date,
			Times:     b.Times,
			Status:    string(b.Status),
			CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
