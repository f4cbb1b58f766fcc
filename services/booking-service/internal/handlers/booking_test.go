package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tutorhub/tutorhub/services/booking-service/internal/schedule"
	"github.com/tutorhub/tutorhub/services/booking-service/internal/slotcache"
)

type fakeScheduleProvider struct {
	sched schedule.DaySchedule
	ok    bool
	err   error
}

func (f *fakeScheduleProvider) DaySchedule(_ context.Context, _, _ string) (schedule.DaySchedule, bool, error) {
	return f.sched, f.ok, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(provider schedule.Provider, booked []string) *BookingHandler {
	cache := slotcache.New(nil, func(_ context.Context, _, _ string) ([]string, error) {
		return booked, nil
	}, time.Minute, discardLogger())
	return NewBookingHandler(nil, nil, cache, provider, discardLogger())
}

func tomorrow() string {
	return time.Now().AddDate(0, 0, 1).Format("2006-01-02")
}

func TestSlotsReturnsExpandedPoints(t *testing.T) {
	provider := &fakeScheduleProvider{
		sched: schedule.DaySchedule{TimeRanges: []string{"09:00-10:00"}, Timezone: "UTC"},
		ok:    true,
	}
	h := newTestHandler(provider, []string{"09:30"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?teacher_id=t1&date="+tomorrow(), nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var points []string
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatalf("invalid json response: %v", err)
	}
	if len(points) != 1 || points[0] != "09:00" {
		t.Fatalf("expected [09:00], got %v", points)
	}
}

func TestSlotsTeacherNotAvailable(t *testing.T) {
	h := newTestHandler(&fakeScheduleProvider{ok: false}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?teacher_id=t1&date="+tomorrow(), nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}

func TestSlotsMissingParams(t *testing.T) {
	h := newTestHandler(&fakeScheduleProvider{ok: true}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?teacher_id=t1", nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSlotsInvalidDate(t *testing.T) {
	h := newTestHandler(&fakeScheduleProvider{ok: true}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/slots?teacher_id=t1&date=09-2026-01", nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateRejectsMissingIdentity(t *testing.T) {
	h := newTestHandler(&fakeScheduleProvider{ok: true}, nil)

	body := `{"teacher_id":"t1","date":"` + tomorrow() + `","times":["09:00"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCreateRejectsNonContiguousSelection(t *testing.T) {
	h := newTestHandler(&fakeScheduleProvider{ok: true}, nil)

	body := `{"teacher_id":"t1","date":"` + tomorrow() + `","times":["09:00","10:00"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("X-User-Id", "s1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "contiguous") {
		t.Fatalf("expected contiguity error, got %s", rec.Body.String())
	}
}

func TestCreateRejectsPointOutsideSchedule(t *testing.T) {
	provider := &fakeScheduleProvider{
		sched: schedule.DaySchedule{TimeRanges: []string{"09:00-10:00"}, Timezone: "UTC"},
		ok:    true,
	}
	h := newTestHandler(provider, nil)

	body := `{"teacher_id":"t1","date":"` + tomorrow() + `","times":["11:00"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("X-User-Id", "s1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateRejectsSelfBooking(t *testing.T) {
	h := newTestHandler(&fakeScheduleProvider{ok: true}, nil)

	body := `{"teacher_id":"u1","date":"` + tomorrow() + `","times":["09:00"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("X-User-Id", "u1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateUnavailableDate(t *testing.T) {
	h := newTestHandler(&fakeScheduleProvider{ok: false}, nil)

	body := `{"teacher_id":"t1","date":"` + tomorrow() + `","times":["09:00"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("X-User-Id", "s1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestTransitionRequiresBookingID(t *testing.T) {
	h := newTestHandler(&fakeScheduleProvider{ok: true}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/confirm", strings.NewReader(`{}`))
	req.Header.Set("X-User-Id", "t1")
	rec := httptest.NewRecorder()
	h.Confirm(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
