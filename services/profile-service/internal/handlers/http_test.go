package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testHandler() *Handler {
	return New(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestUpsertAvailabilitySetRejectsStudentRole(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/availability/sets",
		strings.NewReader(`{"color_key":"blue","time_ranges":["09:00-10:00"]}`))
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-Role", "student")
	rec := httptest.NewRecorder()
	h.UpsertAvailabilitySet(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestUpsertAvailabilitySetRejectsOverlappingRanges(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/availability/sets",
		strings.NewReader(`{"color_key":"blue","time_ranges":["09:00-10:30","10:00-11:00"]}`))
	req.Header.Set("X-User-Id", "t1")
	req.Header.Set("X-Role", "teacher")
	rec := httptest.NewRecorder()
	h.UpsertAvailabilitySet(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "overlap") {
		t.Fatalf("expected overlap error, got %s", rec.Body.String())
	}
}

func TestUpsertAvailabilitySetRejectsMalformedRange(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/availability/sets",
		strings.NewReader(`{"color_key":"blue","time_ranges":["9am-10am"]}`))
	req.Header.Set("X-User-Id", "t1")
	req.Header.Set("X-Role", "teacher")
	rec := httptest.NewRecorder()
	h.UpsertAvailabilitySet(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpsertAvailabilitySetRequiresColorKey(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/availability/sets",
		strings.NewReader(`{"time_ranges":["09:00-10:00"]}`))
	req.Header.Set("X-User-Id", "t1")
	req.Header.Set("X-Role", "teacher")
	rec := httptest.NewRecorder()
	h.UpsertAvailabilitySet(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRegisterPushTokenIgnoresStudentRole(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/push-token",
		strings.NewReader(`{"token":"device-token"}`))
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-Role", "student")
	rec := httptest.NewRecorder()
	h.RegisterPushToken(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 no-op for student role, got %d", rec.Code)
	}
}

func TestRegisterPushTokenRequiresToken(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/push-token", strings.NewReader(`{}`))
	req.Header.Set("X-User-Id", "t1")
	req.Header.Set("X-Role", "teacher")
	rec := httptest.NewRecorder()
	h.RegisterPushToken(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAssignDateColorRejectsInvalidDate(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/availability/dates",
		strings.NewReader(`{"date":"01-09-2026","color_key":"blue"}`))
	req.Header.Set("X-User-Id", "t1")
	req.Header.Set("X-Role", "teacher")
	rec := httptest.NewRecorder()
	h.AssignDateColor(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestFollowRejectsTeacherRole(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/follows",
		strings.NewReader(`{"teacher_id":"t1"}`))
	req.Header.Set("X-User-Id", "t2")
	req.Header.Set("X-Role", "teacher")
	rec := httptest.NewRecorder()
	h.Follows(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestFollowRequiresTeacherID(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/follows", strings.NewReader(`{}`))
	req.Header.Set("X-User-Id", "s1")
	req.Header.Set("X-Role", "student")
	rec := httptest.NewRecorder()
	h.Follows(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUnfollowRequiresTeacherID(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/follows", nil)
	req.Header.Set("X-User-Id", "s1")
	req.Header.Set("X-Role", "student")
	rec := httptest.NewRecorder()
	h.Follows(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetUserRequiresID(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	rec := httptest.NewRecorder()
	h.GetUser(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestScheduleRequiresParams(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodGet, "/internal/v1/schedule?teacher_id=t1", nil)
	rec := httptest.NewRecorder()
	h.Schedule(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
