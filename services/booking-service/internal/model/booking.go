package model

import (
	"time"

	"github.com/tutorhub/tutorhub/services/booking-service/internal/lifecycle"
)

// Booking is one student's request to reserve contiguous 30-minute points
// on a date with a teacher. Times is kept chronologically ordered.
type Booking struct {
	ID        string
	StudentID string
	TeacherID string
	Date      string // "yyyy-MM-dd" in the teacher's timezone
	Times     []string
	Status    lifecycle.Status
	CreatedAt time.Time
	UpdatedAt time.Time
}
