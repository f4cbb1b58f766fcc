package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/tutorhub/tutorhub/libs/db"
	"github.com/tutorhub/tutorhub/services/booking-service/internal/lifecycle"
	"github.com/tutorhub/tutorhub/services/booking-service/internal/model"
)

type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, b *model.Booking) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO bookings (student_id, teacher_id, booking_date, times, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, b.StudentID, b.TeacherID, b.Date, b.Times, string(b.Status)).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Booking, error) {
	var b model.Booking
	var status string
	err := tx.QueryRow(ctx, `
		SELECT id, student_id, teacher_id, booking_date, times, status, created_at, updated_at
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&b.ID, &b.StudentID, &b.TeacherID, &b.Date, &b.Times, &status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = lifecycle.Status(status)
	return b, nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status lifecycle.Status) error {
	_, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $2,
			updated_at = now()
		WHERE id = $1
	`, id, string(status))
	return err
}

// BookedTimes returns every time point held by a slot-blocking booking for
// the teacher on the date.
func (r *BookingRepository) BookedTimes(ctx context.Context, teacherID, date string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT times
		FROM bookings
		WHERE teacher_id = $1
			AND booking_date = $2
			AND status NOT IN ('rejected', 'canceled')
		ORDER BY created_at ASC
	`, teacherID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return flattenTimes(rows)
}

// LockBookedTimes is BookedTimes inside a transaction with the rows locked.
// The lock is what makes the create path's overlap check atomic: a second
// writer for the same (teacher, date) blocks here until the first commits,
// then sees the first writer's points and is rejected.
func (r *BookingRepository) LockBookedTimes(ctx context.Context, tx pgx.Tx, teacherID, date string) ([]string, error) {
	rows, err := tx.Query(ctx, `
		SELECT times
		FROM bookings
		WHERE teacher_id = $1
			AND booking_date = $2
			AND status NOT IN ('rejected', 'canceled')
		ORDER BY created_at ASC
		FOR UPDATE
	`, teacherID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return flattenTimes(rows)
}

func flattenTimes(rows pgx.Rows) ([]string, error) {
	var all []string
	for rows.Next() {
		var times []string
		if err := rows.Scan(&times); err != nil {
			return nil, err
		}
		all = append(all, times...)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return all, nil
}

func (r *BookingRepository) ListByStudent(ctx context.Context, studentID string, includeCanceled bool, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, student_id, teacher_id, booking_date, times, status, created_at, updated_at
		FROM bookings
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	if !includeCanceled {
		query = `
		SELECT id, student_id, teacher_id, booking_date, times, status, created_at, updated_at
		FROM bookings
		WHERE student_id = $1
			AND status NOT IN ('rejected', 'canceled')
		ORDER BY created_at DESC
		LIMIT $2
	`
	}
	rows, err := r.pool.Query(ctx, query, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (r *BookingRepository) ListByTeacher(ctx context.Context, teacherID string, date string, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	if date != "" {
		rows, err := r.pool.Query(ctx, `
			SELECT id, student_id, teacher_id, booking_date, times, status, created_at, updated_at
			FROM bookings
			WHERE teacher_id = $1 AND booking_date = $2
			ORDER BY created_at DESC
			LIMIT $3
		`, teacherID, date, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanBookings(rows)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, student_id, teacher_id, booking_date, times, status, created_at, updated_at
		FROM bookings
		WHERE teacher_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, teacherID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

func scanBookings(rows pgx.Rows) ([]model.Booking, error) {
	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		var status string
		if err := rows.Scan(&b.ID, &b.StudentID, &b.TeacherID, &b.Date, &b.Times, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.Status = lifecycle.Status(status)
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Overlaps reports whether any requested point is already held.
func Overlaps(requested, booked []string) bool {
	if len(requested) == 0 || len(booked) == 0 {
		return false
	}
	held := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		held[b] = struct{}{}
	}
	for _, p := range requested {
		if _, ok := held[p]; ok {
			return true
		}
	}
	return false
}
