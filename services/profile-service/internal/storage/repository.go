package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tutorhub/tutorhub/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

type TeacherProfile struct {
	UserID       string
	Name         string
	Bio          string
	Subjects     []string
	Timezone     string
	TotalCourses int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type StudentProfile struct {
	UserID    string
	Name      string
	CreatedAt time.Time
}

type AvailabilitySet struct {
	ColorKey   string
	TimeRanges []string
	UpdatedAt  time.Time
}

type TeacherStudent struct {
	StudentID string
	Name      string
	AddedAt   time.Time
}

func (r *Repository) GetOrCreateTeacher(ctx context.Context, userID string) (TeacherProfile, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO teachers (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return TeacherProfile{}, err
	}
	return r.GetTeacher(ctx, userID)
}

func (r *Repository) GetTeacher(ctx context.Context, userID string) (TeacherProfile, error) {
	var p TeacherProfile
	err := r.pool.QueryRow(ctx, `
		SELECT user_id::text, name, bio, subjects, timezone, total_courses, created_at, updated_at
		FROM teachers
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Name, &p.Bio, &p.Subjects, &p.Timezone, &p.TotalCourses, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repository) UpdateTeacher(ctx context.Context, userID, name, bio string, subjects []string, timezone string) error {
	if subjects == nil {
		subjects = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO teachers (user_id, name, bio, subjects, timezone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET name = EXCLUDED.name,
			bio = EXCLUDED.bio,
			subjects = EXCLUDED.subjects,
			timezone = EXCLUDED.timezone,
			updated_at = now()
	`, userID, name, bio, subjects, timezone)
	return err
}

func (r *Repository) ListTeachers(ctx context.Context, subject string, limit int) ([]TeacherProfile, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		rows pgx.Rows
		err  error
	)
	if subject != "" {
		rows, err = r.pool.Query(ctx, `
			SELECT user_id::text, name, bio, subjects, timezone, total_courses, created_at, updated_at
			FROM teachers
			WHERE $1 = ANY(subjects)
			ORDER BY total_courses DESC, created_at ASC
			LIMIT $2
		`, subject, limit)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT user_id::text, name, bio, subjects, timezone, total_courses, created_at, updated_at
			FROM teachers
			ORDER BY total_courses DESC, created_at ASC
			LIMIT $1
		`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TeacherProfile
	for rows.Next() {
		var p TeacherProfile
		if err := rows.Scan(&p.UserID, &p.Name, &p.Bio, &p.Subjects, &p.Timezone, &p.TotalCourses, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) GetOrCreateStudent(ctx context.Context, userID string) (StudentProfile, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO students (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return StudentProfile{}, err
	}
	var p StudentProfile
	err = r.pool.QueryRow(ctx, `
		SELECT user_id::text, name, created_at
		FROM students
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Name, &p.CreatedAt)
	return p, err
}

func (r *Repository) UpdateStudent(ctx context.Context, userID, name string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO students (user_id, name)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET name = EXCLUDED.name,
			updated_at = now()
	`, userID, name)
	return err
}

func (r *Repository) GetStudent(ctx context.Context, userID string) (StudentProfile, error) {
	var p StudentProfile
	err := r.pool.QueryRow(ctx, `
		SELECT user_id::text, name, created_at
		FROM students
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Name, &p.CreatedAt)
	return p, err
}

func (r *Repository) FollowTeacher(ctx context.Context, studentID, teacherID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO student_follows (student_id, teacher_id)
		VALUES ($1, $2)
		ON CONFLICT (student_id, teacher_id) DO NOTHING
	`, studentID, teacherID)
	return err
}

func (r *Repository) UnfollowTeacher(ctx context.Context, studentID, teacherID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM student_follows
		WHERE student_id = $1 AND teacher_id = $2
	`, studentID, teacherID)
	return err
}

// ListFollowedTeachers returns the followed teachers that have a profile row;
// follows of ids with no profile yet are kept but not listed.
func (r *Repository) ListFollowedTeachers(ctx context.Context, studentID string) ([]TeacherProfile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.user_id::text, t.name, t.bio, t.subjects, t.timezone, t.total_courses, t.created_at, t.updated_at
		FROM student_follows f
		JOIN teachers t ON t.user_id = f.teacher_id
		WHERE f.student_id = $1
		ORDER BY f.created_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TeacherProfile
	for rows.Next() {
		var p TeacherProfile
		if err := rows.Scan(&p.UserID, &p.Name, &p.Bio, &p.Subjects, &p.Timezone, &p.TotalCourses, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) UpsertAvailabilitySet(ctx context.Context, tx pgx.Tx, teacherID, colorKey string, timeRanges []string) error {
	if timeRanges == nil {
		timeRanges = []string{}
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO availability_sets (teacher_id, color_key, time_ranges)
		VALUES ($1, $2, $3)
		ON CONFLICT (teacher_id, color_key) DO UPDATE
		SET time_ranges = EXCLUDED.time_ranges,
			updated_at = now()
	`, teacherID, colorKey, timeRanges)
	return err
}

func (r *Repository) ListAvailabilitySets(ctx context.Context, teacherID string) ([]AvailabilitySet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT color_key, time_ranges, updated_at
		FROM availability_sets
		WHERE teacher_id = $1
		ORDER BY color_key ASC
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AvailabilitySet
	for rows.Next() {
		var s AvailabilitySet
		if err := rows.Scan(&s.ColorKey, &s.TimeRanges, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) AssignDateColor(ctx context.Context, tx pgx.Tx, teacherID, date, colorKey string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO date_color_assignments (teacher_id, assigned_date, color_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (teacher_id, assigned_date) DO UPDATE
		SET color_key = EXCLUDED.color_key,
			updated_at = now()
	`, teacherID, date, colorKey)
	return err
}

func (r *Repository) ClearDateColor(ctx context.Context, tx pgx.Tx, teacherID, date string) error {
	_, err := tx.Exec(ctx, `
		DELETE FROM date_color_assignments
		WHERE teacher_id = $1 AND assigned_date = $2
	`, teacherID, date)
	return err
}

// DatesForColor lists upcoming dates wired to a color set, used to tell
// consumers which days an edit touched.
func (r *Repository) DatesForColor(ctx context.Context, teacherID, colorKey string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT assigned_date::text
		FROM date_color_assignments
		WHERE teacher_id = $1
			AND color_key = $2
			AND assigned_date >= current_date
		ORDER BY assigned_date ASC
	`, teacherID, colorKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return dates, nil
}

// DaySchedule resolves a date to the teacher's colored range set for it.
// ok is false when the date has no assignment or the set is empty.
func (r *Repository) DaySchedule(ctx context.Context, teacherID, date string) (timeRanges []string, timezone string, ok bool, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT s.time_ranges, t.timezone
		FROM date_color_assignments a
		JOIN availability_sets s
			ON s.teacher_id = a.teacher_id AND s.color_key = a.color_key
		JOIN teachers t
			ON t.user_id = a.teacher_id
		WHERE a.teacher_id = $1 AND a.assigned_date = $2
	`, teacherID, date).Scan(&timeRanges, &timezone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, err
	}
	return timeRanges, timezone, len(timeRanges) > 0, nil
}

func (r *Repository) AddStudentToTeacher(ctx context.Context, tx pgx.Tx, teacherID, studentID string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO teacher_students (teacher_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT (teacher_id, student_id) DO NOTHING
	`, teacherID, studentID)
	return err
}

func (r *Repository) ListTeacherStudents(ctx context.Context, teacherID string, limit int) ([]TeacherStudent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT ts.student_id::text, COALESCE(s.name, ''), ts.added_at
		FROM teacher_students ts
		LEFT JOIN students s ON s.user_id = ts.student_id
		WHERE ts.teacher_id = $1
		ORDER BY ts.added_at DESC
		LIMIT $2
	`, teacherID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TeacherStudent
	for rows.Next() {
		var s TeacherStudent
		if err := rows.Scan(&s.StudentID, &s.Name, &s.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) IncrementTotalCourses(ctx context.Context, tx pgx.Tx, teacherID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE teachers
		SET total_courses = total_courses + 1,
			updated_at = now()
		WHERE user_id = $1
	`, teacherID)
	return err
}

func (r *Repository) UpsertPushToken(ctx context.Context, tx pgx.Tx, userID, token string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO push_tokens (user_id, token)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET token = EXCLUDED.token,
			updated_at = now()
	`, userID, token)
	return err
}

// HasAvailabilitySet reports whether the teacher declared the color set.
func (r *Repository) HasAvailabilitySet(ctx context.Context, teacherID, colorKey string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM availability_sets
			WHERE teacher_id = $1 AND color_key = $2
		)
	`, teacherID, colorKey).Scan(&exists)
	return exists, err
}

// IsTeacher reports whether the user has a teacher profile.
func (r *Repository) IsTeacher(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM teachers WHERE user_id = $1)
	`, userID).Scan(&exists)
	return exists, err
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "23P01")
}
