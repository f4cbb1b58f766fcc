package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/tutorhub/tutorhub/libs/db"
)

type Chat struct {
	ID        string
	StudentID string
	TeacherID string
	CreatedAt time.Time
}

type Message struct {
	ID        string
	ChatID    string
	SenderID  string
	Body      string
	CreatedAt time.Time
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// EnsureChat returns the chat for a student/teacher pair, creating it on
// first contact. Safe to call concurrently.
func (r *Repository) EnsureChat(ctx context.Context, studentID, teacherID string) (Chat, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chats (student_id, teacher_id)
		VALUES ($1, $2)
		ON CONFLICT (student_id, teacher_id) DO NOTHING
	`, studentID, teacherID)
	if err != nil {
		return Chat{}, err
	}

	var c Chat
	err = r.pool.QueryRow(ctx, `
		SELECT id::text, student_id::text, teacher_id::text, created_at
		FROM chats
		WHERE student_id = $1 AND teacher_id = $2
	`, studentID, teacherID).Scan(&c.ID, &c.StudentID, &c.TeacherID, &c.CreatedAt)
	return c, err
}

func (r *Repository) GetChat(ctx context.Context, chatID string) (Chat, error) {
	var c Chat
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, student_id::text, teacher_id::text, created_at
		FROM chats
		WHERE id = $1
	`, chatID).Scan(&c.ID, &c.StudentID, &c.TeacherID, &c.CreatedAt)
	return c, err
}

func (r *Repository) ListChats(ctx context.Context, userID string, limit int) ([]Chat, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, student_id::text, teacher_id::text, created_at
		FROM chats
		WHERE student_id = $1 OR teacher_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.StudentID, &c.TeacherID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) InsertMessage(ctx context.Context, tx pgx.Tx, chatID, senderID, body string) (Message, error) {
	var m Message
	err := tx.QueryRow(ctx, `
		INSERT INTO messages (chat_id, sender_id, body)
		VALUES ($1, $2, $3)
		RETURNING id::text, chat_id::text, sender_id::text, body, created_at
	`, chatID, senderID, body).Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Body, &m.CreatedAt)
	return m, err
}

// ListMessages returns messages in send order, optionally only those after
// the cursor timestamp.
func (r *Repository) ListMessages(ctx context.Context, chatID string, after time.Time, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, chat_id::text, sender_id::text, body, created_at
		FROM messages
		WHERE chat_id = $1 AND created_at > $2
		ORDER BY created_at ASC
		LIMIT $3
	`, chatID, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
