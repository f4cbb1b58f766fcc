package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/tutorhub/tutorhub/libs/db"
)

// Notification records one fan-out attempt. RefID points at the triggering
// record (booking id, chat message id).
type Notification struct {
	RefID   string
	UserID  string
	Title   string
	Body    string
	Payload map[string]any
	Status  string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (ref_id, user_id, title, body, payload, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.RefID, n.UserID, n.Title, n.Body, payload, n.Status)
	return err
}

// UpsertToken keeps a local copy of push tokens fed off profile events so
// fan-out never needs a synchronous call to profile-service.
func (r *Repository) UpsertToken(ctx context.Context, userID, token string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO push_tokens (user_id, token)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET token = EXCLUDED.token,
			updated_at = now()
	`, userID, token)
	return err
}

// TokenFor returns the user's registered device token, empty when none.
func (r *Repository) TokenFor(ctx context.Context, userID string) (string, error) {
	var token string
	err := r.pool.QueryRow(ctx, `
		SELECT token FROM push_tokens WHERE user_id = $1
	`, userID).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}
