package inboxx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tutorhub/tutorhub/libs/db"
)

// Execer is the slice of pgx.Tx / pool used to write inbox rows.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository dedupes consumed events. Record returns false when the event id
// was already seen (unique violation on the inbox table).
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	return record(ctx, r.pool, eventID, eventType)
}

// RecordTx dedupes inside the caller's transaction. Use it when the handler's
// effect must commit or roll back together with the dedupe row, so a failed
// effect stays eligible for redelivery.
func (r *Repository) RecordTx(ctx context.Context, tx Execer, eventID string, eventType string) (bool, error) {
	return record(ctx, tx, eventID, eventType)
}

func record(ctx context.Context, ex Execer, eventID, eventType string) (bool, error) {
	_, err := ex.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return false, nil
	}

	return false, err
}
