package inboxx

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

type fakeExecer struct {
	err error
}

func (f *fakeExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, f.err
}

func TestRecordFirstDelivery(t *testing.T) {
	ok, err := record(context.Background(), &fakeExecer{}, "evt-1", "booking.completed.v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("first delivery should not be a duplicate")
	}
}

func TestRecordDuplicateDelivery(t *testing.T) {
	ok, err := record(context.Background(), &fakeExecer{err: &pgconn.PgError{Code: "23505"}}, "evt-1", "booking.completed.v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("unique violation should report duplicate")
	}
}

func TestRecordPropagatesOtherErrors(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := record(context.Background(), &fakeExecer{err: boom}, "evt-1", "booking.completed.v1")
	if !errors.Is(err, boom) {
		t.Fatalf("expected underlying error, got %v", err)
	}
}
