package storage

import (
	"strings"
	"testing"
)

// The outboxx repository's SQL names these columns; the service migration has
// to declare them or the publisher's first poll fails.
var outboxColumns = []string{
	"event_id",
	"aggregate_type",
	"aggregate_id",
	"event_type",
	"payload",
	"traceparent",
	"tracestate",
	"created_at",
	"published_at",
}

func TestMigrationsDeclareOutboxColumns(t *testing.T) {
	ddl := outboxDDL(t)
	if ddl == "" {
		t.Fatalf("notification: no outbox_events table in migrations")
	}
	// MarkPublished matches ids as int64, so the key must be bigserial.
	if !strings.Contains(ddl, "id bigserial PRIMARY KEY") {
		t.Fatalf("notification: outbox_events id must be bigserial, got:\n%s", ddl)
	}
	for _, col := range outboxColumns {
		if !strings.Contains(ddl, col) {
			t.Fatalf("notification: outbox_events missing column %q:\n%s", col, ddl)
		}
	}
}

func outboxDDL(t *testing.T) string {
	t.Helper()

	entries, err := Migrations.ReadDir(MigrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	for _, entry := range entries {
		raw, err := Migrations.ReadFile(MigrationsDir + "/" + entry.Name())
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		sql := string(raw)
		start := strings.Index(sql, "CREATE TABLE outbox_events")
		if start < 0 {
			continue
		}
		end := strings.Index(sql[start:], ");")
		if end < 0 {
			t.Fatalf("%s: unterminated outbox_events DDL", entry.Name())
		}
		return sql[start : start+end+2]
	}
	return ""
}
