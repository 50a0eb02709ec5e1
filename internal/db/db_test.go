package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestDescribeSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		statement string
		verb      string
		table     string
	}{
		{statement: "SELECT id FROM orders WHERE id = $1", verb: "SELECT", table: "orders"},
		{statement: "insert into order_tracking_events (order_id) values ($1)", verb: "INSERT", table: "order_tracking_events"},
		{statement: "UPDATE products SET name = $1", verb: "UPDATE", table: "products"},
		{statement: "DELETE FROM products WHERE id = $1", verb: "DELETE", table: "products"},
		{statement: "BEGIN", verb: "BEGIN"},
		{statement: "", verb: ""},
	}

	for _, tc := range tests {
		verb, table := describeSQL(tc.statement)
		if verb != tc.verb || table != tc.table {
			t.Fatalf("describeSQL(%q): got=(%q,%q) want=(%q,%q)", tc.statement, verb, table, tc.verb, tc.table)
		}
	}
}

func TestCompactSQL(t *testing.T) {
	t.Parallel()

	if got := compactSQL("\n\tSELECT  id\n FROM orders  "); got != "SELECT id FROM orders" {
		t.Fatalf("unexpected compact SQL: %q", got)
	}
	if got := compactSQL("   "); got != "sql.query" {
		t.Fatalf("unexpected placeholder: %q", got)
	}
	if got := compactSQL(strings.Repeat("a ", 400)); len(got) != maxTracedQueryLen {
		t.Fatalf("expected truncation to %d, got %d", maxTracedQueryLen, len(got))
	}
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	if err := translate(fmt.Errorf("scan: %w", pgx.ErrNoRows)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	if err := translate(dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	other := errors.New("boom")
	if err := translate(other); err != other {
		t.Fatalf("unexpected translation: %v", err)
	}
	if translate(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}

func TestMigrateURL(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"postgres://u:p@localhost:5432/app?sslmode=disable": "pgx5://u:p@localhost:5432/app?sslmode=disable",
		"postgresql://localhost/app":                        "pgx5://localhost/app",
		"pgx5://localhost/app":                              "pgx5://localhost/app",
	}
	for in, want := range tests {
		if got := migrateURL(in); got != want {
			t.Fatalf("migrateURL(%q): got=%q want=%q", in, got, want)
		}
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	t.Parallel()

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ups, downs := 0, 0
	for _, entry := range entries {
		switch {
		case strings.HasSuffix(entry.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(entry.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Fatalf("unbalanced migrations: up=%d down=%d", ups, downs)
	}
}
