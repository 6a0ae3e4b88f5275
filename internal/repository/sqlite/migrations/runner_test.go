package migrations_test

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/msomdec/updog/internal/repository/sqlite/migrations"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	return db
}

func TestRunMigrations(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first migration run: %v", err)
	}

	// Verify the users table exists by inserting a row.
	_, err := db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)",
		"tester", "test@example.com", "hash123",
	)
	if err != nil {
		t.Fatalf("insert into users: %v", err)
	}

	files, err := migrations.Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	if err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != len(files) {
		t.Fatalf("expected %d migrations recorded, got %d", len(files), count)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	first, err := migrations.Apply(ctx, db)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first == 0 {
		t.Fatal("expected the first run to apply migrations")
	}

	second, err := migrations.Apply(ctx, db)
	if err != nil {
		t.Fatalf("second run (idempotent): %v", err)
	}
	if second != 0 {
		t.Fatalf("expected second run to apply nothing, applied %d", second)
	}
}

func TestUsernameUniqueIgnoresCase(t *testing.T) {
	db := openMemoryDB(t)
	ctx := context.Background()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO users (username, password_hash) VALUES ('Alice', 'h')"); err != nil {
		t.Fatalf("insert Alice: %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO users (username, password_hash) VALUES ('alice', 'h')"); err == nil {
		t.Fatal("expected unique violation for differently cased username")
	}
}
