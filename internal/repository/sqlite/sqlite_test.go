package sqlite_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/msomdec/updog/internal/domain"
	"github.com/msomdec/updog/internal/repository/sqlite"
	"github.com/msomdec/updog/internal/repository/sqlite/migrations"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *sqlite.DB, username string) *domain.User {
	t.Helper()
	user := &domain.User{Username: username, PasswordHash: "hash"}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("Create %s: %v", username, err)
	}
	return user
}

func TestNew(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file was not created")
	}

	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}

	var fkEnabled int
	if err := db.SqlDB.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("check foreign_keys: %v", err)
	}
	if fkEnabled != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fkEnabled)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate (idempotent): %v", err)
	}

	files, err := migrations.Files()
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	var count int
	err = db.SqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	if err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != len(files) {
		t.Fatalf("expected %d migration records, got %d", len(files), count)
	}
}

func TestWithinTx_Commit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var id int64
	err := db.WithinTx(ctx, func(ctx context.Context) error {
		user := &domain.User{Username: "committed", PasswordHash: "hash"}
		if err := db.Users().Create(ctx, user); err != nil {
			return err
		}
		id = user.ID
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}

	if _, err := db.Users().GetByID(ctx, id); err != nil {
		t.Fatalf("expected committed user, got %v", err)
	}
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithinTx(ctx, func(ctx context.Context) error {
		user := &domain.User{Username: "rolledback", PasswordHash: "hash"}
		if err := db.Users().Create(ctx, user); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := db.Users().GetByUsername(ctx, "rolledback"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after rollback, got %v", err)
	}
}

func TestWithinTx_Nested(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.WithinTx(ctx, func(ctx context.Context) error {
		return db.WithinTx(ctx, func(ctx context.Context) error {
			return db.Users().Create(ctx, &domain.User{Username: "nested", PasswordHash: "hash"})
		})
	})
	if err != nil {
		t.Fatalf("nested WithinTx: %v", err)
	}

	if _, err := db.Users().GetByUsername(ctx, "nested"); err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
}
