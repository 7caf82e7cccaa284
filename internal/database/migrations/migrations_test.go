package migrations

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	for _, table := range []string{"runs", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheckStatus(t *testing.T) {
	t.Run("fresh database", func(t *testing.T) {
		db := openTestDB(t)

		if err := CheckStatus(db); !errors.Is(err, ErrNoSchema) {
			t.Errorf("CheckStatus() = %v, want ErrNoSchema", err)
		}
	})

	t.Run("after migration", func(t *testing.T) {
		db := openTestDB(t)
		if err := MigrateUp(db); err != nil {
			t.Fatalf("MigrateUp() failed: %v", err)
		}

		if err := CheckStatus(db); err != nil {
			t.Errorf("CheckStatus() after migration returned error: %v", err)
		}
	})

	t.Run("behind", func(t *testing.T) {
		db := openTestDB(t)
		if err := MigrateTo(db, 1); err != nil {
			t.Fatalf("MigrateTo(1) failed: %v", err)
		}

		err := CheckStatus(db)
		if err == nil || !strings.Contains(err.Error(), "migrations behind") {
			t.Errorf("CheckStatus() = %v, want a migrations-behind error", err)
		}
	})
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("First MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Errorf("Second MigrateUp() failed: %v (should be idempotent)", err)
	}
	if err := CheckStatus(db); err != nil {
		t.Errorf("CheckStatus() after double migration returned error: %v", err)
	}
}

func TestLatestVersion(t *testing.T) {
	got, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if got != 2 {
		t.Errorf("LatestVersion() = %d, want 2", got)
	}
}

func TestSchema_RunStatusCheck(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`INSERT INTO runs (operation, started_at, status) VALUES ('Publish', datetime('now'), 'running')`)
	if err != nil {
		t.Fatalf("inserting valid run: %v", err)
	}

	_, err = db.Exec(`INSERT INTO runs (operation, started_at, status) VALUES ('Publish', datetime('now'), 'paused')`)
	if err == nil {
		t.Error("Expected check constraint violation for unknown status, but insert succeeded")
	}
}

// openTestDB opens an in-memory SQLite database limited to one connection,
// so every statement sees the same database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	return db
}
