package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gitdrop/internal/database/migrations"
	"gitdrop/internal/drop"
	"gitdrop/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteDatabase implements the run ledger on SQLite.
type SQLiteDatabase struct {
	db    *sql.DB
	path  string
	clock drop.Clock
}

// NewSQLiteDatabase opens the ledger at path and brings its schema up to
// date. path can be a file path or ":memory:". A nil clock uses wall time.
func NewSQLiteDatabase(path string, clock drop.Clock) (*SQLiteDatabase, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	return NewSQLiteDatabaseFromDB(db, path, clock), nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection without
// migrating it.
func NewSQLiteDatabaseFromDB(db *sql.DB, path string, clock drop.Clock) *SQLiteDatabase {
	if clock == nil {
		clock = drop.RealClock{}
	}
	return &SQLiteDatabase{db: db, path: path, clock: clock}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to :memory: is a separate database.
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

func (s *SQLiteDatabase) StartRun(operation, parameters string) (*model.Run, error) {
	run := &model.Run{
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  s.clock.Now().UTC(),
		Status:     model.StatusRunning,
	}

	res, err := s.db.Exec(
		`INSERT INTO runs (operation, parameters, started_at, status) VALUES (?, ?, ?, ?)`,
		run.Operation, run.Parameters, run.StartedAt, run.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}

	run.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading run id: %w", err)
	}
	return run, nil
}

func (s *SQLiteDatabase) FinishRun(run *model.Run) error {
	if run.Status == model.StatusRunning {
		return fmt.Errorf("run %d has no final status", run.ID)
	}
	run.FinishedAt = sql.NullTime{Time: s.clock.Now().UTC(), Valid: true}

	res, err := s.db.Exec(
		`UPDATE runs
		    SET finished_at = ?, status = ?, unit = ?, branch = ?, remote = ?,
		        staging_dir = ?, backup_ref = ?, error = ?
		  WHERE id = ?`,
		run.FinishedAt, run.Status, run.Unit, run.Branch, run.Remote,
		run.StagingDir, run.BackupRef, run.Error, run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating run %d: %w", run.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating run %d: %w", run.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("run %d not found", run.ID)
	}
	return nil
}

func (s *SQLiteDatabase) ListRuns(limit int) ([]*model.Run, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	rows, err := s.db.Query(
		`SELECT id, operation, parameters, started_at, finished_at, status,
		        unit, branch, remote, staging_dir, backup_ref, error
		   FROM runs
		  ORDER BY id DESC
		  LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(
			&r.ID, &r.Operation, &r.Parameters, &r.StartedAt, &r.FinishedAt, &r.Status,
			&r.Unit, &r.Branch, &r.Remote, &r.StagingDir, &r.BackupRef, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ drop.Ledger = (*SQLiteDatabase)(nil)
