package database

import (
	"fmt"
	"path/filepath"

	"gitdrop/internal/config"
	"gitdrop/internal/drop"
)

// LedgerFileName is the database file created inside data_dir.
const LedgerFileName = "gitdrop.db"

// NewDatabaseFromConfig creates a Ledger implementation based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, clock drop.Clock) (drop.Ledger, error) {
	var path string
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		path = filepath.Join(cfg.DataDir, LedgerFileName)
	case "memory":
		path = MemoryPath
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}

	db, err := NewSQLiteDatabase(path, clock)
	if err != nil {
		return nil, err
	}
	return db, nil
}
