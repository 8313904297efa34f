package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/openblock-labs/hwbridge/internal/infrastructure/config"
)

// Open opens (creating if needed) the SQLite database for the audit trail.
//
// The parent directory is created when missing. WAL mode and the busy
// timeout come from config; foreign keys are always on. SQLite allows only
// one writer, so the pool is capped at a single connection.
func Open(cfg config.AuditConfig) (*sql.DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", fmt.Sprintf("%d", cfg.BusyTimeout*1000))
	if cfg.WALMode {
		params.Set("_journal_mode", "WAL")
	}

	dsn := fmt.Sprintf("file:%s?%s", cfg.Path, params.Encode())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}
