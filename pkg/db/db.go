package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Enable WAL mode for better concurrency and set busy timeout
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	d := &DB{db}
	// Enforce single connection to avoid SQLITE_BUSY errors during concurrent writes
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return d, nil
}

// PruneMessages removes archived messages older than the given duration and
// returns how many were deleted.
func (d *DB) PruneMessages(olderThan time.Duration) (int64, error) {
	deadline := time.Now().Add(-olderThan).UnixMilli()
	res, err := d.Exec("DELETE FROM ais_message WHERE ts < ?", deadline)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS ais_message (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mmsi INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ais_message_mmsi_ts ON ais_message (mmsi, ts);`,
		`CREATE TABLE IF NOT EXISTS persistent_state (
			key TEXT PRIMARY KEY,
			value TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}

	return d.migrateUniqueMessages()
}

// migrateUniqueMessages makes a report archived twice collapse to one row.
// Archives created before the unique index existed are deduplicated once.
func (d *DB) migrateUniqueMessages() error {
	var n int
	err := d.QueryRow(`SELECT count(*) FROM sqlite_master
		WHERE type = 'index' AND name = 'idx_ais_message_unique'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to inspect indexes: %w", err)
	}
	if n > 0 {
		return nil
	}

	if _, err := d.Exec(`DELETE FROM ais_message WHERE id NOT IN (
		SELECT MIN(id) FROM ais_message GROUP BY mmsi, ts, payload)`); err != nil {
		return fmt.Errorf("failed to remove duplicate messages: %w", err)
	}
	if _, err := d.Exec(`CREATE UNIQUE INDEX idx_ais_message_unique
		ON ais_message (mmsi, ts, payload)`); err != nil {
		return fmt.Errorf("failed to create unique index: %w", err)
	}
	return nil
}
