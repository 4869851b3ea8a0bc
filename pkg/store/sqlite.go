package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aisview/pkg/db"
	"aisview/pkg/model"
)

// Store defines the repository interface.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	ArchivalStore
	MessageWriter
	StateStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Archive ---

func (s *SQLiteStore) Append(ctx context.Context, msgs ...model.RawMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO ais_message (mmsi, ts, payload) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		if _, err := stmt.ExecContext(ctx, m.MMSI, m.Timestamp.UnixMilli(), m.Payload); err != nil {
			return fmt.Errorf("failed to insert message for %d: %w", m.MMSI, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Query(ctx context.Context, mmsi int, from, to time.Time) (Cursor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mmsi, ts, payload FROM ais_message
		 WHERE mmsi = ? AND ts BETWEEN ? AND ?
		 ORDER BY ts, id`, mmsi, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("archive query failed: %w", err)
	}
	return &rowsCursor{ctx: ctx, rows: rows}, nil
}

// rowsCursor adapts sql.Rows to Cursor.
type rowsCursor struct {
	ctx  context.Context
	rows *sql.Rows
	cur  model.RawMessage
	err  error
	done bool
}

func (c *rowsCursor) Next() bool {
	if c.done {
		return false
	}
	if err := c.ctx.Err(); err != nil {
		c.finish(err)
		return false
	}
	if !c.rows.Next() {
		c.finish(c.rows.Err())
		return false
	}

	var (
		mmsi    int
		ts      int64
		payload []byte
	)
	if err := c.rows.Scan(&mmsi, &ts, &payload); err != nil {
		c.finish(fmt.Errorf("archive scan failed: %w", err))
		return false
	}
	c.cur = model.RawMessage{MMSI: mmsi, Timestamp: time.UnixMilli(ts).UTC(), Payload: payload}
	return true
}

func (c *rowsCursor) finish(err error) {
	c.done = true
	c.err = err
	_ = c.rows.Close()
}

func (c *rowsCursor) Message() model.RawMessage {
	return c.cur
}

func (c *rowsCursor) Err() error {
	return c.err
}

func (c *rowsCursor) Close() error {
	c.done = true
	return c.rows.Close()
}

// --- State ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM persistent_state WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	return val, err == nil
}

func (s *SQLiteStore) SetState(ctx context.Context, key, val string) error {
	query := `INSERT OR REPLACE INTO persistent_state (key, value, created_at) VALUES (?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, key, val, time.Now())
	return err
}

func (s *SQLiteStore) DeleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM persistent_state WHERE key = ?", key)
	return err
}
