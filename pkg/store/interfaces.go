package store

import (
	"context"
	"time"

	"aisview/pkg/model"
)

// ArchivalStore answers time-window queries over archived AIS messages.
type ArchivalStore interface {
	// Query returns a cursor over the messages of one vessel with
	// from <= timestamp <= to, ordered by time. Calling Query again restarts
	// the scan. Cancelling ctx stops the cursor early.
	Query(ctx context.Context, mmsi int, from, to time.Time) (Cursor, error)
}

// Cursor is a lazy, finite scan over archived messages.
type Cursor interface {
	Next() bool
	Message() model.RawMessage
	// Err reports the error that ended the scan, including context cancellation.
	Err() error
	Close() error
}

// MessageWriter appends raw messages to the archive. A message already
// archived with the same vessel, time and payload is not stored again.
type MessageWriter interface {
	Append(ctx context.Context, msgs ...model.RawMessage) error
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
