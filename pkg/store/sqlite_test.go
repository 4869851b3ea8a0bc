package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"aisview/pkg/db"
	"aisview/pkg/model"
)

// setupTestStore creates a test database and store for each test.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	d, err := db.Init(dbPath)
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return NewSQLiteStore(d)
}

var base = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func raw(mmsi, sec int) model.RawMessage {
	return model.RawMessage{MMSI: mmsi, Timestamp: base.Add(time.Duration(sec) * time.Second), Payload: []byte(`{"type":1}`)}
}

func collect(t *testing.T, c Cursor) []model.RawMessage {
	t.Helper()
	defer c.Close()
	var out []model.RawMessage
	for c.Next() {
		out = append(out, c.Message())
	}
	if err := c.Err(); err != nil {
		t.Fatalf("cursor error: %v", err)
	}
	return out
}

func TestSQLiteStore_Query(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// Inserted out of order and interleaved with another vessel.
	if err := s.Append(ctx, raw(1, 30), raw(2, 5), raw(1, 10), raw(1, 20), raw(1, 100)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	tests := []struct {
		name     string
		mmsi     int
		from, to int
		wantSecs []int
	}{
		{"FullWindow", 1, 0, 200, []int{10, 20, 30, 100}},
		{"InclusiveBounds", 1, 10, 30, []int{10, 20, 30}},
		{"OtherVessel", 2, 0, 200, []int{5}},
		{"Empty", 3, 0, 200, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := s.Query(ctx, tt.mmsi, base.Add(time.Duration(tt.from)*time.Second), base.Add(time.Duration(tt.to)*time.Second))
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			got := collect(t, c)
			if len(got) != len(tt.wantSecs) {
				t.Fatalf("got %d messages, want %d", len(got), len(tt.wantSecs))
			}
			for i, m := range got {
				want := base.Add(time.Duration(tt.wantSecs[i]) * time.Second)
				if !m.Timestamp.Equal(want) {
					t.Errorf("message %d at %v, want %v", i, m.Timestamp, want)
				}
				if m.MMSI != tt.mmsi {
					t.Errorf("message %d mmsi %d, want %d", i, m.MMSI, tt.mmsi)
				}
			}
		})
	}
}

func TestSQLiteStore_AppendIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	if err := s.Append(ctx, raw(1, 1), raw(1, 2)); err != nil {
		t.Fatal(err)
	}
	// The same reports again, plus one that differs only in payload.
	other := raw(1, 2)
	other.Payload = []byte(`{"type":3}`)
	if err := s.Append(ctx, raw(1, 1), raw(1, 2), other); err != nil {
		t.Fatal(err)
	}

	c, err := s.Query(ctx, 1, base, base.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if n := len(collect(t, c)); n != 3 {
		t.Errorf("got %d archived messages, want 3", n)
	}
}

func TestSQLiteStore_QueryRestartable(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	if err := s.Append(ctx, raw(1, 1), raw(1, 2)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		c, err := s.Query(ctx, 1, base, base.Add(time.Minute))
		if err != nil {
			t.Fatal(err)
		}
		if n := len(collect(t, c)); n != 2 {
			t.Errorf("scan %d returned %d messages, want 2", i, n)
		}
	}
}

func TestSQLiteStore_QueryCancelled(t *testing.T) {
	s := setupTestStore(t)
	if err := s.Append(context.Background(), raw(1, 1), raw(1, 2), raw(1, 3)); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c, err := s.Query(ctx, 1, base, base.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if !c.Next() {
		t.Fatalf("expected first message, err=%v", c.Err())
	}
	cancel()
	if c.Next() {
		t.Error("Next() returned true after cancellation")
	}
	if !errors.Is(c.Err(), context.Canceled) {
		t.Errorf("Err() = %v, want context.Canceled", c.Err())
	}
}

func TestSQLiteStore_State(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, found := s.GetState(ctx, "k"); found {
		t.Error("expected missing state")
	}
	if err := s.SetState(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	if v, found := s.GetState(ctx, "k"); !found || v != "v" {
		t.Errorf("GetState = %q,%v", v, found)
	}
	if err := s.DeleteState(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, found := s.GetState(ctx, "k"); found {
		t.Error("state survived delete")
	}
}
