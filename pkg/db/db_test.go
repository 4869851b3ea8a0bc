package db_test

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"aisview/pkg/db"
)

func TestDB(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "db_test.db")

	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if d == nil {
		t.Fatal("Init() returned nil DB")
	}
	defer d.Close()

	old := time.Now().Add(-48 * time.Hour).UnixMilli()
	recent := time.Now().UnixMilli()
	for _, ts := range []int64{old, recent} {
		if _, err := d.Exec("INSERT INTO ais_message (mmsi, ts, payload) VALUES (?, ?, ?)", 1, ts, []byte("{}")); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	n, err := d.PruneMessages(24 * time.Hour)
	if err != nil {
		t.Fatalf("PruneMessages() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("PruneMessages() deleted %d rows, want 1", n)
	}
}

func TestDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reopen.db")
	for i := 0; i < 2; i++ {
		d, err := db.Init(path)
		if err != nil {
			t.Fatalf("Init() #%d failed: %v", i, err)
		}
		d.Close()
	}
}

func TestDB_DeduplicatesLegacyArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// An archive written before duplicate reports were rejected.
	legacy, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	stmts := []string{
		`CREATE TABLE ais_message (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			mmsi INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			payload BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`INSERT INTO ais_message (mmsi, ts, payload) VALUES (1, 1000, '{}'), (1, 1000, '{}'), (1, 2000, '{}')`,
	}
	for _, q := range stmts {
		if _, err := legacy.Exec(q); err != nil {
			t.Fatalf("legacy setup failed: %v", err)
		}
	}
	legacy.Close()

	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	defer d.Close()

	var count int
	if err := d.QueryRow("SELECT count(*) FROM ais_message").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("got %d rows after migration, want 2", count)
	}

	if _, err := d.Exec("INSERT INTO ais_message (mmsi, ts, payload) VALUES (1, 2000, '{}')"); err == nil {
		t.Error("expected duplicate insert to violate the unique index")
	}
}
