package maintenance

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"aisview/pkg/db"
	"aisview/pkg/model"
	"aisview/pkg/store"
)

func TestMaintenance(t *testing.T) {
	tempDir := t.TempDir()
	d, err := db.Init(filepath.Join(tempDir, "maint_test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	s := store.NewSQLiteStore(d)
	ctx := context.Background()

	now := time.Now().UTC()
	recent := now.Add(-time.Hour)

	csvPath := filepath.Join(tempDir, "reports.csv")
	csvContent := "\ufeffmmsi,timestamp,type,lat,lon,sog,cog,heading,name\n" +
		"219000001," + recent.Format(time.RFC3339) + ",1,55.5,12.1,10.2,45,44,\n" +
		"219000001," + recent.Add(time.Minute).Format(time.RFC3339) + ",5,,,,,,NORDIC STAR\n" +
		"notanumber,2024-01-01T00:00:00Z,1,55,12,0,0,0,\n"
	if err := os.WriteFile(csvPath, []byte(csvContent), 0o644); err != nil {
		t.Fatal(err)
	}

	// An archived message well beyond retention.
	if err := s.Append(ctx, model.RawMessage{MMSI: 1, Timestamp: now.Add(-40 * 24 * time.Hour), Payload: []byte(`{"type":1}`)}); err != nil {
		t.Fatal(err)
	}

	if err := Run(ctx, s, d, csvPath, 30*24*time.Hour); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Verify Import
	c, err := s.Query(ctx, 219000001, recent.Add(-time.Second), now)
	if err != nil {
		t.Fatal(err)
	}
	var types []int
	for c.Next() {
		m, err := model.Decode(c.Message())
		if err != nil {
			t.Fatalf("imported message not decodable: %v", err)
		}
		types = append(types, m.Type)
	}
	c.Close()
	if len(types) != 2 || types[0] != 1 || types[1] != 5 {
		t.Errorf("Expected imported types [1 5], got %v. Suspect BOM issue.", types)
	}

	if _, found := s.GetState(ctx, importStateKey); !found {
		t.Error("State not updated after import")
	}

	// Verify Pruning
	var count int
	if err := d.QueryRow("SELECT count(*) FROM ais_message WHERE mmsi = 1").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Error("Old message was not pruned")
	}

	// A second run with an unchanged file must not import again.
	if err := Run(ctx, s, d, csvPath, 0); err != nil {
		t.Fatal(err)
	}
	if err := d.QueryRow("SELECT count(*) FROM ais_message WHERE mmsi = 219000001").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("Expected 2 archived rows after re-run, got %d", count)
	}
}

func TestMaintenance_ReimportSkipsArchivedRows(t *testing.T) {
	tempDir := t.TempDir()
	d, err := db.Init(filepath.Join(tempDir, "reimport.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	s := store.NewSQLiteStore(d)
	ctx := context.Background()

	csvPath := filepath.Join(tempDir, "reports.csv")
	rows := "mmsi,timestamp,type,lat,lon\n" +
		"219000001,1706745600000,1,55.5,12.1\n" +
		"219000001,1706745660000,1,55.6,12.2\n"
	if err := os.WriteFile(csvPath, []byte(rows), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Run(ctx, s, d, csvPath, 0); err != nil {
		t.Fatal(err)
	}

	// A run that stopped before recording its state is retried in full.
	if err := s.DeleteState(ctx, importStateKey); err != nil {
		t.Fatal(err)
	}
	if err := Run(ctx, s, d, csvPath, 0); err != nil {
		t.Fatal(err)
	}

	// The file grows and its mtime changes.
	rows += "219000001,1706745720000,1,55.7,12.3\n"
	if err := os.WriteFile(csvPath, []byte(rows), 0o644); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(csvPath, later, later); err != nil {
		t.Fatal(err)
	}
	if err := Run(ctx, s, d, csvPath, 0); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := d.QueryRow("SELECT count(*) FROM ais_message WHERE mmsi = 219000001").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("Expected 3 archived rows after re-imports, got %d", count)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"1706745600000", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"2024-02-01T00:00:00Z", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := parseTime(tt.in)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("parseTime(%q) = %v,%v; want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
