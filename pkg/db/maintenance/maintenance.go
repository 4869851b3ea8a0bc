package maintenance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"aisview/pkg/db"
	"aisview/pkg/model"
	"aisview/pkg/store"
)

const importStateKey = "ais_import_csv_mtime"

// batchSize bounds the number of rows written per archive transaction.
const batchSize = 500

// Run executes all maintenance tasks: Import and Pruning.
// It blocks until completion.
func Run(ctx context.Context, s store.Store, d *db.DB, csvPath string, retention time.Duration) error {
	slog.Info("Starting database maintenance...")

	if csvPath != "" {
		if err := importReports(ctx, s, csvPath); err != nil {
			// Import failures don't stop startup.
			slog.Error("Report import failed", "error", err)
		} else {
			slog.Info("Report import check completed")
		}
	}

	if retention > 0 {
		n, err := d.PruneMessages(retention)
		if err != nil {
			slog.Error("Archive pruning failed", "error", err)
		} else {
			slog.Info("Archive pruning completed", "deleted", n)
		}
	}

	return nil
}

// importReports loads recorded AIS reports from a CSV file into the archive,
// conditional on the file's modification time.
func importReports(ctx context.Context, s store.Store, csvPath string) error {
	info, err := os.Stat(csvPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat csv: %w", err)
	}

	fileMTime := info.ModTime().UTC().Format(time.RFC3339)

	storedMTime, found := s.GetState(ctx, importStateKey)
	if found && storedMTime == fileMTime {
		return nil // Up to date
	}

	slog.Info("Importing AIS reports from CSV...", "path", csvPath)

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)

	// Headers: mmsi,timestamp,type,lat,lon,sog,cog,heading,name,callsign,imo
	headers, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	// Strip UTF-8 BOM
	if len(headers) > 0 && len(headers[0]) >= 3 && headers[0][:3] == "\xef\xbb\xbf" {
		headers[0] = headers[0][3:]
	}

	idxMap := make(map[string]int)
	for i, h := range headers {
		idxMap[h] = i
	}
	slog.Debug("CSV Header Map", "idxMap", idxMap)

	count, skipped, err := processRows(ctx, s, reader, idxMap)
	if err != nil {
		return err
	}

	slog.Info("Imported AIS reports", "count", count, "skipped", skipped)

	if err := s.SetState(ctx, importStateKey, fileMTime); err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}

	return nil
}

func processRows(ctx context.Context, s store.Store, reader *csv.Reader, idxMap map[string]int) (count, skipped int, err error) {
	get := func(row []string, col string) string {
		if i, ok := idxMap[col]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	batch := make([]model.RawMessage, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.Append(ctx, batch...); err != nil {
			return err
		}
		count += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		record, rerr := reader.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return count, skipped, fmt.Errorf("csv read error: %w", rerr)
		}

		msg, ok := parseRow(record, get)
		if !ok {
			skipped++
			continue
		}
		raw, eerr := msg.Encode()
		if eerr != nil {
			skipped++
			continue
		}
		batch = append(batch, raw)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return count, skipped, err
			}
		}
	}
	return count, skipped, flush()
}

func parseRow(row []string, get func([]string, string) string) (model.Message, bool) {
	mmsi, err := strconv.Atoi(get(row, "mmsi"))
	if err != nil || mmsi <= 0 {
		return model.Message{}, false
	}
	typ, err := strconv.Atoi(get(row, "type"))
	if err != nil {
		return model.Message{}, false
	}
	ts, ok := parseTime(get(row, "timestamp"))
	if !ok {
		return model.Message{}, false
	}

	m := model.Message{Type: typ, MMSI: mmsi, Timestamp: ts}
	if lat, err := strconv.ParseFloat(get(row, "lat"), 64); err == nil {
		m.Lat = &lat
	}
	if lon, err := strconv.ParseFloat(get(row, "lon"), 64); err == nil {
		m.Lon = &lon
	}
	if v, err := strconv.ParseFloat(get(row, "sog"), 64); err == nil {
		m.SOG = v
	}
	if v, err := strconv.ParseFloat(get(row, "cog"), 64); err == nil {
		m.COG = v
	}
	if v, err := strconv.Atoi(get(row, "heading")); err == nil {
		m.Heading = &v
	}
	if v, err := strconv.Atoi(get(row, "imo")); err == nil {
		m.IMO = v
	}
	m.Name = get(row, "name")
	m.Callsign = get(row, "callsign")
	return m, true
}

// parseTime accepts RFC3339 or unix milliseconds.
func parseTime(s string) (time.Time, bool) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
