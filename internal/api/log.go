package api

import (
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"aisview/pkg/logging"
)

// maxLogValue drops attribute values longer than this from the status line;
// paths and error chains do not fit next to the map.
const maxLogValue = 20

var logAttr = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

// LogResponse is the body of GET /api/log/latest.
type LogResponse struct {
	Log   string   `json:"log"`
	Lines []string `json:"lines,omitempty"`
}

// handleLatestLog returns the newest captured log line as a status line and,
// with ?lines=N, the N most recent ones.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r.URL.Query(), "lines", 0)
	if err != nil || n < 0 {
		http.Error(w, "invalid lines", http.StatusBadRequest)
		return
	}

	resp := LogResponse{Log: summarizeLogLine(logging.Capture.Last())}
	for _, line := range logging.Capture.Recent(n) {
		resp.Lines = append(resp.Lines, summarizeLogLine(line))
	}
	writeJSON(w, resp)
}

// summarizeLogLine turns a slog text record into
// "HH:MM:SS message (key=value, ...)" with attributes sorted by key. Lines
// without a msg attribute are returned unchanged.
func summarizeLogLine(raw string) string {
	var clock, msg string
	var attrs []string

	for _, m := range logAttr.FindAllStringSubmatch(raw, -1) {
		key, val := m[1], m[2]
		if val == "" {
			val = m[3]
		}
		val = strings.TrimSpace(val)

		switch key {
		case "time":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				clock = t.Format(time.TimeOnly)
			}
		case "level":
		case "msg":
			msg = val
		default:
			if len(val) <= maxLogValue {
				attrs = append(attrs, key+"="+val)
			}
		}
	}

	if msg == "" {
		return raw
	}

	var b strings.Builder
	if clock != "" {
		b.WriteString(clock)
		b.WriteByte(' ')
	}
	b.WriteString(msg)
	if len(attrs) > 0 {
		slices.Sort(attrs)
		b.WriteString(" (")
		b.WriteString(strings.Join(attrs, ", "))
		b.WriteByte(')')
	}
	return b.String()
}
