package logging

import (
	"log/slog"
	"sync/atomic"
)

var traceOn atomic.Bool

// SetTrace switches per-message vessel tracing on or off.
func SetTrace(on bool) {
	traceOn.Store(on)
}

// Tracing reports whether per-message vessel tracing is on.
func Tracing() bool {
	return traceOn.Load()
}

// TraceVessel logs a per-message event for one vessel at DEBUG. It does
// nothing unless tracing is on, so replaying a long archive scan stays quiet.
func TraceVessel(mmsi int, msg string, args ...any) {
	if !traceOn.Load() {
		return
	}
	slog.Debug(msg, append([]any{slog.Int("mmsi", mmsi)}, args...)...)
}
