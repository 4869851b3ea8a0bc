// Package logging configures the server and request loggers.
package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"aisview/pkg/config"
)

// RequestLogger writes one line per HTTP request to the request log only.
var RequestLogger = slog.New(slog.DiscardHandler)

// Init opens both log files, rotating the previous run's files to .old, and
// installs the server logger as the slog default. The server logger also
// writes INFO and above to stdout and to Capture. The returned func closes
// the files.
func Init(cfg *config.LogConfig) (func(), error) {
	rotate(cfg.Server.Path, cfg.Requests.Path)
	SetTrace(cfg.Trace)

	server, err := openSink(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to setup server logger: %w", err)
	}
	requests, err := openSink(cfg.Requests)
	if err != nil {
		server.file.Close()
		return nil, fmt.Errorf("failed to setup requests logger: %w", err)
	}

	slog.SetDefault(slog.New(fanout{
		server.handler,
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: max(server.level, slog.LevelInfo)}),
		slog.NewTextHandler(Capture, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}))
	RequestLogger = slog.New(requests.handler)

	return func() {
		server.file.Close()
		requests.file.Close()
	}, nil
}

// sink is a log file with its text handler.
type sink struct {
	file    *os.File
	level   slog.Level
	handler slog.Handler
}

func openSink(s config.LogSettings) (*sink, error) {
	level := parseLevel(s.Level)

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	return &sink{
		file:  f,
		level: level,
		handler: slog.NewTextHandler(f, &slog.HandlerOptions{
			Level:     level,
			AddSource: level == slog.LevelDebug,
		}),
	}, nil
}

// parseLevel accepts slog level names in any case; anything else is INFO.
func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// fanout hands every record to each handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// nolint:gocritic // slog.Handler takes the record by value
func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// rotate renames each existing log file to <path>.old, replacing the
// previous .old file.
func rotate(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		old := p + ".old"
		_ = os.Remove(old)
		_ = os.Rename(p, old)
	}
}
