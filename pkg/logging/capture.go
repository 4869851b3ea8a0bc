package logging

import (
	"strings"
	"sync"
)

// recentLines is how many lines Capture keeps for /api/log/latest.
const recentLines = 50

// LineCapture is an io.Writer that keeps the most recent log lines.
type LineCapture struct {
	mu    sync.RWMutex
	lines [recentLines]string
	next  int
	n     int
}

// Capture receives INFO and above from the server logger.
var Capture = &LineCapture{}

// Write stores p as one line. slog handlers write one record per call.
func (c *LineCapture) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")

	c.mu.Lock()
	c.lines[c.next] = line
	c.next = (c.next + 1) % recentLines
	if c.n < recentLines {
		c.n++
	}
	c.mu.Unlock()

	return len(p), nil
}

// Last returns the most recent line, or "" before anything was logged.
func (c *LineCapture) Last() string {
	if lines := c.Recent(1); len(lines) > 0 {
		return lines[0]
	}
	return ""
}

// Recent returns up to n lines, oldest first.
func (c *LineCapture) Recent(n int) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n = max(0, min(n, c.n))
	out := make([]string, n)
	for i := range out {
		out[i] = c.lines[(c.next-n+i+recentLines)%recentLines]
	}
	return out
}
