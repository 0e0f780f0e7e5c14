// Package logging owns the process logger. Info and above go to stderr by
// default; EnableDebug lowers the level at runtime.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	level = new(slog.LevelVar)

	mu     sync.RWMutex
	logger = newLogger(os.Stderr)
)

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Logger returns the process logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// OrDefault returns l, or the process logger when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Logger()
}

// SetOutput redirects the process logger. Falls back to stderr when w is nil.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w)
}

// EnableDebug lowers the level to debug.
func EnableDebug() {
	level.Set(slog.LevelDebug)
}

// DebugEnabled reports whether debug records are emitted.
func DebugEnabled() bool {
	return level.Level() <= slog.LevelDebug
}

// Debugf formats and writes a debug message if debug logging is enabled.
func Debugf(format string, v ...any) {
	l := Logger()
	if !DebugEnabled() {
		return
	}
	l.Debug(fmt.Sprintf(format, v...))
}
