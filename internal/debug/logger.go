// Package debug holds the process wide logger used when no logger is
// injected.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	// logger is the global logger instance
	logger *slog.Logger
	// enabled indicates if debug logging is enabled
	enabled bool
	// mu protects the logger and enabled flag
	mu sync.RWMutex
)

func init() {
	Init(false)
}

// Init resets the logger to a text handler on stderr.
// If enable is true, debug records are written.
// If enable is false, only warnings and errors are written.
func Init(enable bool) {
	level := slog.LevelWarn
	if enable {
		level = slog.LevelDebug
	}

	mu.Lock()
	defer mu.Unlock()
	enabled = enable
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Configure replaces the logger. level is one of debug, info, warn, error;
// format is text or json. A nil w writes to stderr.
func Configure(level, format string, w io.Writer) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	mu.Lock()
	defer mu.Unlock()
	enabled = lvl <= slog.LevelDebug
	logger = slog.New(handler)
	return nil
}

// ParseLevel maps a level name to a slog.Level. The empty string is info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

// Enabled returns whether debug logging is enabled
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// With returns a logger with the given attributes
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// Logger returns the underlying slog.Logger instance
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
