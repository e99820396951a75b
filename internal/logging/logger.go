// Package logging builds the process-wide structured logger.
//
// Records are written as JSON to stdout and appended to a daily file named
// after the current UTC date (YYYY-MM-DD.log) inside the log directory.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tjfontaine/bare-gateway/internal/pkg/envutil"
)

// DefaultDir is used when neither the config nor LOG_DIR names a directory.
const DefaultDir = ".logs"

// Options configures New.
type Options struct {
	// Dir is the log directory. Empty means $LOG_DIR, then DefaultDir.
	Dir string
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Stdout receives the console copy of every record. Nil means os.Stdout.
	Stdout io.Writer
	// Now is used to name the daily file. Nil means time.Now.
	Now func() time.Time
}

// New creates a JSON slog.Logger writing to stdout and the daily log file.
// The returned closer releases the file handle.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	dir := opts.Dir
	if dir == "" {
		dir = envutil.ReadEnvOr("LOG_DIR", DefaultDir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir %s: %w", dir, err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	path := filepath.Join(dir, DailyFileName(now()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(stdout, f), &slog.HandlerOptions{
		Level: level,
	}))
	logger.Debug("logger initialized", slog.String("path", path))

	return logger, f, nil
}

// DailyFileName returns the log file name for the given instant.
func DailyFileName(t time.Time) string {
	return t.UTC().Format(time.DateOnly) + ".log"
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug", "trace":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "fatal":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
