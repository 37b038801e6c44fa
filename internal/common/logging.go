package common

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ParseLogLevel maps a config string to a slog level. Unknown values fall
// back to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewRunLogger builds the JSON logger for one run. Lines go to stdout and to
// an append-only file under dir, and every line carries the run id. The
// returned func closes the log file.
func NewRunLogger(level, dir, runID string) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}

	name := filepath.Join(dir, "ingest-"+time.Now().UTC().Format("20060102-150405")+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(os.Stdout, f), &slog.HandlerOptions{
		Level: ParseLogLevel(level),
	})).With("run_id", runID)

	return logger, func() { _ = f.Close() }, nil
}
