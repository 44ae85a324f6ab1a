// Package rlog sets up structured logging for the engine: a JSON slog
// handler over a size-rotated file, optionally tee'd to stderr.
package rlog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config controls logging setup.
type Config struct {
	Level         string // debug, info, warn, error
	FilePath      string // empty disables file logging
	MaxSizeMB     int
	MaxFiles      int
	WriteToStderr bool
}

// DefaultConfig logs to cache_dir/logs/rune.log at info level, rotating at
// 10MB and keeping 5 rotated files, with a stderr tee.
func DefaultConfig(cacheDir string) Config {
	return Config{
		Level:         "info",
		FilePath:      filepath.Join(cacheDir, "logs", "rune.log"),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// Setup builds a *slog.Logger writing JSON records to a rotating file (and
// stderr, if enabled), returning a cleanup func to flush and close it.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if cfg.FilePath == "" {
		h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
		return slog.New(h), func() {}, nil
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = writer
	if cfg.WriteToStderr {
		out = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
	logger := slog.New(handler)

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}
	return logger, cleanup, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
