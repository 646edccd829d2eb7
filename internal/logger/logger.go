// Package logger builds the process-wide slog.Logger: JSON in production,
// text in development, optionally teeing into a rotating file.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/evetabi/easybet/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps a config string to a slog level. An empty string yields
// fallback.
func ParseLevel(s string, fallback slog.Level) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return fallback, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return fallback, fmt.Errorf("logger: unknown level %q", s)
}

// New builds a logger writing to stdout and, when cfg.File is set, to a
// lumberjack-rotated file. The returned closer flushes the file sink; it is
// a no-op without one.
func New(cfg config.LogConfig, prod bool, stdout io.Writer) (*slog.Logger, io.Closer, error) {
	fallback := slog.LevelDebug
	if prod {
		fallback = slog.LevelInfo
	}
	level, err := ParseLevel(cfg.Level, fallback)
	if err != nil {
		return nil, nil, err
	}
	if stdout == nil {
		stdout = os.Stdout
	}

	var closer io.Closer = nopCloser{}
	w := stdout
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("logger: create log dir: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		w = io.MultiWriter(stdout, file)
		closer = file
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if prod {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
