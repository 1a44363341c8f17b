package logger

import (
	"io"
	"log/slog"
	"os"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters, lumberjack semantics.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes the application log destination. With File empty,
// logs go to stderr with ANSI level colors; with File set, they go to a
// rotated plain-text file instead (the TUI owns the terminal, so
// interactive runs always log to a file).
type Config struct {
	File       string
	Level      slog.Level
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New builds a slog.Logger per the config.
func New(c Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level}
	if c.File == "" {
		return slog.New(NewColorTextHandler(os.Stderr, opts))
	}
	w := &lj.Logger{
		Filename:   c.File,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything; used in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
