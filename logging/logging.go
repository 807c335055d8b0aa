package logging

import (
	"io"
	"log/slog"
	"os"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how verbosely the bot logs.
type Config struct {
	// Level is the minimum level written to both sinks.
	Level slog.Level
	// FilePath, if set, rotates logs through lumberjack alongside stderr.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	JSON       bool
}

// DefaultConfig returns sane defaults for a long-running bot process: info
// level, stderr only.
func DefaultConfig() Config {
	return Config{Level: slog.LevelInfo}
}

// New builds the root *slog.Logger for the process, tee'ing to a rotating
// file sink when cfg.FilePath is set. Every component (events, poolstate,
// worker, bot) should derive a child logger from this with .With("component", name)
// rather than using a package-level global.
func New(cfg Config) *slog.Logger {
	var w io.Writer = os.Stderr
	if cfg.FilePath != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
			Compress:   true,
		}
		w = io.MultiWriter(os.Stderr, lj)
	}

	var base slog.Handler
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.JSON {
		base = slog.NewJSONHandler(w, opts)
	} else {
		base = slog.NewTextHandler(w, opts)
	}

	glog := NewGlogHandler(base)
	glog.Verbosity(cfg.Level)
	return slog.New(glog)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Component returns a child logger tagged with the given component name,
// the convention every package in this repository follows instead of
// reaching for a package-level logger.
func Component(base *slog.Logger, name string) *slog.Logger {
	return base.With("component", name)
}
