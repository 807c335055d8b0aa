// Package logging provides the structured logging handler shared by every
// long-running component (events, poolstate, worker, bot). Adapted from the
// teacher's glog-style slog handler: a global verbosity level, plus
// glog-style Vmodule pattern rules that are parsed and stored but do not
// take part in filtering.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// GlogHandler filters records against a global verbosity level. Patterns
// set via Vmodule are stored but not consulted: no per-callsite override
// is applied.
type GlogHandler struct {
	handler slog.Handler

	level    atomic.Int32
	lock     sync.Mutex
	patterns []pattern
}

type pattern struct {
	pattern *regexp.Regexp
	level   int32
}

// NewGlogHandler wraps h with verbosity filtering.
func NewGlogHandler(h slog.Handler) *GlogHandler {
	return &GlogHandler{handler: h}
}

// Handle implements slog.Handler.
func (h *GlogHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.Enabled(ctx, r.Level) {
		return nil
	}
	return h.handler.Handle(ctx, r)
}

// Enabled implements slog.Handler.
func (h *GlogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.Level(h.level.Load())
}

// WithAttrs implements slog.Handler.
func (h *GlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := &GlogHandler{handler: h.handler.WithAttrs(attrs)}
	nh.level.Store(h.level.Load())
	return nh
}

// WithGroup implements slog.Handler.
func (h *GlogHandler) WithGroup(name string) slog.Handler {
	nh := &GlogHandler{handler: h.handler.WithGroup(name)}
	nh.level.Store(h.level.Load())
	return nh
}

// Verbosity sets the global verbosity level; records below this level are
// dropped.
func (h *GlogHandler) Verbosity(level slog.Level) {
	h.level.Store(int32(level))
}

// Vmodule parses and stores glog-style pattern=level rules with numeric
// slog levels, e.g. "events=-4,worker=4"; Enabled does not consult them.
func (h *GlogHandler) Vmodule(ruleset string) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	if ruleset == "" {
		h.patterns = h.patterns[:0]
		return nil
	}

	for _, rule := range strings.Split(ruleset, ",") {
		if rule == "" {
			continue
		}
		parts := strings.SplitN(rule, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("logging: invalid vmodule rule %q", rule)
		}
		name := strings.TrimSpace(parts[0])
		levelStr := strings.TrimSpace(parts[1])
		if name == "" || levelStr == "" {
			return fmt.Errorf("logging: invalid vmodule rule %q", rule)
		}
		level, err := strconv.Atoi(levelStr)
		if err != nil {
			return fmt.Errorf("logging: invalid vmodule level in %q: %w", rule, err)
		}
		filter, err := regexp.Compile(name)
		if err != nil {
			return fmt.Errorf("logging: invalid vmodule pattern %q: %w", name, err)
		}
		h.patterns = append(h.patterns, pattern{filter, int32(level)})
	}
	return nil
}
