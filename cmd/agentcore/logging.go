package main

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"
)

// modulePackagePrefix identifies this module's own frames so
// filteringHandler can tell them apart from a dependency's logs.
const modulePackagePrefix = "github.com/forgeloop/agentcore"

// newLogger builds the process-wide structured logger, per SPEC_FULL.md's
// ambient-stack logging section: a text handler when stderr is a
// terminal, a JSON handler otherwise, at the configured level, wrapped in
// a filteringHandler that suppresses third-party library logs below
// debug. Grounded on kadirpekel-hector's pkg/logger.Init/filteringHandler.
func newLogger(levelName string) *slog.Logger {
	level := parseLevel(levelName)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(&filteringHandler{handler: handler, minLevel: level})
}

func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// filteringHandler wraps a slog handler and hides third-party library
// logs unless minLevel is debug. Mirrors kadirpekel-hector's
// pkg/logger.filteringHandler, with the package prefix it checks for
// switched from hector's own module path to this module's.
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug {
		return h.handler.Handle(ctx, record)
	}
	if h.isOwnPackage(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

func (h *filteringHandler) isOwnPackage(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	file, _ := fn.FileLine(pc)
	return strings.Contains(fn.Name(), modulePackagePrefix) || strings.Contains(file, "agentcore/")
}
