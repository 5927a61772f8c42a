// Package obslog wraps slog with the severity taxonomy and rotating file
// sink the compiler reports build progress and diagnostics through.
package obslog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how verbosely obslog writes.
type Config struct {
	// Level is one of "info", "warn", "error" (case-insensitive);
	// anything else defaults to "info".
	Level string
	// LogDir, if non-empty, enables a rotating file sink alongside
	// stdout. Empty means console-only.
	LogDir string
	// Trace enables the separate event-trace channel: model-event
	// messages emitted during `EventTrace`-instrumented builds, kept
	// out of the normal Info/Warn/Error stream the way the original
	// runtime keeps its ITrace channel separate from ILog.
	Trace bool

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

const defaultLogFileName = "ompc.log"

// Logger bundles the ordinary severity logger with the gated trace
// channel; Close releases the rotating file handle, if any.
type Logger struct {
	*slog.Logger
	traceEnabled bool
	close        func() error
}

// New builds a Logger from cfg. The returned close function is a no-op
// when cfg.LogDir is empty.
func New(cfg Config) (*Logger, error) {
	level := parseLevel(cfg.Level)

	var handlers []slog.Handler
	handlers = append(handlers, slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	closeFn := func() error { return nil }
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, defaultLogFileName),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		handlers = append(handlers, slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: level}))
		closeFn = rotator.Close
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = &fanoutHandler{handlers: handlers}
	}

	return &Logger{
		Logger:       slog.New(handler),
		traceEnabled: cfg.Trace,
		close:        closeFn,
	}, nil
}

// Close releases the rotating file handle, if a file sink was opened.
func (l *Logger) Close() error {
	return l.close()
}

// Trace logs a model-event trace message, but only when the channel was
// enabled in Config — callers pay no formatting cost when it's off.
func (l *Logger) Trace(msg string, args ...any) {
	if !l.traceEnabled {
		return
	}
	l.Logger.Debug(msg, args...)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fanoutHandler sends records to every handler whose own level accepts
// them, grounded on thushan-olla's simpleMultiHandler.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
