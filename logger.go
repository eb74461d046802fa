package heapguard

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with heapguard-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithSite adds a call-site field to the logger.
func (l *Logger) WithSite(site string) *Logger {
	return &Logger{
		Logger: l.Logger.With("site", site),
	}
}

// WithPointer adds a pointer field to the logger.
func (l *Logger) WithPointer(ptr uintptr) *Logger {
	return &Logger{
		Logger: l.Logger.With("pointer", fmt0x(ptr)),
	}
}

// LogDiagnostic logs a detected memory anomaly.
// Guard corruption is an error (client wrote out of bounds); the remaining
// kinds are caller protocol violations and log as warnings.
func (l *Logger) LogDiagnostic(d Diagnostic) {
	attrs := []any{
		"kind", d.Kind.String(),
		"pointer", fmt0x(d.Pointer),
		"site", d.Site,
	}
	if d.AllocSite != "" {
		attrs = append(attrs, "alloc_site", d.AllocSite)
	}
	if d.Size > 0 {
		attrs = append(attrs, "size", d.Size)
	}

	switch d.Kind {
	case DiagGuardFront, DiagGuardBack:
		l.Error("guard corruption detected", attrs...)
	default:
		l.Warn("memory anomaly detected", attrs...)
	}
}
