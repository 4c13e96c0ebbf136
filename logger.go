package intellihire

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with store-specific helpers.
// Field names are consistent across operations: collection, id, top_k.
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

// NewJSONLogger creates a Logger that writes JSON-formatted logs to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewJSONLoggerTo(os.Stderr, level)
}

// NewJSONLoggerTo creates a Logger that writes JSON-formatted logs to w.
func NewJSONLoggerTo(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes human-readable text logs to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewTextLoggerTo(os.Stderr, level)
}

// NewTextLoggerTo creates a Logger that writes human-readable text logs to w.
func NewTextLoggerTo(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// ParseLevel converts a level name such as "debug" or "WARN" to a slog.Level.
// The empty string is info; "warning" and "critical" are accepted as aliases.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	case "critical", "fatal":
		return slog.LevelError, nil
	}
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.TrimSpace(s)))
	return level, err
}

// WithCollection adds a collection field to the logger.
func (l *Logger) WithCollection(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("collection", name),
	}
}

// LogCollection logs the creation or removal of a collection.
func (l *Logger) LogCollection(ctx context.Context, action, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "collection "+action+" failed",
			"collection", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "collection "+action,
		"collection", name,
	)
}

// LogUpsert logs an upsert operation.
func (l *Logger) LogUpsert(ctx context.Context, collection, id string, err error) {
	if err != nil {
		l.WarnContext(ctx, "upsert rejected",
			"collection", collection,
			"id", id,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "upsert completed",
		"collection", collection,
		"id", id,
	)
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, collection string, k, resultsFound int, err error) {
	if err != nil {
		l.WarnContext(ctx, "search failed",
			"collection", collection,
			"top_k", k,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "search completed",
		"collection", collection,
		"top_k", k,
		"results", resultsFound,
	)
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, collection, id string, found bool, err error) {
	if err != nil {
		l.WarnContext(ctx, "delete failed",
			"collection", collection,
			"id", id,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "delete completed",
		"collection", collection,
		"id", id,
		"found", found,
	)
}

// LogCommit logs a commit of all dirty collections.
func (l *Logger) LogCommit(ctx context.Context, written, skipped int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "commit failed",
			"written", written,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "commit completed",
		"written", written,
		"skipped", skipped,
		"elapsed", elapsed,
	)
}

// LogLoad logs restoring committed collections.
func (l *Logger) LogLoad(ctx context.Context, collections, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "load completed",
		"collections", collections,
		"records", records,
	)
}
