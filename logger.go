package rowcache

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with rowcache-specific context.
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

// WithBlock adds a block number field to the logger.
func (l *Logger) WithBlock(number int) *Logger {
	return &Logger{
		Logger: l.Logger.With("block", number),
	}
}

// WithRange adds start/end row fields to the logger.
func (l *Logger) WithRange(startRow, endRow int) *Logger {
	return &Logger{
		Logger: l.Logger.With("start_row", startRow, "end_row", endRow),
	}
}

// LogLoad logs a block load completion.
func (l *Logger) LogLoad(ctx context.Context, block, rows int, err error) {
	if err != nil {
		l.WarnContext(ctx, "block load failed",
			"block", block,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "block loaded",
			"block", block,
			"rows", rows,
		)
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(index, items, materialized int) {
	l.Debug("rows inserted",
		"index", index,
		"items", items,
		"materialized", materialized,
	)
}

// LogEvict logs a block eviction.
func (l *Logger) LogEvict(block int, state LoadState) {
	l.Debug("block evicted",
		"block", block,
		"state", state.String(),
	)
}
