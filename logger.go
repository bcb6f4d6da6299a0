package gtsam

import (
	"context"
	"log/slog"
	"os"

	"github.com/eglrp/my-gtsam/optimizer"
)

// Logger wraps slog.Logger with engine-specific context.
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
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithGraphSize adds factor and variable counts to the logger.
func (l *Logger) WithGraphSize(factors, variables int) *Logger {
	return &Logger{
		Logger: l.Logger.With("factors", factors, "variables", variables),
	}
}

// LogOptimize logs the outcome of an optimization run.
func (l *Logger) LogOptimize(ctx context.Context, res optimizer.Result, err error) {
	if err != nil {
		l.ErrorContext(ctx, "optimize failed",
			"status", res.Status.String(),
			"iterations", res.Iterations,
			"error", err,
		)
		return
	}
	switch res.Status {
	case optimizer.StatusConverged:
		l.InfoContext(ctx, "optimize converged",
			"iterations", res.Iterations,
			"initial_error", res.InitialError,
			"final_error", res.FinalError,
		)
	default:
		l.WarnContext(ctx, "optimize terminated without convergence",
			"status", res.Status.String(),
			"iterations", res.Iterations,
			"final_error", res.FinalError,
		)
	}
}

// LogMarginals logs a marginal-covariance computation.
func (l *Logger) LogMarginals(ctx context.Context, err error) {
	if err != nil {
		l.ErrorContext(ctx, "marginals failed", "error", err)
	} else {
		l.DebugContext(ctx, "marginals computed")
	}
}
