package randls

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with randls-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithDataset adds a dataset field to the logger.
func (l *Logger) WithDataset(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("dataset", name),
	}
}

// WithTrial adds a trial field to the logger.
func (l *Logger) WithTrial(index int) *Logger {
	return &Logger{
		Logger: l.Logger.With("trial", index),
	}
}

// LogParams logs the parameter banner of a run.
func (l *Logger) LogParams(ctx context.Context, cfg Config, m, n, partitions int) {
	attrs := []any{
		"dataset", cfg.Dataset,
		"m", m,
		"n", n,
		"partitions", partitions,
		"solver", cfg.SolverType.String(),
		"sketch", cfg.SketchType.String(),
		"trials", cfg.Trials,
		"load_n", cfg.LoadN,
		"save_n", cfg.SaveN,
	}
	if cfg.SketchType != NoSketch {
		attrs = append(attrs, "projection", cfg.ProjectionType.String(), "r", cfg.R)
	}
	if cfg.SketchType == Sampling {
		attrs = append(attrs, "s", cfg.S)
	}
	if cfg.Iters != nil {
		attrs = append(attrs, "iters", *cfg.Iters)
	}
	l.InfoContext(ctx, "least squares parameters", attrs...)
}

// LogTrial logs one finished trial.
func (l *Logger) LogTrial(ctx context.Context, index int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "trial failed",
			"trial", index,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "trial completed",
			"trial", index,
			"elapsed", elapsed,
		)
	}
}

// LogFactor logs the outcome of a factor load or save.
func (l *Logger) LogFactor(ctx context.Context, op, name, outcome string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "factor "+op+" failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "factor "+op,
			"name", name,
			"outcome", outcome,
		)
	}
}

// LogFit logs a completed trial loop.
func (l *Logger) LogFit(ctx context.Context, trials int, total time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fit failed",
			"trials", trials,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "fit completed",
			"trials", trials,
			"total", total,
		)
	}
}

// LogEvaluation logs the median relative errors against the reference.
func (l *Logger) LogEvaluation(ctx context.Context, e *Evaluation) {
	l.InfoContext(ctx, "median relative error on solution vector", "value", e.XError)
	l.InfoContext(ctx, "median relative error on objective value", "value", e.FError)
}
