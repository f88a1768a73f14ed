package log

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/felixgeelhaar/guardian/internal/errors"
)

// Logger provides structured logging with slog
type Logger struct {
	slog   *slog.Logger
	config Config
}

// New creates a new Logger with the given configuration
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{
		Level:     config.Level.ToSlogLevel(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(config.Output.Writer(), opts)
	default:
		handler = slog.NewTextHandler(config.Output.Writer(), opts)
	}

	logger := slog.New(handler)
	if config.ServiceName != "" {
		logger = logger.With("service", config.ServiceName)
	}
	if config.ServiceVersion != "" {
		logger = logger.With("version", config.ServiceVersion)
	}

	return &Logger{
		slog:   logger,
		config: config,
	}
}

// Default creates a logger with default configuration
func Default() *Logger {
	return New(DefaultConfig())
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return New(Config{Level: LevelError + 1, Output: OutputDiscard()})
}

// With returns a new Logger with the given attributes added to all log entries
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:   l.slog.With(args...),
		config: l.config,
	}
}

// WithSession tags every record with the session identifier.
func (l *Logger) WithSession(id string) *Logger {
	return l.With("session", id)
}

// WithComponent tags every record with the emitting component.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With("component", name)
}

func errorArgs(err error) []any {
	var gErr *errors.GuardianError
	if !stderrors.As(err, &gErr) {
		return []any{"error", err.Error()}
	}

	args := []any{
		"error_code", string(gErr.Code),
		"error", gErr.Message,
	}
	if len(gErr.Suggestions) > 0 {
		args = append(args, "suggestions", gErr.Suggestions)
	}
	if gErr.DocsURL != "" {
		args = append(args, "docs_url", gErr.DocsURL)
	}
	if gErr.Cause != nil {
		args = append(args, "cause", gErr.Cause.Error())
	}
	return args
}

// WithError adds error details to the logger.
// Coded errors contribute error_code, suggestions and cause.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.With(errorArgs(err)...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// LogError logs err with full details at ERROR.
func (l *Logger) LogError(err error) {
	if err == nil {
		return
	}
	l.slog.Error("operation failed", errorArgs(err)...)
}

// Enabled returns whether the logger is enabled for the given level
func (l *Logger) Enabled(ctx context.Context, level Level) bool {
	return l.slog.Enabled(ctx, level.ToSlogLevel())
}

// Slog exposes the underlying *slog.Logger for libraries that take one.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Config returns the logger configuration
func (l *Logger) Config() Config {
	return l.config
}
