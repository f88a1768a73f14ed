package log

import (
	"log/slog"
	"sync"
)

var (
	defaultLogger *Logger
	loggerMu      sync.RWMutex
)

// SetDefaultLogger installs the session logger for the process. The
// standard slog default is pointed at it too, so stray slog records end up
// in the session log.
func SetDefaultLogger(logger *Logger) {
	loggerMu.Lock()
	defaultLogger = logger
	loggerMu.Unlock()

	if logger != nil {
		slog.SetDefault(logger.Slog())
	}
}

// DefaultLogger returns the session logger. Before one is installed it
// returns a logger that discards everything, never stderr: the terminal
// belongs to the operator.
func DefaultLogger() *Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()

	if defaultLogger == nil {
		return Nop()
	}
	return defaultLogger
}
