package log

import (
	"log/slog"
	"strings"
)

// Level is a session log severity. The values are slog's, so a record keeps
// its level when it reaches the handler.
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// String returns "DEBUG", "INFO", "WARN" or "ERROR".
func (l Level) String() string {
	return slog.Level(l).String()
}

// ToSlogLevel converts l for slog.HandlerOptions.
func (l Level) ToSlogLevel() slog.Level {
	return slog.Level(l)
}

// ParseLevel reads a configured level. "warning" is accepted for warn and
// anything unrecognised is INFO.
func ParseLevel(s string) Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return LevelInfo
	}
	return Level(lvl)
}
