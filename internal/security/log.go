package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Log is the append-only security audit trail. Entries are plain text
// blocks; the file is never truncated or rewritten.
type Log struct {
	mu   sync.Mutex
	path string
}

// NewLog creates a Log at path. The file is created on first append.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the log file location.
func (l *Log) Path() string {
	return l.path
}

// Append writes the report's entry and syncs it to disk.
func (l *Log) Append(r *Report) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open security log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(r.logEntry()); err != nil {
		return fmt.Errorf("failed to write security log: %w", err)
	}

	// Flush immediately for audit logs
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync security log: %w", err)
	}
	return nil
}

// ReadAll returns the whole log. A log that does not exist yet reads as empty.
func (l *Log) ReadAll() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
