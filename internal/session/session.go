// Package session holds the state shared by one guardian run.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/guardian/internal/resolve"
)

// Session is created once per run and passed to every component that needs
// the monitoring flag or the resolved executables.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time

	monitoring atomic.Bool

	mu          sync.RWMutex
	executables map[string]*resolve.Executable
}

// New starts a session.
func New() *Session {
	return &Session{
		ID:          uuid.New(),
		StartedAt:   time.Now(),
		executables: make(map[string]*resolve.Executable),
	}
}

// Record caches the executable for its logical name. The first record wins;
// later calls for the same name are ignored and report false.
func (s *Session) Record(exe *resolve.Executable) bool {
	if exe == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.executables[exe.Name]; exists {
		return false
	}
	s.executables[exe.Name] = exe
	return true
}

// Executable returns the cached executable for name.
func (s *Session) Executable(name string) (*resolve.Executable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exe, ok := s.executables[name]
	return exe, ok
}

// Invocation returns the cached invocation for name, or fallback.
func (s *Session) Invocation(name, fallback string) string {
	if exe, ok := s.Executable(name); ok {
		return exe.Invocation
	}
	return fallback
}

// Executables returns a copy of the cache.
func (s *Session) Executables() map[string]resolve.Executable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]resolve.Executable, len(s.executables))
	for k, v := range s.executables {
		out[k] = *v
	}
	return out
}

// Monitoring reports whether the supervised process is being watched.
func (s *Session) Monitoring() bool {
	return s.monitoring.Load()
}

// SetMonitoring flips the monitoring flag.
func (s *Session) SetMonitoring(on bool) {
	s.monitoring.Store(on)
}

// Uptime is the time since the session started.
func (s *Session) Uptime() time.Duration {
	return time.Since(s.StartedAt)
}
