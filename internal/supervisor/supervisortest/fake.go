// Package supervisortest provides in-memory processes for supervisor tests.
package supervisortest

import (
	"errors"
	"sync"

	"github.com/felixgeelhaar/guardian/internal/supervisor"
)

// Handle is a fake process. It stays alive until Exit is called, its
// alive-poll budget runs out, or Terminate/Kill succeed.
type Handle struct {
	mu         sync.Mutex
	pid        int
	done       chan struct{}
	exited     bool
	exitCode   int
	pollBudget int
	limited    bool
	stderr     string

	// IgnoreTerminate makes Terminate a no-op, forcing escalation to Kill.
	IgnoreTerminate bool
	// IgnoreKill makes Kill a no-op as well.
	IgnoreKill bool

	Terminations int
	Kills        int
}

// NewHandle returns a live process with the given PID.
func NewHandle(pid int) *Handle {
	return &Handle{pid: pid, done: make(chan struct{})}
}

// ExitAfterPolls makes the process exit once Alive has returned true n times.
func (h *Handle) ExitAfterPolls(n int) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pollBudget = n
	h.limited = true
	return h
}

// WithStderr sets the captured stderr tail.
func (h *Handle) WithStderr(s string) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stderr = s
	return h
}

// Exit ends the process with code.
func (h *Handle) Exit(code int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exitLocked(code)
}

func (h *Handle) exitLocked(code int) {
	if h.exited {
		return
	}
	h.exited = true
	h.exitCode = code
	close(h.done)
}

func (h *Handle) PID() int { return h.pid }

func (h *Handle) Alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exited {
		return false
	}
	if h.limited {
		if h.pollBudget <= 0 {
			h.exitLocked(1)
			return false
		}
		h.pollBudget--
	}
	return true
}

func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) Terminate() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Terminations++
	if !h.IgnoreTerminate {
		h.exitLocked(143)
	}
	return nil
}

func (h *Handle) Kill() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Kills++
	if h.IgnoreKill {
		return errors.New("operation not permitted")
	}
	h.exitLocked(137)
	return nil
}

func (h *Handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode
}

func (h *Handle) StdoutTail() string { return "" }

func (h *Handle) StderrTail() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stderr
}

// Counts returns how often Terminate and Kill were called.
func (h *Handle) Counts() (terminations, kills int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Terminations, h.Kills
}

// Spawner hands out a prepared Handle, or fails with Err.
type Spawner struct {
	mu       sync.Mutex
	Handle   *Handle
	Err      error
	Commands []string
}

// NewSpawner returns a spawner that yields h.
func NewSpawner(h *Handle) *Spawner {
	return &Spawner{Handle: h}
}

// Spawn implements supervisor.Spawner.
func (s *Spawner) Spawn(command string) (supervisor.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Commands = append(s.Commands, command)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Handle, nil
}
