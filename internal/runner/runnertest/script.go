// Package runnertest provides a scripted runner.Runner for tests.
package runnertest

import (
	"sync"

	"github.com/felixgeelhaar/guardian/internal/runner"
)

// Script answers commands from per-command queues. The last queued result
// for a command repeats; unknown commands report "not found".
type Script struct {
	mu        sync.Mutex
	responses map[string][]*runner.Result
	calls     []string
}

// New creates an empty Script.
func New() *Script {
	return &Script{responses: make(map[string][]*runner.Result)}
}

// On queues results for command.
func (s *Script) On(command string, results ...*runner.Result) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[command] = append(s.responses[command], results...)
	return s
}

// Run implements runner.Runner.
func (s *Script) Run(command string) *runner.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, command)

	queue := s.responses[command]
	if len(queue) == 0 {
		res := NotFound()
		res.Command = command
		return res
	}

	res := *queue[0]
	if len(queue) > 1 {
		s.responses[command] = queue[1:]
	}
	res.Command = command
	return &res
}

// Calls returns every command run so far, in order.
func (s *Script) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Count returns how many times command was run.
func (s *Script) Count(command string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == command {
			n++
		}
	}
	return n
}

// OK is an exit-0 result.
func OK(stdout string) *runner.Result {
	return &runner.Result{Exited: true, Stdout: stdout}
}

// Exit is a result with the given exit code, classified like ShellRunner does.
func Exit(code int, stdout, stderr string) *runner.Result {
	res := &runner.Result{Exited: true, ExitCode: code, Stdout: stdout, Stderr: stderr}
	switch code {
	case 0:
	case 127, 9009:
		res.Failure = runner.FailureNotFound
	default:
		res.Failure = runner.FailureNonZeroExit
	}
	return res
}

// NotFound is the result of running a program that does not exist.
func NotFound() *runner.Result {
	return Exit(127, "", "command not found")
}

// Unexpected is a launch failure without an exit code.
func Unexpected(err error) *runner.Result {
	return &runner.Result{Failure: runner.FailureUnexpected, Err: err}
}
