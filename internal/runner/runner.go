// Package runner executes shell command lines and reports every outcome as
// data. Nothing here returns an error or panics past the package boundary.
package runner

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/felixgeelhaar/guardian/internal/metrics"
)

// FailureKind classifies why a command did not succeed.
type FailureKind int

const (
	// FailureNone means the command exited with status 0.
	FailureNone FailureKind = iota
	// FailureNotFound means the shell or the program could not be found.
	FailureNotFound
	// FailureNonZeroExit means the program ran and exited non-zero.
	FailureNonZeroExit
	// FailureUnexpected covers everything else.
	FailureUnexpected
)

// String returns the metrics/log label for the kind.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureNotFound:
		return "not-found"
	case FailureNonZeroExit:
		return "non-zero-exit"
	default:
		return "unexpected"
	}
}

// Shell exit statuses meaning "command not found".
const (
	posixNotFound = 127
	cmdNotFound   = 9009
)

// Result is the outcome of a single command invocation.
type Result struct {
	Command string
	// ExitCode is meaningful only when Exited is true.
	ExitCode int
	Exited   bool
	Stdout   string
	Stderr   string
	Failure  FailureKind
	Err      error
	Duration time.Duration
}

// OK reports exit status 0.
func (r *Result) OK() bool {
	return r.Failure == FailureNone
}

// Output is stdout followed by stderr, the text most tools print diagnostics to.
func (r *Result) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// FirstLine returns the first non-empty trimmed stdout line.
func (r *Result) FirstLine() string {
	for _, line := range strings.Split(r.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// Runner executes a command line through the host shell.
type Runner interface {
	Run(command string) *Result
}

// Func adapts a function to Runner.
type Func func(command string) *Result

// Run implements Runner.
func (f Func) Run(command string) *Result {
	return f(command)
}

// ShellRunner runs commands with sh -c, or cmd /C on Windows, so PATH
// lookups match an interactive terminal.
type ShellRunner struct {
	goos    string
	metrics *metrics.Metrics
}

// Option configures a ShellRunner.
type Option func(*ShellRunner)

// WithMetrics records every run.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *ShellRunner) { r.metrics = m }
}

// WithGOOS overrides the platform used to pick the shell.
func WithGOOS(goos string) Option {
	return func(r *ShellRunner) { r.goos = goos }
}

// NewShellRunner creates a ShellRunner for the current platform.
func NewShellRunner(opts ...Option) *ShellRunner {
	r := &ShellRunner{goos: runtime.GOOS}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ShellArgv returns the argv used to run command on goos.
func ShellArgv(goos, command string) []string {
	if goos == "windows" {
		return []string{"cmd", "/C", command}
	}
	return []string{"sh", "-c", command}
}

// Run implements Runner.
func (r *ShellRunner) Run(command string) (res *Result) {
	res = &Result{Command: command}
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			res.Failure = FailureUnexpected
			res.Err = fmt.Errorf("panic running %q: %v", command, p)
		}
		res.Duration = time.Since(start)
		r.metrics.RecordCommand(res.Failure.String(), res.Duration)
	}()

	argv := ShellArgv(r.goos, command)
	cmd := exec.Command(argv[0], argv[1:]...) // #nosec G204 -- command lines are built from configuration

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	classify(res, err)
	return res
}

func classify(res *Result, err error) {
	if err == nil {
		res.Exited = true
		res.ExitCode = 0
		res.Failure = FailureNone
		return
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.Exited = true
		res.ExitCode = exitErr.ExitCode()
		res.Err = err
		switch res.ExitCode {
		case posixNotFound, cmdNotFound:
			res.Failure = FailureNotFound
		case -1:
			// killed by a signal
			res.Exited = false
			res.Failure = FailureUnexpected
		default:
			res.Failure = FailureNonZeroExit
		}
		return
	}

	res.Err = err
	if errors.Is(err, exec.ErrNotFound) {
		res.Failure = FailureNotFound
		return
	}
	res.Failure = FailureUnexpected
}
