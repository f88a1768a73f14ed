package supervisor

import (
	"errors"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/felixgeelhaar/guardian/internal/runner"
)

// Handle is a spawned process.
type Handle interface {
	PID() int
	// Alive reports whether the process has not exited yet.
	Alive() bool
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Terminate asks the process group to exit.
	Terminate() error
	// Kill force-kills the process group.
	Kill() error
	ExitCode() int
	StdoutTail() string
	StderrTail() string
}

// Spawner starts a command line in the background.
type Spawner interface {
	Spawn(command string) (Handle, error)
}

// DefaultTailSize bounds the captured stdout and stderr.
const DefaultTailSize = 16 * 1024

// waitDelay bounds how long Wait keeps draining pipes held open by
// grandchildren after the shell itself has exited.
const waitDelay = 2 * time.Second

// ShellSpawner runs commands through the host shell in their own process
// group, so terminating the group reaches the application behind the shell.
type ShellSpawner struct {
	GOOS     string
	TailSize int
}

// NewShellSpawner creates a spawner for the current platform.
func NewShellSpawner() *ShellSpawner {
	return &ShellSpawner{GOOS: runtime.GOOS, TailSize: DefaultTailSize}
}

// Spawn implements Spawner.
func (s *ShellSpawner) Spawn(command string) (Handle, error) {
	goos := s.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	size := s.TailSize
	if size <= 0 {
		size = DefaultTailSize
	}

	argv := runner.ShellArgv(goos, command)
	cmd := exec.Command(argv[0], argv[1:]...)
	setProcessGroup(cmd)

	p := &process{
		cmd:    cmd,
		stdout: newTail(size),
		stderr: newTail(size),
		done:   make(chan struct{}),
	}
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	go p.wait()
	return p, nil
}

type process struct {
	cmd    *exec.Cmd
	stdout *tail
	stderr *tail
	done   chan struct{}

	mu       sync.Mutex
	exitCode int
}

func (p *process) wait() {
	err := p.cmd.Wait()
	code := 0
	if err != nil {
		code = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
	}
	p.mu.Lock()
	p.exitCode = code
	p.mu.Unlock()
	close(p.done)
}

func (p *process) PID() int {
	return p.cmd.Process.Pid
}

func (p *process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *process) Done() <-chan struct{} {
	return p.done
}

func (p *process) Terminate() error {
	return terminateGroup(p.cmd.Process)
}

func (p *process) Kill() error {
	return killGroup(p.cmd.Process)
}

func (p *process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

func (p *process) StdoutTail() string {
	return p.stdout.String()
}

func (p *process) StderrTail() string {
	return p.stderr.String()
}

// tail keeps the last max bytes written to it.
type tail struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTail(max int) *tail {
	return &tail{max: max}
}

func (t *tail) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, b...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(b), nil
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
