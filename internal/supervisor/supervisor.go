// Package supervisor launches the managed application, confirms it stays
// up through a startup window, watches it afterwards and stops it.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	gerrors "github.com/felixgeelhaar/guardian/internal/errors"
	"github.com/felixgeelhaar/guardian/internal/log"
	"github.com/felixgeelhaar/guardian/internal/metrics"
	"github.com/felixgeelhaar/guardian/internal/session"
	"github.com/felixgeelhaar/guardian/internal/ux"
)

// StopOutcome describes what Stop did.
type StopOutcome string

const (
	StopNoop     StopOutcome = "noop"
	StopGraceful StopOutcome = "graceful"
	StopForced   StopOutcome = "forced"
	StopFailed   StopOutcome = "failed"
)

var (
	// ErrAlreadyLaunched is returned by a second Launch.
	ErrAlreadyLaunched = errors.New("process already launched")

	// ErrLaunchStopped is returned by Launch when Stop ran during the grace
	// periods. It wraps context.Canceled so it maps to an interrupted exit.
	ErrLaunchStopped = fmt.Errorf("launch stopped by operator: %w", context.Canceled)
)

// Timings are the supervision delays.
type Timings struct {
	FirstGrace   time.Duration
	SecondGrace  time.Duration
	PollInterval time.Duration
	Heartbeat    time.Duration
	StopTimeout  time.Duration
}

// DefaultTimings returns the production delays.
func DefaultTimings() Timings {
	return Timings{
		FirstGrace:   5 * time.Second,
		SecondGrace:  3 * time.Second,
		PollInterval: 30 * time.Second,
		Heartbeat:    5 * time.Minute,
		StopTimeout:  10 * time.Second,
	}
}

// Snapshot is a point-in-time view for the console.
type Snapshot struct {
	Liveness   Liveness
	PID        int
	Command    string
	StartedAt  time.Time
	Uptime     time.Duration
	ExitCode   int
	StderrTail string
}

// Supervisor owns at most one process per session.
type Supervisor struct {
	spawner Spawner
	session *session.Session
	timings Timings
	report  *ux.Reporter
	logger  *log.Logger
	metrics *metrics.Metrics
	name    string

	state state

	mu        sync.Mutex
	handle    Handle
	command   string
	startedAt time.Time
	cancel    context.CancelFunc
	pollDone  chan struct{}

	stopMu      sync.Mutex
	stopOutcome StopOutcome
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithTimings overrides the supervision delays.
func WithTimings(t Timings) Option {
	return func(s *Supervisor) { s.timings = t }
}

// WithReporter sets where progress is printed.
func WithReporter(r *ux.Reporter) Option {
	return func(s *Supervisor) { s.report = r }
}

// WithMetrics records liveness transitions and stop outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Supervisor) { s.metrics = m }
}

// WithName sets the application name used in messages.
func WithName(name string) Option {
	return func(s *Supervisor) { s.name = name }
}

// New creates a Supervisor.
func New(spawner Spawner, sess *session.Session, opts ...Option) *Supervisor {
	s := &Supervisor{
		spawner: spawner,
		session: sess,
		timings: DefaultTimings(),
		name:    "application",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.report == nil {
		s.report = ux.NewReporter(io.Discard, nil, true)
	}
	if s.session == nil {
		s.session = session.New()
	}
	s.logger = s.report.Logger().WithComponent("supervisor")
	return s
}

// Liveness returns the current state.
func (s *Supervisor) Liveness() Liveness {
	return s.state.load()
}

func (s *Supervisor) transition(from, to Liveness) bool {
	if !s.state.swap(from, to) {
		return false
	}
	s.logger.Debug("liveness transition", "from", from.String(), "to", to.String())
	s.metrics.RecordLiveness(to.String(), to.Running())
	return true
}

// Launch spawns command and waits through both grace periods. It returns
// nil only once two consecutive polls found the process alive; the
// session's monitoring flag is set and the poller started at that point.
func (s *Supervisor) Launch(ctx context.Context, command string) error {
	if !s.transition(NotStarted, Launching) {
		return ErrAlreadyLaunched
	}

	s.report.Info(fmt.Sprintf("Starting %s: %s", s.name, command))
	h, err := s.spawner.Spawn(command)
	if err != nil {
		s.transition(Launching, ExitedUnexpectedly)
		launchErr := gerrors.NewProcessLaunchError(command, err)
		s.report.Fail(launchErr)
		return launchErr
	}

	s.mu.Lock()
	s.handle = h
	s.command = command
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.transition(Launching, Starting)
	s.logger.Info("process spawned", "pid", h.PID(), "command", command)
	s.report.Info(fmt.Sprintf("Waiting for %s to initialize...", s.name))

	for _, grace := range []time.Duration{s.timings.FirstGrace, s.timings.SecondGrace} {
		if err := sleep(ctx, grace); err != nil {
			s.report.Warn("Launch interrupted")
			s.Stop()
			return fmt.Errorf("launch interrupted: %w", err)
		}
		if !h.Alive() {
			if !s.transition(Starting, ExitedUnexpectedly) {
				return ErrLaunchStopped
			}
			unstable := gerrors.NewProcessUnstableError(command, h.StderrTail())
			s.report.Fail(unstable)
			return unstable
		}
	}

	if !s.transition(Starting, StableRunning) {
		return ErrLaunchStopped
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.pollDone = done
	s.mu.Unlock()

	s.session.SetMonitoring(true)
	go s.poll(pollCtx, h, done)

	s.report.Success(fmt.Sprintf("%s is running (PID %d)", s.name, h.PID()))
	return nil
}

func (s *Supervisor) poll(ctx context.Context, h Handle, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.timings.PollInterval)
	defer ticker.Stop()
	lastBeat := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !h.Alive() {
				if s.transition(StableRunning, ExitedUnexpectedly) {
					s.report.Error(fmt.Sprintf("%s stopped unexpectedly (exit code %d)", s.name, h.ExitCode()))
					if tail := strings.TrimSpace(h.StderrTail()); tail != "" {
						s.logger.Error("process stderr", "tail", tail)
					}
				}
				return
			}
			if now.Sub(lastBeat) >= s.timings.Heartbeat {
				lastBeat = now
				s.logger.Info("process healthy", "pid", h.PID(), "uptime", s.uptime().Round(time.Second).String())
			}
		}
	}
}

// Stop clears the monitoring flag and terminates the process if it is
// running. At most one termination attempt is made; later calls return the
// first outcome.
func (s *Supervisor) Stop() StopOutcome {
	s.session.SetMonitoring(false)

	s.stopMu.Lock()
	defer s.stopMu.Unlock()

	if s.stopOutcome != "" {
		return s.stopOutcome
	}

	s.mu.Lock()
	h, cancel, done := s.handle, s.cancel, s.pollDone
	s.mu.Unlock()

	cur := s.Liveness()
	stopping := cur.Running() && s.transition(cur, StoppedByOperator)

	if cancel != nil {
		cancel()
		<-done
	}
	if !stopping {
		return StopNoop
	}

	s.stopOutcome = s.terminate(h)
	s.metrics.RecordStop(string(s.stopOutcome))
	s.logger.Info("process stopped", "outcome", string(s.stopOutcome))
	return s.stopOutcome
}

func (s *Supervisor) terminate(h Handle) StopOutcome {
	s.report.Info(fmt.Sprintf("Stopping %s...", s.name))

	if err := h.Terminate(); err != nil {
		s.logger.Warn("graceful termination request failed", "error", err.Error())
	}

	timer := time.NewTimer(s.timings.StopTimeout)
	defer timer.Stop()
	select {
	case <-h.Done():
		s.report.Success(fmt.Sprintf("%s stopped", s.name))
		return StopGraceful
	case <-timer.C:
	}

	s.report.Warn(fmt.Sprintf("%s did not stop within %s, forcing", s.name, s.timings.StopTimeout))
	if err := h.Kill(); err != nil {
		s.logger.Error("force kill failed", "error", err.Error())
	}

	timer.Reset(s.timings.StopTimeout)
	select {
	case <-h.Done():
		s.report.Success(fmt.Sprintf("%s stopped", s.name))
		return StopForced
	case <-timer.C:
		s.report.Error(fmt.Sprintf("Could not stop %s (PID %d)", s.name, h.PID()))
		return StopFailed
	}
}

// Snapshot returns the current process view.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	h, command, started := s.handle, s.command, s.startedAt
	s.mu.Unlock()

	snap := Snapshot{
		Liveness:  s.Liveness(),
		Command:   command,
		StartedAt: started,
	}
	if h != nil {
		snap.PID = h.PID()
		snap.StderrTail = h.StderrTail()
		if !h.Alive() {
			snap.ExitCode = h.ExitCode()
		}
	}
	if snap.Liveness.Running() && !started.IsZero() {
		snap.Uptime = time.Since(started)
	}
	return snap
}

func (s *Supervisor) uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
