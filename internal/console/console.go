// Package console is the interactive command loop that runs while the
// application is supervised.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/felixgeelhaar/guardian/internal/browser"
	"github.com/felixgeelhaar/guardian/internal/diag"
	"github.com/felixgeelhaar/guardian/internal/health"
	"github.com/felixgeelhaar/guardian/internal/metrics"
	"github.com/felixgeelhaar/guardian/internal/security"
	"github.com/felixgeelhaar/guardian/internal/session"
	"github.com/felixgeelhaar/guardian/internal/supervisor"
	"github.com/felixgeelhaar/guardian/internal/telemetry"
	"github.com/felixgeelhaar/guardian/internal/ux"
)

// Supervisor is the part of *supervisor.Supervisor the console drives.
type Supervisor interface {
	Snapshot() supervisor.Snapshot
	Stop() supervisor.StopOutcome
}

// Auditor is the part of *security.Auditor the console drives.
type Auditor interface {
	AuditNow() *security.Report
	Log() *security.Log
}

// Diagnostics is the part of *diag.Diagnostics the console drives.
type Diagnostics interface {
	AuditBattery() []diag.Outcome
	ApplicationBattery() *diag.ApplicationReport
}

// LogLines is how many session log lines "logs" prints.
const LogLines = 10

// recheckInterval bounds how long the loop waits for input before it
// re-reads the monitoring flag.
const recheckInterval = time.Second

// Deps are the console collaborators. Health and Browser may be nil.
type Deps struct {
	In          *bufio.Reader
	Reporter    *ux.Reporter
	Session     *session.Session
	Supervisor  Supervisor
	Auditor     Auditor
	Diagnostics Diagnostics
	Health      *health.Manager
	Browser     browser.Opener
	Metrics     *metrics.Metrics

	AppName        string
	URL            string
	SessionLogPath string
	// LastReport is the audit held from the startup pipeline.
	LastReport *security.Report
}

// Console reads one command per line.
type Console struct {
	deps Deps
	out  io.Writer
}

// New creates a Console.
func New(deps Deps) *Console {
	if deps.Reporter == nil {
		deps.Reporter = ux.NewReporter(io.Discard, nil, true)
	}
	if deps.Browser == nil {
		deps.Browser = browser.System{}
	}
	if deps.AppName == "" {
		deps.AppName = "application"
	}
	return &Console{deps: deps, out: deps.Reporter.Writer()}
}

// LastReport returns the most recent audit.
func (c *Console) LastReport() *security.Report {
	return c.deps.LastReport
}

// Run loops while the session is monitoring. It returns nil after "stop"
// or end of input, and the context error after cancellation; the
// supervisor is stopped in all three cases.
func (c *Console) Run(ctx context.Context) error {
	if !c.deps.Session.Monitoring() {
		return nil
	}

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	go c.read(readCtx, lines)

	ticker := time.NewTicker(recheckInterval)
	defer ticker.Stop()

	c.help()
	c.prompt()

	for c.deps.Session.Monitoring() {
		select {
		case <-ctx.Done():
			c.deps.Reporter.Warn("Interrupted, stopping " + c.deps.AppName)
			c.deps.Supervisor.Stop()
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				c.deps.Reporter.Info("Input closed, stopping " + c.deps.AppName)
				c.deps.Supervisor.Stop()
				return nil
			}
			if !c.dispatch(ctx, line) {
				return nil
			}
			c.prompt()

		case <-ticker.C:
		}
	}
	return nil
}

func (c *Console) read(ctx context.Context, lines chan<- string) {
	defer close(lines)
	for {
		line, err := c.deps.In.ReadString('\n')
		if line != "" || err == nil {
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (c *Console) prompt() {
	fmt.Fprint(c.out, "guardian> ")
}

// dispatch runs one command and reports whether the loop continues.
func (c *Console) dispatch(ctx context.Context, line string) bool {
	cmd := strings.ToLower(strings.TrimSpace(line))
	if cmd == "" {
		return true
	}

	r := c.deps.Reporter
	r.Logger().Debug("console command", "command", cmd)
	ctx, span := telemetry.StartConsoleSpan(ctx, cmd)
	defer span.End()

	switch cmd {
	case "status":
		c.status(ctx)
	case "logs":
		c.logs()
	case "security":
		c.securityLog()
	case "audit":
		c.deps.LastReport = c.deps.Auditor.AuditNow()
	case "debug":
		c.deps.Diagnostics.AuditBattery()
	case "appdebug":
		c.deps.Diagnostics.ApplicationBattery()
	case "open":
		c.open()
	case "stop":
		c.deps.Metrics.RecordConsoleCommand(cmd)
		r.Info("Stop requested")
		c.deps.Supervisor.Stop()
		return false
	case "help":
		c.help()
	default:
		span.SetName("console.unknown")
		c.deps.Metrics.RecordConsoleCommand("unknown")
		r.Warn(fmt.Sprintf("Unknown command %q, type 'help' for the list", cmd))
		return true
	}
	c.deps.Metrics.RecordConsoleCommand(cmd)
	return true
}

func (c *Console) help() {
	fmt.Fprint(c.out, `
Commands:
  status    process state, uptime and health checks
  logs      last 10 lines of the session log
  security  full security audit log
  audit     run the security audit again
  debug     replay the audit commands
  appdebug  replay the application lookups
  open      open the application in the browser
  stop      stop the application and exit
  help      this list
`)
}

func (c *Console) status(ctx context.Context) {
	r := c.deps.Reporter
	snap := c.deps.Supervisor.Snapshot()

	r.Plain("")
	r.Plain("Status:   %s", snap.Liveness)
	if snap.PID > 0 {
		r.Plain("PID:      %d", snap.PID)
	}
	if snap.Liveness.Running() {
		r.Plain("Uptime:   %s", snap.Uptime.Round(time.Second))
	}
	if snap.Liveness == supervisor.ExitedUnexpectedly {
		r.Plain("Exit:     %d", snap.ExitCode)
	}
	r.Plain("URL:      %s", c.deps.URL)
	r.Plain("Session:  %s (started %s)", c.deps.Session.ID, c.deps.Session.StartedAt.Format("15:04:05"))
	if rep := c.deps.LastReport; rep != nil {
		r.Plain("Audit:    %s (%s)", rep.Recommendation, rep.FindingsLine())
	}

	if c.deps.Health == nil {
		return
	}
	results := c.deps.Health.Check(ctx)
	r.Plain("Health:   %s", health.OverallStatus(results))
	for _, nr := range results {
		r.Plain("  %-14s %-9s %s", nr.Name, nr.Result.Status, nr.Result.Message)
	}
}

func (c *Console) logs() {
	r := c.deps.Reporter
	lines, err := TailFile(c.deps.SessionLogPath, LogLines)
	if err != nil {
		r.Warn(fmt.Sprintf("Could not read the session log: %v", err))
		return
	}
	if len(lines) == 0 {
		r.Info("The session log is empty")
		return
	}
	r.Plain("Last %d lines of %s:", len(lines), c.deps.SessionLogPath)
	for _, l := range lines {
		r.Plain("  %s", l)
	}
}

func (c *Console) securityLog() {
	r := c.deps.Reporter
	content, err := c.deps.Auditor.Log().ReadAll()
	if err != nil {
		r.Warn(fmt.Sprintf("Could not read the security log: %v", err))
		return
	}
	if strings.TrimSpace(content) == "" {
		r.Info("No security audits recorded yet")
		return
	}
	r.Plain("%s", strings.TrimRight(content, "\n"))
}

func (c *Console) open() {
	if err := c.deps.Browser.Open(c.deps.URL); err != nil {
		c.deps.Reporter.Warn(fmt.Sprintf("Could not open %s: %v", c.deps.URL, err))
		return
	}
	c.deps.Reporter.Info("Opened " + c.deps.URL)
}

// TailFile returns the last n lines of path. A missing file has no lines.
func TailFile(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, sc.Text())
	}
	return ring, sc.Err()
}
