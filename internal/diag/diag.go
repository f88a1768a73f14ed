// Package diag replays the commands guardian depends on and prints what
// each one returned, for operators chasing a failed audit or a missing
// executable.
package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/guardian/internal/prereq"
	"github.com/felixgeelhaar/guardian/internal/resolve"
	"github.com/felixgeelhaar/guardian/internal/runner"
	"github.com/felixgeelhaar/guardian/internal/session"
	"github.com/felixgeelhaar/guardian/internal/ux"
)

const previewLen = 200

// Probe is one replayed command.
type Probe struct {
	Label   string
	Command string
}

// Outcome is what a probe returned.
type Outcome struct {
	Probe
	ExitCode      int
	Exited        bool
	Failure       string
	StdoutLen     int
	StderrLen     int
	StdoutPreview string
	StderrPreview string
}

// ApplicationReport is the result of the application battery.
type ApplicationReport struct {
	Outcomes    []Outcome
	Candidates  map[string][]string
	Environment Environment
}

// Diagnostics runs the batteries.
type Diagnostics struct {
	runner   runner.Runner
	resolver *resolve.Resolver
	session  *session.Session
	tooling  prereq.Tooling
	registry string
	report   *ux.Reporter
	getenv   func(string) string
}

// Option configures Diagnostics.
type Option func(*Diagnostics)

// WithReporter sets where results are printed.
func WithReporter(r *ux.Reporter) Option {
	return func(d *Diagnostics) { d.report = r }
}

// WithGetenv overrides environment lookups.
func WithGetenv(getenv func(string) string) Option {
	return func(d *Diagnostics) { d.getenv = getenv }
}

// New creates Diagnostics. registry is passed to the explicit-registry
// audit probe.
func New(run runner.Runner, res *resolve.Resolver, sess *session.Session, tooling prereq.Tooling, registry string, opts ...Option) *Diagnostics {
	d := &Diagnostics{
		runner:   run,
		resolver: res,
		session:  sess,
		tooling:  tooling,
		registry: registry,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.report == nil {
		d.report = ux.NewReporter(io.Discard, nil, true)
	}
	if d.session == nil {
		d.session = session.New()
	}
	return d
}

// AuditProbes lists the audit battery for pm.
func AuditProbes(pm, registry string) []Probe {
	if registry != "" && !strings.HasSuffix(registry, "/") {
		registry += "/"
	}
	return []Probe{
		{"plain audit", pm + " audit"},
		{"audit at moderate level", pm + " audit --audit-level moderate"},
		{"audit as JSON", pm + " audit --json"},
		{"audit with explicit registry", pm + " audit --registry " + registry},
	}
}

// ApplicationProbes lists the application battery.
func ApplicationProbes(t prereq.Tooling, app, pm, runtime, locate string) []Probe {
	return []Probe{
		{"direct version", app + " --version"},
		{"on-demand version", t.OnDemandRunner + " " + t.App + " --version"},
		{"package metadata", fmt.Sprintf(`%s -e "console.log(require('%s/package.json').version)"`, runtime, t.Package)},
		{"global package list", pm + " list -g " + t.Package},
		{"system locate", locate},
	}
}

// AuditBattery replays the audit probes.
func (d *Diagnostics) AuditBattery() []Outcome {
	d.report.Header("Audit diagnostics")
	pm := d.session.Invocation(d.tooling.PackageManager, d.tooling.PackageManager)
	outcomes := d.Replay(AuditProbes(pm, d.registry))
	d.report.Info("Audit diagnostics complete")
	return outcomes
}

// ApplicationBattery replays the application probes, then scans the
// well-known directories and summarizes the environment.
func (d *Diagnostics) ApplicationBattery() *ApplicationReport {
	t := d.tooling
	d.report.Header("Application diagnostics")

	app := d.session.Invocation(t.App, t.App)
	pm := d.session.Invocation(t.PackageManager, t.PackageManager)
	rt := d.session.Invocation(t.Runtime, t.Runtime)

	rep := &ApplicationReport{
		Outcomes:   d.Replay(ApplicationProbes(t, app, pm, rt, d.resolver.LocateCommand(t.App))),
		Candidates: make(map[string][]string),
	}

	d.report.Plain("")
	d.report.Plain("Well-known directories:")
	for _, name := range []string{t.Runtime, t.PackageManager, t.App} {
		found := d.resolver.Candidates(name)
		rep.Candidates[name] = found
		if len(found) == 0 {
			d.report.Plain("  %s: not found", name)
			continue
		}
		for _, p := range found {
			d.report.Plain("  %s: %s", name, p)
		}
	}

	rep.Environment = DetectEnvironment(d.getenv, t, d.session)
	d.report.Plain("")
	d.report.Plain("%s", strings.TrimRight(rep.Environment.Summary(), "\n"))
	d.report.Info("Application diagnostics complete")
	return rep
}

// Replay runs each probe in order and prints its outcome.
func (d *Diagnostics) Replay(probes []Probe) []Outcome {
	outcomes := make([]Outcome, 0, len(probes))
	for i, p := range probes {
		res := d.runner.Run(p.Command)
		o := Outcome{
			Probe:         p,
			ExitCode:      res.ExitCode,
			Exited:        res.Exited,
			Failure:       res.Failure.String(),
			StdoutLen:     len(res.Stdout),
			StderrLen:     len(res.Stderr),
			StdoutPreview: preview(res.Stdout),
			StderrPreview: preview(res.Stderr),
		}
		outcomes = append(outcomes, o)
		d.print(i+1, len(probes), o)
	}
	return outcomes
}

func (d *Diagnostics) print(n, total int, o Outcome) {
	r := d.report
	r.Plain("")
	r.Plain("[%d/%d] %s: %s", n, total, o.Label, o.Command)
	if o.Exited {
		r.Plain("  exit code: %d (%s)", o.ExitCode, o.Failure)
	} else {
		r.Plain("  did not run (%s)", o.Failure)
	}
	r.Plain("  stdout: %d bytes, stderr: %d bytes", o.StdoutLen, o.StderrLen)
	if o.StdoutPreview != "" {
		r.Plain("  stdout preview: %s", o.StdoutPreview)
	}
	if o.StderrPreview != "" {
		r.Plain("  stderr preview: %s", o.StderrPreview)
	}
	r.Logger().Debug("diagnostic probe",
		"command", o.Command,
		"exit_code", o.ExitCode,
		"failure", o.Failure,
		"stdout_bytes", o.StdoutLen,
		"stderr_bytes", o.StderrLen,
	)
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > previewLen {
		return string(r[:previewLen]) + "..."
	}
	return s
}
