// Package security runs the dependency vulnerability scan, turns its text
// output into a recommendation and keeps the audit trail.
package security

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/felixgeelhaar/guardian/internal/metrics"
	"github.com/felixgeelhaar/guardian/internal/runner"
	"github.com/felixgeelhaar/guardian/internal/session"
	"github.com/felixgeelhaar/guardian/internal/ux"
)

const (
	cleanExcerptLen = 200
	fullExcerptLen  = 4000
)

// Auditor runs "<pm> audit" and records every result.
type Auditor struct {
	runner         runner.Runner
	session        *session.Session
	log            *Log
	classifier     Classifier
	report         *ux.Reporter
	metrics        *metrics.Metrics
	now            func() time.Time
	packageManager string
	app            string
	level          string
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithClassifier replaces the keyword heuristic.
func WithClassifier(c Classifier) Option {
	return func(a *Auditor) { a.classifier = c }
}

// WithReporter sets where results are printed.
func WithReporter(r *ux.Reporter) Option {
	return func(a *Auditor) { a.report = r }
}

// WithMetrics counts audits and findings.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Auditor) { a.metrics = m }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Auditor) { a.now = now }
}

// NewAuditor creates an Auditor for app's dependencies. level is the
// --audit-level passed to the package manager.
func NewAuditor(run runner.Runner, sess *session.Session, log *Log, packageManager, app, level string, opts ...Option) *Auditor {
	a := &Auditor{
		runner:         run,
		session:        sess,
		log:            log,
		classifier:     KeywordClassifier{},
		now:            time.Now,
		packageManager: packageManager,
		app:            app,
		level:          level,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.report == nil {
		a.report = ux.NewReporter(io.Discard, nil, true)
	}
	if a.session == nil {
		a.session = session.New()
	}
	return a
}

// Log returns the audit trail.
func (a *Auditor) Log() *Log {
	return a.log
}

// Command is the scan command line.
func (a *Auditor) Command() string {
	pm := a.session.Invocation(a.packageManager, a.packageManager)
	return fmt.Sprintf("%s audit --audit-level %s", pm, a.level)
}

// AuditNow scans, classifies, logs and prints. It always returns a report;
// when the scan cannot run the report is degraded to proceed-with-caution.
func (a *Auditor) AuditNow() *Report {
	a.report.Info("Running security audit...")

	rep := a.Scan()

	if a.log != nil {
		if err := a.log.Append(rep); err != nil {
			a.report.Warn(fmt.Sprintf("Could not write the security log: %v", err))
		}
	}
	a.metrics.RecordAudit(string(rep.Recommendation), findingsMap(rep.Findings))
	a.present(rep)
	return rep
}

// Scan runs and classifies without logging or printing.
func (a *Auditor) Scan() *Report {
	rep := &Report{
		ID:        uuid.NewString(),
		Timestamp: a.now(),
		Command:   a.Command(),
	}

	res := a.runner.Run(rep.Command)
	if res.Failure == runner.FailureNotFound || res.Failure == runner.FailureUnexpected {
		rep.Recommendation = ProceedWithCaution
		if res.Err != nil {
			rep.Error = res.Err.Error()
		} else {
			rep.Error = strings.TrimSpace(res.Stderr)
		}
		return rep
	}

	output := strings.TrimSpace(res.Stdout)
	sum := blake3.Sum256([]byte(output))

	c := a.classifier.Classify(output, res.ExitCode)
	rep.Ran = true
	rep.ExitCode = res.ExitCode
	rep.Clean = c.Clean
	rep.Findings = c.Findings
	rep.Digest = hex.EncodeToString(sum[:])
	rep.Recommendation = Recommend(c)
	if c.Clean {
		rep.Excerpt = truncate(output, cleanExcerptLen)
	} else {
		rep.Excerpt = truncate(output, fullExcerptLen)
	}
	return rep
}

func (a *Auditor) present(rep *Report) {
	r := a.report
	switch {
	case !rep.Ran:
		r.Error("Could not run the security audit")
		r.Info(fmt.Sprintf("Try running '%s' manually or use the 'debug' console command", rep.Command))
		return
	case rep.Clean:
		r.Success("No vulnerabilities found")
		return
	}

	r.Warn("Security vulnerabilities found")
	if len(rep.Excerpt) > 20 {
		r.Plain("%s", rep.Excerpt)
	} else {
		r.Info("No detailed report available; use the 'debug' console command")
	}
	if len(rep.Findings) > 0 {
		r.Warn(fmt.Sprintf("Summary: %s (total %d)", rep.FindingsLine(), rep.Total()))
	}

	c := Classification{Clean: rep.Clean, Findings: rep.Findings}
	for _, line := range Advice(rep.Recommendation, c, a.packageManager, a.app) {
		r.Plain("  %s", line)
	}
	r.Info(fmt.Sprintf("Recommendation: %s", rep.Recommendation))
}

func findingsMap(findings []Finding) map[string]int {
	out := make(map[string]int, len(findings))
	for _, f := range findings {
		out[string(f.Severity)] = f.Count
	}
	return out
}
