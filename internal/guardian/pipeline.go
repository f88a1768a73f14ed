// Package guardian runs the startup pipeline: prerequisites, version gate,
// security audit, launch approval, supervised launch and the console.
package guardian

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/guardian/internal/browser"
	"github.com/felixgeelhaar/guardian/internal/config"
	"github.com/felixgeelhaar/guardian/internal/console"
	"github.com/felixgeelhaar/guardian/internal/diag"
	gerrors "github.com/felixgeelhaar/guardian/internal/errors"
	"github.com/felixgeelhaar/guardian/internal/health"
	"github.com/felixgeelhaar/guardian/internal/httpx"
	"github.com/felixgeelhaar/guardian/internal/metrics"
	"github.com/felixgeelhaar/guardian/internal/prereq"
	"github.com/felixgeelhaar/guardian/internal/resolve"
	"github.com/felixgeelhaar/guardian/internal/runner"
	"github.com/felixgeelhaar/guardian/internal/security"
	"github.com/felixgeelhaar/guardian/internal/session"
	"github.com/felixgeelhaar/guardian/internal/supervisor"
	"github.com/felixgeelhaar/guardian/internal/telemetry"
	"github.com/felixgeelhaar/guardian/internal/tui"
	"github.com/felixgeelhaar/guardian/internal/upgrade"
	"github.com/felixgeelhaar/guardian/internal/ux"
)

// Options are the collaborators of a Pipeline. Nil fields get production
// defaults.
type Options struct {
	Runner     runner.Runner
	Resolver   *resolve.Resolver
	Spawner    supervisor.Spawner
	Session    *session.Session
	Confirmer  ux.Confirmer
	Approver   Approver
	Browser    browser.Opener
	Reporter   *ux.Reporter
	Metrics    *metrics.Metrics
	HTTPClient *retryablehttp.Client
	// In is the operator input shared by prompts and the console.
	In *bufio.Reader
	// Getenv overrides environment lookups in the header.
	Getenv func(string) string
}

// Pipeline is one guardian session.
type Pipeline struct {
	cfg     *config.Config
	opts    Options
	tooling prereq.Tooling
	report  *ux.Reporter

	checker    *prereq.Checker
	gate       *upgrade.Gate
	auditor    *security.Auditor
	supervisor *supervisor.Supervisor
	diag       *diag.Diagnostics
	health     *health.Manager

	statuses   []*prereq.Status
	decision   upgrade.Decision
	lastReport *security.Report
}

// New wires a Pipeline from configuration.
func New(cfg *config.Config, opts Options) *Pipeline {
	if opts.Reporter == nil {
		opts.Reporter = ux.NewReporter(io.Discard, nil, true)
	}
	if opts.Runner == nil {
		opts.Runner = runner.NewShellRunner(runner.WithMetrics(opts.Metrics))
	}
	if opts.Resolver == nil {
		opts.Resolver = resolve.New(opts.Runner,
			resolve.WithExtraDirs(cfg.Paths.ExtraDirs...),
			resolve.WithMetrics(opts.Metrics))
	}
	if opts.Spawner == nil {
		opts.Spawner = supervisor.NewShellSpawner()
	}
	if opts.Session == nil {
		opts.Session = session.New()
	}
	if opts.In == nil {
		opts.In = bufio.NewReader(os.Stdin)
	}
	if opts.Confirmer == nil {
		opts.Confirmer = ux.NewLineConfirmer(opts.In, opts.Reporter.Writer())
	}
	if opts.Approver == nil {
		opts.Approver = ConfirmApprover{Confirmer: opts.Confirmer, Reporter: opts.Reporter}
	}
	if opts.Browser == nil {
		opts.Browser = browser.System{}
	}
	if opts.HTTPClient == nil {
		httpOpts := httpx.DefaultOptions()
		httpOpts.Logger = opts.Reporter.Logger()
		opts.HTTPClient = httpx.NewClient(httpOpts)
	}

	tooling := prereq.ToolingFromConfig(cfg)
	p := &Pipeline{
		cfg:     cfg,
		opts:    opts,
		tooling: tooling,
		report:  opts.Reporter,
	}

	p.checker = prereq.NewChecker(tooling, prereq.Deps{
		Runner:    opts.Runner,
		Resolver:  opts.Resolver,
		Session:   opts.Session,
		Confirmer: opts.Confirmer,
		Browser:   opts.Browser,
		Reporter:  opts.Reporter,
		Metrics:   opts.Metrics,
	})
	p.gate = upgrade.NewGate(opts.Runner, opts.Session, opts.Confirmer, tooling.PackageManager, tooling.Package,
		upgrade.WithRegistry(upgrade.NewRegistry(cfg.PackageManager.RegistryURL, opts.HTTPClient)),
		upgrade.WithReporter(opts.Reporter))
	p.auditor = security.NewAuditor(opts.Runner, opts.Session, security.NewLog(cfg.SecurityLogPath()),
		tooling.PackageManager, tooling.App, cfg.Audit.Level,
		security.WithReporter(opts.Reporter),
		security.WithMetrics(opts.Metrics))
	p.supervisor = supervisor.New(opts.Spawner, opts.Session,
		supervisor.WithTimings(supervisor.Timings{
			FirstGrace:   cfg.Supervisor.FirstGrace,
			SecondGrace:  cfg.Supervisor.SecondGrace,
			PollInterval: cfg.Supervisor.PollInterval,
			Heartbeat:    cfg.Supervisor.Heartbeat,
			StopTimeout:  cfg.Supervisor.StopTimeout,
		}),
		supervisor.WithReporter(opts.Reporter),
		supervisor.WithMetrics(opts.Metrics),
		supervisor.WithName(tooling.App))
	p.diag = diag.New(opts.Runner, opts.Resolver, opts.Session, tooling, cfg.PackageManager.RegistryURL,
		diag.WithReporter(opts.Reporter),
		diag.WithGetenv(opts.Getenv))

	p.health = health.NewManager().WithMetrics(opts.Metrics)
	p.health.AddChecker(health.NewProcessChecker(p.supervisor))
	p.health.AddChecker(health.NewEndpointChecker(cfg.HealthURL(), opts.HTTPClient))

	return p
}

// Checker returns the prerequisite checker.
func (p *Pipeline) Checker() *prereq.Checker { return p.checker }

// Auditor returns the security auditor.
func (p *Pipeline) Auditor() *security.Auditor { return p.auditor }

// Supervisor returns the process supervisor.
func (p *Pipeline) Supervisor() *supervisor.Supervisor { return p.supervisor }

// Diagnostics returns the probe batteries.
func (p *Pipeline) Diagnostics() *diag.Diagnostics { return p.diag }

// Session returns the session.
func (p *Pipeline) Session() *session.Session { return p.opts.Session }

// Statuses returns the prerequisite results of the last run.
func (p *Pipeline) Statuses() []*prereq.Status { return p.statuses }

// LastReport returns the most recent audit.
func (p *Pipeline) LastReport() *security.Report { return p.lastReport }

// Decision returns the version gate outcome.
func (p *Pipeline) Decision() upgrade.Decision { return p.decision }

// Run executes the whole session. A declined launch is not an error.
// Cleanup runs on every path, including a recovered panic.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	defer p.cleanup()
	defer func() {
		if rec := recover(); rec != nil {
			err = gerrors.NewUnexpectedError(fmt.Errorf("panic: %v", rec))
			p.fail(err)
		}
	}()

	p.Header()

	_, span := telemetry.StartStageSpan(ctx, "prerequisites")
	p.statuses, err = p.checker.Run()
	telemetry.End(span, err)
	if err != nil {
		p.opts.Metrics.RecordError(codeOf(err))
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stageCtx, span := telemetry.StartStageSpan(ctx, "reconcile")
	p.decision, err = p.gate.Reconcile(stageCtx)
	span.SetAttributes(
		attribute.String("app.version", p.decision.Current),
		attribute.Bool("app.should_update", p.decision.ShouldUpdate),
	)
	telemetry.End(span, err)
	if err != nil {
		p.opts.Metrics.RecordError(codeOf(err))
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, span = telemetry.StartStageSpan(ctx, "audit")
	p.lastReport = p.auditor.AuditNow()
	span.SetAttributes(
		attribute.String("audit.recommendation", string(p.lastReport.Recommendation)),
		attribute.Int("audit.findings", p.lastReport.Total()),
	)
	telemetry.End(span, nil)

	command := p.LaunchCommand()
	_, span = telemetry.StartStageSpan(ctx, "approve")
	approved := p.opts.Approver.Approve(p.summary(command))
	span.SetAttributes(attribute.Bool("approved", approved))
	telemetry.End(span, nil)
	if !approved {
		p.report.Info("Launch cancelled by the operator")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stageCtx, span = telemetry.StartStageSpan(ctx, "launch")
	err = p.supervisor.Launch(stageCtx, command)
	telemetry.End(span, err)
	if err != nil {
		p.opts.Metrics.RecordError(codeOf(err))
		return err
	}

	c := console.New(console.Deps{
		In:             p.opts.In,
		Reporter:       p.report,
		Session:        p.opts.Session,
		Supervisor:     p.supervisor,
		Auditor:        p.auditor,
		Diagnostics:    p.diag,
		Health:         p.health,
		Browser:        p.opts.Browser,
		Metrics:        p.opts.Metrics,
		AppName:        p.tooling.App,
		URL:            p.cfg.App.URL,
		SessionLogPath: p.cfg.SessionLogPath(),
		LastReport:     p.lastReport,
	})
	consoleCtx, span := telemetry.StartStageSpan(ctx, "console")
	err = c.Run(consoleCtx)
	telemetry.End(span, err)
	p.lastReport = c.LastReport()
	return err
}

// LaunchCommand is the resolved application invocation plus its arguments.
func (p *Pipeline) LaunchCommand() string {
	inv := p.opts.Session.Invocation(p.tooling.App, p.tooling.App)
	if args := strings.TrimSpace(p.cfg.App.Args); args != "" {
		return inv + " " + args
	}
	return inv
}

func (p *Pipeline) summary(command string) tui.LaunchSummary {
	s := tui.LaunchSummary{
		App:     p.tooling.App,
		Command: command,
		Version: p.decision.Current,
	}
	for _, st := range p.statuses {
		s.Prerequisites = append(s.Prerequisites, st.Line())
	}
	if p.lastReport != nil {
		s.Recommendation = string(p.lastReport.Recommendation)
		s.Blocked = p.lastReport.Recommendation == security.BlockUntilResolved
	}
	return s
}

// Header prints the session banner.
func (p *Pipeline) Header() {
	sess := p.opts.Session
	env := diag.DetectEnvironment(p.opts.Getenv, p.tooling, nil)

	p.report.Header(fmt.Sprintf("%s guardian", p.tooling.App))
	p.report.Plain("Session:       %s", sess.ID)
	p.report.Plain("Started:       %s", sess.StartedAt.Format(time.DateTime))
	p.report.Plain("Data dir:      %s", p.cfg.Paths.DataDir)
	p.report.Plain("Session log:   %s", p.cfg.SessionLogPath())
	p.report.Plain("Security log:  %s", p.cfg.SecurityLogPath())
	p.report.Plain("PATH has %s: %s", p.tooling.Runtime, yesNo(env.PathMentionsRuntime))
	p.report.Logger().Info("session started", "session", sess.ID.String(), "data_dir", p.cfg.Paths.DataDir)
}

func (p *Pipeline) cleanup() {
	if p.opts.Session.Monitoring() || p.supervisor.Liveness().Running() {
		p.supervisor.Stop()
	}
	p.report.Header("Session finished")
	p.report.Plain("Logs saved in %s", p.cfg.Paths.DataDir)
	p.report.Plain("  %s", p.cfg.SessionLogPath())
	p.report.Plain("  %s", p.cfg.SecurityLogPath())
	p.report.Logger().Info("session finished", "uptime", p.opts.Session.Uptime().Round(time.Second).String())
}

func (p *Pipeline) fail(err error) {
	p.report.Fail(err)
	p.opts.Metrics.RecordError(codeOf(err))
}

func codeOf(err error) string {
	var gErr *gerrors.GuardianError
	if errors.As(err, &gErr) {
		return string(gErr.Code)
	}
	return "unknown"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
