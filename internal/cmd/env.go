package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/guardian/internal/config"
	gerrors "github.com/felixgeelhaar/guardian/internal/errors"
	"github.com/felixgeelhaar/guardian/internal/guardian"
	"github.com/felixgeelhaar/guardian/internal/log"
	"github.com/felixgeelhaar/guardian/internal/metrics"
	"github.com/felixgeelhaar/guardian/internal/session"
	"github.com/felixgeelhaar/guardian/internal/telemetry"
	"github.com/felixgeelhaar/guardian/internal/tui"
	"github.com/felixgeelhaar/guardian/internal/ux"
	"github.com/felixgeelhaar/guardian/internal/version"
)

// environment is everything one command invocation shares: the session,
// its log, the operator input and the optional metrics endpoint.
type environment struct {
	cctx     *CommandContext
	cfg      *config.Config
	session  *session.Session
	logger   *log.Logger
	reporter *ux.Reporter
	metrics  *metrics.Metrics
	server   *metrics.Server
	in       *bufio.Reader
	logOut   log.Output

	// ctx carries the command span; stages nest under it.
	ctx      context.Context
	span     trace.Span
	shutdown func(context.Context) error
}

func setup(cmd *cobra.Command) (*environment, error) {
	cctx, err := NewCommandContext(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to create command context: %w", err)
	}
	cfg, err := cctx.loadConfigReported(cmd)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, cctx.reportEarly(cmd, gerrors.Wrap(gerrors.ErrCodeDirectoryFailed, "failed to create data directory "+cfg.Paths.DataDir, err))
	}
	logOut, err := log.OutputFile(cfg.SessionLogPath())
	if err != nil {
		return nil, cctx.reportEarly(cmd, gerrors.Wrap(gerrors.ErrCodeFileWriteFailed, "failed to open session log", err))
	}

	sess := session.New()
	logCfg := log.SessionConfig(logOut, log.ParseLevel(cfg.Log.Level), version.Version)
	logCfg.Format = log.ParseFormat(cfg.Log.Format)
	logger := log.New(logCfg).WithSession(sess.ID.String())
	log.SetDefaultLogger(logger)

	// Machine-readable output keeps stdout clean; progress goes to stderr.
	var out io.Writer = cmd.OutOrStdout()
	if cctx.Format != "text" {
		out = cmd.ErrOrStderr()
	}

	env := &environment{
		cctx:     cctx,
		cfg:      cfg,
		session:  sess,
		logger:   logger,
		reporter: ux.NewReporter(out, logger, cctx.NoColor),
		in:       bufio.NewReader(cmd.InOrStdin()),
		logOut:   logOut,
	}

	reg, m := metrics.NewRegistry()
	env.metrics = m
	if cctx.MetricsAddr != "" {
		server, err := metrics.Listen(cctx.MetricsAddr, reg)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("failed to start metrics endpoint: %w", err)
		}
		env.server = server
		env.reporter.Info(fmt.Sprintf("Metrics available at http://%s/metrics", server.Addr()))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env.shutdown, err = telemetry.InitProvider(ctx, telemetry.Config{
		ServiceName:    "guardian",
		ServiceVersion: version.Version,
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		env.reporter.Warn(fmt.Sprintf("Tracing disabled: %v", err))
	}
	env.ctx, env.span = telemetry.StartCommandSpan(ctx, cmd.Name())
	env.span.SetAttributes(attribute.String("session.id", sess.ID.String()))

	logger.Info("command started", "command", cmd.CommandPath(), "version", version.Version)
	return env, nil
}

// confirmer picks how yes/no questions are asked.
func (e *environment) confirmer() ux.Confirmer {
	switch {
	case e.cfg.Prompts.AssumeYes:
		return ux.AssumeYes{Out: e.reporter.Writer()}
	case e.cfg.Prompts.Interactive && tui.ShouldPrompt():
		return tui.Confirmer{Default: false}
	default:
		return ux.NewLineConfirmer(e.in, e.reporter.Writer())
	}
}

func (e *environment) approver(confirm ux.Confirmer) guardian.Approver {
	base := guardian.ConfirmApprover{Confirmer: confirm, Reporter: e.reporter}
	if e.cctx.TUI && !e.cfg.Prompts.AssumeYes && tui.ShouldPrompt() {
		return guardian.GateApprover{Fallback: base}
	}
	return base
}

func (e *environment) pipeline() *guardian.Pipeline {
	confirm := e.confirmer()
	return guardian.New(e.cfg, guardian.Options{
		Session:   e.session,
		Confirmer: confirm,
		Approver:  e.approver(confirm),
		Reporter:  e.reporter,
		Metrics:   e.metrics,
		In:        e.in,
	})
}

// formatter writes machine or human output to stdout.
func (e *environment) formatter(cmd *cobra.Command) (ux.Formatter, error) {
	return ux.NewFormatter(e.cctx.Format, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
}

// finish records the command result on its span and passes err through.
func (e *environment) finish(err error) error {
	if e.span != nil {
		telemetry.RecordError(e.span, err)
	}
	return err
}

func (e *environment) Close() {
	if e.span != nil {
		e.span.End()
	}
	if e.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := e.shutdown(ctx); err != nil {
			e.logger.Warn("trace export failed", "error", err)
		}
		cancel()
	}
	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = e.server.Shutdown(ctx)
		cancel()
	}
	e.logger.Info("command finished")
	_ = e.logOut.Close()
}

// reportEarly prints an error raised before the session reporter exists.
func (c *CommandContext) reportEarly(cmd *cobra.Command, err error) error {
	ux.NewReporter(cmd.ErrOrStderr(), nil, c.NoColor).Fail(err)
	return err
}

func (c *CommandContext) loadConfigReported(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, c.reportEarly(cmd, err)
	}
	return cfg, nil
}
