// Package upgrade decides whether the managed application should be
// installed or updated, and applies that decision.
package upgrade

import (
	"context"
	"fmt"
	"io"
	"strings"

	gerrors "github.com/felixgeelhaar/guardian/internal/errors"
	"github.com/felixgeelhaar/guardian/internal/runner"
	"github.com/felixgeelhaar/guardian/internal/session"
	"github.com/felixgeelhaar/guardian/internal/ux"
)

// Decision is the outcome of comparing installed and latest versions.
// Empty versions are absent.
type Decision struct {
	Current      string `json:"current,omitempty" yaml:"current,omitempty"`
	Latest       string `json:"latest,omitempty" yaml:"latest,omitempty"`
	ShouldUpdate bool   `json:"should_update" yaml:"should_update"`
	// Determined is false when the latest version could not be looked up.
	Determined bool `json:"determined" yaml:"determined"`
}

// Gate inspects and reconciles the globally installed package.
type Gate struct {
	runner         runner.Runner
	session        *session.Session
	confirm        ux.Confirmer
	report         *ux.Reporter
	registry       *Registry
	packageManager string
	pkg            string
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithRegistry enables the HTTP fallback for latest-version lookups.
func WithRegistry(r *Registry) GateOption {
	return func(g *Gate) { g.registry = r }
}

// WithReporter sets where progress is printed.
func WithReporter(r *ux.Reporter) GateOption {
	return func(g *Gate) { g.report = r }
}

// NewGate creates a Gate for pkg managed by packageManager. The package
// manager invocation is taken from the session when one was resolved.
func NewGate(run runner.Runner, sess *session.Session, confirm ux.Confirmer, packageManager, pkg string, opts ...GateOption) *Gate {
	g := &Gate{
		runner:         run,
		session:        sess,
		confirm:        confirm,
		packageManager: packageManager,
		pkg:            pkg,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.report == nil {
		g.report = ux.NewReporter(io.Discard, nil, true)
	}
	if g.session == nil {
		g.session = session.New()
	}
	return g
}

func (g *Gate) pm() string {
	return g.session.Invocation(g.packageManager, g.packageManager)
}

// Installed returns the globally installed version: the token after the
// last '@' on the first line naming "<pkg>@".
func (g *Gate) Installed() (string, bool) {
	res := g.runner.Run(fmt.Sprintf("%s list -g %s --depth=0", g.pm(), g.pkg))
	if !res.OK() {
		return "", false
	}
	return ParseInstalled(res.Stdout, g.pkg)
}

// ParseInstalled extracts pkg's version from "<pm> list" output.
func ParseInstalled(output, pkg string) (string, bool) {
	marker := pkg + "@"
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, marker) {
			continue
		}
		v := strings.TrimSpace(line[strings.LastIndex(line, "@")+1:])
		if v == "" {
			return "", false
		}
		return v, true
	}
	return "", false
}

// Latest returns the newest published version, falling back to the
// registry when the package manager cannot answer.
func (g *Gate) Latest(ctx context.Context) (string, bool) {
	res := g.runner.Run(fmt.Sprintf("%s view %s version", g.pm(), g.pkg))
	if res.OK() {
		if v := res.FirstLine(); v != "" {
			return v, true
		}
	}

	if g.registry == nil {
		return "", false
	}
	v, err := g.registry.Latest(ctx, g.pkg)
	if err != nil {
		g.report.Logger().Warn("registry lookup failed", "package", g.pkg, "error", err.Error())
		return "", false
	}
	return v, true
}

// Evaluate compares installed and latest versions.
func (g *Gate) Evaluate(ctx context.Context) Decision {
	var d Decision
	current, ok := g.Installed()
	if !ok {
		return d
	}
	d.Current = current

	latest, ok := g.Latest(ctx)
	if !ok {
		return d
	}
	d.Latest = latest
	d.Determined = true
	d.ShouldUpdate = NeedsUpdate(current, latest)
	return d
}

// Reconcile installs the package when absent and offers an update when a
// newer version exists. Only a failed install is an error; a failed update
// keeps the current installation.
func (g *Gate) Reconcile(ctx context.Context) (Decision, error) {
	r := g.report
	r.Info(fmt.Sprintf("Checking %s installation...", g.pkg))

	current, ok := g.Installed()
	if !ok {
		r.Warn(fmt.Sprintf("%s is not installed globally; installing...", g.pkg))
		res := g.runner.Run(fmt.Sprintf("%s install -g %s", g.pm(), g.pkg))
		if !res.OK() {
			err := gerrors.NewInstallFailedError(g.pkg, fmt.Errorf("%s", strings.TrimSpace(res.Output())))
			r.Fail(err)
			return Decision{}, err
		}
		r.Success(fmt.Sprintf("%s installed", g.pkg))
		installed, _ := g.Installed()
		return Decision{Current: installed}, nil
	}
	r.Success(fmt.Sprintf("%s installed: v%s", g.pkg, current))

	r.Info("Looking up the latest published version...")
	latest, ok := g.Latest(ctx)
	if !ok {
		r.Warn("Cannot determine the latest version; continuing with the installed one")
		return Decision{Current: current}, nil
	}
	d := Decision{Current: current, Latest: latest, Determined: true, ShouldUpdate: NeedsUpdate(current, latest)}
	r.Info(fmt.Sprintf("Latest available: v%s", latest))

	if !d.ShouldUpdate {
		r.Success(fmt.Sprintf("%s is up to date", g.pkg))
		return d, nil
	}

	r.Warn(fmt.Sprintf("New version available: v%s -> v%s", current, latest))
	if !g.confirm.Confirm(fmt.Sprintf("Update %s?", g.pkg)) {
		r.Info("Update skipped")
		return d, nil
	}

	r.Info(fmt.Sprintf("Updating %s...", g.pkg))
	if res := g.runner.Run(fmt.Sprintf("%s update -g %s", g.pm(), g.pkg)); !res.OK() {
		r.Warn(fmt.Sprintf("Update failed (%s); keeping v%s", res.Failure, current))
		return d, nil
	}
	r.Success(fmt.Sprintf("%s updated", g.pkg))
	if updated, ok := g.Installed(); ok {
		d.Current = updated
		d.ShouldUpdate = NeedsUpdate(updated, latest)
	}
	return d, nil
}
