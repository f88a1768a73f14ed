// Package prereq verifies the runtime, package manager and application in
// that order, offering remediation when one is missing.
package prereq

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/guardian/internal/browser"
	"github.com/felixgeelhaar/guardian/internal/config"
	gerrors "github.com/felixgeelhaar/guardian/internal/errors"
	"github.com/felixgeelhaar/guardian/internal/metrics"
	"github.com/felixgeelhaar/guardian/internal/resolve"
	"github.com/felixgeelhaar/guardian/internal/runner"
	"github.com/felixgeelhaar/guardian/internal/session"
	"github.com/felixgeelhaar/guardian/internal/ux"
)

// Tooling names the three programs and how to remediate them.
type Tooling struct {
	Runtime                string
	MinMajor               int
	DownloadURL            string
	MaxRemediationAttempts int
	PackageManager         string
	App                    string
	Package                string
	OnDemandRunner         string
}

// ToolingFromConfig extracts the tooling section of the configuration.
func ToolingFromConfig(cfg *config.Config) Tooling {
	return Tooling{
		Runtime:                cfg.Runtime.Command,
		MinMajor:               cfg.Runtime.MinMajor,
		DownloadURL:            cfg.Runtime.DownloadURL,
		MaxRemediationAttempts: cfg.Runtime.MaxRemediationAttempts,
		PackageManager:         cfg.PackageManager.Command,
		App:                    cfg.App.Name,
		Package:                cfg.App.Package,
		OnDemandRunner:         cfg.App.OnDemandRunner,
	}
}

// Deps are the collaborators a Checker needs.
type Deps struct {
	Runner    runner.Runner
	Resolver  *resolve.Resolver
	Session   *session.Session
	Confirmer ux.Confirmer
	Browser   browser.Opener
	Reporter  *ux.Reporter
	Metrics   *metrics.Metrics
}

// Checker runs the prerequisite state machine once per session.
type Checker struct {
	tooling Tooling
	deps    Deps
}

// NewChecker creates a Checker.
func NewChecker(tooling Tooling, deps Deps) *Checker {
	if tooling.MaxRemediationAttempts < 1 {
		tooling.MaxRemediationAttempts = 1
	}
	if deps.Browser == nil {
		deps.Browser = browser.System{}
	}
	if deps.Reporter == nil {
		deps.Reporter = ux.NewReporter(io.Discard, nil, true)
	}
	if deps.Session == nil {
		deps.Session = session.New()
	}
	return &Checker{tooling: tooling, deps: deps}
}

// Run verifies runtime, package manager and application in order and stops
// at the first one that is not satisfied. The returned statuses cover every
// prerequisite that was examined.
func (c *Checker) Run() ([]*Status, error) {
	steps := []func() (*Status, error){
		c.CheckRuntime,
		c.CheckPackageManager,
		c.CheckApplication,
	}

	var statuses []*Status
	for _, step := range steps {
		st, err := step()
		statuses = append(statuses, st)
		c.deps.Metrics.RecordPrerequisite(string(st.Name), st.State.String())
		if err != nil {
			return statuses, err
		}
	}
	return statuses, nil
}

// ParseMajor extracts the major version from output like "v20.11.0".
func ParseMajor(version string) (int, error) {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	if i := strings.IndexByte(v, '.'); i >= 0 {
		v = v[:i]
	}
	return strconv.Atoi(v)
}

// CheckRuntime probes the runtime and, when it is missing or too old, walks
// the operator through installing it. The loop is bounded so a run where
// every prompt is auto-approved still terminates.
func (c *Checker) CheckRuntime() (*Status, error) {
	t := c.tooling
	r := c.deps.Reporter
	st := &Status{Name: Runtime, Invocation: t.Runtime}

	r.Info(fmt.Sprintf("Checking %s...", t.Runtime))
	for attempt := 0; ; attempt++ {
		res := c.deps.Runner.Run(t.Runtime + " --version")
		if res.OK() {
			st.Version = res.FirstLine()
			major, err := ParseMajor(st.Version)
			switch {
			case err != nil:
				r.Warn(fmt.Sprintf("Could not parse %s version %q; continuing", t.Runtime, st.Version))
				return c.runtimeVerified(st, attempt), nil
			case major >= t.MinMajor:
				r.Success(fmt.Sprintf("%s found: %s", t.Runtime, st.Version))
				return c.runtimeVerified(st, attempt), nil
			default:
				r.Warn(fmt.Sprintf("%s %s detected; %s %d or newer is required", t.Runtime, st.Version, t.Runtime, t.MinMajor))
			}
		} else {
			r.Error(fmt.Sprintf("%s is not installed", t.Runtime))
		}

		if attempt >= t.MaxRemediationAttempts {
			st.settle(Failed, fmt.Sprintf("still missing after %d remediation attempts", attempt))
			err := gerrors.NewRuntimeMissingError(t.Runtime, t.MinMajor, t.DownloadURL)
			r.Fail(err)
			return st, err
		}

		r.Warn(fmt.Sprintf("%s %d or newer is required; download it from %s", t.Runtime, t.MinMajor, t.DownloadURL))
		if !c.deps.Confirmer.Confirm("Open the download page now?") {
			st.settle(MissingUserDeclined, "operator declined installation")
			r.Error(fmt.Sprintf("Installation cancelled; cannot continue without %s", t.Runtime))
			return st, gerrors.NewRuntimeDeclinedError(t.Runtime)
		}
		if err := c.deps.Browser.Open(t.DownloadURL); err != nil {
			r.Warn(fmt.Sprintf("Could not open a browser (%v); visit %s", err, t.DownloadURL))
		} else {
			r.Info("Download page opened in the browser")
		}
		if !c.deps.Confirmer.Confirm(fmt.Sprintf("Re-check %s now?", t.Runtime)) {
			st.settle(MissingUserDeclined, "operator did not re-check after opening the download page")
			r.Error(fmt.Sprintf("Re-check skipped; cannot continue without %s", t.Runtime))
			return st, gerrors.NewRuntimeDeclinedError(t.Runtime)
		}
	}
}

func (c *Checker) runtimeVerified(st *Status, attempt int) *Status {
	state := Verified
	if attempt > 0 {
		state = MissingRemediated
	}
	st.settle(state, "")
	st.Method = resolve.Direct.String()
	c.deps.Session.Record(&resolve.Executable{Name: c.tooling.Runtime, Invocation: c.tooling.Runtime, Method: resolve.Direct})
	return st
}

// CheckPackageManager probes the package manager through PATH, then in the
// well-known install directories, then through where/which.
func (c *Checker) CheckPackageManager() (*Status, error) {
	t := c.tooling
	r := c.deps.Reporter
	st := &Status{Name: PackageManager}

	r.Info(fmt.Sprintf("Checking %s...", t.PackageManager))
	if res := c.deps.Runner.Run(t.PackageManager + " --version"); res.OK() {
		st.Version = res.FirstLine()
		c.verify(st, Verified, &resolve.Executable{Name: t.PackageManager, Invocation: t.PackageManager, Method: resolve.Direct})
		r.Success(fmt.Sprintf("%s found: %s", t.PackageManager, st.Version))
		return st, nil
	}

	r.Warn(fmt.Sprintf("%s not found in PATH; searching common locations...", t.PackageManager))
	if exe, version, ok := c.locate(t.PackageManager); ok {
		st.Version = version
		c.verify(st, VerifiedViaFallback, exe)
		return st, nil
	}

	st.settle(Failed, "not found in PATH, well-known locations or "+c.deps.Resolver.LocateCommand(t.PackageManager))
	err := gerrors.NewPackageManagerMissingError(t.PackageManager, t.Runtime, t.DownloadURL)
	r.Fail(err)
	return st, err
}

// CheckApplication verifies the application is executable, falling back to
// a well-known path, where/which and then on-demand execution. When every
// fallback fails the operator may approve a reinstall, after which
// verification runs once more.
func (c *Checker) CheckApplication() (*Status, error) {
	t := c.tooling
	r := c.deps.Reporter
	st := &Status{Name: Application}

	r.Info(fmt.Sprintf("Checking that %s is executable...", t.App))
	if exe, version, ok := c.probeApplication(); ok {
		state := VerifiedViaFallback
		if exe.Method == resolve.Direct {
			state = Verified
		}
		st.Version = version
		c.verify(st, state, exe)
		return st, nil
	}

	missing := gerrors.NewApplicationMissingError(t.App, t.PackageManager, t.Package, t.OnDemandRunner)
	r.Fail(missing)

	if !c.deps.Confirmer.Confirm(fmt.Sprintf("Try reinstalling %s?", t.App)) {
		st.settle(Failed, "operator declined reinstall")
		return st, missing
	}

	pm := c.deps.Session.Invocation(t.PackageManager, t.PackageManager)
	r.Info(fmt.Sprintf("Reinstalling %s...", t.Package))
	if res := c.deps.Runner.Run(fmt.Sprintf("%s uninstall -g %s", pm, t.Package)); res.OK() {
		r.Success(fmt.Sprintf("%s uninstalled", t.Package))
	} else {
		r.Warn(fmt.Sprintf("Uninstall of %s reported %s; continuing with install", t.Package, res.Failure))
	}

	res := c.deps.Runner.Run(fmt.Sprintf("%s install -g %s", pm, t.Package))
	if !res.OK() {
		st.settle(Failed, "reinstall failed")
		err := gerrors.NewInstallFailedError(t.Package, fmt.Errorf("%s", strings.TrimSpace(res.Output())))
		r.Fail(err)
		return st, err
	}
	r.Success(fmt.Sprintf("%s reinstalled", t.Package))

	if exe, version, ok := c.probeApplication(); ok {
		st.Version = version
		c.verify(st, MissingRemediated, exe)
		return st, nil
	}

	st.settle(Failed, "still not executable after reinstall")
	r.Fail(missing)
	return st, missing
}

func (c *Checker) probeApplication() (*resolve.Executable, string, bool) {
	t := c.tooling
	r := c.deps.Reporter

	if res := c.deps.Runner.Run(t.App + " --version"); res.OK() {
		r.Success(fmt.Sprintf("%s executable found: %s", t.App, res.FirstLine()))
		return &resolve.Executable{Name: t.App, Invocation: t.App, Method: resolve.Direct}, res.FirstLine(), true
	}

	r.Warn(fmt.Sprintf("%s is not directly executable; searching for a specific path...", t.App))
	if exe, version, ok := c.locate(t.App); ok {
		return exe, version, true
	}

	if t.OnDemandRunner != "" {
		inv := t.OnDemandRunner + " " + t.App
		r.Warn(fmt.Sprintf("Trying %s...", inv))
		if res := c.deps.Runner.Run(inv + " --version"); res.OK() {
			r.Success(fmt.Sprintf("%s executable via %s: %s", t.App, t.OnDemandRunner, res.FirstLine()))
			return &resolve.Executable{Name: t.App, Invocation: inv, Method: resolve.Fallback}, res.FirstLine(), true
		}
	}
	return nil, "", false
}

// locate tries the well-known install directories and then where/which.
// A candidate only counts once "<path> --version" succeeds.
func (c *Checker) locate(name string) (*resolve.Executable, string, bool) {
	if path, ok := c.deps.Resolver.Search(name); ok {
		if exe, version, ok := c.probePath(name, path, resolve.WellKnownPath); ok {
			return exe, version, true
		}
	}

	c.deps.Reporter.Info(fmt.Sprintf("Asking the system: %s", c.deps.Resolver.LocateCommand(name)))
	if path, ok := c.deps.Resolver.Locate(name); ok {
		if exe, version, ok := c.probePath(name, path, resolve.SystemLocate); ok {
			return exe, version, true
		}
	}
	return nil, "", false
}

func (c *Checker) probePath(name, path string, method resolve.Method) (*resolve.Executable, string, bool) {
	inv := resolve.Quote(path)
	res := c.deps.Runner.Run(inv + " --version")
	if !res.OK() {
		return nil, "", false
	}
	c.deps.Reporter.Success(fmt.Sprintf("%s found at %s: %s", name, path, res.FirstLine()))
	return &resolve.Executable{Name: name, Invocation: inv, Method: method}, res.FirstLine(), true
}

func (c *Checker) verify(st *Status, state State, exe *resolve.Executable) {
	if !st.settle(state, "") {
		return
	}
	st.Invocation = exe.Invocation
	st.Method = exe.Method.String()
	c.deps.Session.Record(exe)
	c.deps.Metrics.RecordResolution(exe.Name, exe.Method.String())
}
