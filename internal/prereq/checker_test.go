package prereq

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/guardian/internal/browser"
	gerrors "github.com/felixgeelhaar/guardian/internal/errors"
	"github.com/felixgeelhaar/guardian/internal/resolve"
	"github.com/felixgeelhaar/guardian/internal/runner/runnertest"
	"github.com/felixgeelhaar/guardian/internal/session"
	"github.com/felixgeelhaar/guardian/internal/ux"
)

var testTooling = Tooling{
	Runtime:                "node",
	MinMajor:               18,
	DownloadURL:            "https://nodejs.org/",
	MaxRemediationAttempts: 3,
	PackageManager:         "npm",
	App:                    "n8n",
	Package:                "n8n",
	OnDemandRunner:         "npx",
}

type answers []bool

// confirmer replays answers in order and records every prompt.
func (a *answers) confirmer(prompts *[]string) ux.Confirmer {
	return ux.ConfirmFunc(func(p string) bool {
		*prompts = append(*prompts, p)
		if len(*a) == 0 {
			return false
		}
		next := (*a)[0]
		*a = (*a)[1:]
		return next
	})
}

type fixture struct {
	script   *runnertest.Script
	session  *session.Session
	browser  *browser.Recorder
	prompts  []string
	answers  answers
	dirs     []string
	terminal bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{script: runnertest.New(), session: session.New(), browser: &browser.Recorder{}}
}

func (f *fixture) checker() *Checker {
	return NewChecker(testTooling, Deps{
		Runner:    f.script,
		Resolver:  resolve.New(f.script, resolve.WithGOOS("linux"), resolve.WithDirs(f.dirs...)),
		Session:   f.session,
		Confirmer: f.answers.confirmer(&f.prompts),
		Browser:   f.browser,
		Reporter:  ux.NewReporter(&f.terminal, nil, true),
	})
}

func requireCode(t *testing.T, err error, code gerrors.ErrorCode) {
	t.Helper()
	var gErr *gerrors.GuardianError
	require.ErrorAs(t, err, &gErr)
	assert.Equal(t, code, gErr.Code)
}

func TestParseMajor(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"v20.11.0", 20, false},
		{"18.0.0\n", 18, false},
		{"v8", 8, false},
		{"nightly", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMajor(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestAllVerifiedDirectly(t *testing.T) {
	f := newFixture(t)
	f.script.
		On("node --version", runnertest.OK("v20.11.0\n")).
		On("npm --version", runnertest.OK("10.2.4\n")).
		On("n8n --version", runnertest.OK("1.40.0\n"))

	statuses, err := f.checker().Run()

	require.NoError(t, err)
	require.Len(t, statuses, 3)
	for _, st := range statuses {
		assert.Equal(t, Verified, st.State, st.Name)
	}
	assert.Equal(t, "v20.11.0", statuses[0].Version)
	assert.Equal(t, "npm", f.session.Invocation("npm", ""))
	assert.Equal(t, "n8n", f.session.Invocation("n8n", ""))
	assert.Empty(t, f.prompts)
}

func TestRuntimeDeclined(t *testing.T) {
	f := newFixture(t)
	f.answers = answers{false}

	statuses, err := f.checker().Run()

	requireCode(t, err, gerrors.ErrCodeOperatorDeclined)
	require.Len(t, statuses, 1)
	assert.Equal(t, MissingUserDeclined, statuses[0].State)
	assert.Equal(t, []string{"node --version"}, f.script.Calls())
	assert.Empty(t, f.browser.Opened)
}

func TestRuntimeTooOldRemediated(t *testing.T) {
	f := newFixture(t)
	f.script.
		On("node --version", runnertest.OK("v16.20.0\n"), runnertest.OK("v20.11.0\n")).
		On("npm --version", runnertest.OK("10.2.4\n")).
		On("n8n --version", runnertest.OK("1.40.0\n"))
	f.answers = answers{true, true}

	statuses, err := f.checker().Run()

	require.NoError(t, err)
	assert.Equal(t, MissingRemediated, statuses[0].State)
	assert.True(t, statuses[0].State.Satisfied())
	assert.Equal(t, []string{"https://nodejs.org/"}, f.browser.Opened)
	assert.Len(t, f.prompts, 2)
}

func TestRuntimeUnparseableVersionAccepted(t *testing.T) {
	f := newFixture(t)
	f.script.On("node --version", runnertest.OK("nightly-build\n"))

	st, err := f.checker().CheckRuntime()

	require.NoError(t, err)
	assert.Equal(t, Verified, st.State)
	assert.Contains(t, f.terminal.String(), "Could not parse")
}

func TestRuntimeRemediationIsBounded(t *testing.T) {
	f := newFixture(t)
	f.answers = answers{true, true, true, true, true, true, true, true}

	st, err := f.checker().CheckRuntime()

	requireCode(t, err, gerrors.ErrCodeRuntimeMissing)
	assert.Equal(t, Failed, st.State)
	assert.Equal(t, 4, f.script.Count("node --version"))
	assert.Len(t, f.browser.Opened, 3)
}

func TestRuntimeBrowserFailureStillRechecks(t *testing.T) {
	f := newFixture(t)
	f.browser.Err = os.ErrPermission
	f.script.On("node --version", runnertest.NotFound(), runnertest.OK("v22.1.0"))
	f.answers = answers{true, true}

	st, err := f.checker().CheckRuntime()

	require.NoError(t, err)
	assert.Equal(t, MissingRemediated, st.State)
	assert.Contains(t, f.terminal.String(), "visit https://nodejs.org/")
}

func TestPackageManagerViaWellKnownPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "Program Files", "nodejs")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	npm := filepath.Join(dir, "npm")
	require.NoError(t, os.WriteFile(npm, nil, 0o755))
	quoted := `"` + npm + `"`

	f := newFixture(t)
	f.dirs = []string{dir}
	f.script.On(quoted+" --version", runnertest.OK("10.2.4\n"))

	st, err := f.checker().CheckPackageManager()

	require.NoError(t, err)
	assert.Equal(t, VerifiedViaFallback, st.State)
	assert.Equal(t, quoted, st.Invocation)
	assert.Equal(t, quoted, f.session.Invocation("npm", "npm"))
}

func TestPackageManagerMissing(t *testing.T) {
	f := newFixture(t)

	st, err := f.checker().CheckPackageManager()

	requireCode(t, err, gerrors.ErrCodePackageManagerMissing)
	assert.Equal(t, Failed, st.State)
}

func TestPackageManagerViaSystemLocate(t *testing.T) {
	f := newFixture(t)
	f.dirs = []string{t.TempDir()}
	f.script.
		On("which npm", runnertest.OK("/custom/bin/npm\n")).
		On("/custom/bin/npm --version", runnertest.OK("10.2.0\n"))

	st, err := f.checker().CheckPackageManager()

	require.NoError(t, err)
	assert.Equal(t, VerifiedViaFallback, st.State)
	assert.Equal(t, "system-locate", st.Method)
	assert.Equal(t, "10.2.0", st.Version)
	assert.Equal(t, "/custom/bin/npm", f.session.Invocation("npm", "npm"))
	assert.Equal(t, []string{"npm --version", "which npm", "/custom/bin/npm --version"}, f.script.Calls())
}

func TestPackageManagerLocatedButNotRunnable(t *testing.T) {
	f := newFixture(t)
	f.script.
		On("which npm", runnertest.OK("/custom/bin/npm\n")).
		On("/custom/bin/npm --version", runnertest.Exit(1, "", "broken install"))

	st, err := f.checker().CheckPackageManager()

	requireCode(t, err, gerrors.ErrCodePackageManagerMissing)
	assert.Equal(t, Failed, st.State)
	assert.Contains(t, st.Detail, "which npm")
}

func TestApplicationViaSystemLocate(t *testing.T) {
	f := newFixture(t)
	f.script.
		On("which n8n", runnertest.OK("/opt/my tools/n8n\n")).
		On(`"/opt/my tools/n8n" --version`, runnertest.OK("1.40.0\n"))

	st, err := f.checker().CheckApplication()

	require.NoError(t, err)
	assert.Equal(t, VerifiedViaFallback, st.State)
	assert.Equal(t, "system-locate", st.Method)
	assert.Equal(t, `"/opt/my tools/n8n"`, f.session.Invocation("n8n", "n8n"))
	assert.Zero(t, f.script.Count("npx n8n --version"))
	assert.Empty(t, f.prompts)
}

func TestApplicationOnDemandFallback(t *testing.T) {
	f := newFixture(t)
	f.script.On("npx n8n --version", runnertest.OK("1.40.0\n"))

	st, err := f.checker().CheckApplication()

	require.NoError(t, err)
	assert.Equal(t, VerifiedViaFallback, st.State)
	assert.Equal(t, "fallback", st.Method)
	assert.Equal(t, "npx n8n", f.session.Invocation("n8n", "n8n"))
}

func TestApplicationReinstall(t *testing.T) {
	tests := []struct {
		name      string
		answers   answers
		install   bool
		afterOK   bool
		wantState State
		wantCode  gerrors.ErrorCode
	}{
		{"declined", answers{false}, false, false, Failed, gerrors.ErrCodeApplicationMissing},
		{"install fails", answers{true}, false, false, Failed, gerrors.ErrCodeInstallFailed},
		{"remediated", answers{true}, true, true, MissingRemediated, ""},
		{"still broken", answers{true}, true, false, Failed, gerrors.ErrCodeApplicationMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.answers = tt.answers
			f.script.On("npm uninstall -g n8n", runnertest.OK(""))
			if tt.install {
				f.script.On("npm install -g n8n", runnertest.OK("added 1 package"))
			} else {
				f.script.On("npm install -g n8n", runnertest.Exit(1, "", "EACCES"))
			}
			if tt.afterOK {
				f.script.On("n8n --version", runnertest.NotFound(), runnertest.OK("1.40.0"))
			}

			st, err := f.checker().CheckApplication()

			assert.Equal(t, tt.wantState, st.State)
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			requireCode(t, err, tt.wantCode)
		})
	}
}

func TestStatusIsMonotonic(t *testing.T) {
	st := &Status{Name: Runtime}
	assert.True(t, st.settle(Verified, ""))
	assert.False(t, st.settle(Failed, "late"))
	assert.Equal(t, Verified, st.State)
	assert.Equal(t, "runtime: verified", st.Line())

	st.Version = "v20"
	assert.Equal(t, "runtime: verified (v20)", st.Line())
}

func TestStateSatisfied(t *testing.T) {
	assert.True(t, Verified.Satisfied())
	assert.True(t, VerifiedViaFallback.Satisfied())
	assert.True(t, MissingRemediated.Satisfied())
	assert.False(t, MissingUserDeclined.Satisfied())
	assert.False(t, Failed.Satisfied())
	assert.False(t, Unverified.Satisfied())
	assert.False(t, Unverified.Terminal())
}
