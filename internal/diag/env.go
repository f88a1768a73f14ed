package diag

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/felixgeelhaar/guardian/internal/prereq"
	"github.com/felixgeelhaar/guardian/internal/session"
)

// CIInfo names the detected CI system, if any.
type CIInfo struct {
	Detected bool
	Name     string
}

// Environment is the host summary printed at the end of the application
// battery and in the startup header.
type Environment struct {
	OS                  string
	Arch                string
	PathMentionsRuntime bool
	PathMentionsPkgMgr  bool
	CI                  CIInfo
	Invocations         map[string]string
}

// ciChecks maps an environment variable to the CI system that sets it.
var ciChecks = []struct{ env, name string }{
	{"GITHUB_ACTIONS", "github"},
	{"GITLAB_CI", "gitlab"},
	{"JENKINS_HOME", "jenkins"},
	{"CIRCLECI", "circleci"},
	{"TRAVIS", "travis"},
	{"BUILDKITE", "buildkite"},
	{"CI", "generic"},
}

// DetectEnvironment inspects getenv and the session. A nil getenv reads the
// process environment; a nil session reports no invocations.
func DetectEnvironment(getenv func(string) string, tooling prereq.Tooling, sess *session.Session) Environment {
	if getenv == nil {
		getenv = os.Getenv
	}

	path := strings.ToLower(getenv("PATH"))
	env := Environment{
		OS:                  runtime.GOOS,
		Arch:                runtime.GOARCH,
		PathMentionsRuntime: mentions(path, tooling.Runtime) || strings.Contains(path, "nodejs"),
		PathMentionsPkgMgr:  mentions(path, tooling.PackageManager),
		CI:                  detectCI(getenv),
		Invocations:         make(map[string]string),
	}

	if sess != nil {
		for name, exe := range sess.Executables() {
			env.Invocations[name] = exe.Invocation
		}
	}
	return env
}

func mentions(path, name string) bool {
	return name != "" && strings.Contains(path, strings.ToLower(name))
}

func detectCI(getenv func(string) string) CIInfo {
	for _, c := range ciChecks {
		if getenv(c.env) != "" {
			return CIInfo{Detected: true, Name: c.name}
		}
	}
	return CIInfo{}
}

// Summary returns the human-readable form.
func (e Environment) Summary() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Platform: %s/%s\n", e.OS, e.Arch)
	fmt.Fprintf(&sb, "PATH mentions runtime: %s\n", yesNo(e.PathMentionsRuntime))
	fmt.Fprintf(&sb, "PATH mentions package manager: %s\n", yesNo(e.PathMentionsPkgMgr))
	if e.CI.Detected {
		fmt.Fprintf(&sb, "CI: %s\n", e.CI.Name)
	} else {
		sb.WriteString("CI: not detected\n")
	}

	if len(e.Invocations) == 0 {
		sb.WriteString("Resolved executables: none yet\n")
		return sb.String()
	}
	sb.WriteString("Resolved executables:\n")
	names := make([]string, 0, len(e.Invocations))
	for name := range e.Invocations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "  %s -> %s\n", name, e.Invocations[name])
	}
	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
