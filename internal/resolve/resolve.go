// Package resolve locates executables that are installed but not reachable
// through the inherited PATH.
package resolve

import (
	"io/fs"
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/felixgeelhaar/guardian/internal/metrics"
	"github.com/felixgeelhaar/guardian/internal/runner"
)

// Method records how an executable was found.
type Method int

const (
	// Direct means "<name> --version" succeeded through PATH.
	Direct Method = iota
	// WellKnownPath means a file was found in a well-known install directory.
	WellKnownPath
	// SystemLocate means where/which reported it.
	SystemLocate
	// Fallback means an alternative invocation such as "npx <name>".
	Fallback
)

// String returns the lowercase method name.
func (m Method) String() string {
	switch m {
	case Direct:
		return "direct"
	case WellKnownPath:
		return "well-known-path"
	case SystemLocate:
		return "system-locate"
	case Fallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Executable is a resolved program and the exact string used to invoke it.
type Executable struct {
	Name string
	// Invocation is quoted when the path contains whitespace.
	Invocation string
	Method     Method
}

// Resolver finds executables by direct probe, well-known directories and
// the platform locate command, in that order.
type Resolver struct {
	runner  runner.Runner
	goos    string
	home    string
	base    []string
	extra   []string
	dirs    []string
	stat    func(string) (fs.FileInfo, error)
	metrics *metrics.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithGOOS overrides the platform, which picks directories, file variants
// and the locate command.
func WithGOOS(goos string) Option {
	return func(r *Resolver) { r.goos = goos }
}

// WithDirs replaces the well-known directory list.
func WithDirs(dirs ...string) Option {
	return func(r *Resolver) { r.base = append([]string{}, dirs...) }
}

// WithExtraDirs adds directories searched before the well-known ones.
func WithExtraDirs(dirs ...string) Option {
	return func(r *Resolver) { r.extra = append(r.extra, dirs...) }
}

// WithHome overrides the home directory used for per-user locations.
func WithHome(home string) Option {
	return func(r *Resolver) { r.home = home }
}

// WithStat overrides the filesystem probe.
func WithStat(stat func(string) (fs.FileInfo, error)) Option {
	return func(r *Resolver) { r.stat = stat }
}

// WithMetrics counts successful resolutions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New creates a Resolver for the current platform and home directory.
func New(run runner.Runner, opts ...Option) *Resolver {
	home, _ := os.UserHomeDir()
	r := &Resolver{
		runner: run,
		goos:   runtime.GOOS,
		home:   home,
		stat:   os.Stat,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.base == nil {
		r.base = DefaultDirs(r.goos, r.home)
	}
	r.dirs = append(append([]string{}, r.extra...), r.base...)
	return r
}

// Dirs returns the directories searched, in order.
func (r *Resolver) Dirs() []string {
	return append([]string(nil), r.dirs...)
}

// DefaultDirs returns the platform's well-known install directories.
func DefaultDirs(goos, home string) []string {
	if goos == "windows" {
		home = strings.TrimRight(home, `\/`)
		return []string{
			`C:\Program Files\nodejs`,
			`C:\Program Files (x86)\nodejs`,
			home + `\AppData\Roaming\npm`,
			home + `\AppData\Local\npm`,
			home + `\AppData\Roaming\npm\node_modules\.bin`,
		}
	}
	return []string{
		"/usr/local/bin",
		"/usr/bin",
		path.Join(home, ".npm-global", "bin"),
		"/opt/nodejs/bin",
		"/opt/homebrew/bin",
	}
}

// Variants returns the file names tried for name in each directory.
func Variants(goos, name string) []string {
	if goos == "windows" {
		return []string{name + ".cmd", name + ".bat", name, name + ".exe"}
	}
	return []string{name}
}

// Quote wraps a path containing whitespace in double quotes.
func Quote(p string) string {
	if strings.ContainsAny(p, " \t") && !strings.HasPrefix(p, `"`) {
		return `"` + p + `"`
	}
	return p
}

// Resolve finds name. The direct probe runs first and, when it succeeds,
// the filesystem is never touched.
func (r *Resolver) Resolve(name string) (*Executable, bool) {
	if res := r.runner.Run(name + " --version"); res.OK() {
		return r.found(name, name, Direct), true
	}

	if p, ok := r.Search(name); ok {
		return r.found(name, Quote(p), WellKnownPath), true
	}

	if p, ok := r.Locate(name); ok {
		return r.found(name, Quote(p), SystemLocate), true
	}

	return nil, false
}

func (r *Resolver) found(name, invocation string, m Method) *Executable {
	r.metrics.RecordResolution(name, m.String())
	return &Executable{Name: name, Invocation: invocation, Method: m}
}

// Search scans the well-known directories in order and returns the first
// regular file matching one of name's variants.
func (r *Resolver) Search(name string) (string, bool) {
	for _, dir := range r.dirs {
		for _, variant := range Variants(r.goos, name) {
			candidate := r.join(dir, variant)
			if r.isFile(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// Candidates lists every well-known path that exists for name.
func (r *Resolver) Candidates(name string) []string {
	var out []string
	for _, dir := range r.dirs {
		for _, variant := range Variants(r.goos, name) {
			candidate := r.join(dir, variant)
			if r.isFile(candidate) {
				out = append(out, candidate)
			}
		}
	}
	return out
}

// LocateCommand returns the platform locate command for name.
func (r *Resolver) LocateCommand(name string) string {
	if r.goos == "windows" {
		return "where " + name
	}
	return "which " + name
}

// Locate asks where/which and returns the first non-empty output line.
func (r *Resolver) Locate(name string) (string, bool) {
	res := r.runner.Run(r.LocateCommand(name))
	if !res.OK() {
		return "", false
	}
	line := res.FirstLine()
	return line, line != ""
}

func (r *Resolver) isFile(name string) bool {
	info, err := r.stat(name)
	return err == nil && info.Mode().IsRegular()
}

// join uses the separator of the target platform rather than the host's.
func (r *Resolver) join(dir, file string) string {
	if r.goos == "windows" {
		return strings.TrimRight(dir, `\/`) + `\` + file
	}
	return strings.TrimRight(dir, "/") + "/" + file
}
