package prereq

import "fmt"

// Name identifies one of the three prerequisites.
type Name string

const (
	Runtime        Name = "runtime"
	PackageManager Name = "package-manager"
	Application    Name = "application"
)

// State is the verification state of a prerequisite.
type State int

const (
	Unverified State = iota
	Verified
	VerifiedViaFallback
	MissingUserDeclined
	// MissingRemediated means the prerequisite was missing, an approved
	// remediation ran and re-verification passed.
	MissingRemediated
	Failed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Unverified:
		return "unverified"
	case Verified:
		return "verified"
	case VerifiedViaFallback:
		return "verified-via-fallback"
	case MissingUserDeclined:
		return "missing-user-declined"
	case MissingRemediated:
		return "missing-remediated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state can no longer change.
func (s State) Terminal() bool {
	return s != Unverified
}

// Satisfied reports whether the pipeline may proceed past this prerequisite.
func (s State) Satisfied() bool {
	return s == Verified || s == VerifiedViaFallback || s == MissingRemediated
}

// MarshalText renders the state by name in JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is the outcome of verifying one prerequisite.
type Status struct {
	Name       Name   `json:"name" yaml:"name"`
	State      State  `json:"state" yaml:"state"`
	Version    string `json:"version,omitempty" yaml:"version,omitempty"`
	Invocation string `json:"invocation,omitempty" yaml:"invocation,omitempty"`
	Method     string `json:"method,omitempty" yaml:"method,omitempty"`
	Detail     string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// settle moves the status to a terminal state. It is a no-op once the
// status is already terminal.
func (s *Status) settle(state State, detail string) bool {
	if s.State.Terminal() {
		return false
	}
	s.State = state
	s.Detail = detail
	return true
}

// Line is a one-line summary, e.g. "runtime: verified (v20.11.0)".
func (s *Status) Line() string {
	if s.Version == "" {
		return fmt.Sprintf("%s: %s", s.Name, s.State)
	}
	return fmt.Sprintf("%s: %s (%s)", s.Name, s.State, s.Version)
}
