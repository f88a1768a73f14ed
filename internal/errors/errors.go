package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Tooling errors (TOOL-001 to TOOL-099)
	ErrCodeRuntimeMissing        ErrorCode = "TOOL-001"
	ErrCodePackageManagerMissing ErrorCode = "TOOL-002"
	ErrCodeApplicationMissing    ErrorCode = "TOOL-003"
	ErrCodeOperatorDeclined      ErrorCode = "TOOL-004"
	ErrCodeInstallFailed         ErrorCode = "TOOL-005"

	// Command errors (CMD-001 to CMD-099)
	ErrCodeCommandFailed   ErrorCode = "CMD-001"
	ErrCodeCommandNotFound ErrorCode = "CMD-002"

	// Audit errors (AUDIT-001 to AUDIT-099)
	ErrCodeAuditUnavailable ErrorCode = "AUDIT-001"
	ErrCodeAuditLogFailed   ErrorCode = "AUDIT-002"

	// Process errors (PROC-001 to PROC-099)
	ErrCodeProcessUnstable     ErrorCode = "PROC-001"
	ErrCodeProcessLaunchFailed ErrorCode = "PROC-002"
	ErrCodeProcessStopFailed   ErrorCode = "PROC-003"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"
	ErrCodeConfigLoad    ErrorCode = "CONFIG-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeDirectoryFailed ErrorCode = "IO-004"

	// Anything that escaped the component boundaries
	ErrCodeUnexpected ErrorCode = "INTERNAL-001"
)

// GuardianError represents an enhanced error with code, suggestions, and documentation
type GuardianError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *GuardianError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *GuardianError) Unwrap() error {
	return e.Cause
}

// Category returns the code prefix, e.g. "TOOL" for "TOOL-001".
func (e *GuardianError) Category() string {
	code := string(e.Code)
	if idx := strings.IndexByte(code, '-'); idx > 0 {
		return code[:idx]
	}
	return code
}

// New creates a new GuardianError
func New(code ErrorCode, message string) *GuardianError {
	return &GuardianError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new GuardianError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *GuardianError {
	return &GuardianError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *GuardianError) WithSuggestion(suggestion string) *GuardianError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *GuardianError) WithSuggestions(suggestions ...string) *GuardianError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *GuardianError) WithDocs(url string) *GuardianError {
	e.DocsURL = url
	return e
}

// Common error constructors for frequently used errors

// NewRuntimeMissingError creates a runtime not installed (or too old) error
func NewRuntimeMissingError(runtime string, minMajor int, downloadURL string) *GuardianError {
	return New(ErrCodeRuntimeMissing, fmt.Sprintf("%s %d or newer is required", runtime, minMajor)).
		WithSuggestion(fmt.Sprintf("Install %s from %s", runtime, downloadURL)).
		WithSuggestion("Open a new terminal after installing so PATH is refreshed").
		WithDocs(downloadURL)
}

// NewRuntimeDeclinedError is returned when the operator declines installing the runtime
func NewRuntimeDeclinedError(runtime string) *GuardianError {
	return New(ErrCodeOperatorDeclined, fmt.Sprintf("installation of %s was declined; cannot continue without it", runtime))
}

// NewPackageManagerMissingError creates a package manager not found error
func NewPackageManagerMissingError(pm, runtime, downloadURL string) *GuardianError {
	return New(ErrCodePackageManagerMissing, fmt.Sprintf("%s is not available on this system", pm)).
		WithSuggestion(fmt.Sprintf("Reinstall %s from %s", runtime, downloadURL)).
		WithSuggestion("Close and reopen your shell").
		WithSuggestion("Check the PATH environment variable")
}

// NewApplicationMissingError creates an application not executable error
func NewApplicationMissingError(app, pm, pkg, onDemand string) *GuardianError {
	return New(ErrCodeApplicationMissing, fmt.Sprintf("%s is not executable on this system", app)).
		WithSuggestion(fmt.Sprintf("Reinstall it: %s install -g %s", pm, pkg)).
		WithSuggestion(fmt.Sprintf("Run it on demand: %s %s (slower, but works)", onDemand, app)).
		WithSuggestion("Check PATH and file permissions")
}

// NewInstallFailedError creates an install/update failure error
func NewInstallFailedError(pkg string, cause error) *GuardianError {
	return Wrap(ErrCodeInstallFailed, fmt.Sprintf("failed to install %s", pkg), cause).
		WithSuggestion("Check your network connection and registry access").
		WithSuggestion("Retry with elevated permissions if global installs require them")
}

// NewProcessUnstableError creates an error for a process that exited during startup
func NewProcessUnstableError(command string, stderr string) *GuardianError {
	err := New(ErrCodeProcessUnstable, fmt.Sprintf("%s exited during startup", command))
	if stderr = strings.TrimSpace(stderr); stderr != "" {
		err.Cause = fmt.Errorf("%s", stderr)
	}
	return err.WithSuggestion("Check the application's own logs for the reason it stopped").
		WithSuggestion("Make sure the application port is not already in use")
}

// NewProcessLaunchError creates an error for a process that could not be spawned
func NewProcessLaunchError(command string, cause error) *GuardianError {
	return Wrap(ErrCodeProcessLaunchFailed, fmt.Sprintf("failed to launch %s", command), cause).
		WithSuggestion("Run 'guardian doctor' to verify the application is executable")
}

// NewUnexpectedError wraps anything that escaped its component
func NewUnexpectedError(cause error) *GuardianError {
	return Wrap(ErrCodeUnexpected, "unexpected error", cause)
}

// NewConfigInvalidError creates a configuration validation error
func NewConfigInvalidError(details string) *GuardianError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Check guardian.yaml and GUARDIAN_* environment variables")
}

// NewFileReadError creates a file read error
func NewFileReadError(path string, cause error) *GuardianError {
	return Wrap(ErrCodeFileReadFailed, fmt.Sprintf("failed to read %s", path), cause).
		WithSuggestion("Verify the file exists and you have read permissions")
}
