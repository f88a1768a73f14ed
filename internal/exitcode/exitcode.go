package exitcode

import (
	"context"
	"errors"
	"os"
	"strings"

	gerrors "github.com/felixgeelhaar/guardian/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution, including an operator declining to launch
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// PrerequisiteMissing indicates the runtime, package manager or application is unavailable
	PrerequisiteMissing = 3

	// ProcessUnstable indicates the supervised process could not reach a stable state
	ProcessUnstable = 4

	// Interrupted indicates the operator aborted the run (SIGINT)
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if errors.Is(err, context.Canceled) {
		return Interrupted
	}

	var gErr *gerrors.GuardianError
	if errors.As(err, &gErr) {
		switch gErr.Category() {
		case "TOOL":
			return PrerequisiteMissing
		case "PROC":
			return ProcessUnstable
		case "CONFIG":
			return UsageError
		}
		return GeneralError
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "unknown flag") {
		return UsageError
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags, arguments or configuration)"
	case PrerequisiteMissing:
		return "Prerequisite missing"
	case ProcessUnstable:
		return "Supervised process unstable"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
