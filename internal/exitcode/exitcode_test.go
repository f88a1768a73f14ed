package exitcode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	gerrors "github.com/felixgeelhaar/guardian/internal/errors"
)

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected int
	}{
		{"Success", Success, 0},
		{"GeneralError", GeneralError, 1},
		{"UsageError", UsageError, 2},
		{"PrerequisiteMissing", PrerequisiteMissing, 3},
		{"ProcessUnstable", ProcessUnstable, 4},
		{"Interrupted", Interrupted, 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.expected {
				t.Errorf("Exit code %s = %d, want %d", tt.name, tt.code, tt.expected)
			}
		})
	}
}

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "nil error returns success",
			err:      nil,
			expected: Success,
		},
		{
			name:     "runtime missing",
			err:      gerrors.NewRuntimeMissingError("node", 18, "https://nodejs.org/"),
			expected: PrerequisiteMissing,
		},
		{
			name:     "wrapped application missing",
			err:      fmt.Errorf("prerequisites: %w", gerrors.NewApplicationMissingError("n8n", "npm", "n8n", "npx")),
			expected: PrerequisiteMissing,
		},
		{
			name:     "process unstable",
			err:      gerrors.NewProcessUnstableError("n8n", ""),
			expected: ProcessUnstable,
		},
		{
			name:     "invalid config",
			err:      gerrors.NewConfigInvalidError("poll interval must be positive"),
			expected: UsageError,
		},
		{
			name:     "unexpected",
			err:      gerrors.NewUnexpectedError(errors.New("boom")),
			expected: GeneralError,
		},
		{
			name:     "context cancelled",
			err:      fmt.Errorf("launch: %w", context.Canceled),
			expected: Interrupted,
		},
		{
			name:     "unknown command",
			err:      errors.New(`unknown command "frobnicate" for "guardian"`),
			expected: UsageError,
		},
		{
			name:     "plain error",
			err:      errors.New("something else"),
			expected: GeneralError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineExitCode(tt.err); got != tt.expected {
				t.Errorf("DetermineExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	for _, code := range []int{Success, GeneralError, UsageError, PrerequisiteMissing, ProcessUnstable, Interrupted} {
		if desc := GetExitCodeDescription(code); desc == "Unknown error" {
			t.Errorf("code %d should have a description", code)
		}
	}
	if desc := GetExitCodeDescription(99); desc != "Unknown error" {
		t.Errorf("unexpected description for unknown code: %q", desc)
	}
}
