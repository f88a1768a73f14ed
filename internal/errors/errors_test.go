package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeRuntimeMissing, "test error message")

	if err.Code != ErrCodeRuntimeMissing {
		t.Errorf("expected code %s, got %s", ErrCodeRuntimeMissing, err.Code)
	}

	if err.Message != "test error message" {
		t.Errorf("expected message 'test error message', got '%s'", err.Message)
	}

	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrap(ErrCodeFileReadFailed, "failed to read file", cause)

	if err.Cause != cause {
		t.Errorf("expected cause to be set")
	}

	if !errors.Is(err, cause) {
		t.Errorf("Wrap should support errors.Is")
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *GuardianError
		wantCode string
		wantMsg  string
	}{
		{
			name:     "simple error",
			err:      New(ErrCodeProcessUnstable, "process died"),
			wantCode: "PROC-001",
			wantMsg:  "process died",
		},
		{
			name:     "error with cause",
			err:      Wrap(ErrCodeFileReadFailed, "read failed", fmt.Errorf("permission denied")),
			wantCode: "IO-002",
			wantMsg:  "permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()

			if !strings.Contains(errStr, tt.wantCode) {
				t.Errorf("error string should contain code %s, got: %s", tt.wantCode, errStr)
			}

			if !strings.Contains(errStr, tt.wantMsg) {
				t.Errorf("error string should contain message '%s', got: %s", tt.wantMsg, errStr)
			}
		})
	}
}

func TestWithSuggestions(t *testing.T) {
	err := New(ErrCodeCommandFailed, "command failed").
		WithSuggestion("Suggestion 1").
		WithSuggestions("Suggestion 2", "Suggestion 3")

	if len(err.Suggestions) != 3 {
		t.Errorf("expected 3 suggestions, got %d", len(err.Suggestions))
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "Suggestions:") {
		t.Errorf("error string should contain suggestions section")
	}
	for _, suggestion := range err.Suggestions {
		if !strings.Contains(errStr, suggestion) {
			t.Errorf("error string should contain suggestion: %s", suggestion)
		}
	}
}

func TestWithDocs(t *testing.T) {
	err := New(ErrCodeConfigInvalid, "bad config").WithDocs("https://nodejs.org/")

	if !strings.Contains(err.Error(), "Documentation: https://nodejs.org/") {
		t.Errorf("error string should contain docs URL, got: %s", err.Error())
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeRuntimeMissing, "TOOL"},
		{ErrCodeProcessUnstable, "PROC"},
		{ErrCodeUnexpected, "INTERNAL"},
		{ErrorCode("PLAIN"), "PLAIN"},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := New(tt.code, "x").Category(); got != tt.want {
				t.Errorf("Category() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRuntimeMissingError(t *testing.T) {
	err := NewRuntimeMissingError("node", 18, "https://nodejs.org/")

	if err.Code != ErrCodeRuntimeMissing {
		t.Errorf("expected code %s, got %s", ErrCodeRuntimeMissing, err.Code)
	}
	if !strings.Contains(err.Message, "node 18") {
		t.Errorf("message should name runtime and version, got %q", err.Message)
	}
	if err.DocsURL != "https://nodejs.org/" {
		t.Errorf("expected docs URL to be the download page")
	}
}

func TestNewPackageManagerMissingError(t *testing.T) {
	err := NewPackageManagerMissingError("npm", "node", "https://nodejs.org/")

	if err.Code != ErrCodePackageManagerMissing {
		t.Errorf("expected code %s, got %s", ErrCodePackageManagerMissing, err.Code)
	}
	if len(err.Suggestions) != 3 {
		t.Errorf("expected 3 suggestions, got %d", len(err.Suggestions))
	}
}

func TestNewApplicationMissingError(t *testing.T) {
	err := NewApplicationMissingError("n8n", "npm", "n8n", "npx")

	errStr := err.Error()
	if !strings.Contains(errStr, "npm install -g n8n") {
		t.Errorf("suggestions should mention the reinstall command, got: %s", errStr)
	}
	if !strings.Contains(errStr, "npx n8n") {
		t.Errorf("suggestions should mention on-demand execution, got: %s", errStr)
	}
}

func TestNewProcessUnstableError(t *testing.T) {
	withStderr := NewProcessUnstableError("n8n", "  port 5678 in use\n")
	if withStderr.Cause == nil || withStderr.Cause.Error() != "port 5678 in use" {
		t.Errorf("expected trimmed stderr as cause, got %v", withStderr.Cause)
	}

	without := NewProcessUnstableError("n8n", "   ")
	if without.Cause != nil {
		t.Errorf("expected no cause for blank stderr, got %v", without.Cause)
	}
}

func TestNewUnexpectedError(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := NewUnexpectedError(cause)

	if err.Code != ErrCodeUnexpected {
		t.Errorf("expected code %s, got %s", ErrCodeUnexpected, err.Code)
	}
	if !errors.Is(err, cause) {
		t.Errorf("unexpected error should unwrap to its cause")
	}
}

func TestErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("pipeline: %w", NewInstallFailedError("n8n", fmt.Errorf("exit 1")))

	var gErr *GuardianError
	if !errors.As(wrapped, &gErr) {
		t.Fatal("errors.As should find GuardianError")
	}
	if gErr.Code != ErrCodeInstallFailed {
		t.Errorf("expected code %s, got %s", ErrCodeInstallFailed, gErr.Code)
	}
}
