package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

// PromptForConfirmation displays a yes/no confirmation prompt
func PromptForConfirmation(message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue

	confirm := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed)

	form := huh.NewForm(huh.NewGroup(confirm))

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}

	return confirmed, nil
}

// Confirmer asks through a huh form. An aborted form (ctrl+c) counts as "no".
type Confirmer struct {
	// Default is the pre-selected answer.
	Default bool
}

// Confirm implements ux.Confirmer.
func (c Confirmer) Confirm(prompt string) bool {
	ok, err := PromptForConfirmation(prompt, c.Default)
	if err != nil {
		return false
	}
	return ok
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

var ciEnvVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"TRAVIS",
	"CIRCLECI",
	"BUILDKITE",
}

// InCI reports whether a known CI environment variable is set.
func InCI() bool {
	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	return false
}

// ShouldPrompt returns true if rich prompts should be shown.
// They are disabled in CI or when stdin is not a terminal.
func ShouldPrompt() bool {
	return !InCI() && IsInteractive()
}
