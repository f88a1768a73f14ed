package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LaunchSummary is what the operator sees before approving a launch.
type LaunchSummary struct {
	App            string
	Command        string
	Prerequisites  []string
	Version        string
	Recommendation string
	// Blocked highlights a block-until-resolved recommendation.
	Blocked bool
}

type gateKeyMap struct {
	Approve key.Binding
	Reject  key.Binding
}

var gateKeys = gateKeyMap{
	Approve: key.NewBinding(
		key.WithKeys("y", "Y", "s", "S"),
		key.WithHelp("y", "launch"),
	),
	Reject: key.NewBinding(
		key.WithKeys("n", "N", "q", "esc", "ctrl+c"),
		key.WithHelp("n", "cancel"),
	),
}

type gateModel struct {
	summary  LaunchSummary
	approved bool
	quitting bool
}

// RunLaunchGate renders the launch summary and waits for y or n.
func RunLaunchGate(summary LaunchSummary) (bool, error) {
	program := tea.NewProgram(gateModel{summary: summary})

	finalModel, err := program.Run()
	if err != nil {
		return false, fmt.Errorf("run launch gate: %w", err)
	}

	return finalModel.(gateModel).approved, nil
}

func (m gateModel) Init() tea.Cmd {
	return nil
}

func (m gateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, gateKeys.Approve):
			m.approved = true
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, gateKeys.Reject):
			m.approved = false
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m gateModel) View() string {
	if m.quitting {
		if m.approved {
			return lipgloss.NewStyle().Foreground(lipgloss.Color("2")).
				Render(fmt.Sprintf("Launching %s...\n", m.summary.App))
		}
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1")).
			Render("Launch cancelled.\n")
	}

	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Ready to launch %s", m.summary.App)) + "\n\n")

	if len(m.summary.Prerequisites) > 0 {
		b.WriteString(labelStyle.Render("Prerequisites:") + "\n")
		for _, line := range m.summary.Prerequisites {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n")
	}
	if m.summary.Version != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Version:"), valueStyle.Render(m.summary.Version))
	}
	if m.summary.Recommendation != "" {
		rec := valueStyle.Render(m.summary.Recommendation)
		if m.summary.Blocked {
			rec = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true).
				Render(m.summary.Recommendation + " (critical vulnerabilities present)")
		}
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Security:"), rec)
	}
	if m.summary.Command != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Command:"), m.summary.Command)
	}

	b.WriteString("\n" + titleStyle.Render("Launch now?") + " ")
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("(y)") + " / ")
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render("(n)") + ": ")
	return b.String()
}
