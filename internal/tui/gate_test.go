package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(t *testing.T, m gateModel, k tea.KeyMsg) (gateModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	gm, ok := next.(gateModel)
	require.True(t, ok)
	return gm, cmd
}

func TestGateApprove(t *testing.T) {
	m := gateModel{summary: LaunchSummary{App: "n8n"}}

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})

	assert.True(t, m.approved)
	assert.True(t, m.quitting)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Launching n8n")
}

func TestGateReject(t *testing.T) {
	for _, k := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'n'}},
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyEsc},
	} {
		m, cmd := press(t, gateModel{summary: LaunchSummary{App: "n8n"}}, k)
		assert.False(t, m.approved, k.String())
		assert.True(t, m.quitting, k.String())
		assert.NotNil(t, cmd)
	}
}

func TestGateIgnoresOtherKeys(t *testing.T) {
	m, cmd := press(t, gateModel{}, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	assert.False(t, m.quitting)
	assert.Nil(t, cmd)
}

func TestGateViewHighlightsBlock(t *testing.T) {
	m := gateModel{summary: LaunchSummary{
		App:            "n8n",
		Prerequisites:  []string{"runtime: verified (v20.11.0)"},
		Version:        "1.40.0",
		Recommendation: "block-until-resolved",
		Blocked:        true,
		Command:        "n8n",
	}}

	view := m.View()
	assert.Contains(t, view, "Ready to launch n8n")
	assert.Contains(t, view, "runtime: verified (v20.11.0)")
	assert.Contains(t, view, "critical vulnerabilities present")
	assert.Contains(t, view, "Launch now?")
}
