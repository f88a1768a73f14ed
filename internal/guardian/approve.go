package guardian

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/guardian/internal/tui"
	"github.com/felixgeelhaar/guardian/internal/ux"
)

// Approver decides whether the application is launched.
type Approver interface {
	Approve(summary tui.LaunchSummary) bool
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(summary tui.LaunchSummary) bool

// Approve implements Approver.
func (f ApproverFunc) Approve(summary tui.LaunchSummary) bool {
	return f(summary)
}

// ConfirmApprover prints the summary and asks a yes/no question.
type ConfirmApprover struct {
	Confirmer ux.Confirmer
	Reporter  *ux.Reporter
}

// Approve implements Approver.
func (a ConfirmApprover) Approve(s tui.LaunchSummary) bool {
	r := a.Reporter
	r.Header("Ready to launch")
	r.Plain("Application:    %s", s.App)
	r.Plain("Command:        %s", s.Command)
	if s.Version != "" {
		r.Plain("Version:        %s", s.Version)
	}
	if len(s.Prerequisites) > 0 {
		r.Plain("Prerequisites:  %s", strings.Join(s.Prerequisites, ", "))
	}
	r.Plain("Security:       %s", s.Recommendation)
	if s.Blocked {
		r.Error("Critical vulnerabilities are present; launching is not recommended")
	}
	return a.Confirmer.Confirm(fmt.Sprintf("Launch %s now?", s.App))
}

// GateApprover shows the full-screen launch gate and falls back to
// Fallback when the terminal cannot run it.
type GateApprover struct {
	Fallback Approver
}

// Approve implements Approver.
func (g GateApprover) Approve(s tui.LaunchSummary) bool {
	approved, err := tui.RunLaunchGate(s)
	if err != nil {
		return g.Fallback.Approve(s)
	}
	return approved
}
