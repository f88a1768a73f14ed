package security

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

// Report is the result of one audit. Reports are appended to the security
// log and never modified afterwards.
type Report struct {
	ID             string         `json:"id" yaml:"id"`
	Timestamp      time.Time      `json:"timestamp" yaml:"timestamp"`
	Command        string         `json:"command" yaml:"command"`
	ExitCode       int            `json:"exit_code" yaml:"exit_code"`
	Ran            bool           `json:"ran" yaml:"ran"`
	Clean          bool           `json:"clean" yaml:"clean"`
	Findings       []Finding      `json:"findings,omitempty" yaml:"findings,omitempty"`
	Excerpt        string         `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	Digest         string         `json:"digest,omitempty" yaml:"digest,omitempty"`
	Recommendation Recommendation `json:"recommendation" yaml:"recommendation"`
	// Error explains why the scan could not run.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Total is the sum of all finding counts.
func (r *Report) Total() int {
	total := 0
	for _, f := range r.Findings {
		total += f.Count
	}
	return total
}

// Outcome is the one-line result used in the log and the console.
func (r *Report) Outcome() string {
	switch {
	case !r.Ran:
		return "AUDIT ERROR"
	case r.Clean:
		return "NO VULNERABILITIES"
	default:
		return "VULNERABILITIES FOUND"
	}
}

// FindingsLine renders "critical=2 moderate=1", or "none".
func (r *Report) FindingsLine() string {
	if len(r.Findings) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		parts = append(parts, fmt.Sprintf("%s=%d", f.Severity, f.Count))
	}
	return strings.Join(parts, " ")
}

// RenderText writes the human-readable form used by "guardian audit".
func (r *Report) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Result:         %s\nCommand:        %s\nFindings:       %s\nRecommendation: %s\n",
		r.Outcome(), r.Command, r.FindingsLine(), r.Recommendation)
	if err != nil {
		return err
	}
	if r.Excerpt != "" {
		_, err = fmt.Fprintf(w, "\n%s\n", r.Excerpt)
	}
	return err
}

const logRule = "================================================================================"

// logEntry renders the block appended to the security log.
func (r *Report) logEntry() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", logRule)
	fmt.Fprintf(&b, "SECURITY AUDIT - %s (id %s)\n", r.Timestamp.Format("2006-01-02 15:04:05"), r.ID)
	fmt.Fprintf(&b, "%s\n", logRule)
	fmt.Fprintf(&b, "Command: %s\n", r.Command)
	if r.Ran {
		fmt.Fprintf(&b, "Exit code: %d\n", r.ExitCode)
	}
	fmt.Fprintf(&b, "Result: %s\n", r.Outcome())
	if r.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", r.Error)
	}
	fmt.Fprintf(&b, "Findings: %s\n", r.FindingsLine())
	fmt.Fprintf(&b, "Total: %d\n", r.Total())
	fmt.Fprintf(&b, "Recommendation: %s\n", r.Recommendation)
	if r.Digest != "" {
		fmt.Fprintf(&b, "Digest: blake3:%s\n", r.Digest)
	}
	if r.Ran {
		b.WriteString("Output:\n")
		if r.Excerpt == "" {
			b.WriteString("(empty)\n")
		} else {
			b.WriteString(r.Excerpt)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
