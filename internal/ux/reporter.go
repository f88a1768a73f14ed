package ux

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/guardian/internal/log"
)

// Reporter prints operator-facing lines and mirrors each one into the
// session log, so the terminal and guardian.log tell the same story.
type Reporter struct {
	mu      sync.Mutex
	out     io.Writer
	logger  *log.Logger
	noColor bool

	info    lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	header  lipgloss.Style
}

// NewReporter creates a Reporter writing to out. A nil logger discards log records.
func NewReporter(out io.Writer, logger *log.Logger, noColor bool) *Reporter {
	if logger == nil {
		logger = log.Nop()
	}
	r := lipgloss.NewRenderer(out)
	return &Reporter{
		out:     out,
		logger:  logger,
		noColor: noColor,
		info:    r.NewStyle().Foreground(lipgloss.Color("39")),
		success: r.NewStyle().Foreground(lipgloss.Color("42")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("214")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("196")),
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("141")),
	}
}

// Logger returns the logger the reporter mirrors into.
func (r *Reporter) Logger() *log.Logger {
	return r.logger
}

// Writer returns the terminal writer.
func (r *Reporter) Writer() io.Writer {
	return r.out
}

func (r *Reporter) print(style lipgloss.Style, prefix, msg string) {
	line := prefix + " " + msg
	if !r.noColor {
		line = style.Render(line)
	}
	r.mu.Lock()
	fmt.Fprintln(r.out, line)
	r.mu.Unlock()
}

// Info prints an informational line.
func (r *Reporter) Info(msg string, args ...any) {
	r.print(r.info, "•", msg)
	r.logger.Info(msg, args...)
}

// Success prints a success line. It is logged at INFO with outcome=success.
func (r *Reporter) Success(msg string, args ...any) {
	r.print(r.success, "✓", msg)
	r.logger.Info(msg, append(args, "outcome", "success")...)
}

// Warn prints a warning line.
func (r *Reporter) Warn(msg string, args ...any) {
	r.print(r.warn, "!", msg)
	r.logger.Warn(msg, args...)
}

// Error prints an error line.
func (r *Reporter) Error(msg string, args ...any) {
	r.print(r.fail, "✗", msg)
	r.logger.Error(msg, args...)
}

// Fail prints err, including any suggestions it carries, and logs it in full.
func (r *Reporter) Fail(err error) {
	if err == nil {
		return
	}
	r.print(r.fail, "✗", err.Error())
	r.logger.LogError(err)
}

// Header prints a framed section title.
func (r *Reporter) Header(title string) {
	rule := strings.Repeat("=", 50)
	block := rule + "\n" + title + "\n" + rule
	if !r.noColor {
		block = r.header.Render(block)
	}
	r.mu.Lock()
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, block)
	r.mu.Unlock()
	r.logger.Info(title, "section", true)
}

// Plain prints a line verbatim without logging it.
func (r *Reporter) Plain(format string, args ...any) {
	r.mu.Lock()
	fmt.Fprintf(r.out, format+"\n", args...)
	r.mu.Unlock()
}
