package ux

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

// AssumeYes approves every prompt, for --yes runs.
type AssumeYes struct {
	// Out, when set, receives the prompt and the implied answer.
	Out io.Writer
}

// Confirm implements Confirmer.
func (a AssumeYes) Confirm(prompt string) bool {
	if a.Out != nil {
		fmt.Fprintf(a.Out, "%s (y/n): y [--yes]\n", prompt)
	}
	return true
}

var (
	yesAnswers = map[string]bool{"y": true, "yes": true, "s": true, "si": true, "sí": true}
	noAnswers  = map[string]bool{"n": true, "no": true}
)

// ParseAnswer classifies a typed answer. ok is false for anything that is
// neither an accepted yes nor an accepted no.
func ParseAnswer(answer string) (yes bool, ok bool) {
	a := strings.ToLower(strings.TrimSpace(answer))
	switch {
	case yesAnswers[a]:
		return true, true
	case noAnswers[a]:
		return false, true
	default:
		return false, false
	}
}

// LineConfirmer reads answers line by line. It re-asks until it gets a
// recognised answer; end of input counts as "no".
type LineConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLineConfirmer creates a LineConfirmer. The reader is shared with the
// operator console so buffered input is never lost between the two.
func NewLineConfirmer(in *bufio.Reader, out io.Writer) *LineConfirmer {
	return &LineConfirmer{in: in, out: out}
}

// Confirm implements Confirmer.
func (c *LineConfirmer) Confirm(prompt string) bool {
	for {
		fmt.Fprintf(c.out, "%s (y/n): ", prompt)
		line, err := c.in.ReadString('\n')
		if yes, ok := ParseAnswer(line); ok {
			return yes
		}
		if err != nil {
			fmt.Fprintln(c.out)
			return false
		}
		fmt.Fprintln(c.out, "Please answer 'y' or 'n'.")
	}
}
