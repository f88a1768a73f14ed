package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Values accepted by --format.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the --format values in the order they are documented.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// Formatter writes one command result: a doctor report, a security report
// or a diagnostics battery.
type Formatter interface {
	Format(data any) error
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(data any) error

// Format calls f.
func (f FormatterFunc) Format(data any) error { return f(data) }

// TextRenderer is implemented by reports that print their own operator view.
type TextRenderer interface {
	RenderText(w io.Writer) error
}

// FormatterOptions configures NewFormatter.
type FormatterOptions struct {
	// Writer defaults to os.Stdout.
	Writer io.Writer
	// Compact drops indentation from JSON and YAML.
	Compact bool
}

// NewFormatter returns the Formatter for format. An empty format is text.
func NewFormatter(format string, opts *FormatterOptions) (Formatter, error) {
	var o FormatterOptions
	if opts != nil {
		o = *opts
	}
	if o.Writer == nil {
		o.Writer = os.Stdout
	}

	switch strings.ToLower(format) {
	case FormatText, "":
		return FormatterFunc(func(data any) error { return writeText(o.Writer, data) }), nil
	case FormatJSON:
		return FormatterFunc(func(data any) error { return writeJSON(o.Writer, o.Compact, data) }), nil
	case FormatYAML:
		return FormatterFunc(func(data any) error { return writeYAML(o.Writer, o.Compact, data) }), nil
	}
	return nil, fmt.Errorf("unknown format %q (supported: %s)", format, strings.Join(Formats, ", "))
}

func writeJSON(w io.Writer, compact bool, data any) error {
	enc := json.NewEncoder(w)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

func writeYAML(w io.Writer, compact bool, data any) error {
	enc := yaml.NewEncoder(w)
	if !compact {
		enc.SetIndent(2)
	}
	if err := enc.Encode(data); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// writeText prefers a report's own rendering. Reports without one must be
// asked for in json or yaml.
func writeText(w io.Writer, data any) error {
	var err error
	switch v := data.(type) {
	case TextRenderer:
		return v.RenderText(w)
	case string:
		_, err = fmt.Fprintln(w, v)
	case fmt.Stringer:
		_, err = fmt.Fprintln(w, v.String())
	default:
		err = fmt.Errorf("text output is not supported for %T; use --format json or yaml", data)
	}
	return err
}
