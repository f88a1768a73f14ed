package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format represents the output format for logs
type Format int

const (
	// FormatText writes key=value lines, the session log format
	FormatText Format = iota
	// FormatJSON writes one JSON object per line
	FormatJSON
)

// String returns the string representation of the format
func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// ParseFormat parses a string into a Format. Unknown values fall back to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	default:
		return FormatText
	}
}

// Output represents where logs should be written
type Output struct {
	writer io.Writer
	closer io.Closer
}

// Writer returns the underlying io.Writer
func (o Output) Writer() io.Writer {
	if o.writer == nil {
		return io.Discard
	}
	return o.writer
}

// Close releases the output if it owns a file.
func (o Output) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

// NewOutput creates an Output from an io.Writer
func NewOutput(w io.Writer) Output {
	return Output{writer: w}
}

// OutputStderr creates an Output that writes to stderr
func OutputStderr() Output {
	return Output{writer: os.Stderr}
}

// OutputDiscard drops everything.
func OutputDiscard() Output {
	return Output{writer: io.Discard}
}

// OutputFile opens path for appending, creating parent directories as needed.
// The file is never truncated.
func OutputFile(path string) (Output, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Output{}, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G302 -- operator-readable session log
	if err != nil {
		return Output{}, fmt.Errorf("open log file: %w", err)
	}
	return Output{writer: f, closer: f}, nil
}

// Config holds configuration for the logger
type Config struct {
	// Level is the minimum log level to output
	Level Level

	// Format is the output format (Text or JSON)
	Format Format

	// Output is where logs should be written
	Output Output

	// AddSource includes source file and line number in logs
	AddSource bool

	// ServiceName is attached to every record as "service"
	ServiceName string

	// ServiceVersion is attached to every record as "version"
	ServiceVersion string
}

// DefaultConfig logs at INFO in text format to stderr.
func DefaultConfig() Config {
	return Config{
		Level:          LevelInfo,
		Format:         FormatText,
		Output:         OutputStderr(),
		ServiceName:    "guardian",
		ServiceVersion: "dev",
	}
}

// SessionConfig is the configuration used for the persistent session log.
func SessionConfig(out Output, level Level, version string) Config {
	return Config{
		Level:          level,
		Format:         FormatText,
		Output:         out,
		ServiceName:    "guardian",
		ServiceVersion: version,
	}
}
