package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/guardian/internal/config"
)

// CommandContext holds the persistent flags of one invocation.
type CommandContext struct {
	ConfigPath  string
	AssumeYes   bool
	NoColor     bool
	LogLevel    string
	DataDir     string
	Format      string
	MetricsAddr string
	TUI         bool
}

// NewCommandContext extracts command context from cobra.Command flags.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	f := cmd.Flags()
	c := &CommandContext{}
	var err error

	if c.ConfigPath, err = f.GetString("config"); err != nil {
		return nil, err
	}
	if c.AssumeYes, err = f.GetBool("yes"); err != nil {
		return nil, err
	}
	if c.NoColor, err = f.GetBool("no-color"); err != nil {
		return nil, err
	}
	if c.LogLevel, err = f.GetString("log-level"); err != nil {
		return nil, err
	}
	if c.DataDir, err = f.GetString("data-dir"); err != nil {
		return nil, err
	}
	if c.Format, err = f.GetString("format"); err != nil {
		return nil, err
	}
	if c.MetricsAddr, err = f.GetString("metrics-addr"); err != nil {
		return nil, err
	}
	if c.TUI, err = f.GetBool("tui"); err != nil {
		return nil, err
	}
	c.Format = strings.ToLower(c.Format)
	return c, nil
}

// LoadConfig loads the configuration and applies flag overrides.
func (c *CommandContext) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	if c.DataDir != "" {
		cfg.Paths.DataDir = c.DataDir
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
	}
	if c.AssumeYes {
		cfg.Prompts.AssumeYes = true
	}
	return cfg, nil
}

// firstLine drops the suggestion block of a formatted error.
func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
