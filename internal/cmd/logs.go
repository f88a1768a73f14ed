package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/guardian/internal/config"
	"github.com/felixgeelhaar/guardian/internal/console"
	"github.com/felixgeelhaar/guardian/internal/security"
)

func newLogsCmd() *cobra.Command {
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the session log or the security audit log",
		Long: `Print the last lines of guardian.log, or with --security the whole
security_audit.log. Both live in the data directory.`,
		Args: cobra.NoArgs,
		RunE: runLogs,
	}
	logsCmd.Flags().IntP("lines", "n", 10, "number of session log lines to show")
	logsCmd.Flags().Bool("security", false, "show the security audit log instead")
	return logsCmd
}

func runLogs(cmd *cobra.Command, _ []string) error {
	cctx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cctx.loadConfigReported(cmd)
	if err != nil {
		return err
	}
	lines, _ := cmd.Flags().GetInt("lines")
	securityOnly, _ := cmd.Flags().GetBool("security")

	if securityOnly {
		return printSecurityLog(cmd.OutOrStdout(), cfg)
	}
	return printSessionLog(cmd.OutOrStdout(), cfg, lines)
}

func printSessionLog(w io.Writer, cfg *config.Config, n int) error {
	if n <= 0 {
		return fmt.Errorf("--lines must be positive, got %d", n)
	}
	path := cfg.SessionLogPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(w, "No session log yet at %s\n", path)
		return nil
	}
	lines, err := console.TailFile(path, n)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}

func printSecurityLog(w io.Writer, cfg *config.Config) error {
	text, err := security.NewLog(cfg.SecurityLogPath()).ReadAll()
	if err != nil {
		return err
	}
	if text == "" {
		fmt.Fprintf(w, "No security audits recorded yet at %s\n", cfg.SecurityLogPath())
		return nil
	}
	_, err = io.WriteString(w, text)
	return err
}
