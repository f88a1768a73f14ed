package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the guardian command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "guardian",
		Short: "Verify, audit and supervise a locally installed Node application",
		Long: `guardian prepares and runs a Node-based application such as n8n.

It checks that the runtime, package manager and application are usable,
offers to install or update the application, runs a dependency security
audit, asks before launching, and then supervises the process with an
interactive console until you stop it.

Running guardian without a subcommand is the same as "guardian run".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runGuardian,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is ./guardian.yaml or ~/.guardian/guardian.yaml)")
	flags.BoolP("yes", "y", false, "answer yes to every prompt")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("log-level", "", "session log level: debug, info, warn, error")
	flags.String("data-dir", "", "directory for guardian.log and security_audit.log")
	flags.StringP("format", "f", "text", "output format for reports: text, json, yaml")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")
	flags.Bool("tui", false, "use the full-screen launch approval gate")

	rootCmd.AddCommand(
		newRunCmd(),
		newDoctorCmd(),
		newAuditCmd(),
		newDebugCmd(),
		newLogsCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

// ExecuteContext runs the root command with ctx, which is cancelled on
// SIGINT and SIGTERM by main.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
