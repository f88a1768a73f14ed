package cmd

import (
	"github.com/spf13/cobra"
)

func newDebugCmd() *cobra.Command {
	debugCmd := &cobra.Command{
		Use:   "debug",
		Short: "Replay diagnostic command batteries",
		Long: `Run the same diagnostic batteries available from the console:

  debug audit   why the security audit fails or is ambiguous
  debug app     why the application cannot be found or executed`,
	}

	debugCmd.AddCommand(&cobra.Command{
		Use:   "audit",
		Short: "Replay the audit diagnostic battery",
		Args:  cobra.NoArgs,
		RunE:  runDebugAudit,
	})
	debugCmd.AddCommand(&cobra.Command{
		Use:     "app",
		Aliases: []string{"application"},
		Short:   "Replay the application diagnostic battery",
		Args:    cobra.NoArgs,
		RunE:    runDebugApp,
	})
	return debugCmd
}

func runDebugAudit(cmd *cobra.Command, _ []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	formatter, err := env.formatter(cmd)
	if err != nil {
		return err
	}
	outcomes := env.pipeline().Diagnostics().AuditBattery()
	if env.cctx.Format == "text" {
		return nil
	}
	return formatter.Format(outcomes)
}

func runDebugApp(cmd *cobra.Command, _ []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	formatter, err := env.formatter(cmd)
	if err != nil {
		return err
	}
	report := env.pipeline().Diagnostics().ApplicationBattery()
	if env.cctx.Format == "text" {
		return nil
	}
	return formatter.Format(report)
}
