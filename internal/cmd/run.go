package cmd

import (
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Verify prerequisites, audit, launch and supervise the application",
		Long: `Run the full guardian session:

  1. verify the runtime, package manager and application
  2. offer to install or update the application
  3. run the dependency security audit
  4. ask before launching, then supervise the process
  5. accept console commands (status, logs, security, audit, debug,
     appdebug, open, stop, help) until the process is stopped`,
		Args: cobra.NoArgs,
		RunE: runGuardian,
	}
}

func runGuardian(cmd *cobra.Command, _ []string) error {
	env, err := setup(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	return env.finish(env.pipeline().Run(env.ctx))
}
