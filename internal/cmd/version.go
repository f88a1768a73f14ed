package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/guardian/internal/version"
)

func newVersionCmd() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
		Args: cobra.NoArgs,
		RunE: runVersion,
	}
	versionCmd.Flags().BoolP("verbose", "v", false, "show detailed version information")
	versionCmd.Flags().Bool("json", false, "output version information as JSON")
	return versionCmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := version.GetInfo()
	out := cmd.OutOrStdout()
	verbose, _ := cmd.Flags().GetBool("verbose")
	asJSON, _ := cmd.Flags().GetBool("json")

	if asJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal version info: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if verbose {
		fmt.Fprintln(out, info.String())
		return nil
	}

	fmt.Fprintf(out, "guardian %s\n", info.Version)
	return nil
}
