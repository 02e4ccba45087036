package cmd

import (
	"context"

	"wasdeploy/internal/container"
	"wasdeploy/internal/formatting"

	"github.com/spf13/cobra"
)

var checkOutput outputFlags

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the configured server can be reached",
	Long: `Start or connect to the configured server, report the management
connection and disconnect again. A liberty-managed server launched by this
command is stopped before it exits.

Examples:
  wasdeploy check
  wasdeploy check -c remote.yaml -o table`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkOutput.register(checkCmd, formatting.FormatConsole)
}

func runCheck(cmd *cobra.Command, args []string) error {
	formatter, err := checkOutput.formatter()
	if err != nil {
		return err
	}
	application, err := loadApplication()
	if err != nil {
		return err
	}

	return application.Run(cmd.Context(), func(ctx context.Context, c container.Container) error {
		return formatter.FormatStatus(cmd.OutOrStdout(), formatting.Status{
			Kind:      string(c.Kind()),
			Reachable: c.IsReachable(ctx),
			Handle:    c.Handle(),
		})
	})
}
