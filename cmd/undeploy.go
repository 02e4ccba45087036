package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"wasdeploy/internal/api"
	"wasdeploy/internal/container"

	"github.com/spf13/cobra"
)

var undeployQuiet bool

// undeployCmd represents the undeploy command
var undeployCmd = &cobra.Command{
	Use:   "undeploy <archive>",
	Short: "Remove a deployed archive",
	Long: `Remove an archive that was deployed by wasdeploy and wait until the
server has unloaded the application. Only the archive's file name is used
to identify the application; the file itself need not exist.

Examples:
  wasdeploy undeploy shop.war
  wasdeploy undeploy -c was.yaml suite.ear`,
	Args: cobra.ExactArgs(1),
	RunE: runUndeploy,
}

func init() {
	rootCmd.AddCommand(undeployCmd)

	undeployCmd.Flags().BoolVarP(&undeployQuiet, "quiet", "q", false, "Suppress non-essential output")
}

func runUndeploy(cmd *cobra.Command, args []string) error {
	req, err := api.NewDeploymentRequest(filepath.Base(args[0]), nil, false)
	if err != nil {
		return err
	}
	application, err := loadApplication()
	if err != nil {
		return err
	}

	return application.Run(cmd.Context(), func(ctx context.Context, c container.Container) error {
		if err := c.Undeploy(ctx, req); err != nil {
			return err
		}
		if !undeployQuiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Undeployed %s\n", req.DeployName)
		}
		return nil
	})
}
