package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"wasdeploy/internal/api"
	"wasdeploy/internal/app"
	"wasdeploy/internal/container"
	"wasdeploy/internal/formatting"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var (
	deployTestable bool
	deployHold     bool
	deployOutput   outputFlags
)

// deployCmd represents the deploy command
var deployCmd = &cobra.Command{
	Use:   "deploy <archive>",
	Short: "Deploy an archive and print its HTTP endpoints",
	Long: `Deploy a WAR or EAR to the configured server, wait until the application
is running and print the servlets and context roots it exposes.

The server is started (liberty-managed) or connected to (liberty-remote,
was-remote) for the length of the command. With --hold the application stays
deployed until Ctrl+C is pressed and is then undeployed.

Examples:
  wasdeploy deploy target/shop.war
  wasdeploy deploy --testable -o json target/shop.war
  wasdeploy deploy --hold -c was.yaml target/suite.ear`,
	Args: cobra.ExactArgs(1),
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().BoolVar(&deployTestable, "testable", false, "The archive carries the test runner servlet")
	deployCmd.Flags().BoolVar(&deployHold, "hold", false, "Keep the application deployed until interrupted, then undeploy it")
	deployOutput.register(deployCmd, formatting.FormatConsole)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	formatter, err := deployOutput.formatter()
	if err != nil {
		return err
	}
	req, err := api.NewDeploymentRequestFromFile(args[0], deployTestable)
	if err != nil {
		return err
	}
	application, err := loadApplication()
	if err != nil {
		return err
	}

	return application.Run(cmd.Context(), func(ctx context.Context, c container.Container) error {
		contract, err := deployWithProgress(ctx, c, req)
		if err != nil {
			return err
		}

		err = formatter.FormatDeployment(cmd.OutOrStdout(), formatting.Deployment{
			Archive:  filepath.Base(args[0]),
			Name:     req.DeployName,
			Handle:   c.Handle(),
			Endpoint: contract,
		})
		if err != nil || !deployHold {
			return err
		}

		app.WaitForInterrupt(ctx)
		return c.Undeploy(context.WithoutCancel(ctx), req)
	})
}

func deployWithProgress(ctx context.Context, c container.Container, req api.DeploymentRequest) (api.EndpointContract, error) {
	if deployOutput.quiet {
		return c.Deploy(ctx, req)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" Deploying %s to %s...", req.ArchiveName, c.Kind())
	s.Start()
	defer s.Stop()

	return c.Deploy(ctx, req)
}
