package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"wasdeploy/internal/api"
	"wasdeploy/internal/app"
	"wasdeploy/internal/config"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (invalid arguments, configuration).
	ExitCodeError = 1
	// ExitCodeLifecycle indicates the server could not be started or connected to.
	ExitCodeLifecycle = 2
	// ExitCodeDeploy indicates the deployment failed.
	ExitCodeDeploy = 3
	// ExitCodeUndeploy indicates the undeployment failed.
	ExitCodeUndeploy = 4
)

var (
	configPath string
	debug      bool
)

// newApplication is replaced in tests.
var newApplication = app.NewApplication

// rootCmd represents the base command for the wasdeploy application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wasdeploy",
	Short: "Deploy test archives to WebSphere Liberty and WebSphere traditional servers",
	Long: `wasdeploy starts or connects to a WebSphere Liberty or WebSphere
Application Server, deploys a WAR or EAR, waits until the application is
running and reports the HTTP endpoints a test client can call.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "wasdeploy version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var ce *api.ContainerError
	if errors.As(err, &ce) {
		switch ce.Op {
		case api.OpLifecycle:
			return ExitCodeLifecycle
		case api.OpDeploy:
			return ExitCodeDeploy
		case api.OpUndeploy:
			return ExitCodeUndeploy
		}
	}

	// Default to general error
	return ExitCodeError
}

func loadApplication() (*app.Application, error) {
	return newApplication(app.NewConfig(debug, configPath))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "Configuration file (YAML or TOML)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
