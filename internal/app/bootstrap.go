package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"wasdeploy/internal/config"
	"wasdeploy/internal/container"
	"wasdeploy/pkg/logging"
)

const subsystem = "Bootstrap"

var newContainer = container.New

// Application ties a loaded configuration to the container it drives.
//
// Initialization happens in two phases:
//  1. Bootstrap: initialize logging, load configuration, set up the container
//  2. Execution: Run starts the container, runs a command against it and stops it
//
// Example usage:
//
//	application, err := app.NewApplication(app.NewConfig(false, "wasdeploy.yaml"))
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx, func(ctx context.Context, c container.Container) error {
//	    _, err := c.Deploy(ctx, req)
//	    return err
//	})
type Application struct {
	config    *Config
	container container.Container
}

// NewApplication performs the bootstrap sequence:
//
//  1. Configures logging from the debug flag
//  2. Loads the configuration file (unless cfg.Settings is already set)
//  3. Re-applies the configured logLevel when debug is off
//  4. Creates and sets up the container for the configured kind
func NewApplication(cfg *Config) (*Application, error) {
	logOutput := cfg.LogOutput
	if logOutput == nil {
		logOutput = os.Stderr
	}
	logging.InitForCLI(levelFor(cfg.Debug, ""), logOutput)

	if cfg.Settings == nil {
		settings, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logging.Error(subsystem, err, "Failed to load configuration")
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg.Settings = &settings
	}
	logging.InitForCLI(levelFor(cfg.Debug, cfg.Settings.LogLevel), logOutput)

	c, err := newContainer(*cfg.Settings)
	if err != nil {
		logging.Error(subsystem, err, "Failed to set up %s container", cfg.Settings.Kind)
		return nil, fmt.Errorf("failed to set up container: %w", err)
	}
	logging.Debug(subsystem, "Container %s configured for server %s", c.Kind(), cfg.Settings.Server.Name)

	return &Application{
		config:    cfg,
		container: c,
	}, nil
}

func levelFor(debug bool, configured string) logging.LogLevel {
	if debug {
		return logging.LevelDebug
	}
	return logging.ParseLevel(configured)
}

// Container returns the configured container.
func (a *Application) Container() container.Container {
	return a.container
}

// Settings returns the loaded configuration.
func (a *Application) Settings() config.Config {
	return *a.config.Settings
}

// Run starts the container, calls fn and stops the container again.
// The container is stopped even when fn fails; both errors are returned.
func (a *Application) Run(ctx context.Context, fn func(ctx context.Context, c container.Container) error) error {
	if err := a.container.Start(ctx); err != nil {
		return err
	}
	runErr := fn(ctx, a.container)

	// Stop must run even when ctx was cancelled by an interrupt.
	stopErr := a.container.Stop(context.WithoutCancel(ctx))
	if stopErr == nil {
		return runErr
	}
	logging.Error(subsystem, stopErr, "Failed to stop %s container", a.container.Kind())
	return errors.Join(runErr, stopErr)
}
