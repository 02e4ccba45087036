package deployer

import (
	"context"
	"errors"
	"time"

	"wasdeploy/internal/api"
	"wasdeploy/internal/archive"
	"wasdeploy/internal/notification"
	"wasdeploy/internal/transport"
	"wasdeploy/pkg/logging"

	"github.com/google/uuid"
)

// Distribution polling defaults.
const (
	DefaultDistributionInterval  = time.Second
	DefaultMaxDistributionChecks = 300
)

// ErrDistribution is returned when an application did not reach every
// node before the distribution checks ran out.
var ErrDistribution = errors.New("distribution of application did not succeed to all nodes")

// Installer is the application management surface of a WebSphere
// traditional server. transport.SOAPTransport implements it.
type Installer interface {
	Upload(ctx context.Context, req api.DeploymentRequest, destination string) (string, error)
	InstallApplication(ctx context.Context, stagedPath, appName string, opts transport.InstallOptions) error
	DistributionStatus(ctx context.Context, appName string) (notification.DistributionStatus, error)
	StartApplication(ctx context.Context, appName string) (string, error)
	Remove(ctx context.Context, target string) error
}

var _ Installer = (*transport.SOAPTransport)(nil)

// InstallDeployer deploys through the application management service:
// the archive is staged, installed, distributed to its nodes and started.
// Install and uninstall are awaited through notifications.
type InstallDeployer struct {
	installer Installer
	opts      transport.InstallOptions

	// DistributionInterval and MaxDistributionChecks bound the wait for
	// distribution to every node.
	DistributionInterval  time.Duration
	MaxDistributionChecks int
}

var _ Deployer = (*InstallDeployer)(nil)

// NewInstallDeployer creates an InstallDeployer.
func NewInstallDeployer(installer Installer, opts transport.InstallOptions) *InstallDeployer {
	return &InstallDeployer{
		installer:             installer,
		opts:                  opts,
		DistributionInterval:  DefaultDistributionInterval,
		MaxDistributionChecks: DefaultMaxDistributionChecks,
	}
}

// Prepare returns the enterprise archive to install: a web archive is
// wrapped into <name>.ear, an enterprise archive is used as is.
func Prepare(req api.DeploymentRequest) (api.DeploymentRequest, error) {
	switch req.ArchiveType {
	case api.ArchiveWAR:
		logging.Debug(subsystem, "Creating an enterprise archive %s.ear from %s", req.DeployName, req.ArchiveName)
		return archive.WrapInEAR(req)
	case api.ArchiveEAR:
		return req, nil
	}
	return api.DeploymentRequest{}, &api.ArtifactError{
		Path:    req.ArchiveName,
		Message: "Unsupported archive type has been provided for deployment: " + req.ArchiveType,
	}
}

// Deploy installs and starts the archive.
func (d *InstallDeployer) Deploy(ctx context.Context, req api.DeploymentRequest) error {
	ear, err := Prepare(req)
	if err != nil {
		return err
	}
	appName := ear.DeployName

	staged, err := d.installer.Upload(ctx, ear, appName+"-"+uuid.NewString()+"."+ear.ArchiveType)
	if err != nil {
		return err
	}

	if err := d.installer.InstallApplication(ctx, staged, appName, d.opts); err != nil {
		return err
	}
	logging.Info(subsystem, "Installed %s", appName)

	if err := d.awaitDistribution(ctx, appName); err != nil {
		return err
	}

	targets, err := d.installer.StartApplication(ctx, appName)
	if err != nil {
		return err
	}
	logging.Info(subsystem, "Application was started on the following targets: %s", targets)
	return nil
}

func (d *InstallDeployer) awaitDistribution(ctx context.Context, appName string) error {
	for checks := 1; checks < d.MaxDistributionChecks; checks++ {
		if err := sleepContext(ctx, d.DistributionInterval); err != nil {
			return err
		}
		status, err := d.installer.DistributionStatus(ctx, appName)
		if err != nil {
			return err
		}
		logging.Debug(subsystem, "Distribution of %s: %s", appName, status)
		if status == notification.DistributionDone {
			return nil
		}
	}
	return ErrDistribution
}

// Undeploy uninstalls the application.
func (d *InstallDeployer) Undeploy(ctx context.Context, req api.DeploymentRequest) error {
	if err := d.installer.Remove(ctx, req.DeployName); err != nil {
		return err
	}
	logging.Info(subsystem, "Uninstalled %s", req.DeployName)
	return nil
}
