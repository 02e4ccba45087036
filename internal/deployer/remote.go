package deployer

import (
	"context"
	"fmt"
	"time"

	"wasdeploy/internal/api"
	"wasdeploy/internal/transport"
	"wasdeploy/pkg/logging"
)

// RemoteDropinsPath is the dropins location of a server as the REST
// connector's file service resolves it.
func RemoteDropinsPath(serverName, archiveName string) string {
	return fmt.Sprintf("${wlp.user.dir}/servers/%s/dropins/%s", serverName, archiveName)
}

// RemoteOptions configures a RemoteDeployer.
type RemoteOptions struct {
	ServerName      string
	DeployTimeout   time.Duration
	UndeployTimeout time.Duration
}

// RemoteDeployer deploys to the dropins directory of a remote Liberty
// server through the REST connector's file service.
type RemoteDeployer struct {
	transport transport.Transport
	poller    *Poller
	opts      RemoteOptions
}

var _ Deployer = (*RemoteDeployer)(nil)

// NewRemoteDeployer creates a RemoteDeployer.
func NewRemoteDeployer(t transport.Transport, poller *Poller, opts RemoteOptions) *RemoteDeployer {
	return &RemoteDeployer{transport: t, poller: poller, opts: opts}
}

// Deploy uploads the archive and waits for the application to start.
func (d *RemoteDeployer) Deploy(ctx context.Context, req api.DeploymentRequest) error {
	if err := req.ValidateType(api.ArchiveEAR, api.ArchiveWAR, api.ArchiveEBA); err != nil {
		return err
	}
	if _, err := d.transport.Upload(ctx, req, RemoteDropinsPath(d.opts.ServerName, req.ArchiveName)); err != nil {
		return err
	}
	if err := d.poller.WaitForTargetState(ctx, []string{req.DeployName}, true, d.opts.DeployTimeout); err != nil {
		return err
	}
	logging.Info(subsystem, "Deployed %s to %s", req.DeployName, d.opts.ServerName)
	return nil
}

// Undeploy deletes the archive and waits for the application to go away.
func (d *RemoteDeployer) Undeploy(ctx context.Context, req api.DeploymentRequest) error {
	if err := d.transport.Remove(ctx, RemoteDropinsPath(d.opts.ServerName, req.ArchiveName)); err != nil {
		return err
	}
	if err := d.poller.WaitForTargetState(ctx, []string{req.DeployName}, false, d.opts.UndeployTimeout); err != nil {
		return err
	}
	logging.Info(subsystem, "Undeployed %s from %s", req.DeployName, d.opts.ServerName)
	return nil
}
