package deployer

import (
	"context"
	"path/filepath"
	"time"

	"wasdeploy/internal/api"
	"wasdeploy/internal/config"
	"wasdeploy/internal/liberty"
	"wasdeploy/internal/transport"
	"wasdeploy/pkg/logging"
)

// FileOptions configures a FileDeployer.
type FileOptions struct {
	Layout *liberty.Layout

	// DeployType is config.DeployTypeXML or config.DeployTypeDropins.
	DeployType string

	SharedLib             string
	APITypeVisibility     string
	SecurityConfiguration string

	DeployTimeout   time.Duration
	UndeployTimeout time.Duration
}

// FileDeployer deploys to a server on this machine by writing archives
// into its directories. In xml mode the archive goes to apps/ and an
// application element is added to server.xml; in dropins mode the
// server's file monitor picks the archive up from dropins/.
type FileDeployer struct {
	transport transport.Transport
	poller    *Poller
	opts      FileOptions
}

var _ Deployer = (*FileDeployer)(nil)

// NewFileDeployer creates a FileDeployer.
func NewFileDeployer(t transport.Transport, poller *Poller, opts FileOptions) *FileDeployer {
	return &FileDeployer{transport: t, poller: poller, opts: opts}
}

func (d *FileDeployer) xml() bool {
	return d.opts.DeployType == config.DeployTypeXML
}

func (d *FileDeployer) archivePath(req api.DeploymentRequest) string {
	if d.xml() {
		return filepath.Join(d.opts.Layout.AppsDir(), req.ArchiveName)
	}
	return filepath.Join(d.opts.Layout.DropinsDir(), req.ArchiveName)
}

// Deploy writes the archive, registers it in xml mode, and waits for the
// application to start. A failure is enriched from the message log.
func (d *FileDeployer) Deploy(ctx context.Context, req api.DeploymentRequest) error {
	if d.xml() {
		if err := req.ValidateType(api.ArchiveEAR, api.ArchiveWAR, api.ArchiveEBA); err != nil {
			return err
		}
	}

	if _, err := d.transport.Upload(ctx, req, d.archivePath(req)); err != nil {
		return err
	}

	if d.xml() {
		if err := d.register(req); err != nil {
			return err
		}
	}

	err := d.poller.WaitForTargetState(ctx, []string{req.DeployName}, true, d.opts.DeployTimeout)
	if err != nil {
		logging.Warn(subsystem, "Deployment of %s failed: %v", req.DeployName, err)
		return Diagnose(err, d.opts.Layout.MessagesLogPath(), req.DeployName, d.opts.Layout.ServerName)
	}
	logging.Info(subsystem, "Deployed %s", req.DeployName)
	return nil
}

func (d *FileDeployer) register(req api.DeploymentRequest) error {
	doc, err := d.opts.Layout.ReadServerXML()
	if err != nil {
		return &api.ArtifactError{Path: d.opts.Layout.ServerXMLPath(), Message: "Can't read server.xml", Err: err}
	}

	app := liberty.Application{
		ID:                req.DeployName,
		Location:          req.ArchiveName,
		Name:              req.DeployName,
		Type:              req.ArchiveType,
		CommonLibraryRef:  d.opts.SharedLib,
		APITypeVisibility: d.opts.APITypeVisibility,
	}
	if d.opts.SecurityConfiguration != "" {
		security, err := liberty.LoadSecurityElement(d.opts.SecurityConfiguration)
		if err != nil {
			return &api.ArtifactError{Path: d.opts.SecurityConfiguration, Message: "Cannot read security configuration", Err: err}
		}
		app.Security = security
	}
	doc.AddApplication(app)

	if err := doc.Save(); err != nil {
		return &api.ArtifactError{Path: doc.Path(), Message: "Exception while writing server.xml file", Err: err}
	}
	return nil
}

// Undeploy removes the application. In xml mode the application element
// is removed and the server is awaited before the archive is deleted; in
// dropins mode deleting the archive is what triggers the removal.
func (d *FileDeployer) Undeploy(ctx context.Context, req api.DeploymentRequest) error {
	apps := []string{req.DeployName}

	if d.xml() {
		doc, err := d.opts.Layout.ReadServerXML()
		if err != nil {
			return &api.ArtifactError{Path: d.opts.Layout.ServerXMLPath(), Message: "Can't read server.xml", Err: err}
		}
		if !doc.RemoveApplication(req.DeployName) {
			logging.Warn(subsystem, "No application %s in %s", req.DeployName, doc.Path())
		}
		if err := doc.Save(); err != nil {
			return &api.ArtifactError{Path: doc.Path(), Message: "Exception while writing server.xml file", Err: err}
		}
		if err := d.poller.WaitForTargetState(ctx, apps, false, d.opts.UndeployTimeout); err != nil {
			return err
		}
	}

	if err := d.transport.Remove(ctx, d.archivePath(req)); err != nil {
		return err
	}

	if !d.xml() {
		if err := d.poller.WaitForTargetState(ctx, apps, false, d.opts.UndeployTimeout); err != nil {
			return err
		}
	}
	logging.Info(subsystem, "Undeployed %s", req.DeployName)
	return nil
}

// VerifyApps waits for applications that must be running before anything
// is deployed, allowing perApp for each of them.
func (d *FileDeployer) VerifyApps(ctx context.Context, apps []string, perApp time.Duration) error {
	if len(apps) == 0 {
		return nil
	}
	logging.Info(subsystem, "Waiting for %v", apps)
	return d.poller.WaitForTargetState(ctx, apps, true, perApp*time.Duration(len(apps)))
}
