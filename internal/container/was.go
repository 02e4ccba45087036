package container

import (
	"context"
	"time"

	"wasdeploy/internal/api"
	"wasdeploy/internal/config"
	"wasdeploy/internal/deployer"
	"wasdeploy/internal/endpoint"
	"wasdeploy/internal/transport"
)

// DefaultLocale is the locale applications are installed with.
const DefaultLocale = "en_US"

// WASRemote drives a WebSphere traditional application server through
// its SOAP connector using the application management service.
type WASRemote struct {
	base

	// pollInterval and distributionInterval are shortened in tests.
	pollInterval         time.Duration
	distributionInterval time.Duration

	deployer *deployer.InstallDeployer
	resolver *endpoint.ConfigResolver
}

var _ Container = (*WASRemote)(nil)

// NewWASRemote creates a was-remote container.
func NewWASRemote() *WASRemote {
	return &WASRemote{base: newBase(config.KindWASRemote)}
}

// Setup implements Container.
func (w *WASRemote) Setup(cfg config.Config) error {
	return w.configure(cfg)
}

// Start implements Container.
func (w *WASRemote) Start(ctx context.Context) error {
	if err := w.requireState(api.OpLifecycle, StateConfigured); err != nil {
		return err
	}
	cfg := w.cfg
	tr := transport.NewSOAPTransport(transport.SOAPOptions{
		Host:               cfg.Server.Host,
		Port:               cfg.SOAP.Port,
		Secure:             cfg.SOAP.SecurityEnabled,
		Credentials:        credentials(cfg),
		TrustStore:         cfg.SOAP.TrustStore,
		KeyStore:           cfg.SOAP.KeyStore,
		InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
		RetryMax:           cfg.HTTP.RetryMax,
		RequestTimeout:     cfg.HTTP.RequestTimeoutDuration(),
		PollInterval:       w.pollInterval,
		NotificationWait:   cfg.Timeouts.NotificationWaitTimeout(),
	})
	if err := tr.Connect(ctx); err != nil {
		return api.WrapContainerError(api.OpLifecycle, "Could not start container", err)
	}

	w.deployer = deployer.NewInstallDeployer(tr, transport.InstallOptions{
		Locale:            DefaultLocale,
		ClassLoadingMode:  cfg.SOAP.ClassLoadingMode,
		ClassLoaderPolicy: cfg.SOAP.ClassLoaderPolicy,
		ArchiveUpload:     cfg.SOAP.ArchiveUploadEnabled,
	})
	if w.distributionInterval > 0 {
		w.deployer.DistributionInterval = w.distributionInterval
	}

	server := tr.ServerMBean()
	w.resolver = endpoint.NewConfigResolver(tr.Client(), server.KeyProperty("node"), server.KeyProperty("process"))
	w.started(tr, api.ServerHandle{ManagementAddress: tr.Client().Endpoint(), TransportKind: tr.Kind()})
	return nil
}

// Deploy implements Container.
func (w *WASRemote) Deploy(ctx context.Context, req api.DeploymentRequest) (api.EndpointContract, error) {
	if err := w.requireState(api.OpDeploy, StateStarted); err != nil {
		return api.EndpointContract{}, err
	}
	if err := w.deployer.Deploy(ctx, req); err != nil {
		return api.EndpointContract{}, api.WrapContainerError(api.OpDeploy, "Could not deploy application", err)
	}
	contract, err := w.resolver.Resolve(ctx, req.DeployName)
	if err != nil {
		return api.EndpointContract{}, api.WrapContainerError(api.OpDeploy, "Could not deploy application", err)
	}
	return contract, nil
}

// Undeploy implements Container.
func (w *WASRemote) Undeploy(ctx context.Context, req api.DeploymentRequest) error {
	if err := w.requireState(api.OpUndeploy, StateStarted); err != nil {
		return err
	}
	if err := w.deployer.Undeploy(ctx, req); err != nil {
		return api.WrapContainerError(api.OpUndeploy, "Could not undeploy application", err)
	}
	return nil
}

// Stop implements Container. The remote server keeps running.
func (w *WASRemote) Stop(context.Context) error {
	if err := w.requireState(api.OpLifecycle, StateStarted); err != nil {
		return err
	}
	w.closeTransport()
	w.setState(StateStopped)
	return nil
}
