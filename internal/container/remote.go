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

// LibertyRemote drives a running Liberty server through its REST
// connector. Archives go to the server's dropins directory.
type LibertyRemote struct {
	base

	// settleDelay overrides transport.DefaultSettleDelay in tests.
	settleDelay time.Duration

	deployer *deployer.RemoteDeployer
	resolver *endpoint.Resolver
}

var _ Container = (*LibertyRemote)(nil)

// NewLibertyRemote creates a liberty-remote container.
func NewLibertyRemote() *LibertyRemote {
	return &LibertyRemote{base: newBase(config.KindLibertyRemote)}
}

// Setup implements Container.
func (r *LibertyRemote) Setup(cfg config.Config) error {
	return r.configure(cfg)
}

// Start implements Container.
func (r *LibertyRemote) Start(ctx context.Context) error {
	if err := r.requireState(api.OpLifecycle, StateConfigured); err != nil {
		return err
	}
	cfg := r.cfg
	tr := transport.NewRESTTransport(transport.RESTOptions{
		Host:               cfg.Server.Host,
		HTTPSPort:          cfg.Server.HTTPSPort,
		Credentials:        credentials(cfg),
		InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
		RetryMax:           cfg.HTTP.RetryMax,
		RequestTimeout:     cfg.HTTP.RequestTimeoutDuration(),
		FailSafe:           cfg.Deploy.FailSafeUndeployment,
		SettleDelay:        r.settleDelay,
	})
	if err := tr.Connect(ctx); err != nil {
		return api.WrapContainerError(api.OpLifecycle, "Could not start container", err)
	}

	r.deployer = deployer.NewRemoteDeployer(tr, deployer.NewPoller(tr), deployer.RemoteOptions{
		ServerName:      cfg.Server.Name,
		DeployTimeout:   cfg.Timeouts.AppDeployTimeout(),
		UndeployTimeout: cfg.Timeouts.AppUndeployTimeout(),
	})
	r.resolver = endpoint.NewResolver(tr.Connection(), endpoint.Options{
		Host:     cfg.Server.Host,
		HTTPPort: cfg.Server.HTTPPort,
	})
	r.started(tr, api.ServerHandle{ManagementAddress: tr.BaseURL(), TransportKind: tr.Kind()})
	return nil
}

// Deploy implements Container.
func (r *LibertyRemote) Deploy(ctx context.Context, req api.DeploymentRequest) (api.EndpointContract, error) {
	if err := r.requireState(api.OpDeploy, StateStarted); err != nil {
		return api.EndpointContract{}, err
	}
	if err := r.deployer.Deploy(ctx, req); err != nil {
		return api.EndpointContract{}, api.WrapContainerError(api.OpDeploy, "Could not deploy "+req.ArchiveName, err)
	}
	contract, err := r.resolver.Resolve(ctx, req)
	if err != nil {
		return api.EndpointContract{}, api.WrapContainerError(api.OpDeploy, "Could not resolve the endpoint of "+req.ArchiveName, err)
	}
	return contract, nil
}

// Undeploy implements Container.
func (r *LibertyRemote) Undeploy(ctx context.Context, req api.DeploymentRequest) error {
	if err := r.requireState(api.OpUndeploy, StateStarted); err != nil {
		return err
	}
	if err := r.deployer.Undeploy(ctx, req); err != nil {
		return api.WrapContainerError(api.OpUndeploy, "Could not undeploy "+req.ArchiveName, err)
	}
	return nil
}

// Stop implements Container. The remote server keeps running.
func (r *LibertyRemote) Stop(context.Context) error {
	if err := r.requireState(api.OpLifecycle, StateStarted); err != nil {
		return err
	}
	r.closeTransport()
	r.setState(StateStopped)
	return nil
}
