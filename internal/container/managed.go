package container

import (
	"context"
	"io"
	"os"

	"wasdeploy/internal/api"
	"wasdeploy/internal/config"
	"wasdeploy/internal/deployer"
	"wasdeploy/internal/endpoint"
	"wasdeploy/internal/jvm"
	"wasdeploy/internal/liberty"
	"wasdeploy/internal/locator"
	"wasdeploy/internal/supervisor"
	"wasdeploy/internal/transport"
	"wasdeploy/pkg/logging"
)

// launchProcess is a variable to allow mocking in tests
var launchProcess = supervisor.Launch

// Managed drives a Liberty server on this machine. It launches the
// server unless one is already running and attaching is allowed.
type Managed struct {
	base

	// tools enumerates local JVMs; replaced in tests.
	tools locator.VMTools
	// output receives the server's console when OutputToConsole is set.
	output io.Writer

	layout    *liberty.Layout
	hooks     *supervisor.ExitHooks
	stopWatch func()
	process   *supervisor.Process
	watcher   *liberty.StateWatcher
	deployer  *deployer.FileDeployer
	resolver  *endpoint.Resolver
}

var _ Container = (*Managed)(nil)

// NewManaged creates a liberty-managed container.
func NewManaged() *Managed {
	return &Managed{base: newBase(config.KindLibertyManaged), output: os.Stdout}
}

// Setup implements Container.
func (m *Managed) Setup(cfg config.Config) error {
	if err := m.configure(cfg); err != nil {
		return err
	}
	m.layout = liberty.NewLayout(cfg.Server.WlpHome, cfg.Server.Name)
	if m.tools == nil {
		m.tools = jvm.Tools{JavaHome: m.javaHome()}
	}
	return nil
}

func (m *Managed) javaHome() string {
	if m.cfg.Server.JavaHome != "" {
		return m.cfg.Server.JavaHome
	}
	return os.Getenv("JAVA_HOME")
}

// Start implements Container.
func (m *Managed) Start(ctx context.Context) error {
	if err := m.requireState(api.OpLifecycle, StateConfigured); err != nil {
		return err
	}
	if err := m.start(ctx); err != nil {
		m.cleanup()
		return api.WrapContainerError(api.OpLifecycle, "Could not start container", err)
	}
	return nil
}

func (m *Managed) start(ctx context.Context) error {
	cfg := m.cfg
	name := cfg.Server.Name
	loc := locator.New(m.tools)
	m.hooks = supervisor.NewExitHooks()
	// The first interrupt is left to the caller so Undeploy and Stop still run.
	m.stopWatch = m.hooks.Watch()

	opts := transport.LocalOptions{
		Prober:             loc,
		Credentials:        credentials(cfg),
		InsecureSkipVerify: true,
		RequestTimeout:     cfg.HTTP.RequestTimeoutDuration(),
		ConnectTimeout:     cfg.Timeouts.ServerStartTimeout(),
		FailSafe:           cfg.Deploy.FailSafeUndeployment,
		Hooks:              m.hooks,
	}

	handle, running := loc.Find(ctx, name)
	attached := false
	if running {
		if !cfg.Process.AllowConnectingToRunningServer {
			return &api.ConnectError{
				Address: handle.ProcessID,
				Message: "Connecting to an already running server is not allowed",
			}
		}
		logging.Info(subsystem, "Attaching to running server %s in JVM %s", name, handle.ProcessID)
		opts.PID = handle.ProcessID
		attached = true
	} else {
		if err := m.launch(); err != nil {
			return err
		}
		opts.FindPID = func(ctx context.Context) (string, bool) {
			h, ok := loc.Find(ctx, name)
			return h.ProcessID, ok
		}
		opts.Exited = m.process.Exited
		opts.StateAddress = m.watcher.Address
	}

	tr := transport.NewLocalTransport(opts)
	if err := tr.Connect(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.tr = tr
	m.mu.Unlock()

	poller := deployer.NewPoller(tr)
	m.deployer = deployer.NewFileDeployer(tr, poller, deployer.FileOptions{
		Layout:                m.layout,
		DeployType:            cfg.Deploy.Type,
		SharedLib:             cfg.Deploy.SharedLib,
		APITypeVisibility:     cfg.Deploy.APITypeVisibility,
		SecurityConfiguration: cfg.Deploy.SecurityConfiguration,
		DeployTimeout:         cfg.Timeouts.AppDeployTimeout(),
		UndeployTimeout:       cfg.Timeouts.AppUndeployTimeout(),
	})
	m.resolver = endpoint.NewResolver(tr.Connection(), endpoint.Options{
		Host:     cfg.Server.Host,
		HTTPPort: cfg.Server.HTTPPort,
	})

	if apps := cfg.Deploy.VerifyAppList(); len(apps) > 0 {
		perApp := cfg.Timeouts.VerifyAppsTimeout(1)
		if err := m.deployer.VerifyApps(ctx, apps, perApp); err != nil {
			return err
		}
	}

	m.started(tr, api.ServerHandle{
		ProcessID:         tr.PID(),
		ManagementAddress: tr.Address(),
		TransportKind:     tr.Kind(),
		Attached:          attached,
	})
	return nil
}

// launch prepares server.xml and the state directory and starts the
// server process.
func (m *Managed) launch() error {
	cfg := m.cfg
	if cfg.Process.AddConnectorFeature {
		sx, err := m.layout.ReadServerXML()
		if err != nil {
			return err
		}
		if sx.AddFeature(cfg.Process.ConnectorFeature) {
			logging.Info(subsystem, "Adding feature %s to %s", cfg.Process.ConnectorFeature, sx.Path())
			if err := sx.Save(); err != nil {
				return err
			}
		}
	}

	liberty.RemoveStale(m.layout.StateDir())
	watcher, err := liberty.WatchState(m.layout.StateDir())
	if err != nil {
		return err
	}
	m.watcher = watcher

	cmd := supervisor.LibertyCommand(m.javaHome(), cfg.Server.WlpHome, cfg.Server.Name, cfg.Process.JavaVMArguments)
	if cfg.Process.OutputToConsole {
		cmd.Output = m.output
	}
	process, err := launchProcess(cmd, m.hooks)
	if err != nil {
		return err
	}
	m.process = process
	logging.Info(subsystem, "Launched server %s as process %d", cfg.Server.Name, process.PID())
	return nil
}

// Deploy implements Container.
func (m *Managed) Deploy(ctx context.Context, req api.DeploymentRequest) (api.EndpointContract, error) {
	if err := m.requireState(api.OpDeploy, StateStarted); err != nil {
		return api.EndpointContract{}, err
	}
	if err := m.deployer.Deploy(ctx, req); err != nil {
		return api.EndpointContract{}, api.WrapContainerError(api.OpDeploy, "Could not deploy "+req.ArchiveName, err)
	}
	contract, err := m.resolver.Resolve(ctx, req)
	if err != nil {
		return api.EndpointContract{}, api.WrapContainerError(api.OpDeploy, "Could not resolve the endpoint of "+req.ArchiveName, err)
	}
	return contract, nil
}

// Undeploy implements Container.
func (m *Managed) Undeploy(ctx context.Context, req api.DeploymentRequest) error {
	if err := m.requireState(api.OpUndeploy, StateStarted); err != nil {
		return err
	}
	if err := m.deployer.Undeploy(ctx, req); err != nil {
		return api.WrapContainerError(api.OpUndeploy, "Could not undeploy "+req.ArchiveName, err)
	}
	return nil
}

// Stop implements Container.
func (m *Managed) Stop(context.Context) error {
	if err := m.requireState(api.OpLifecycle, StateStarted); err != nil {
		return err
	}
	m.cleanup()
	m.setState(StateStopped)
	return nil
}

// cleanup releases everything start acquired. The server process is only
// terminated when this container launched it.
func (m *Managed) cleanup() {
	m.closeTransport()
	if m.process != nil {
		logging.Info(subsystem, "Stopping server %s", m.cfg.Server.Name)
		m.process.Terminate()
		m.process = nil
	}
	if m.watcher != nil {
		_ = m.watcher.Close()
		m.watcher = nil
	}
	if m.hooks != nil {
		m.hooks.Run()
	}
	if m.stopWatch != nil {
		m.stopWatch()
		m.stopWatch = nil
	}
}
