package container

import (
	"context"
	"sync"

	"wasdeploy/internal/api"
	"wasdeploy/internal/config"
	"wasdeploy/internal/transport"
	"wasdeploy/pkg/logging"
)

const subsystem = "Container"

// Container drives one server edition through the lifecycle
// Setup, Start, Deploy*, Undeploy*, Stop. Every error it returns is an
// *api.ContainerError.
type Container interface {
	// Kind returns the server edition the container drives.
	Kind() config.Kind

	// Setup validates and stores the configuration.
	Setup(cfg config.Config) error

	// Start connects to the server, launching it first when the kind
	// manages the server process.
	Start(ctx context.Context) error

	// Deploy deploys the archive and returns how to reach it.
	Deploy(ctx context.Context, req api.DeploymentRequest) (api.EndpointContract, error)

	// Undeploy removes a deployed archive.
	Undeploy(ctx context.Context, req api.DeploymentRequest) error

	// Stop disconnects and stops a server the container launched.
	Stop(ctx context.Context) error

	// Handle describes the server while the container is started.
	Handle() api.ServerHandle

	// IsReachable reports whether the management endpoint answers.
	IsReachable(ctx context.Context) bool
}

// State is the lifecycle state of a container.
type State string

const (
	StateNew        State = "New"
	StateConfigured State = "Configured"
	StateStarted    State = "Started"
	StateStopped    State = "Stopped"
)

// base holds the lifecycle bookkeeping shared by the container kinds.
type base struct {
	mu     sync.RWMutex
	kind   config.Kind
	state  State
	cfg    config.Config
	handle api.ServerHandle
	tr     transport.Transport
}

func newBase(kind config.Kind) base {
	return base{kind: kind, state: StateNew}
}

// Kind implements Container.
func (b *base) Kind() config.Kind { return b.kind }

// State returns the current lifecycle state.
func (b *base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Handle implements Container.
func (b *base) Handle() api.ServerHandle {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handle
}

// IsReachable implements Container.
func (b *base) IsReachable(ctx context.Context) bool {
	b.mu.RLock()
	tr := b.tr
	b.mu.RUnlock()
	return tr != nil && tr.IsReachable(ctx)
}

func (b *base) setState(state State) {
	b.mu.Lock()
	old := b.state
	b.state = state
	b.mu.Unlock()
	logging.Debug(subsystem, "%s container: %s -> %s", b.kind, old, state)
}

func (b *base) configure(cfg config.Config) error {
	if cfg.Kind != "" && cfg.Kind != b.kind {
		return api.WrapContainerError(api.OpLifecycle, "invalid configuration",
			config.NewConfigurationError("", "", config.ErrorTypeValidation, "configuration is for kind "+string(cfg.Kind), nil))
	}
	if err := config.Validate(cfg); err != nil {
		return api.WrapContainerError(api.OpLifecycle, "invalid configuration", err)
	}
	b.mu.Lock()
	b.cfg = cfg
	b.mu.Unlock()
	b.setState(StateConfigured)
	return nil
}

func (b *base) requireState(op api.Operation, want State) error {
	if state := b.State(); state != want {
		return &api.ContainerError{Op: op, Message: "container is " + string(state) + ", expected " + string(want)}
	}
	return nil
}

// started records a connected transport.
func (b *base) started(tr transport.Transport, handle api.ServerHandle) {
	b.mu.Lock()
	b.tr = tr
	b.handle = handle
	b.mu.Unlock()
	b.setState(StateStarted)
	logging.Info(subsystem, "Started %s", handle)
}

// closeTransport disconnects and forgets the server.
func (b *base) closeTransport() {
	b.mu.Lock()
	tr := b.tr
	b.tr = nil
	b.handle = api.ServerHandle{}
	b.mu.Unlock()
	if tr != nil {
		if err := tr.Close(); err != nil {
			logging.Warn(subsystem, "Closing %s transport: %v", tr.Kind(), err)
		}
	}
}

func credentials(cfg config.Config) transport.Credentials {
	return transport.Credentials{Username: cfg.Credentials.Username, Password: cfg.Credentials.Password}
}
