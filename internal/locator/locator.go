package locator

import (
	"context"
	"strings"

	"wasdeploy/internal/api"
	"wasdeploy/internal/jvm"
	"wasdeploy/pkg/logging"
)

const subsystem = "Locator"

// Launcher jars a Liberty server JVM is started from.
var DefaultLaunchers = []string{"ws-server.jar", "ws-launch.jar"}

// VMTools enumerates JVMs and reads their properties.
type VMTools interface {
	List(ctx context.Context) ([]jvm.Descriptor, error)
	SystemProperties(ctx context.Context, pid string) (map[string]string, error)
	AgentProperties(ctx context.Context, pid string) (map[string]string, error)
}

// Locator finds running server JVMs.
type Locator struct {
	tools     VMTools
	launchers []string
}

// New creates a Locator matching the default launcher jars.
func New(tools VMTools) *Locator {
	return &Locator{tools: tools, launchers: DefaultLaunchers}
}

// Find returns the first JVM whose display name contains serverName and one
// of the launcher jars. When several JVMs match, which one is returned is
// unspecified. Failure to enumerate JVMs is logged and reported as not found.
func (l *Locator) Find(ctx context.Context, serverName string) (api.ServerHandle, bool) {
	vms, err := l.tools.List(ctx)
	if err != nil {
		logging.Warn(subsystem, "Cannot enumerate JVMs: %v", err)
		return api.ServerHandle{}, false
	}

	for _, vm := range vms {
		logging.Debug(subsystem, "JVM %s: %s", vm.ID, vm.DisplayName)
		if l.matches(vm.DisplayName, serverName) {
			logging.Debug(subsystem, "Found server %s in JVM %s", serverName, vm.ID)
			return api.ServerHandle{ProcessID: vm.ID, TransportKind: api.TransportLocal}, true
		}
	}
	return api.ServerHandle{}, false
}

func (l *Locator) matches(displayName, serverName string) bool {
	if !strings.Contains(displayName, serverName) {
		return false
	}
	for _, launcher := range l.launchers {
		if strings.Contains(displayName, launcher) {
			return true
		}
	}
	return false
}

// ConnectorAddress reads the JMX connector address a JVM publishes. Agent
// properties are probed first and system properties second, since some
// vendors only publish it in the latter. An empty address with a nil error
// means the JVM has not published one yet.
func (l *Locator) ConnectorAddress(ctx context.Context, pid string) (string, error) {
	agent, err := l.tools.AgentProperties(ctx, pid)
	if err != nil {
		return "", err
	}
	if address := agent[jvm.LocalConnectorAddressProperty]; address != "" {
		logging.Debug(subsystem, "Connector address from agent properties: %s", address)
		return address, nil
	}

	system, err := l.tools.SystemProperties(ctx, pid)
	if err != nil {
		return "", err
	}
	if address := system[jvm.LocalConnectorAddressProperty]; address != "" {
		logging.Debug(subsystem, "Connector address from system properties: %s", address)
		return address, nil
	}
	return "", nil
}
