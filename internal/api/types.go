package api

import (
	"fmt"
	"strings"
)

// TransportKind identifies the management transport used to talk to a server.
type TransportKind string

const (
	// TransportLocal attaches to a JVM on the same host and talks to its MBean server.
	TransportLocal TransportKind = "local-jmx"
	// TransportREST uses the Liberty IBMJMXConnectorREST endpoint over HTTPS.
	TransportREST TransportKind = "rest"
	// TransportSOAP uses the WebSphere SOAP connector (AdminClient).
	TransportSOAP TransportKind = "soap"
)

// ServerHandle describes a running server under management.
// It is created when a container starts and discarded when it stops.
type ServerHandle struct {
	// ProcessID is the JVM process id, empty when unknown (remote servers).
	ProcessID string `json:"processId,omitempty" yaml:"processId,omitempty"`

	// ManagementAddress is the connector address the transport talks to.
	ManagementAddress string `json:"managementAddress" yaml:"managementAddress"`

	// TransportKind is the kind of transport bound to ManagementAddress.
	TransportKind TransportKind `json:"transportKind" yaml:"transportKind"`

	// Attached is true when the server was already running and was located
	// rather than launched by this process.
	Attached bool `json:"attached,omitempty" yaml:"attached,omitempty"`
}

// String renders the handle for log messages.
func (h ServerHandle) String() string {
	if h.ProcessID != "" {
		return fmt.Sprintf("%s@%s (pid %s)", h.TransportKind, h.ManagementAddress, h.ProcessID)
	}
	return fmt.Sprintf("%s@%s", h.TransportKind, h.ManagementAddress)
}

// Servlet is a servlet name reachable under a context root.
type Servlet struct {
	Name        string `json:"name" yaml:"name"`
	ContextRoot string `json:"contextRoot" yaml:"contextRoot"`
}

// EndpointContract is everything a test client needs to reach a deployed
// application over HTTP. It is built once per successful deployment.
type EndpointContract struct {
	Host     string    `json:"host" yaml:"host"`
	Port     int       `json:"port" yaml:"port"`
	Servlets []Servlet `json:"servlets" yaml:"servlets"`
}

// BaseURL returns the HTTP URL of a context root on this endpoint.
func (c EndpointContract) BaseURL(contextRoot string) string {
	return fmt.Sprintf("http://%s:%d/%s", c.Host, c.Port, strings.TrimPrefix(contextRoot, "/"))
}

// ContextRoots returns the distinct context roots in the order they first appear.
func (c EndpointContract) ContextRoots() []string {
	seen := make(map[string]bool, len(c.Servlets))
	var roots []string
	for _, s := range c.Servlets {
		if seen[s.ContextRoot] {
			continue
		}
		seen[s.ContextRoot] = true
		roots = append(roots, s.ContextRoot)
	}
	return roots
}
