package endpoint

import (
	"context"
	"fmt"
	"strings"

	"wasdeploy/internal/api"
	"wasdeploy/internal/archive"
	"wasdeploy/internal/mbean"
	"wasdeploy/pkg/logging"
)

const subsystem = "Endpoint"

// DefaultServletName is the test runner servlet every testable web
// module carries.
const DefaultServletName = "ArquillianServletRunner"

// DefaultHost is used when no host is configured.
const DefaultHost = "localhost"

// Options overrides what would otherwise be discovered.
type Options struct {
	Host     string
	HTTPPort int
}

// Resolver resolves endpoints through a Liberty MBean registry.
type Resolver struct {
	conn mbean.Connection
	opts Options
}

// NewResolver creates a Resolver reading from conn.
func NewResolver(conn mbean.Connection, opts Options) *Resolver {
	return &Resolver{conn: conn, opts: opts}
}

// Resolve builds the endpoint contract of a deployed request.
func (r *Resolver) Resolve(ctx context.Context, req api.DeploymentRequest) (api.EndpointContract, error) {
	port, err := r.httpPort(ctx)
	if err != nil {
		return api.EndpointContract{}, err
	}
	contract := api.EndpointContract{Host: r.host(), Port: port}

	modules, err := archive.WebModules(req)
	if err != nil {
		return api.EndpointContract{}, err
	}

	for _, module := range modules {
		names, err := r.servletNames(ctx, req.DeployName, module)
		if err != nil {
			return api.EndpointContract{}, err
		}
		for _, name := range names {
			contract.Servlets = append(contract.Servlets, api.Servlet{Name: name, ContextRoot: module.ContextRoot})
		}
	}

	if len(contract.Servlets) == 0 {
		// No J2EE management MBeans: guess where the runner lives.
		contextRoot := req.DeployName
		if len(modules) == 1 {
			contextRoot = modules[0].ContextRoot
		}
		contract.Servlets = append(contract.Servlets, api.Servlet{Name: DefaultServletName, ContextRoot: contextRoot})
	}

	logging.Debug(subsystem, "Endpoint of %s: %s:%d with %d servlets", req.DeployName, contract.Host, contract.Port, len(contract.Servlets))
	return contract, nil
}

func (r *Resolver) host() string {
	if r.opts.Host != "" {
		return r.opts.Host
	}
	return DefaultHost
}

// servletNames lists the registered servlets of one module. A testable
// module without registered servlets gets the test runner.
func (r *Resolver) servletNames(ctx context.Context, appName string, module archive.WebModule) ([]string, error) {
	found, err := r.conn.QueryNames(ctx, mbean.ServletPattern(appName, module.Name))
	if err != nil {
		return nil, &api.TransportError{Operation: "query servlets", Message: "Error trying to retrieve servlet names", Err: err}
	}
	var names []string
	for _, on := range found {
		names = append(names, SimpleName(on.KeyProperty("name")))
	}
	if len(names) == 0 && module.Testable {
		names = append(names, DefaultServletName)
	}
	return names, nil
}

func (r *Resolver) httpPort(ctx context.Context) (int, error) {
	if r.opts.HTTPPort != 0 {
		return r.opts.HTTPPort, nil
	}
	endpoint := mbean.HTTPEndpoint()
	registered, err := r.conn.IsRegistered(ctx, endpoint)
	if err == nil && !registered {
		err = fmt.Errorf("the Channel Framework MBean with endpointName %q does not exist", endpoint.KeyProperty("name"))
	}
	var v any
	if err == nil {
		v, err = r.conn.GetAttribute(ctx, endpoint, "Port")
	}
	if err == nil {
		port, ok := toInt(v)
		if ok {
			return port, nil
		}
		err = fmt.Errorf("unexpected Port value %v", v)
	}
	return 0, &api.TransportError{
		Operation: "read http port",
		Message:   "Exception while retrieving httpPort information from Channel Framework MBean. The httpPort can also be manually configured",
		Err:       err,
	}
}

// SimpleName strips a fully qualified class name down to its simple name.
func SimpleName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
