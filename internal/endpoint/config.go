package endpoint

import (
	"context"
	"fmt"
	"strings"

	"wasdeploy/internal/api"
	"wasdeploy/internal/descriptor"
	"wasdeploy/internal/mbean"
	"wasdeploy/pkg/logging"
)

// DefaultHostEndpoint is the special endpoint of a server entry that
// carries the default virtual host port.
const DefaultHostEndpoint = "WC_defaulthost"

// ConfigService is the part of a WebSphere traditional admin client the
// ConfigResolver reads from. soap.Client implements it.
type ConfigService interface {
	QueryConfigObjects(ctx context.Context, scope, typ string) ([]string, error)
	ConfigAttribute(ctx context.Context, id, attribute string) (any, error)
	QueryNames(ctx context.Context, pattern mbean.ObjectName) ([]mbean.ObjectName, error)
	GetAttribute(ctx context.Context, name mbean.ObjectName, attribute string) (any, error)
}

// ConfigResolver resolves endpoints of a WebSphere traditional server
// process from its cell configuration.
type ConfigResolver struct {
	svc     ConfigService
	node    string
	process string
}

// NewConfigResolver creates a resolver for the given node and server
// process, as named by the key properties of the server MBean.
func NewConfigResolver(svc ConfigService, node, process string) *ConfigResolver {
	return &ConfigResolver{svc: svc, node: node, process: process}
}

// Resolve builds the endpoint contract of an installed application.
// The node must exist; problems reading the deployment descriptors are
// logged and leave the servlet list incomplete.
func (r *ConfigResolver) Resolve(ctx context.Context, appName string) (api.EndpointContract, error) {
	nodeID, host, err := r.findNode(ctx)
	if err != nil {
		return api.EndpointContract{}, err
	}
	port, err := r.defaultHostPort(ctx, nodeID)
	if err != nil {
		return api.EndpointContract{}, err
	}
	logging.Debug(subsystem, "Generating HTTP context: %s, %d", host, port)

	contract := api.EndpointContract{Host: host, Port: port}
	servlets, err := r.descriptorServlets(ctx, appName)
	if err != nil {
		logging.Error(subsystem, err, "Error while processing the deployment descriptor of %s", appName)
	}
	contract.Servlets = servlets
	return contract, nil
}

func (r *ConfigResolver) findNode(ctx context.Context) (string, string, error) {
	nodes, err := r.svc.QueryConfigObjects(ctx, "", "Node")
	if err != nil {
		return "", "", err
	}
	for _, id := range nodes {
		name, err := r.svc.ConfigAttribute(ctx, id, "name")
		if err != nil {
			return "", "", err
		}
		if name != r.node {
			continue
		}
		host, err := r.svc.ConfigAttribute(ctx, id, "hostName")
		if err != nil {
			return "", "", err
		}
		if h, ok := host.(string); ok && h != "" {
			return id, h, nil
		}
	}
	return "", "", &api.TransportError{Operation: "queryConfigObjects", Message: fmt.Sprintf("Target node %s was not found.", r.node)}
}

// defaultHostPort returns the WC_defaulthost port of the server entry,
// zero when the entry or endpoint is missing.
func (r *ConfigResolver) defaultHostPort(ctx context.Context, nodeID string) (int, error) {
	entries, err := r.svc.QueryConfigObjects(ctx, nodeID, "ServerEntry")
	if err != nil {
		return 0, err
	}
	for _, id := range entries {
		name, err := r.svc.ConfigAttribute(ctx, id, "serverName")
		if err != nil {
			return 0, err
		}
		if name != r.process {
			continue
		}
		endpoints, err := r.svc.ConfigAttribute(ctx, id, "specialEndpoints")
		if err != nil {
			return 0, err
		}
		return endpointPort(endpoints, DefaultHostEndpoint), nil
	}
	return 0, nil
}

func endpointPort(endpoints any, endpointName string) int {
	list, _ := endpoints.([]any)
	for _, item := range list {
		entry, _ := item.(map[string]any)
		if entry["endPointName"] != endpointName {
			continue
		}
		endPoint, _ := entry["endPoint"].(map[string]any)
		port, _ := toInt(endPoint["port"])
		return port
	}
	return 0
}

func (r *ConfigResolver) descriptorServlets(ctx context.Context, appName string) ([]api.Servlet, error) {
	appDD, err := r.deploymentDescriptor(ctx, "WebSphere:type=J2EEApplication,name="+appName+",*")
	if err != nil {
		return nil, err
	}
	app, err := descriptor.ParseApplication([]byte(appDD))
	if err != nil {
		return nil, err
	}

	var servlets []api.Servlet
	for _, module := range app.WebModules {
		webDD, err := r.deploymentDescriptor(ctx, "WebSphere:type=WebModule,name="+module.URI+",*")
		if err != nil {
			return servlets, err
		}
		web, err := descriptor.ParseWebApp([]byte(webDD))
		if err != nil {
			return servlets, err
		}
		for _, mapping := range web.ServletMappings {
			if len(mapping.URLPatterns) == 0 {
				logging.Warn(subsystem, "Unable to find servlet-name in web-module %s deployment descriptor", module.URI)
				continue
			}
			pattern := mapping.URLPatterns[len(mapping.URLPatterns)-1]
			name := strings.Replace(pattern, "/", "", 1)
			logging.Debug(subsystem, "Adding servlet to context: %s, %s", name, module.ContextRoot)
			servlets = append(servlets, api.Servlet{Name: name, ContextRoot: module.ContextRoot})
		}
	}
	return servlets, nil
}

func (r *ConfigResolver) deploymentDescriptor(ctx context.Context, pattern string) (string, error) {
	on, err := mbean.ParseObjectName(pattern)
	if err != nil {
		return "", err
	}
	names, err := r.svc.QueryNames(ctx, on)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("unable to find %s in JMX", on.KeyProperty("name"))
	}
	v, err := r.svc.GetAttribute(ctx, names[0], "deploymentDescriptor")
	if err != nil {
		return "", err
	}
	dd, _ := v.(string)
	return dd, nil
}
