package mbean

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Connection is an open session against a server's MBean registry.
type Connection interface {
	// IsRegistered reports whether name is registered.
	IsRegistered(ctx context.Context, name ObjectName) (bool, error)
	// GetAttribute reads one attribute of a registered MBean.
	GetAttribute(ctx context.Context, name ObjectName, attribute string) (any, error)
	// QueryNames lists the registered names matching pattern.
	QueryNames(ctx context.Context, pattern ObjectName) ([]ObjectName, error)
	// Close releases the session.
	Close() error
}

// ErrUnsupportedProtocol is returned by Dial for connector addresses that
// wasdeploy cannot speak, such as the RMI based local connector.
var ErrUnsupportedProtocol = errors.New("unsupported connector protocol")

// Connector address schemes Dial understands.
const (
	SchemeJMXREST = "service:jmx:rest://"
	SchemeHTTPS   = "https://"
)

// IsDialable reports whether Dial accepts address.
func IsDialable(address string) bool {
	return strings.HasPrefix(address, SchemeJMXREST) || strings.HasPrefix(address, SchemeHTTPS)
}

// RESTBaseURL converts a connector address into the REST connector base URL.
func RESTBaseURL(address string) (string, error) {
	switch {
	case strings.HasPrefix(address, SchemeJMXREST):
		address = SchemeHTTPS + strings.TrimPrefix(address, SchemeJMXREST)
	case strings.HasPrefix(address, SchemeHTTPS):
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProtocol, address)
	}
	u, err := url.Parse(address)
	if err != nil {
		return "", err
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/" + ConnectorPath
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}

// Dial opens a connection to the connector at address.
func Dial(ctx context.Context, address string, opts RESTOptions) (Connection, error) {
	base, err := RESTBaseURL(address)
	if err != nil {
		return nil, err
	}
	opts.BaseURL = base
	client, err := NewRESTClient(opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
