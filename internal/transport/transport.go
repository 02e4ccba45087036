package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"wasdeploy/internal/api"
	"wasdeploy/internal/mbean"
)

const subsystem = "Transport"

// Transport talks to a server's management plane.
type Transport interface {
	// Kind identifies the implementation.
	Kind() api.TransportKind

	// Connect opens the management session. It fails with an
	// api.ConnectError when the endpoint cannot be reached or
	// authenticated.
	Connect(ctx context.Context) error

	// Upload stores the archive of req at destination and returns the
	// location the server knows it by.
	Upload(ctx context.Context, req api.DeploymentRequest, destination string) (string, error)

	// Remove deletes an uploaded artifact or application. Removing
	// something already absent is only an error outside fail-safe mode.
	Remove(ctx context.Context, target string) error

	// QueryRegistered reports whether the application is registered.
	QueryRegistered(ctx context.Context, appID string) (bool, error)

	// QueryRuntimeState returns the application's runtime state; STARTED
	// means the application serves requests.
	QueryRuntimeState(ctx context.Context, appID string) (string, error)

	// IsReachable reports whether the management endpoint answers.
	IsReachable(ctx context.Context) bool

	// ListRegistered returns the names of every registered management
	// object, for diagnostics.
	ListRegistered(ctx context.Context) ([]string, error)

	// Connection exposes the registry of a connected transport.
	Connection() mbean.Connection

	// Close ends the session.
	Close() error
}

// Credentials authenticate against the management plane.
type Credentials struct {
	Username string
	Password string
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func notConnected(op string) error {
	return &api.TransportError{Operation: op, Message: "not connected"}
}

// registry implements the read side of Transport for connectors that
// expose the Liberty ApplicationMBean.
type registry struct {
	conn mbean.Connection
}

func (r *registry) Connection() mbean.Connection { return r.conn }

func (r *registry) QueryRegistered(ctx context.Context, appID string) (bool, error) {
	if r.conn == nil {
		return false, notConnected("isRegistered")
	}
	return r.conn.IsRegistered(ctx, mbean.ApplicationMBean(appID))
}

func (r *registry) QueryRuntimeState(ctx context.Context, appID string) (string, error) {
	if r.conn == nil {
		return "", notConnected("getAttribute")
	}
	v, err := r.conn.GetAttribute(ctx, mbean.ApplicationMBean(appID), mbean.StateAttribute)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", &api.TransportError{Operation: "getAttribute", Message: fmt.Sprintf("unexpected State value %v", v)}
	}
	return s, nil
}

func (r *registry) ListRegistered(ctx context.Context) ([]string, error) {
	if r.conn == nil {
		return nil, notConnected("queryNames")
	}
	names, err := r.conn.QueryNames(ctx, mbean.All())
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n.String())
	}
	return out, nil
}

func (r *registry) Close() error {
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}
