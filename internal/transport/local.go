package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wasdeploy/internal/api"
	"wasdeploy/internal/mbean"
	"wasdeploy/pkg/logging"

	"github.com/cenkalti/backoff/v5"
)

// AddressProber reads the connector address a JVM publishes.
type AddressProber interface {
	ConnectorAddress(ctx context.Context, pid string) (string, error)
}

// LocalOptions configures the local attach transport.
type LocalOptions struct {
	// FindPID locates the server JVM; it is consulted until a pid is known.
	FindPID func(ctx context.Context) (string, bool)
	// PID is a JVM already known to run the server.
	PID    string
	Prober AddressProber
	// StateAddress returns the address the server published in its state
	// directory, empty until it is written.
	StateAddress func() string
	// Exited reports the exit code of a server launched by wasdeploy.
	Exited func() (int, bool)

	Credentials        Credentials
	InsecureSkipVerify bool
	RequestTimeout     time.Duration

	ConnectTimeout time.Duration
	RetryInterval  time.Duration

	FailSafe bool
	Hooks    ExitHookRegistry
}

// LocalTransport manages a server on this machine: archives are written
// straight to the server's directories and its registry is reached
// through the connector address found by attaching to the server JVM.
type LocalTransport struct {
	registry
	opts    LocalOptions
	pid     string
	address string
}

var _ Transport = (*LocalTransport)(nil)

// NewLocalTransport creates a local attach transport.
func NewLocalTransport(opts LocalOptions) *LocalTransport {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	return &LocalTransport{opts: opts, pid: opts.PID}
}

// Kind implements Transport.
func (t *LocalTransport) Kind() api.TransportKind { return api.TransportLocal }

// PID returns the server JVM the transport attached to.
func (t *LocalTransport) PID() string { return t.pid }

// Address returns the connector address in use.
func (t *LocalTransport) Address() string { return t.address }

// Connect waits, within ConnectTimeout, for the server JVM to appear and
// publish a connector address, then opens the connection. A launched
// server that exits first fails with api.ProcessStartupError.
func (t *LocalTransport) Connect(ctx context.Context) error {
	attempt := func() (mbean.Connection, error) {
		if t.opts.Exited != nil {
			if code, exited := t.opts.Exited(); exited {
				return nil, backoff.Permanent(&api.ProcessStartupError{ExitCode: code})
			}
		}
		address, err := t.probe(ctx)
		if err != nil {
			return nil, err
		}
		conn, err := mbean.Dial(ctx, address, mbean.RESTOptions{
			Username:           t.opts.Credentials.Username,
			Password:           t.opts.Credentials.Password,
			InsecureSkipVerify: t.opts.InsecureSkipVerify,
			Timeout:            t.opts.RequestTimeout,
		})
		if err != nil {
			logging.Debug(subsystem, "Connecting to %s failed: %v", address, err)
			return nil, err
		}
		t.address = address
		return conn, nil
	}

	opts := []backoff.RetryOption{backoff.WithBackOff(backoff.NewConstantBackOff(t.opts.RetryInterval))}
	if t.opts.ConnectTimeout > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(t.opts.ConnectTimeout))
	}
	conn, err := backoff.Retry(ctx, attempt, opts...)
	if err != nil {
		if api.IsProcessStartupError(err) {
			return err
		}
		return &api.ConnectError{
			Address: t.address,
			Message: "Unable to retrieve connector address for localConnector of started VM",
			Err:     err,
		}
	}

	logging.Info(subsystem, "Connected to JVM %s at %s", t.pid, t.address)
	t.conn = conn
	return nil
}

var errNoAddress = errors.New("no connector address published yet")

// probe returns the first dialable connector address: the JVM's agent and
// system properties, then the server's state file.
func (t *LocalTransport) probe(ctx context.Context) (string, error) {
	if t.pid == "" && t.opts.FindPID != nil {
		if pid, ok := t.opts.FindPID(ctx); ok {
			t.pid = pid
		}
	}

	var candidates []string
	if t.pid != "" && t.opts.Prober != nil {
		address, err := t.opts.Prober.ConnectorAddress(ctx, t.pid)
		if err != nil {
			logging.Debug(subsystem, "Attach to %s failed: %v", t.pid, err)
		} else if address != "" {
			candidates = append(candidates, address)
		}
	}
	if t.opts.StateAddress != nil {
		if address := t.opts.StateAddress(); address != "" {
			candidates = append(candidates, address)
		}
	}

	for _, address := range candidates {
		if mbean.IsDialable(address) {
			return address, nil
		}
		logging.Debug(subsystem, "Skipping connector address %s: %v", address, mbean.ErrUnsupportedProtocol)
	}
	if len(candidates) > 0 {
		return "", fmt.Errorf("%w: %v", mbean.ErrUnsupportedProtocol, candidates)
	}
	return "", errNoAddress
}

// Upload writes the archive to destination.
func (t *LocalTransport) Upload(_ context.Context, req api.DeploymentRequest, destination string) (string, error) {
	if err := writeArchive(req, destination); err != nil {
		return "", err
	}
	logging.Debug(subsystem, "Wrote %s", destination)
	return destination, nil
}

// Remove deletes the archive at target.
func (t *LocalTransport) Remove(_ context.Context, target string) error {
	return removeFile(target, t.opts.FailSafe, t.opts.Hooks)
}

// IsReachable implements Transport.
func (t *LocalTransport) IsReachable(ctx context.Context) bool {
	if t.conn == nil {
		return false
	}
	_, err := t.conn.QueryNames(ctx, mbean.ApplicationMBean("*"))
	return err == nil
}
