package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"wasdeploy/internal/api"
	"wasdeploy/internal/mbean"
	"wasdeploy/pkg/logging"
)

// DefaultSettleDelay is how long a removal is given to reach the server's
// file monitor before its registry is polled.
const DefaultSettleDelay = 3 * time.Second

// RESTOptions configures the REST transport.
type RESTOptions struct {
	Host      string
	HTTPSPort int

	Credentials        Credentials
	InsecureSkipVerify bool
	RetryMax           int
	RequestTimeout     time.Duration

	FailSafe    bool
	SettleDelay time.Duration
}

// RESTTransport manages a remote Liberty server through its REST
// connector: archives travel through the connector's file service.
type RESTTransport struct {
	registry
	opts   RESTOptions
	client *mbean.RESTClient
	sleep  func(context.Context, time.Duration) error
}

var _ Transport = (*RESTTransport)(nil)

// NewRESTTransport creates a REST transport.
func NewRESTTransport(opts RESTOptions) *RESTTransport {
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	return &RESTTransport{opts: opts, sleep: sleepContext}
}

// Kind implements Transport.
func (t *RESTTransport) Kind() api.TransportKind { return api.TransportREST }

// BaseURL returns the connector URL.
func (t *RESTTransport) BaseURL() string {
	return "https://" + joinHostPort(t.opts.Host, t.opts.HTTPSPort) + "/" + mbean.ConnectorPath
}

// Connect checks that the connector answers with the configured
// credentials.
func (t *RESTTransport) Connect(ctx context.Context) error {
	client, err := mbean.NewRESTClient(mbean.RESTOptions{
		BaseURL:            t.BaseURL(),
		Username:           t.opts.Credentials.Username,
		Password:           t.opts.Credentials.Password,
		InsecureSkipVerify: t.opts.InsecureSkipVerify,
		RetryMax:           t.opts.RetryMax,
		Timeout:            t.opts.RequestTimeout,
	})
	if err != nil {
		return &api.ConnectError{Address: t.BaseURL(), Message: "Invalid connector settings", Err: err}
	}
	if err := client.Ping(ctx); err != nil {
		return &api.ConnectError{Address: t.BaseURL(), Message: "Remote server is not started", Err: err}
	}
	logging.Info(subsystem, "Connected to %s", t.BaseURL())
	t.client = client
	t.conn = client
	return nil
}

// Upload posts the archive to destination on the server's file system.
func (t *RESTTransport) Upload(ctx context.Context, req api.DeploymentRequest, destination string) (string, error) {
	if t.client == nil {
		return "", notConnected("upload")
	}
	src, err := req.Open()
	if err != nil {
		return "", &api.ArtifactError{Path: req.ArchiveName, Message: "Cannot read archive", Err: err}
	}
	defer src.Close()

	if err := t.client.UploadFile(ctx, destination, src); err != nil {
		return "", err
	}
	logging.Debug(subsystem, "Uploaded %s to %s", req.ArchiveName, destination)
	return destination, nil
}

// Remove deletes the file at target. After a 204 the transport waits for
// the server to notice the removal.
func (t *RESTTransport) Remove(ctx context.Context, target string) error {
	if t.client == nil {
		return notConnected("delete")
	}
	status, err := t.client.DeleteFile(ctx, target)
	if err != nil {
		if errors.Is(err, mbean.ErrFileNotFound) {
			if t.opts.FailSafe {
				logging.Info(subsystem, "%s already removed", target)
				return nil
			}
			return &api.ArtifactError{Path: target, Message: "Unable to delete", Err: err}
		}
		return err
	}
	if status == http.StatusNoContent && t.opts.SettleDelay > 0 {
		return t.sleep(ctx, t.opts.SettleDelay)
	}
	return nil
}

// IsReachable implements Transport.
func (t *RESTTransport) IsReachable(ctx context.Context) bool {
	return t.client != nil && t.client.Ping(ctx) == nil
}

// Close implements Transport.
func (t *RESTTransport) Close() error {
	t.client = nil
	return t.registry.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
