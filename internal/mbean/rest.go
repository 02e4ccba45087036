package mbean

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wasdeploy/internal/api"
	"wasdeploy/pkg/logging"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/errgroup"
)

const subsystem = "MBean"

// ConnectorPath is the context root of the Liberty REST connector.
const ConnectorPath = "IBMJMXConnectorREST"

// ErrFileNotFound is wrapped by DeleteFile when the server has no such file.
var ErrFileNotFound = errors.New("file not found on server")

// RESTOptions configures a RESTClient.
type RESTOptions struct {
	// BaseURL is the connector root, e.g. https://host:9443/IBMJMXConnectorREST.
	BaseURL  string
	Username string
	Password string

	InsecureSkipVerify bool
	RetryMax           int
	Timeout            time.Duration
}

// RESTClient talks to the Liberty REST connector. Reads are retried on
// connection errors and 5xx responses; uploads stream and are not retried.
type RESTClient struct {
	base string
	opts RESTOptions
	http *retryablehttp.Client
}

var _ Connection = (*RESTClient)(nil)

// NewRESTClient builds a client for opts.BaseURL.
func NewRESTClient(opts RESTOptions) (*RESTClient, error) {
	if _, err := url.Parse(opts.BaseURL); err != nil || opts.BaseURL == "" {
		return nil, fmt.Errorf("invalid connector URL %q", opts.BaseURL)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = leveledLogger{}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}
	if t, ok := client.HTTPClient.Transport.(*http.Transport); ok {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify} //nolint:gosec
	}

	return &RESTClient{
		base: strings.TrimSuffix(opts.BaseURL, "/"),
		opts: opts,
		http: client,
	}, nil
}

// BaseURL returns the connector root.
func (c *RESTClient) BaseURL() string { return c.base }

// Ping checks that the connector answers with 200.
func (c *RESTClient) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.base, nil)
	if err != nil {
		return &api.TransportError{Operation: "ping", Err: err}
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return statusError("ping", resp)
	}
	return nil
}

// IsRegistered implements Connection.
func (c *RESTClient) IsRegistered(ctx context.Context, name ObjectName) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, c.mbeanURL(name), nil)
	if err != nil {
		return false, &api.TransportError{Operation: "isRegistered", Err: err}
	}
	defer drain(resp)
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, statusError("isRegistered", resp)
}

type attributeValue struct {
	Value any    `json:"value"`
	Type  string `json:"type"`
}

// GetAttribute implements Connection.
func (c *RESTClient) GetAttribute(ctx context.Context, name ObjectName, attribute string) (any, error) {
	target := c.mbeanURL(name) + "/attributes/" + url.PathEscape(attribute)
	resp, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &api.TransportError{Operation: "getAttribute", Err: err}
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("getAttribute", resp)
	}

	var v attributeValue
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, &api.TransportError{Operation: "getAttribute", Message: "invalid response", Err: err}
	}
	return v.Value, nil
}

type mbeanRef struct {
	ObjectName string `json:"objectName"`
	ClassName  string `json:"className"`
	URL        string `json:"URL"`
}

// QueryNames implements Connection.
func (c *RESTClient) QueryNames(ctx context.Context, pattern ObjectName) ([]ObjectName, error) {
	target := c.base + "/mbeans?objectName=" + url.QueryEscape(pattern.String())
	resp, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &api.TransportError{Operation: "queryNames", Err: err}
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("queryNames", resp)
	}

	var refs []mbeanRef
	if err := json.NewDecoder(resp.Body).Decode(&refs); err != nil {
		return nil, &api.TransportError{Operation: "queryNames", Message: "invalid response", Err: err}
	}
	names := make([]ObjectName, 0, len(refs))
	for _, ref := range refs {
		name, err := ParseObjectName(ref.ObjectName)
		if err != nil {
			logging.Debug(subsystem, "Skipping unparsable object name: %v", err)
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// UploadFile streams content to path on the server's file system.
func (c *RESTClient) UploadFile(ctx context.Context, path string, content io.Reader) error {
	pr, pw := io.Pipe()

	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(pw, content)
		pw.CloseWithError(err)
		return err
	})

	reqErr := c.upload(ctx, path, pr)
	pr.Close()
	copyErr := g.Wait()

	if reqErr != nil {
		return reqErr
	}
	if copyErr != nil && !errors.Is(copyErr, io.ErrClosedPipe) {
		return &api.TransportError{Operation: "upload", Message: "reading archive", Err: copyErr}
	}
	return nil
}

func (c *RESTClient) upload(ctx context.Context, path string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.fileURL(path), body)
	if err != nil {
		return &api.TransportError{Operation: "upload", Err: err}
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	c.authorize(req)
	logging.Debug(subsystem, "POST %s", req.URL)

	resp, err := c.http.HTTPClient.Do(req)
	if err != nil {
		return &api.TransportError{Operation: "upload", Err: err}
	}
	defer drain(resp)
	if resp.StatusCode < http.StatusOK || resp.StatusCode > http.StatusNoContent {
		return statusError("upload", resp)
	}
	return nil
}

// DeleteFile removes path on the server and returns the response status.
func (c *RESTClient) DeleteFile(ctx context.Context, path string) (int, error) {
	resp, err := c.do(ctx, http.MethodDelete, c.fileURL(path), nil)
	if err != nil {
		return 0, &api.TransportError{Operation: "delete", Err: err}
	}
	defer drain(resp)
	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode <= http.StatusNoContent:
		return resp.StatusCode, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		terr := statusError("delete", resp)
		terr.Err = ErrFileNotFound
		return resp.StatusCode, terr
	}
	return resp.StatusCode, statusError("delete", resp)
}

// Close implements Connection.
func (c *RESTClient) Close() error {
	c.http.HTTPClient.CloseIdleConnections()
	return nil
}

func (c *RESTClient) mbeanURL(name ObjectName) string {
	return c.base + "/mbeans/" + url.PathEscape(name.Canonical())
}

func (c *RESTClient) fileURL(path string) string {
	return c.base + "/file/" + url.QueryEscape(path)
}

func (c *RESTClient) authorize(req *http.Request) {
	if c.opts.Username != "" {
		req.SetBasicAuth(c.opts.Username, c.opts.Password)
	}
}

func (c *RESTClient) do(ctx context.Context, method, target string, body any) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req.Request)
	logging.Debug(subsystem, "%s %s", method, target)
	return c.http.Do(req)
}

func statusError(op string, resp *http.Response) *api.TransportError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &api.TransportError{
		Operation:  op,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

// leveledLogger routes retryablehttp's messages to debug logging.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) { logging.Debug(subsystem, "%s %v", msg, kv) }
func (leveledLogger) Info(msg string, kv ...interface{})  { logging.Debug(subsystem, "%s %v", msg, kv) }
func (leveledLogger) Debug(msg string, kv ...interface{}) { logging.Debug(subsystem, "%s %v", msg, kv) }
func (leveledLogger) Warn(msg string, kv ...interface{})  { logging.Debug(subsystem, "%s %v", msg, kv) }
