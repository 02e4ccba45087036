package soap

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"wasdeploy/internal/api"
	"wasdeploy/internal/mbean"
	"wasdeploy/pkg/logging"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

const subsystem = "SOAP"

// Options configures a Client.
type Options struct {
	Host string
	Port int

	// Secure selects https and basic authentication.
	Secure   bool
	Username string
	Password string

	// TrustStore is a PEM bundle of CA certificates; KeyStore a PEM file
	// holding the client certificate and its key.
	TrustStore         string
	KeyStore           string
	InsecureSkipVerify bool

	RetryMax int
	Timeout  time.Duration

	// PollInterval is how often subscriptions pull notifications.
	PollInterval time.Duration
}

// Client is an AdminClient for the SOAP connector of a WebSphere server.
type Client struct {
	endpoint string
	opts     Options
	session  string
	http     *retryablehttp.Client
}

var _ mbean.Connection = (*Client)(nil)

// NewClient creates a client. No request is sent until the first call.
func NewClient(opts Options) (*Client, error) {
	scheme := "http"
	if opts.Secure {
		scheme = "https"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	endpoint := (&url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Path:   "/",
	}).String()

	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}
	if opts.Secure {
		tlsConfig, err := tlsConfig(opts)
		if err != nil {
			return nil, err
		}
		if t, ok := client.HTTPClient.Transport.(*http.Transport); ok {
			t.TLSClientConfig = tlsConfig
		}
	}

	return &Client{
		endpoint: endpoint,
		opts:     opts,
		session:  uuid.NewString(),
		http:     client,
	}, nil
}

func tlsConfig(opts Options) (*tls.Config, error) {
	cfg := &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify} //nolint:gosec
	if opts.TrustStore != "" {
		pem, err := os.ReadFile(opts.TrustStore)
		if err != nil {
			return nil, fmt.Errorf("failed to read trust store: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("trust store %s holds no PEM certificates", opts.TrustStore)
		}
		cfg.RootCAs = pool
	}
	if opts.KeyStore != "" {
		pem, err := os.ReadFile(opts.KeyStore)
		if err != nil {
			return nil, fmt.Errorf("failed to read key store: %w", err)
		}
		cert, err := tls.X509KeyPair(pem, pem)
		if err != nil {
			return nil, fmt.Errorf("invalid key store %s: %w", opts.KeyStore, err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// Endpoint returns the connector URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Request is one management call.
type Request struct {
	Operation  string  `xml:"operation,attr"`
	ObjectName string  `xml:"objectName,attr,omitempty"`
	Attribute  string  `xml:"attribute,attr,omitempty"`
	Method     string  `xml:"method,attr,omitempty"`
	Params     []Value `xml:"param"`
}

type requestEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	SOAPNS  string   `xml:"xmlns:soapenv,attr"`
	AdminNS string   `xml:"xmlns:adm,attr"`
	Session string   `xml:"soapenv:Header>adm:session"`
	Request Request  `xml:"soapenv:Body>adm:request"`
}

// Response is the body of a successful call.
type Response struct {
	Value         Value          `xml:"value"`
	Notifications []Notification `xml:"notification"`
}

type fault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type responseEnvelope struct {
	Fault    *fault    `xml:"Body>Fault"`
	Response *Response `xml:"Body>response"`
}

// Namespaces used in request envelopes.
const (
	EnvelopeNamespace = "http://schemas.xmlsoap.org/soap/envelope/"
	AdminNamespace    = "urn:wasdeploy:admin"
)

// Call sends one request and returns the decoded response.
func (c *Client) Call(ctx context.Context, req Request) (*Response, error) {
	payload, err := xml.Marshal(requestEnvelope{
		SOAPNS:  EnvelopeNamespace,
		AdminNS: AdminNamespace,
		Session: c.session,
		Request: req,
	})
	if err != nil {
		return nil, &api.TransportError{Operation: req.Operation, Err: err}
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, append([]byte(xml.Header), payload...))
	if err != nil {
		return nil, &api.TransportError{Operation: req.Operation, Err: err}
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("SOAPAction", `"urn:AdminService"`)
	if c.opts.Secure && c.opts.Username != "" {
		httpReq.SetBasicAuth(c.opts.Username, c.opts.Password)
	}

	logging.Debug(subsystem, "%s %s", req.Operation, req.ObjectName)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &api.TransportError{Operation: req.Operation, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, &api.TransportError{Operation: req.Operation, StatusCode: resp.StatusCode, Err: err}
	}

	var env responseEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, &api.TransportError{
			Operation:  req.Operation,
			StatusCode: statusIfError(resp.StatusCode),
			Message:    "invalid response: " + snippet(body),
			Err:        err,
		}
	}
	if env.Fault != nil {
		return nil, &api.TransportError{
			Operation:  req.Operation,
			StatusCode: statusIfError(resp.StatusCode),
			Message:    strings.TrimSpace(env.Fault.String),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &api.TransportError{Operation: req.Operation, StatusCode: resp.StatusCode, Message: snippet(body)}
	}
	if env.Response == nil {
		return &Response{Value: Null()}, nil
	}
	return env.Response, nil
}

func statusIfError(code int) int {
	if code == http.StatusOK {
		return 0
	}
	return code
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return s
}

func (c *Client) value(ctx context.Context, req Request) (any, error) {
	resp, err := c.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	v, err := resp.Value.Interface()
	if err != nil {
		return nil, &api.TransportError{Operation: req.Operation, Message: "invalid value", Err: err}
	}
	return v, nil
}

// GetServerMBean returns the name of the server MBean of the process the
// connector belongs to. Its key properties identify cell, node, process
// and processType.
func (c *Client) GetServerMBean(ctx context.Context) (mbean.ObjectName, error) {
	v, err := c.value(ctx, Request{Operation: "getServerMBean"})
	if err != nil {
		return mbean.ObjectName{}, err
	}
	s, _ := v.(string)
	name, err := mbean.ParseObjectName(s)
	if err != nil {
		return mbean.ObjectName{}, &api.TransportError{Operation: "getServerMBean", Err: err}
	}
	return name, nil
}

// IsRegistered implements mbean.Connection.
func (c *Client) IsRegistered(ctx context.Context, name mbean.ObjectName) (bool, error) {
	v, err := c.value(ctx, Request{Operation: "isRegistered", ObjectName: name.String()})
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

// GetAttribute implements mbean.Connection.
func (c *Client) GetAttribute(ctx context.Context, name mbean.ObjectName, attribute string) (any, error) {
	return c.value(ctx, Request{Operation: "getAttribute", ObjectName: name.String(), Attribute: attribute})
}

// QueryNames implements mbean.Connection.
func (c *Client) QueryNames(ctx context.Context, pattern mbean.ObjectName) ([]mbean.ObjectName, error) {
	v, err := c.value(ctx, Request{Operation: "queryNames", ObjectName: pattern.String()})
	if err != nil {
		return nil, err
	}
	return objectNames("queryNames", v)
}

func objectNames(op string, v any) ([]mbean.ObjectName, error) {
	items, _ := v.([]any)
	names := make([]mbean.ObjectName, 0, len(items))
	for _, item := range items {
		s, _ := item.(string)
		name, err := mbean.ParseObjectName(s)
		if err != nil {
			return nil, &api.TransportError{Operation: op, Err: err}
		}
		names = append(names, name)
	}
	return names, nil
}

// Invoke calls an MBean operation.
func (c *Client) Invoke(ctx context.Context, name mbean.ObjectName, method string, params ...Value) (any, error) {
	return c.value(ctx, Request{Operation: "invoke", ObjectName: name.String(), Method: method, Params: params})
}

// QueryConfigObjects lists the configuration object ids of type under
// scope. An empty scope searches the whole cell.
func (c *Client) QueryConfigObjects(ctx context.Context, scope, typ string) ([]string, error) {
	v, err := c.value(ctx, Request{Operation: "queryConfigObjects", Params: []Value{String(scope), String(typ)}})
	if err != nil {
		return nil, err
	}
	items, _ := v.([]any)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

// ConfigAttribute reads one attribute of a configuration object.
func (c *Client) ConfigAttribute(ctx context.Context, id, attribute string) (any, error) {
	return c.value(ctx, Request{Operation: "getConfigAttribute", Attribute: attribute, Params: []Value{String(id)}})
}

// UploadFile copies an archive to the server's staging area and returns
// the path the server stored it under.
func (c *Client) UploadFile(ctx context.Context, name string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", &api.TransportError{Operation: "uploadFile", Message: "reading archive", Err: err}
	}
	v, err := c.value(ctx, Request{
		Operation: "uploadFile",
		Params:    []Value{String(name), {Type: TypeBase64, Text: base64.StdEncoding.EncodeToString(data)}},
	})
	if err != nil {
		return "", err
	}
	path, _ := v.(string)
	if path == "" {
		return "", &api.TransportError{Operation: "uploadFile", Message: "server returned no staging path"}
	}
	return path, nil
}

// Close implements mbean.Connection.
func (c *Client) Close() error {
	c.http.HTTPClient.CloseIdleConnections()
	return nil
}
