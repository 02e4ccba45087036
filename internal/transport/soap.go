package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wasdeploy/internal/api"
	"wasdeploy/internal/mbean"
	"wasdeploy/internal/notification"
	"wasdeploy/internal/soap"
	"wasdeploy/pkg/logging"
)

// Process types a SOAP connector may belong to. Only an unmanaged
// application server can be deployed to directly.
const (
	ProcessDeploymentManager = "DeploymentManager"
	ProcessNodeAgent         = "NodeAgent"
	ProcessManaged           = "ManagedProcess"
	ProcessUnmanaged         = "UnManagedProcess"
)

// SOAPOptions configures the SOAP transport.
type SOAPOptions struct {
	Host string
	Port int

	Secure             bool
	Credentials        Credentials
	TrustStore         string
	KeyStore           string
	InsecureSkipVerify bool
	RetryMax           int
	RequestTimeout     time.Duration
	PollInterval       time.Duration

	// NotificationWait bounds the wait for a management task; zero waits
	// without limit.
	NotificationWait time.Duration
}

// InstallOptions are the application installation preferences.
type InstallOptions struct {
	Locale            string
	ClassLoadingMode  string
	ClassLoaderPolicy string
	ArchiveUpload     bool
}

// SOAPTransport manages a WebSphere traditional server through its SOAP
// connector. Installation and removal complete through application
// management notifications.
type SOAPTransport struct {
	opts        SOAPOptions
	client      *soap.Client
	serverMBean mbean.ObjectName
	appMgmt     mbean.ObjectName
}

var _ Transport = (*SOAPTransport)(nil)

// NewSOAPTransport creates a SOAP transport.
func NewSOAPTransport(opts SOAPOptions) *SOAPTransport {
	return &SOAPTransport{opts: opts}
}

// Kind implements Transport.
func (t *SOAPTransport) Kind() api.TransportKind { return api.TransportSOAP }

// Connect opens the connector session and checks the process type of the
// server behind it.
func (t *SOAPTransport) Connect(ctx context.Context) error {
	address := joinHostPort(t.opts.Host, t.opts.Port)
	client, err := soap.NewClient(soap.Options{
		Host:               t.opts.Host,
		Port:               t.opts.Port,
		Secure:             t.opts.Secure,
		Username:           t.opts.Credentials.Username,
		Password:           t.opts.Credentials.Password,
		TrustStore:         t.opts.TrustStore,
		KeyStore:           t.opts.KeyStore,
		InsecureSkipVerify: t.opts.InsecureSkipVerify,
		RetryMax:           t.opts.RetryMax,
		Timeout:            t.opts.RequestTimeout,
		PollInterval:       t.opts.PollInterval,
	})
	if err != nil {
		return &api.ConnectError{Address: address, Message: "Invalid connector settings", Err: err}
	}

	server, err := client.GetServerMBean(ctx)
	if err != nil {
		return &api.ConnectError{Address: address, Message: "Could not create AdminClient", Err: err}
	}
	switch processType := server.KeyProperty("processType"); processType {
	case ProcessDeploymentManager, ProcessNodeAgent, ProcessManaged:
		return &api.ConnectError{Address: address, Message: fmt.Sprintf("Connecting to a %s is not supported.", processType)}
	}

	names, err := client.QueryNames(ctx, mbean.MustParseObjectName("WebSphere:type=AppManagement,*"))
	if err != nil {
		return &api.ConnectError{Address: address, Message: "Could not find the AppManagement MBean", Err: err}
	}
	if len(names) == 0 {
		return &api.ConnectError{Address: address, Message: "Could not find the AppManagement MBean"}
	}

	logging.Info(subsystem, "Connected to %s on node %s", server.KeyProperty("process"), server.KeyProperty("node"))
	t.client = client
	t.serverMBean = server
	t.appMgmt = names[0]
	return nil
}

// Client returns the connector client of a connected transport.
func (t *SOAPTransport) Client() *soap.Client { return t.client }

// ServerMBean returns the server MBean read at connect time.
func (t *SOAPTransport) ServerMBean() mbean.ObjectName { return t.serverMBean }

// Upload stages the archive on the server. destination names the staged
// file; the returned path is where the server stored it.
func (t *SOAPTransport) Upload(ctx context.Context, req api.DeploymentRequest, destination string) (string, error) {
	if t.client == nil {
		return "", notConnected("uploadFile")
	}
	src, err := req.Open()
	if err != nil {
		return "", &api.ArtifactError{Path: req.ArchiveName, Message: "Cannot read archive", Err: err}
	}
	defer src.Close()
	path, err := t.client.UploadFile(ctx, destination, src)
	if err != nil {
		return "", err
	}
	logging.Debug(subsystem, "Staged %s at %s", req.ArchiveName, path)
	return path, nil
}

// InstallApplication installs the staged archive as appName and waits for
// the install task to finish.
func (t *SOAPTransport) InstallApplication(ctx context.Context, stagedPath, appName string, opts InstallOptions) error {
	if t.client == nil {
		return notConnected("installApplication")
	}
	outcome, err := t.await(ctx, notification.TaskInstall, func() error {
		_, err := t.client.Invoke(ctx, t.appMgmt, "installApplication",
			soap.String(stagedPath), soap.String(appName), t.installPreferences(appName, opts))
		return err
	})
	if err != nil {
		return err
	}
	if !outcome.Succeeded() {
		return &api.TransportError{Operation: "installApplication", Message: outcome.Message()}
	}
	return nil
}

func (t *SOAPTransport) installPreferences(appName string, opts InstallOptions) soap.Value {
	target := fmt.Sprintf("WebSphere:cell=%s,node=%s,server=%s",
		t.serverMBean.KeyProperty("cell"), t.serverMBean.KeyProperty("node"), t.serverMBean.KeyProperty("process"))
	return soap.Map(map[string]soap.Value{
		"locale":                      soap.String(opts.Locale),
		"appname":                     soap.String(appName),
		"classloadingmode":            soap.String(opts.ClassLoadingMode),
		"warClassLoaderPolicy":        soap.String(opts.ClassLoaderPolicy),
		"defaultbinding.virtual.host": soap.String("default_host"),
		"moduleToServer":              soap.String(target),
		"archive.upload":              soap.Bool(opts.ArchiveUpload),
	})
}

// DistributionStatus asks for the distribution state of appName across
// its nodes.
func (t *SOAPTransport) DistributionStatus(ctx context.Context, appName string) (notification.DistributionStatus, error) {
	if t.client == nil {
		return notification.DistributionUnknown, notConnected("getDistributionStatus")
	}
	outcome, err := t.await(ctx, notification.TaskDistributionStatusNode, func() error {
		_, err := t.client.Invoke(ctx, t.appMgmt, "getDistributionStatus", soap.String(appName))
		return err
	})
	if err != nil {
		return notification.DistributionUnknown, err
	}
	return notification.DistributionFromOutcome(outcome)
}

// StartApplication starts appName and returns the targets it started on.
func (t *SOAPTransport) StartApplication(ctx context.Context, appName string) (string, error) {
	if t.client == nil {
		return "", notConnected("startApplication")
	}
	v, err := t.client.Invoke(ctx, t.appMgmt, "startApplication", soap.String(appName))
	if err != nil {
		return "", err
	}
	started, _ := v.(string)
	if strings.TrimSpace(started) == "" {
		return "", &api.TransportError{Operation: "startApplication", Message: fmt.Sprintf("Application %s was not started on any target", appName)}
	}
	return started, nil
}

// Remove uninstalls the application named target and waits for the
// uninstall task to finish.
func (t *SOAPTransport) Remove(ctx context.Context, target string) error {
	if t.client == nil {
		return notConnected("uninstallApplication")
	}
	outcome, err := t.await(ctx, notification.TaskUninstall, func() error {
		_, err := t.client.Invoke(ctx, t.appMgmt, "uninstallApplication", soap.String(target))
		return err
	})
	if err != nil {
		return err
	}
	if !outcome.Succeeded() {
		return &api.TransportError{Operation: "uninstallApplication", Message: outcome.Message()}
	}
	return nil
}

// await subscribes a listener for task before calling invoke, then waits
// for the task's terminal notification.
func (t *SOAPTransport) await(ctx context.Context, task string, invoke func() error) (notification.Outcome, error) {
	listener := notification.NewListener(task)
	sub, err := t.client.Subscribe(ctx, t.appMgmt, soap.AppManagementNotificationType, func(n soap.Notification) {
		listener.Handle(notification.Event{
			TaskName:   n.TaskName,
			TaskStatus: n.TaskStatus,
			Message:    n.Message,
			Properties: n.PropertyMap(),
		})
	})
	if err != nil {
		return notification.Outcome{}, err
	}
	defer func() {
		if err := sub.Close(); err != nil {
			logging.Debug(subsystem, "Removing %s listener failed: %v", task, err)
		}
	}()

	if err := invoke(); err != nil {
		return notification.Outcome{}, err
	}
	outcome, err := listener.Wait(ctx, t.opts.NotificationWait)
	if err != nil {
		return notification.Outcome{}, &api.TransportError{Operation: task, Err: err}
	}
	return outcome, nil
}

func applicationPattern(appID string) mbean.ObjectName {
	return mbean.MustParseObjectName("WebSphere:type=Application,name=" + appID + ",*")
}

// QueryRegistered reports whether an Application MBean exists for appID.
func (t *SOAPTransport) QueryRegistered(ctx context.Context, appID string) (bool, error) {
	if t.client == nil {
		return false, notConnected("queryNames")
	}
	names, err := t.client.QueryNames(ctx, applicationPattern(appID))
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// QueryRuntimeState reports STARTED for a registered application. The
// Application MBean of a traditional server exists only while the
// application runs.
func (t *SOAPTransport) QueryRuntimeState(ctx context.Context, appID string) (string, error) {
	registered, err := t.QueryRegistered(ctx, appID)
	if err != nil || !registered {
		return "", err
	}
	return mbean.StateStarted, nil
}

// ListRegistered lists the Application MBeans of the server.
func (t *SOAPTransport) ListRegistered(ctx context.Context) ([]string, error) {
	if t.client == nil {
		return nil, notConnected("queryNames")
	}
	names, err := t.client.QueryNames(ctx, mbean.MustParseObjectName("WebSphere:type=Application,*"))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n.String())
	}
	return out, nil
}

// IsReachable implements Transport.
func (t *SOAPTransport) IsReachable(ctx context.Context) bool {
	if t.client == nil {
		return false
	}
	_, err := t.client.GetServerMBean(ctx)
	return err == nil
}

// Connection implements Transport.
func (t *SOAPTransport) Connection() mbean.Connection {
	if t.client == nil {
		return nil
	}
	return t.client
}

// Close implements Transport.
func (t *SOAPTransport) Close() error {
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
