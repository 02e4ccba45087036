package transport

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"wasdeploy/internal/api"
	"wasdeploy/internal/mbean"
	"wasdeploy/internal/mbean/mbeantest"
	"wasdeploy/internal/notification"
	"wasdeploy/internal/soap/soaptest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHooks struct {
	mu  sync.Mutex
	fns []func()
}

func (h *recordingHooks) Register(fn func()) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fn)
	return len(h.fns)
}

func (h *recordingHooks) run() {
	for _, fn := range h.fns {
		fn()
	}
}

func testRequest(t *testing.T, name string) api.DeploymentRequest {
	t.Helper()
	req, err := api.NewDeploymentRequest(name, []byte("archive-bytes"), false)
	require.NoError(t, err)
	return req
}

var adminCredentials = Credentials{Username: mbeantest.Username, Password: mbeantest.Password}

func TestLocalTransport_UploadAndRemove(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "dropins", "demo.war")
	tr := NewLocalTransport(LocalOptions{PID: "4711"})

	got, err := tr.Upload(context.Background(), testRequest(t, "demo.war"), target)
	require.NoError(t, err)
	assert.Equal(t, target, got)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "archive-bytes", string(data))

	require.NoError(t, tr.Remove(context.Background(), target))
	assert.NoFileExists(t, target)
}

func TestLocalTransport_RemoveMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.war")

	strict := NewLocalTransport(LocalOptions{PID: "1"})
	err := strict.Remove(context.Background(), missing)
	require.Error(t, err)
	assert.True(t, api.IsArtifactError(err))

	hooks := &recordingHooks{}
	failSafe := NewLocalTransport(LocalOptions{PID: "1", FailSafe: true, Hooks: hooks})
	require.NoError(t, failSafe.Remove(context.Background(), missing))
	assert.Empty(t, hooks.fns)
}

func TestLocalTransport_RemoveFailureScheduledAtExit(t *testing.T) {
	// A non-empty directory cannot be removed with os.Remove.
	target := filepath.Join(t.TempDir(), "exploded.war")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "WEB-INF"), 0o755))

	hooks := &recordingHooks{}
	tr := NewLocalTransport(LocalOptions{PID: "1", FailSafe: true, Hooks: hooks})
	require.NoError(t, tr.Remove(context.Background(), target))
	require.Len(t, hooks.fns, 1)

	require.NoError(t, os.Remove(filepath.Join(target, "WEB-INF")))
	hooks.run()
	assert.NoDirExists(t, target)
}

type staticProber struct {
	address string
	calls   int
}

func (p *staticProber) ConnectorAddress(context.Context, string) (string, error) {
	p.calls++
	return p.address, nil
}

func TestLocalTransport_Connect(t *testing.T) {
	srv := mbeantest.NewServer()
	defer srv.Close()
	srv.Register(mbean.ApplicationMBean("demo"), map[string]any{mbean.StateAttribute: mbean.StateStarted})

	found := 0
	prober := &staticProber{address: "service:jmx:rmi:///jndi/rmi://localhost:9999/jmxrmi"}
	findPID := func(context.Context) (string, bool) {
		found++
		return "4711", found > 1
	}
	stateAddress := func() string {
		if found > 1 {
			return srv.Address()
		}
		return ""
	}
	tr := NewLocalTransport(LocalOptions{
		FindPID:            findPID,
		Prober:             prober,
		StateAddress:       stateAddress,
		Credentials:        adminCredentials,
		InsecureSkipVerify: true,
		ConnectTimeout:     5 * time.Second,
		RetryInterval:      10 * time.Millisecond,
	})

	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Close()
	assert.Equal(t, "4711", tr.PID())
	assert.Equal(t, srv.Address(), tr.Address())
	assert.Positive(t, prober.calls)
	assert.True(t, tr.IsReachable(context.Background()))

	ok, err := tr.QueryRegistered(context.Background(), "demo")
	require.NoError(t, err)
	assert.True(t, ok)
	state, err := tr.QueryRuntimeState(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, mbean.StateStarted, state)

	names, err := tr.ListRegistered(context.Background())
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestLocalTransport_ConnectChildExited(t *testing.T) {
	tr := NewLocalTransport(LocalOptions{
		FindPID:        func(context.Context) (string, bool) { return "", false },
		Exited:         func() (int, bool) { return 3, true },
		ConnectTimeout: time.Second,
		RetryInterval:  10 * time.Millisecond,
	})

	err := tr.Connect(context.Background())
	var perr *api.ProcessStartupError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.ExitCode)
}

func TestLocalTransport_ConnectTimeout(t *testing.T) {
	tr := NewLocalTransport(LocalOptions{
		FindPID:        func(context.Context) (string, bool) { return "", false },
		ConnectTimeout: 100 * time.Millisecond,
		RetryInterval:  10 * time.Millisecond,
	})

	err := tr.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsConnectError(err))
	assert.Contains(t, err.Error(), "Unable to retrieve connector address for localConnector of started VM")
	assert.False(t, tr.IsReachable(context.Background()))
}

func TestLocalTransport_NotConnected(t *testing.T) {
	tr := NewLocalTransport(LocalOptions{PID: "1"})
	_, err := tr.QueryRegistered(context.Background(), "demo")
	assert.True(t, api.IsTransportError(err))
	assert.NoError(t, tr.Close())
}

func newRESTTransport(srv *mbeantest.Server, failSafe bool) *RESTTransport {
	return NewRESTTransport(RESTOptions{
		Host:               srv.Host(),
		HTTPSPort:          srv.Port(),
		Credentials:        adminCredentials,
		InsecureSkipVerify: true,
		FailSafe:           failSafe,
	})
}

func TestRESTTransport_Connect(t *testing.T) {
	srv := mbeantest.NewServer()
	defer srv.Close()

	tr := newRESTTransport(srv, false)
	assert.Equal(t, srv.BaseURL(), tr.BaseURL())
	require.NoError(t, tr.Connect(context.Background()))
	assert.True(t, tr.IsReachable(context.Background()))
	require.NoError(t, tr.Close())
	assert.False(t, tr.IsReachable(context.Background()))

	bad := NewRESTTransport(RESTOptions{Host: srv.Host(), HTTPSPort: srv.Port(), InsecureSkipVerify: true})
	err := bad.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsConnectError(err))
	assert.Contains(t, err.Error(), "Remote server is not started")
}

func TestRESTTransport_UploadAndRemove(t *testing.T) {
	srv := mbeantest.NewServer()
	defer srv.Close()

	tr := newRESTTransport(srv, false)
	var slept time.Duration
	tr.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}
	require.NoError(t, tr.Connect(context.Background()))
	ctx := context.Background()
	path := "${wlp.user.dir}/servers/defaultServer/dropins/demo.war"

	got, err := tr.Upload(ctx, testRequest(t, "demo.war"), path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	data, ok := srv.File(path)
	require.True(t, ok)
	assert.Equal(t, "archive-bytes", string(data))

	require.NoError(t, tr.Remove(ctx, path))
	assert.Equal(t, DefaultSettleDelay, slept)

	err = tr.Remove(ctx, path)
	require.Error(t, err)
	assert.True(t, api.IsArtifactError(err))
}

func TestRESTTransport_RemoveNoSettleWithout204(t *testing.T) {
	srv := mbeantest.NewServer()
	defer srv.Close()
	srv.DeleteStatus = http.StatusOK
	srv.PutFile("/apps/demo.war", []byte("x"))

	tr := newRESTTransport(srv, true)
	tr.sleep = func(context.Context, time.Duration) error {
		t.Fatal("unexpected settle wait")
		return nil
	}
	require.NoError(t, tr.Connect(context.Background()))
	require.NoError(t, tr.Remove(context.Background(), "/apps/demo.war"))
	require.NoError(t, tr.Remove(context.Background(), "/apps/demo.war"), "fail-safe removal of a missing file")
}

func TestRESTTransport_RegistryErrorsAreTransportErrors(t *testing.T) {
	srv := mbeantest.NewServer()
	defer srv.Close()

	srv.FailQueries = true
	tr := newRESTTransport(srv, false)
	require.NoError(t, tr.Connect(context.Background()))

	_, err := tr.QueryRegistered(context.Background(), "demo")
	require.Error(t, err)
	assert.True(t, api.IsTransportError(err))
}

func newSOAPTransport(t *testing.T, srv *soaptest.Server) *SOAPTransport {
	t.Helper()
	tr := NewSOAPTransport(SOAPOptions{
		Host:             srv.Host(),
		Port:             srv.Port(),
		PollInterval:     10 * time.Millisecond,
		NotificationWait: 2 * time.Second,
	})
	require.NoError(t, tr.Connect(context.Background()))
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestSOAPTransport_RefusesManagedProcesses(t *testing.T) {
	for _, processType := range []string{ProcessDeploymentManager, ProcessNodeAgent, ProcessManaged} {
		t.Run(processType, func(t *testing.T) {
			srv := soaptest.NewServer()
			defer srv.Close()
			srv.ServerMBean = "WebSphere:name=dmgr,process=dmgr,node=node01,type=Server,cell=cell01,processType=" + processType

			tr := NewSOAPTransport(SOAPOptions{Host: srv.Host(), Port: srv.Port()})
			err := tr.Connect(context.Background())
			require.Error(t, err)
			assert.True(t, api.IsConnectError(err))
			assert.Contains(t, err.Error(), "Connecting to a "+processType+" is not supported.")
		})
	}
}

func TestSOAPTransport_InstallLifecycle(t *testing.T) {
	srv := soaptest.NewServer()
	defer srv.Close()
	tr := newSOAPTransport(t, srv)
	ctx := context.Background()

	staged, err := tr.Upload(ctx, testRequest(t, "demo.ear"), "demo-1234.ear")
	require.NoError(t, err)
	data, ok := srv.File(staged)
	require.True(t, ok)
	assert.Equal(t, "archive-bytes", string(data))

	require.NoError(t, tr.InstallApplication(ctx, staged, "demo", InstallOptions{
		Locale:            "en_US",
		ClassLoadingMode:  "PARENT_FIRST",
		ClassLoaderPolicy: "MULTIPLE",
		ArchiveUpload:     true,
	}))

	status, err := tr.DistributionStatus(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, notification.DistributionDone, status)

	targets, err := tr.StartApplication(ctx, "demo")
	require.NoError(t, err)
	assert.Contains(t, targets, "server=server1")

	registered, err := tr.QueryRegistered(ctx, "demo")
	require.NoError(t, err)
	assert.True(t, registered)
	state, err := tr.QueryRuntimeState(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, mbean.StateStarted, state)
	names, err := tr.ListRegistered(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 1)

	require.NoError(t, tr.Remove(ctx, "demo"))
	registered, err = tr.QueryRegistered(ctx, "demo")
	require.NoError(t, err)
	assert.False(t, registered)

	install := srv.Invocations()[0]
	assert.Equal(t, "installApplication", install.Method)
	require.Len(t, install.Params, 3)
	prefs, err := install.Params[2].Interface()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"locale":                      "en_US",
		"appname":                     "demo",
		"classloadingmode":            "PARENT_FIRST",
		"warClassLoaderPolicy":        "MULTIPLE",
		"defaultbinding.virtual.host": "default_host",
		"moduleToServer":              "WebSphere:cell=cell01,node=node01,server=server1",
		"archive.upload":              true,
	}, prefs)

	assert.Eventually(t, func() bool { return srv.Subscriptions() == 0 }, time.Second, 10*time.Millisecond)
}

func TestSOAPTransport_InstallFailureCarriesMessages(t *testing.T) {
	srv := soaptest.NewServer()
	defer srv.Close()
	srv.InstallFails = true
	tr := newSOAPTransport(t, srv)

	err := tr.InstallApplication(context.Background(), "/tmp/demo.ear", "demo", InstallOptions{})
	require.Error(t, err)
	assert.True(t, api.IsTransportError(err))
	assert.Contains(t, err.Error(), "ADMA5016I")
	assert.Contains(t, err.Error(), "ADMA5069E")
}

func TestSOAPTransport_InstallWaitIsBounded(t *testing.T) {
	srv := soaptest.NewServer()
	defer srv.Close()
	srv.Silent = true
	tr := NewSOAPTransport(SOAPOptions{
		Host:             srv.Host(),
		Port:             srv.Port(),
		PollInterval:     10 * time.Millisecond,
		NotificationWait: 100 * time.Millisecond,
	})
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Close()

	err := tr.InstallApplication(context.Background(), "/tmp/demo.ear", "demo", InstallOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, notification.ErrWaitTimeout)
}

func TestSOAPTransport_DistributionAndStartFailures(t *testing.T) {
	srv := soaptest.NewServer()
	defer srv.Close()
	srv.Distribution = "WebSphere:cell=cell01,node=node01,distribution=true+WebSphere:cell=cell01,node=node02,distribution=false"
	srv.StartTargets = ""
	tr := newSOAPTransport(t, srv)
	ctx := context.Background()

	status, err := tr.DistributionStatus(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, notification.DistributionNotDone, status)

	_, err = tr.StartApplication(ctx, "demo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "was not started on any target")
}

func TestSOAPTransport_NotConnected(t *testing.T) {
	tr := NewSOAPTransport(SOAPOptions{Host: "localhost", Port: 8880})
	assert.Nil(t, tr.Connection())
	assert.False(t, tr.IsReachable(context.Background()))
	assert.True(t, api.IsTransportError(tr.Remove(context.Background(), "demo")))
	_, err := tr.Upload(context.Background(), testRequest(t, "demo.ear"), "demo.ear")
	assert.True(t, api.IsTransportError(err))
}

func TestNewTransportFromType(t *testing.T) {
	tests := []struct {
		name    string
		kind    api.TransportKind
		opts    Options
		want    api.TransportKind
		wantErr string
	}{
		{name: "local", kind: api.TransportLocal, opts: Options{Local: &LocalOptions{PID: "1"}}, want: api.TransportLocal},
		{name: "local without pid", kind: api.TransportLocal, opts: Options{Local: &LocalOptions{}}, wantErr: "pid"},
		{name: "local missing", kind: api.TransportLocal, wantErr: "local options are required"},
		{name: "rest", kind: api.TransportREST, opts: Options{REST: &RESTOptions{Host: "h", HTTPSPort: 9443}}, want: api.TransportREST},
		{name: "rest missing host", kind: api.TransportREST, opts: Options{REST: &RESTOptions{}}, wantErr: "host is required"},
		{name: "soap", kind: api.TransportSOAP, opts: Options{SOAP: &SOAPOptions{Host: "h", Port: 8880}}, want: api.TransportSOAP},
		{name: "soap missing", kind: api.TransportSOAP, wantErr: "host is required"},
		{name: "unknown", kind: "corba", wantErr: "unsupported transport type: corba"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewTransportFromType(tt.kind, tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tr.Kind())
		})
	}
}
