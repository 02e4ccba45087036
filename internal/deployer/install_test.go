package deployer

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"wasdeploy/internal/api"
	"wasdeploy/internal/notification"
	"wasdeploy/internal/soap/soaptest"
	"wasdeploy/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInstaller struct {
	uploaded     api.DeploymentRequest
	stagedName   string
	installed    string
	distribution []notification.DistributionStatus
	distErr      error
	checks       int
	started      string
	startErr     error
	removed      string
}

func (f *fakeInstaller) Upload(_ context.Context, req api.DeploymentRequest, destination string) (string, error) {
	f.uploaded = req
	f.stagedName = destination
	return "/tmp/staged/" + destination, nil
}

func (f *fakeInstaller) InstallApplication(_ context.Context, _, appName string, _ transport.InstallOptions) error {
	f.installed = appName
	return nil
}

func (f *fakeInstaller) DistributionStatus(context.Context, string) (notification.DistributionStatus, error) {
	f.checks++
	if f.distErr != nil {
		return notification.DistributionUnknown, f.distErr
	}
	i := f.checks - 1
	if i >= len(f.distribution) {
		i = len(f.distribution) - 1
	}
	return f.distribution[i], nil
}

func (f *fakeInstaller) StartApplication(_ context.Context, appName string) (string, error) {
	f.started = appName
	return "WebSphere:cell=c,node=n,server=s", f.startErr
}

func (f *fakeInstaller) Remove(_ context.Context, target string) error {
	f.removed = target
	return nil
}

func testInstallDeployer(installer Installer) *InstallDeployer {
	d := NewInstallDeployer(installer, transport.InstallOptions{})
	d.DistributionInterval = time.Millisecond
	return d
}

func warRequest(t *testing.T, name string) api.DeploymentRequest {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("WEB-INF/web.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<web-app/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	req, err := api.NewDeploymentRequest(name, buf.Bytes(), true)
	require.NoError(t, err)
	return req
}

func TestPrepare(t *testing.T) {
	ear, err := Prepare(warRequest(t, "shop.war"))
	require.NoError(t, err)
	assert.Equal(t, "shop.ear", ear.ArchiveName)
	assert.Equal(t, "shop", ear.DeployName)

	same := request(t, "bundle.ear")
	got, err := Prepare(same)
	require.NoError(t, err)
	assert.Equal(t, same.ArchiveName, got.ArchiveName)

	_, err = Prepare(request(t, "app.eba"))
	assert.True(t, api.IsArtifactError(err))
}

func TestInstallDeployer_Deploy(t *testing.T) {
	f := &fakeInstaller{distribution: []notification.DistributionStatus{
		notification.DistributionUnknown,
		notification.DistributionNotDone,
		notification.DistributionDone,
	}}
	d := testInstallDeployer(f)

	require.NoError(t, d.Deploy(context.Background(), warRequest(t, "shop.war")))
	assert.Equal(t, "shop.ear", f.uploaded.ArchiveName)
	assert.True(t, strings.HasPrefix(f.stagedName, "shop-"))
	assert.True(t, strings.HasSuffix(f.stagedName, ".ear"))
	assert.Equal(t, "shop", f.installed)
	assert.Equal(t, 3, f.checks)
	assert.Equal(t, "shop", f.started)

	require.NoError(t, d.Undeploy(context.Background(), warRequest(t, "shop.war")))
	assert.Equal(t, "shop", f.removed)
}

func TestInstallDeployer_DistributionNeverDone(t *testing.T) {
	f := &fakeInstaller{distribution: []notification.DistributionStatus{notification.DistributionNotDone}}
	d := testInstallDeployer(f)
	d.MaxDistributionChecks = 5

	err := d.Deploy(context.Background(), request(t, "shop.ear"))
	assert.ErrorIs(t, err, ErrDistribution)
	assert.Equal(t, 4, f.checks)
	assert.Empty(t, f.started, "an undistributed application is not started")
}

func TestInstallDeployer_Failures(t *testing.T) {
	boom := errors.New("boom")

	f := &fakeInstaller{distErr: boom}
	assert.ErrorIs(t, testInstallDeployer(f).Deploy(context.Background(), request(t, "shop.ear")), boom)

	f = &fakeInstaller{distribution: []notification.DistributionStatus{notification.DistributionDone}, startErr: boom}
	assert.ErrorIs(t, testInstallDeployer(f).Deploy(context.Background(), request(t, "shop.ear")), boom)
}

func TestInstallDeployer_AgainstSOAPConnector(t *testing.T) {
	srv := soaptest.NewServer()
	defer srv.Close()

	tr := transport.NewSOAPTransport(transport.SOAPOptions{
		Host:             srv.Host(),
		Port:             srv.Port(),
		PollInterval:     5 * time.Millisecond,
		NotificationWait: 2 * time.Second,
	})
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Close()

	d := testInstallDeployer(tr)
	req := warRequest(t, "shop.war")
	require.NoError(t, d.Deploy(context.Background(), req))

	registered, err := tr.QueryRegistered(context.Background(), "shop")
	require.NoError(t, err)
	assert.True(t, registered)

	var methods []string
	for _, inv := range srv.Invocations() {
		methods = append(methods, inv.Method)
	}
	assert.Equal(t, []string{"installApplication", "getDistributionStatus", "startApplication"}, methods)

	require.NoError(t, d.Undeploy(context.Background(), req))
	registered, err = tr.QueryRegistered(context.Background(), "shop")
	require.NoError(t, err)
	assert.False(t, registered)
}
