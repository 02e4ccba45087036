package deployer

import (
	"context"
	"testing"
	"time"

	"wasdeploy/internal/api"
	"wasdeploy/internal/mbean"
	"wasdeploy/internal/mbean/mbeantest"
	"wasdeploy/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRemoteFixture(t *testing.T) (*mbeantest.Server, *RemoteDeployer) {
	t.Helper()
	srv := mbeantest.NewServer()
	t.Cleanup(srv.Close)

	tr := transport.NewRESTTransport(transport.RESTOptions{
		Host:               srv.Host(),
		HTTPSPort:          srv.Port(),
		Credentials:        transport.Credentials{Username: mbeantest.Username, Password: mbeantest.Password},
		InsecureSkipVerify: true,
		SettleDelay:        time.Millisecond,
	})
	require.NoError(t, tr.Connect(context.Background()))

	poller := NewPoller(tr)
	poller.Interval = 5 * time.Millisecond
	d := NewRemoteDeployer(tr, poller, RemoteOptions{
		ServerName:      "defaultServer",
		DeployTimeout:   2 * time.Second,
		UndeployTimeout: 2 * time.Second,
	})
	return srv, d
}

func TestRemoteDeployer_DeployAndUndeploy(t *testing.T) {
	srv, d := newRemoteFixture(t)
	srv.OnUpload = func(string) {
		srv.Register(mbean.ApplicationMBean("shop"), map[string]any{mbean.StateAttribute: "STARTING"})
		go func() {
			time.Sleep(20 * time.Millisecond)
			srv.SetAttribute(mbean.ApplicationMBean("shop"), mbean.StateAttribute, mbean.StateStarted)
		}()
	}
	srv.OnDelete = func(string) { srv.Unregister(mbean.ApplicationMBean("shop")) }
	ctx := context.Background()
	req := request(t, "shop.war")

	require.NoError(t, d.Deploy(ctx, req))
	data, ok := srv.File("${wlp.user.dir}/servers/defaultServer/dropins/shop.war")
	require.True(t, ok)
	assert.Equal(t, "PK-archive", string(data))

	require.NoError(t, d.Undeploy(ctx, req))
	_, ok = srv.File("${wlp.user.dir}/servers/defaultServer/dropins/shop.war")
	assert.False(t, ok)
}

func TestRemoteDeployer_DeployTimeout(t *testing.T) {
	_, d := newRemoteFixture(t)
	d.opts.DeployTimeout = 30 * time.Millisecond

	err := d.Deploy(context.Background(), request(t, "shop.war"))
	var terr *api.ConvergenceTimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, []string{"shop"}, terr.StuckNames())
}

func TestRemoteDeployer_RejectsUnknownTypes(t *testing.T) {
	srv, d := newRemoteFixture(t)
	err := d.Deploy(context.Background(), request(t, "lib.jar"))
	assert.True(t, api.IsArtifactError(err))
	for _, r := range srv.Requests() {
		assert.NotContains(t, r, "/file/")
	}
}

func TestRemoteDeployer_UndeployMissing(t *testing.T) {
	_, d := newRemoteFixture(t)
	err := d.Undeploy(context.Background(), request(t, "gone.war"))
	assert.True(t, api.IsArtifactError(err))
}

func TestRemoteDropinsPath(t *testing.T) {
	assert.Equal(t, "${wlp.user.dir}/servers/s1/dropins/a.b.war", RemoteDropinsPath("s1", "a.b.war"))
}
