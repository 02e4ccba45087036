package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasdeploy/internal/api"
	"wasdeploy/internal/formatting"
	"wasdeploy/internal/mbean"
	"wasdeploy/internal/mbean/mbeantest"
)

func remoteConfigFile(t *testing.T, srv *mbeantest.Server) string {
	t.Helper()
	content := fmt.Sprintf(`kind: liberty-remote
logLevel: error
server:
  host: %s
  httpPort: 9080
  httpsPort: %d
credentials:
  username: %s
  password: %s
timeouts:
  appDeploy: 1
http:
  insecureSkipVerify: true
`, srv.Host(), srv.Port(), mbeantest.Username, mbeantest.Password)
	path := filepath.Join(t.TempDir(), "remote.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func warFile(t *testing.T, name string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("WEB-INF/web.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<web-app/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// execute runs the root command with args after resetting all flag state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, debug = "", false
	deployTestable, deployHold = false, false
	undeployQuiet = false
	deployOutput = outputFlags{format: string(formatting.FormatConsole)}
	checkOutput = outputFlags{format: string(formatting.FormatConsole)}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	srv := mbeantest.NewServer()
	defer srv.Close()

	out, err := execute(t, "check", "-c", remoteConfigFile(t, srv), "-o", "json")
	require.NoError(t, err)

	var status formatting.Status
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "liberty-remote", status.Kind)
	assert.True(t, status.Reachable)
	assert.Equal(t, api.TransportREST, status.Handle.TransportKind)
	assert.Equal(t, srv.BaseURL(), status.Handle.ManagementAddress)
}

func TestCheckCommand_StartFailure(t *testing.T) {
	srv := mbeantest.NewServer()
	path := remoteConfigFile(t, srv)
	srv.Close()

	_, err := execute(t, "check", "-c", path)
	require.Error(t, err)
	assert.Equal(t, ExitCodeLifecycle, getExitCode(err))
}

func TestDeployCommand(t *testing.T) {
	srv := mbeantest.NewServer()
	defer srv.Close()
	srv.OnUpload = func(string) {
		srv.Register(mbean.ApplicationMBean("shop"), map[string]any{mbean.StateAttribute: mbean.StateStarted})
	}

	out, err := execute(t, "deploy", "--testable", "-o", "json", "-c", remoteConfigFile(t, srv), warFile(t, "shop.war"))
	require.NoError(t, err)

	var deployment formatting.Deployment
	require.NoError(t, json.Unmarshal([]byte(out), &deployment))
	assert.Equal(t, "shop.war", deployment.Archive)
	assert.Equal(t, "shop", deployment.Name)
	assert.Equal(t, srv.Host(), deployment.Endpoint.Host)
	assert.Equal(t, 9080, deployment.Endpoint.Port)
	assert.Equal(t, []api.Servlet{{Name: "ArquillianServletRunner", ContextRoot: "shop"}}, deployment.Endpoint.Servlets)

	_, stored := srv.File("${wlp.user.dir}/servers/defaultServer/dropins/shop.war")
	assert.True(t, stored, "archive stays deployed without --hold")
}

func TestDeployCommand_Failures(t *testing.T) {
	srv := mbeantest.NewServer()
	defer srv.Close()
	cfg := remoteConfigFile(t, srv)

	t.Run("never starts", func(t *testing.T) {
		_, err := execute(t, "deploy", "-q", "-c", cfg, warFile(t, "stuck.war"))
		require.Error(t, err)
		assert.Equal(t, ExitCodeDeploy, getExitCode(err))
		assert.True(t, api.IsConvergenceTimeout(err))
	})

	t.Run("missing archive", func(t *testing.T) {
		_, err := execute(t, "deploy", "-c", cfg, filepath.Join(t.TempDir(), "absent.war"))
		require.Error(t, err)
		assert.True(t, api.IsArtifactError(err))
		assert.Equal(t, ExitCodeError, getExitCode(err))
	})

	t.Run("unknown output format", func(t *testing.T) {
		_, err := execute(t, "deploy", "-o", "xml", "-c", cfg, warFile(t, "shop.war"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported output format")
	})
}

func TestUndeployCommand(t *testing.T) {
	srv := mbeantest.NewServer()
	defer srv.Close()
	srv.DeleteStatus = 200
	srv.PutFile("${wlp.user.dir}/servers/defaultServer/dropins/shop.war", []byte("PK"))

	out, err := execute(t, "undeploy", "-c", remoteConfigFile(t, srv), "target/shop.war")
	require.NoError(t, err)
	assert.Equal(t, "Undeployed shop\n", out)

	_, stored := srv.File("${wlp.user.dir}/servers/defaultServer/dropins/shop.war")
	assert.False(t, stored)

	_, err = execute(t, "undeploy", "-c", remoteConfigFile(t, srv), "shop.war")
	require.Error(t, err)
	assert.Equal(t, ExitCodeUndeploy, getExitCode(err))
}
