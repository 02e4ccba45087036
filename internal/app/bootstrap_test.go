package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasdeploy/internal/api"
	"wasdeploy/internal/config"
	"wasdeploy/internal/container"
	"wasdeploy/pkg/logging"
)

type fakeContainer struct {
	startErr error
	stopErr  error
	calls    []string
}

func (f *fakeContainer) Kind() config.Kind { return config.KindLibertyRemote }

func (f *fakeContainer) Setup(cfg config.Config) error {
	f.calls = append(f.calls, "setup")
	return nil
}

func (f *fakeContainer) Start(ctx context.Context) error {
	f.calls = append(f.calls, "start")
	return f.startErr
}

func (f *fakeContainer) Deploy(ctx context.Context, req api.DeploymentRequest) (api.EndpointContract, error) {
	f.calls = append(f.calls, "deploy")
	return api.EndpointContract{}, nil
}

func (f *fakeContainer) Undeploy(ctx context.Context, req api.DeploymentRequest) error {
	f.calls = append(f.calls, "undeploy")
	return nil
}

func (f *fakeContainer) Stop(ctx context.Context) error {
	f.calls = append(f.calls, "stop")
	return f.stopErr
}

func (f *fakeContainer) Handle() api.ServerHandle { return api.ServerHandle{} }

func (f *fakeContainer) IsReachable(ctx context.Context) bool { return true }

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewApplication_LoadsConfiguration(t *testing.T) {
	path := writeConfig(t, "remote.yaml", "kind: liberty-remote\nlogLevel: warn\nserver:\n  host: liberty.example.com\n")

	var logs bytes.Buffer
	cfg := NewConfig(false, path)
	cfg.LogOutput = &logs

	application, err := NewApplication(cfg)
	require.NoError(t, err)

	assert.Equal(t, config.KindLibertyRemote, application.Container().Kind())
	assert.Equal(t, "liberty.example.com", application.Settings().Server.Host)
	assert.False(t, logging.IsDebugEnabled())
	assert.Contains(t, logs.String(), "Loaded configuration from")
}

func TestNewApplication_DebugOverridesLogLevel(t *testing.T) {
	path := writeConfig(t, "remote.toml", "kind = \"liberty-remote\"\nlogLevel = \"error\"\n")

	cfg := NewConfig(true, path)
	cfg.LogOutput = &bytes.Buffer{}

	_, err := NewApplication(cfg)
	require.NoError(t, err)
	assert.True(t, logging.IsDebugEnabled())
}

func TestNewApplication_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg := NewConfig(false, filepath.Join(t.TempDir(), "absent.yaml"))
		cfg.LogOutput = &bytes.Buffer{}

		_, err := NewApplication(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load configuration")
		var ce config.ConfigurationError
		assert.True(t, errors.As(err, &ce))
	})

	t.Run("managed without wlpHome", func(t *testing.T) {
		settings := config.GetDefaultConfig()
		cfg := &Config{Settings: &settings, LogOutput: &bytes.Buffer{}}

		_, err := NewApplication(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to set up container")
		assert.True(t, api.IsOperation(err, api.OpLifecycle))
	})
}

func withFakeContainer(t *testing.T, fake *fakeContainer) *Application {
	t.Helper()
	orig := newContainer
	newContainer = func(cfg config.Config) (container.Container, error) {
		return fake, fake.Setup(cfg)
	}
	t.Cleanup(func() { newContainer = orig })

	settings := config.GetDefaultConfig()
	settings.Kind = config.KindLibertyRemote
	application, err := NewApplication(&Config{Settings: &settings, LogOutput: &bytes.Buffer{}})
	require.NoError(t, err)
	return application
}

func TestRun(t *testing.T) {
	t.Run("stops after the command", func(t *testing.T) {
		fake := &fakeContainer{}
		application := withFakeContainer(t, fake)

		err := application.Run(context.Background(), func(ctx context.Context, c container.Container) error {
			return c.Undeploy(ctx, api.DeploymentRequest{})
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"setup", "start", "undeploy", "stop"}, fake.calls)
	})

	t.Run("stops when the command fails", func(t *testing.T) {
		fake := &fakeContainer{stopErr: errors.New("stop failed")}
		application := withFakeContainer(t, fake)

		cmdErr := &api.ContainerError{Op: api.OpDeploy, Message: "Could not deploy application"}
		err := application.Run(context.Background(), func(ctx context.Context, c container.Container) error {
			return cmdErr
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, cmdErr)
		assert.Contains(t, err.Error(), "stop failed")
		assert.Equal(t, []string{"setup", "start", "stop"}, fake.calls)
	})

	t.Run("start failure skips the command", func(t *testing.T) {
		fake := &fakeContainer{startErr: &api.ContainerError{Op: api.OpLifecycle, Message: "Could not start container"}}
		application := withFakeContainer(t, fake)

		called := false
		err := application.Run(context.Background(), func(ctx context.Context, c container.Container) error {
			called = true
			return nil
		})
		assert.True(t, api.IsOperation(err, api.OpLifecycle))
		assert.False(t, called)
		assert.Equal(t, []string{"setup", "start"}, fake.calls)
	})
}

func TestWaitForInterruptReturnsOnCancel(t *testing.T) {
	logging.InitForCLI(logging.LevelInfo, &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	WaitForInterrupt(ctx)
}
