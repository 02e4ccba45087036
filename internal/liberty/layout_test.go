package liberty

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestLayout(t *testing.T, env map[string]string) *Layout {
	t.Helper()
	l := NewLayout(t.TempDir(), "srv1")
	l.getenv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	return l
}

func TestLayout_DefaultPaths(t *testing.T) {
	l := newTestLayout(t, nil)

	assert.Equal(t, filepath.Join(l.WlpHome, "usr"), l.UsrDir())
	assert.Equal(t, filepath.Join(l.WlpHome, "usr", "servers", "srv1"), l.ServerConfigDir())
	assert.Equal(t, l.ServerConfigDir(), l.OutputDir())
	assert.Equal(t, filepath.Join(l.ServerConfigDir(), "dropins"), l.DropinsDir())
	assert.Equal(t, filepath.Join(l.ServerConfigDir(), "apps"), l.AppsDir())
	assert.Equal(t, filepath.Join(l.ServerConfigDir(), "logs", "state"), l.StateDir())
}

func TestLayout_EnvVarPrecedence(t *testing.T) {
	l := newTestLayout(t, map[string]string{
		EnvWLPOutputDir: "/from/process",
		EnvLogDir:       "/logs/process",
		EnvWLPUserDir:   "/usr/process",
	})

	t.Run("process environment", func(t *testing.T) {
		v, ok := l.EnvVar(EnvWLPOutputDir)
		assert.True(t, ok)
		assert.Equal(t, "/from/process", v)
	})

	writeFile(t, l.SystemServerEnvPath(), "WLP_OUTPUT_DIR=/from/etc\nLOG_DIR=/logs/etc\nWLP_USER_DIR=/usr/etc\n")

	t.Run("etc server.env wins over process", func(t *testing.T) {
		v, _ := l.EnvVar(EnvWLPOutputDir)
		assert.Equal(t, "/from/etc", v)
	})

	t.Run("LOG_DIR ignores etc server.env", func(t *testing.T) {
		v, _ := l.EnvVar(EnvLogDir)
		assert.Equal(t, "/logs/process", v)
	})

	t.Run("WLP_USER_DIR from etc server.env", func(t *testing.T) {
		v, _ := l.EnvVar(EnvWLPUserDir)
		assert.Equal(t, "/usr/etc", v)
	})
}

func TestLayout_ServerEnvWins(t *testing.T) {
	l := newTestLayout(t, map[string]string{EnvLogDir: "/logs/process"})
	writeFile(t, l.SystemServerEnvPath(), "WLP_OUTPUT_DIR=/from/etc\n")
	writeFile(t, l.ServerEnvPath(), "WLP_OUTPUT_DIR=/from/server\nLOG_DIR=/logs/server\nWLP_USER_DIR=/ignored\n")

	v, _ := l.EnvVar(EnvWLPOutputDir)
	assert.Equal(t, "/from/server", v)

	v, _ = l.EnvVar(EnvLogDir)
	assert.Equal(t, "/logs/server", v)

	assert.Equal(t, filepath.Join(l.WlpHome, "usr"), l.UsrDir())
	assert.Equal(t, filepath.Join("/from/server", "srv1"), l.OutputDir())
}

func TestLayout_EnvVarMissing(t *testing.T) {
	l := newTestLayout(t, map[string]string{EnvLogDir: ""})
	_, ok := l.EnvVar(EnvLogDir)
	assert.False(t, ok)
}

func TestLayout_BootstrapProperty(t *testing.T) {
	l := newTestLayout(t, nil)
	assert.Empty(t, l.BootstrapProperty(PropLogDirectory))

	writeFile(t, l.BootstrapPropertiesPath(), "com.ibm.ws.logging.log.directory=/var/log/liberty\n")
	assert.Equal(t, "/var/log/liberty", l.BootstrapProperty(PropLogDirectory))
	assert.Empty(t, l.BootstrapProperty(PropMessageFile))
}

func TestLayout_ExpandVars(t *testing.T) {
	l := newTestLayout(t, nil)

	assert.Equal(t, filepath.Join(l.ServerConfigDir(), "x"), l.ExpandVars("${server.config.dir}/x"))
	assert.Equal(t, l.WlpHome+"/lib", l.ExpandVars("${wlp.install.dir}/lib"))
	assert.Equal(t, "${shared.app.dir}/a", l.ExpandVars("${shared.app.dir}/a"))
	assert.Equal(t, "plain", l.ExpandVars("plain"))
}

func TestLayout_MessagesLogPath(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		l := newTestLayout(t, nil)
		writeFile(t, l.ServerXMLPath(), `<server/>`)
		assert.Equal(t, filepath.Join(l.OutputDir(), "logs", "messages.log"), l.MessagesLogPath())
	})

	t.Run("LOG_DIR", func(t *testing.T) {
		l := newTestLayout(t, map[string]string{EnvLogDir: "/tmp/wlplogs"})
		writeFile(t, l.ServerXMLPath(), `<server/>`)
		assert.Equal(t, filepath.Join("/tmp/wlplogs", "messages.log"), l.MessagesLogPath())
	})

	t.Run("bootstrap properties over LOG_DIR", func(t *testing.T) {
		l := newTestLayout(t, map[string]string{EnvLogDir: "/tmp/wlplogs"})
		writeFile(t, l.ServerXMLPath(), `<server/>`)
		writeFile(t, l.BootstrapPropertiesPath(),
			"com.ibm.ws.logging.log.directory=/opt/logs\ncom.ibm.ws.logging.message.file.name=msg.log\n")
		assert.Equal(t, filepath.Join("/opt/logs", "msg.log"), l.MessagesLogPath())
	})

	t.Run("server.xml over everything", func(t *testing.T) {
		l := newTestLayout(t, map[string]string{EnvLogDir: "/tmp/wlplogs"})
		writeFile(t, l.BootstrapPropertiesPath(), "com.ibm.ws.logging.log.directory=/opt/logs\n")
		writeFile(t, l.ServerXMLPath(),
			`<server><logging logDirectory="${server.output.dir}/custom" messageFileName="m.log"/></server>`)
		assert.Equal(t, filepath.Join(l.OutputDir(), "custom", "m.log"), l.MessagesLogPath())
	})
}

func TestLayout_ReadServerXMLTemplate(t *testing.T) {
	l := NewLayout(t.TempDir(), DefaultServerName)
	writeFile(t, l.DefaultServerXMLPath(), "<server>\n    <featureManager>\n        <feature>jsp-2.3</feature>\n    </featureManager>\n</server>\n")

	doc, err := l.ReadServerXML()
	require.NoError(t, err)
	assert.Equal(t, l.ServerXMLPath(), doc.Path())
	assert.Equal(t, []string{"jsp-2.3"}, doc.Features())

	other := NewLayout(l.WlpHome, "other")
	_, err = other.ReadServerXML()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
