package liberty

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"wasdeploy/pkg/logging"

	"github.com/joho/godotenv"
)

const subsystem = "Liberty"

// Liberty environment variables consulted when resolving directories.
const (
	EnvLogDir       = "LOG_DIR"
	EnvWLPOutputDir = "WLP_OUTPUT_DIR"
	EnvWLPUserDir   = "WLP_USER_DIR"
)

// Bootstrap properties consulted when locating the message log.
const (
	PropLogDirectory   = "com.ibm.ws.logging.log.directory"
	PropMessageFile    = "com.ibm.ws.logging.message.file.name"
	DefaultMessageFile = "messages.log"
	DefaultServerName  = "defaultServer"
)

// Launcher files relative to the installation root.
const (
	BootstrapAgentJar = "lib/bootstrap-agent.jar"
	LaunchJar         = "lib/ws-launch.jar"
)

// Layout resolves the directories and files of one Liberty server the way
// the server itself does, honouring server.env, the installation wide
// etc/server.env and the process environment.
type Layout struct {
	WlpHome    string
	ServerName string

	// getenv reads the process environment; replaced in tests.
	getenv func(string) (string, bool)
}

// NewLayout returns the layout of serverName under the installation wlpHome.
func NewLayout(wlpHome, serverName string) *Layout {
	return &Layout{
		WlpHome:    wlpHome,
		ServerName: serverName,
		getenv:     os.LookupEnv,
	}
}

// EnvVar looks a Liberty environment variable up with this precedence:
// the server's server.env, the installation's etc/server.env, then the
// process environment. LOG_DIR is never read from etc/server.env because
// it would collide between servers, and WLP_USER_DIR is never read from the
// server's own server.env because that file lives below the user directory.
func (l *Layout) EnvVar(key string) (string, bool) {
	if key != EnvWLPUserDir {
		if v, ok := readEnvFile(l.ServerEnvPath())[key]; ok {
			logging.Debug(subsystem, "server.env: %s=%s", key, v)
			return v, true
		}
	}
	if key != EnvLogDir {
		if v, ok := readEnvFile(l.SystemServerEnvPath())[key]; ok {
			logging.Debug(subsystem, "etc/server.env: %s=%s", key, v)
			return v, true
		}
	}
	if v, ok := l.getenv(key); ok && v != "" {
		return v, true
	}
	return "", false
}

func readEnvFile(path string) map[string]string {
	values, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.Warn(subsystem, "Cannot read %s: %v", path, err)
		}
		return nil
	}
	return values
}

// UsrDir is ${wlp.user.dir}: WLP_USER_DIR or <wlpHome>/usr.
func (l *Layout) UsrDir() string {
	if dir, ok := l.EnvVar(EnvWLPUserDir); ok {
		return dir
	}
	return filepath.Join(l.WlpHome, "usr")
}

// ServerConfigDir is ${server.config.dir}, where server.xml lives.
func (l *Layout) ServerConfigDir() string {
	return filepath.Join(l.UsrDir(), "servers", l.ServerName)
}

// OutputDir is ${server.output.dir}: WLP_OUTPUT_DIR/<server> or the config dir.
func (l *Layout) OutputDir() string {
	if dir, ok := l.EnvVar(EnvWLPOutputDir); ok {
		return filepath.Join(dir, l.ServerName)
	}
	return l.ServerConfigDir()
}

// DropinsDir is the directory the server deploys archives from automatically.
func (l *Layout) DropinsDir() string {
	return filepath.Join(l.ServerConfigDir(), "dropins")
}

// AppsDir holds archives referenced from application elements in server.xml.
func (l *Layout) AppsDir() string {
	return filepath.Join(l.ServerConfigDir(), "apps")
}

// ServerXMLPath is the server's configuration document.
func (l *Layout) ServerXMLPath() string {
	return filepath.Join(l.ServerConfigDir(), "server.xml")
}

// DefaultServerXMLPath is the template Liberty copies when creating defaultServer.
func (l *Layout) DefaultServerXMLPath() string {
	return filepath.Join(l.WlpHome, "templates", "servers", DefaultServerName, "server.xml")
}

// ServerEnvPath is the server's own server.env.
func (l *Layout) ServerEnvPath() string {
	return filepath.Join(l.ServerConfigDir(), "server.env")
}

// SystemServerEnvPath is the installation wide etc/server.env.
func (l *Layout) SystemServerEnvPath() string {
	return filepath.Join(l.WlpHome, "etc", "server.env")
}

// BootstrapPropertiesPath is the server's bootstrap.properties.
func (l *Layout) BootstrapPropertiesPath() string {
	return filepath.Join(l.ServerConfigDir(), "bootstrap.properties")
}

// StateDir is where a running server publishes its connector addresses.
func (l *Layout) StateDir() string {
	return filepath.Join(l.OutputDir(), "logs", "state")
}

// ReadServerXML loads server.xml. A missing server.xml of defaultServer is
// read from the installation template, the way the server creates it.
// The returned document always saves to ServerXMLPath.
func (l *Layout) ReadServerXML() (*ServerXML, error) {
	path := l.ServerXMLPath()
	doc, err := LoadServerXML(path)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, os.ErrNotExist) || l.ServerName != DefaultServerName {
		return nil, err
	}
	logging.Debug(subsystem, "%s not found, reading template %s", path, l.DefaultServerXMLPath())
	doc, err = LoadServerXML(l.DefaultServerXMLPath())
	if err != nil {
		return nil, err
	}
	doc.path = path
	return doc, nil
}

// BootstrapProperty returns a property of bootstrap.properties, empty when
// the file or the key is missing.
func (l *Layout) BootstrapProperty(key string) string {
	v := newPropertiesViper()
	v.SetConfigFile(l.BootstrapPropertiesPath())
	v.SetConfigType("properties")
	if err := v.ReadInConfig(); err != nil {
		logging.Debug(subsystem, "bootstrap.properties not read: %v", err)
		return ""
	}
	value := v.GetString(key)
	logging.Debug(subsystem, "bootstrap.properties: %s=%s", key, value)
	return value
}

// ExpandVars replaces the Liberty location variables ${wlp.install.dir},
// ${wlp.user.dir}, ${server.config.dir} and ${server.output.dir}. Other
// variables are left untouched.
func (l *Layout) ExpandVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, func(name string) string {
		switch name {
		case "wlp.install.dir":
			return l.WlpHome
		case "wlp.user.dir":
			return l.UsrDir()
		case "server.config.dir":
			return l.ServerConfigDir()
		case "server.output.dir":
			return l.OutputDir()
		}
		return "${" + name + "}"
	})
}

// MessagesLogPath locates the server's message log. The directory comes
// from server.xml logging/@logDirectory, the bootstrap property
// com.ibm.ws.logging.log.directory, the LOG_DIR environment variable, or
// <output dir>/logs, in that order; the file name from
// logging/@messageFileName, com.ibm.ws.logging.message.file.name, or
// messages.log.
func (l *Layout) MessagesLogPath() string {
	var logDir, fileName string

	if doc, err := l.ReadServerXML(); err == nil {
		logDir = doc.LoggingAttr("logDirectory")
		fileName = doc.LoggingAttr("messageFileName")
	} else {
		logging.Warn(subsystem, "Cannot read server.xml for logging settings: %v", err)
	}

	if logDir == "" {
		logDir = l.BootstrapProperty(PropLogDirectory)
	}
	if logDir == "" {
		logDir, _ = l.EnvVar(EnvLogDir)
	}
	if logDir == "" {
		logDir = filepath.Join(l.OutputDir(), "logs")
	}

	if fileName == "" {
		fileName = l.BootstrapProperty(PropMessageFile)
	}
	if fileName == "" {
		fileName = DefaultMessageFile
	}

	return filepath.Join(l.ExpandVars(logDir), l.ExpandVars(fileName))
}
