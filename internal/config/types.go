package config

import (
	"strings"
	"time"
)

// Kind selects the server edition and management transport a container drives.
type Kind string

const (
	// KindLibertyManaged launches (or attaches to) a local Liberty server.
	KindLibertyManaged Kind = "liberty-managed"
	// KindLibertyRemote drives a running Liberty server through its REST connector.
	KindLibertyRemote Kind = "liberty-remote"
	// KindWASRemote drives a WebSphere traditional server through its SOAP connector.
	KindWASRemote Kind = "was-remote"
)

// Deploy modes.
const (
	DeployTypeDropins = "dropins"
	DeployTypeXML     = "xml"
)

// Config is the top-level configuration structure for wasdeploy.
type Config struct {
	Kind        Kind              `yaml:"kind" toml:"kind" default:"liberty-managed" validate:"oneof=liberty-managed liberty-remote was-remote"`
	LogLevel    string            `yaml:"logLevel" toml:"logLevel" default:"info" validate:"oneof=debug info warn error"`
	Server      ServerConfig      `yaml:"server" toml:"server"`
	Credentials CredentialsConfig `yaml:"credentials" toml:"credentials"`
	Timeouts    TimeoutConfig     `yaml:"timeouts" toml:"timeouts"`
	Deploy      DeployConfig      `yaml:"deploy" toml:"deploy"`
	Process     ProcessConfig     `yaml:"process" toml:"process"`
	SOAP        SOAPConfig        `yaml:"soap" toml:"soap"`
	HTTP        HTTPConfig        `yaml:"http" toml:"http"`
}

// ServerConfig identifies the server and where it can be reached.
// HTTPPort 0 resolves the port from the server; JavaHome defaults to $JAVA_HOME.
type ServerConfig struct {
	Name      string `yaml:"name" toml:"name" default:"defaultServer" validate:"servername"`
	WlpHome   string `yaml:"wlpHome" toml:"wlpHome"`
	Host      string `yaml:"host" toml:"host" default:"localhost" validate:"required"`
	HTTPPort  int    `yaml:"httpPort" toml:"httpPort" validate:"min=0,max=65535"`
	HTTPSPort int    `yaml:"httpsPort" toml:"httpsPort" default:"9443" validate:"min=0,max=65535"`
	JavaHome  string `yaml:"javaHome" toml:"javaHome"`
}

// CredentialsConfig is the management user.
type CredentialsConfig struct {
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
}

// TimeoutConfig holds timeouts in seconds.
type TimeoutConfig struct {
	ServerStart      int `yaml:"serverStart" toml:"serverStart" default:"30" validate:"min=0"`
	AppDeploy        int `yaml:"appDeploy" toml:"appDeploy" default:"20" validate:"min=0"`
	AppUndeploy      int `yaml:"appUndeploy" toml:"appUndeploy" default:"2" validate:"min=0"`
	VerifyAppDeploy  int `yaml:"verifyAppDeploy" toml:"verifyAppDeploy" default:"20" validate:"min=0"`
	NotificationWait int `yaml:"notificationWait" toml:"notificationWait" default:"300" validate:"min=0"`
}

func (t TimeoutConfig) ServerStartTimeout() time.Duration {
	return time.Duration(t.ServerStart) * time.Second
}

func (t TimeoutConfig) AppDeployTimeout() time.Duration {
	return time.Duration(t.AppDeploy) * time.Second
}

func (t TimeoutConfig) AppUndeployTimeout() time.Duration {
	return time.Duration(t.AppUndeploy) * time.Second
}

// VerifyAppsTimeout is the verify timeout scaled by the number of applications.
func (t TimeoutConfig) VerifyAppsTimeout(count int) time.Duration {
	return time.Duration(t.VerifyAppDeploy*count) * time.Second
}

// NotificationWaitTimeout bounds how long a notification listener waits;
// zero waits without limit.
func (t TimeoutConfig) NotificationWaitTimeout() time.Duration {
	return time.Duration(t.NotificationWait) * time.Second
}

// DeployConfig controls how archives are placed on the server.
type DeployConfig struct {
	Type                  string `yaml:"type" toml:"type" default:"dropins" validate:"oneof=dropins xml"`
	SharedLib             string `yaml:"sharedLib" toml:"sharedLib"`
	APITypeVisibility     string `yaml:"apiTypeVisibility" toml:"apiTypeVisibility"`
	SecurityConfiguration string `yaml:"securityConfiguration" toml:"securityConfiguration" validate:"omitempty,file"`
	FailSafeUndeployment  bool   `yaml:"failSafeUndeployment" toml:"failSafeUndeployment"`
	VerifyApps            string `yaml:"verifyApps" toml:"verifyApps"` // comma separated application names
}

// ProcessConfig controls the managed server process.
type ProcessConfig struct {
	JavaVMArguments                string `yaml:"javaVmArguments" toml:"javaVmArguments"`
	OutputToConsole                bool   `yaml:"outputToConsole" toml:"outputToConsole" default:"true"`
	AllowConnectingToRunningServer bool   `yaml:"allowConnectingToRunningServer" toml:"allowConnectingToRunningServer"`
	AddConnectorFeature            bool   `yaml:"addConnectorFeature" toml:"addConnectorFeature"`
	ConnectorFeature               string `yaml:"connectorFeature" toml:"connectorFeature" default:"restConnector-2.0"`
}

// SOAPConfig configures the WebSphere SOAP connector.
type SOAPConfig struct {
	Port                 int    `yaml:"port" toml:"port" default:"8880" validate:"min=1,max=65535"`
	SecurityEnabled      bool   `yaml:"securityEnabled" toml:"securityEnabled"`
	TrustStore           string `yaml:"trustStore" toml:"trustStore"`
	TrustStorePassword   string `yaml:"trustStorePassword" toml:"trustStorePassword" default:"WebAS"`
	KeyStore             string `yaml:"keyStore" toml:"keyStore"`
	KeyStorePassword     string `yaml:"keyStorePassword" toml:"keyStorePassword" default:"WebAS"`
	ClassLoadingMode     string `yaml:"classLoadingMode" toml:"classLoadingMode" default:"PARENT_FIRST" validate:"oneof=PARENT_FIRST PARENT_LAST"`
	ClassLoaderPolicy    string `yaml:"classLoaderPolicy" toml:"classLoaderPolicy" default:"MULTIPLE" validate:"oneof=MULTIPLE SINGLE"`
	ArchiveUploadEnabled bool   `yaml:"archiveUploadEnabled" toml:"archiveUploadEnabled" default:"true"`
}

// HTTPConfig tunes the HTTP clients used by the REST and SOAP transports.
type HTTPConfig struct {
	RetryMax           int  `yaml:"retryMax" toml:"retryMax" default:"2" validate:"min=0,max=10"`
	RequestTimeout     int  `yaml:"requestTimeout" toml:"requestTimeout" default:"30" validate:"min=1"`
	InsecureSkipVerify bool `yaml:"insecureSkipVerify" toml:"insecureSkipVerify"`
}

func (h HTTPConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(h.RequestTimeout) * time.Second
}

// VerifyAppList splits VerifyApps on commas, trims each entry and drops
// empty entries and duplicates, keeping first-seen order.
func (d DeployConfig) VerifyAppList() []string {
	var apps []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(d.VerifyApps, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		apps = append(apps, name)
	}
	return apps
}
