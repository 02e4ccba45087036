package mbean

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		domain    string
		keys      map[string]string
		pattern   bool
		canonical string
	}{
		{
			name:      "application mbean",
			input:     "WebSphere:service=com.ibm.websphere.application.ApplicationMBean,name=demo",
			domain:    "WebSphere",
			keys:      map[string]string{"service": "com.ibm.websphere.application.ApplicationMBean", "name": "demo"},
			canonical: "WebSphere:name=demo,service=com.ibm.websphere.application.ApplicationMBean",
		},
		{
			name:      "property pattern",
			input:     "WebSphere:type=Application,name=demo,*",
			domain:    "WebSphere",
			keys:      map[string]string{"type": "Application", "name": "demo"},
			pattern:   true,
			canonical: "WebSphere:name=demo,type=Application,*",
		},
		{
			name:      "quoted value with comma",
			input:     `d:k="a,b",z=1`,
			domain:    "d",
			keys:      map[string]string{"k": `"a,b"`, "z": "1"},
			canonical: `d:k="a,b",z=1`,
		},
		{
			name:      "wildcard only",
			input:     "*:*",
			domain:    "*",
			keys:      map[string]string{},
			pattern:   true,
			canonical: "*:*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, err := ParseObjectName(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.domain, name.Domain)
			for k, v := range tt.keys {
				assert.Equal(t, v, name.KeyProperty(k))
			}
			assert.Len(t, name.Properties, len(tt.keys))
			assert.Equal(t, tt.pattern, name.PropertyPattern)
			assert.Equal(t, tt.input, name.String())
			assert.Equal(t, tt.canonical, name.Canonical())
		})
	}
}

func TestParseObjectName_Invalid(t *testing.T) {
	for _, input := range []string{
		"no-domain",
		"d:",
		"d:novalue",
		"d:=x",
		`d:k="open`,
		"d:a=1,a=2",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseObjectName(input)
			assert.Error(t, err)
		})
	}
}

func TestObjectName_Matches(t *testing.T) {
	app := MustParseObjectName("WebSphere:type=Application,name=demo,process=server1")

	assert.True(t, MustParseObjectName("WebSphere:type=Application,*").Matches(app))
	assert.True(t, MustParseObjectName("WebSphere:name=demo,type=Application,*").Matches(app))
	assert.True(t, MustParseObjectName("Web*:*").Matches(app))
	assert.True(t, All().Matches(app))
	assert.False(t, MustParseObjectName("WebSphere:type=Application,name=other,*").Matches(app))
	assert.False(t, MustParseObjectName("WebSphere:type=Application,name=demo").Matches(app))
	assert.True(t, MustParseObjectName("WebSphere:process=server1,name=demo,type=Application").Matches(app))
	assert.False(t, MustParseObjectName("Other:*").Matches(app))

	assert.False(t, app.IsPattern())
	assert.True(t, ServletPattern("demo", "demo.war").IsPattern())
}

func TestWellKnownNames(t *testing.T) {
	assert.Equal(t,
		"WebSphere:service=com.ibm.websphere.application.ApplicationMBean,name=demo",
		ApplicationMBean("demo").String())
	assert.Equal(t,
		"WebSphere:J2EEApplication=demo,j2eeType=Servlet,WebModule=web,*",
		ServletPattern("demo", "web").String())
	assert.Equal(t, "defaultHttpEndpoint", HTTPEndpoint().KeyProperty("name"))
}

func TestRESTBaseURL(t *testing.T) {
	tests := map[string]string{
		"service:jmx:rest://localhost:9443/IBMJMXConnectorREST": "https://localhost:9443/IBMJMXConnectorREST",
		"https://host:9443/IBMJMXConnectorREST/":                "https://host:9443/IBMJMXConnectorREST",
		"https://host:9443":                                     "https://host:9443/IBMJMXConnectorREST",
	}
	for in, want := range tests {
		got, err := RESTBaseURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
		assert.True(t, IsDialable(in))
	}

	_, err := RESTBaseURL("service:jmx:rmi://localhost/jndi/rmi")
	assert.ErrorIs(t, err, ErrUnsupportedProtocol)
	assert.False(t, IsDialable("service:jmx:rmi://localhost/jndi/rmi"))
}
