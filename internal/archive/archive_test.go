package archive

import (
	"archive/zip"
	"bytes"
	"testing"

	"wasdeploy/internal/api"
	"wasdeploy/internal/descriptor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func request(t *testing.T, name string, data []byte, testable bool) api.DeploymentRequest {
	t.Helper()
	req, err := api.NewDeploymentRequest(name, data, testable)
	require.NoError(t, err)
	return req
}

func TestWebModules_WAR(t *testing.T) {
	plain := buildZip(t, map[string][]byte{"WEB-INF/web.xml": []byte("<web-app/>")})
	marked := buildZip(t, map[string][]byte{TestableMarker: nil})

	modules, err := WebModules(request(t, "shop.war", plain, false))
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, WebModule{Name: "shop", FileName: "shop.war", ContextRoot: "shop"}, modules[0])

	modules, err = WebModules(request(t, "shop.war", plain, true))
	require.NoError(t, err)
	assert.True(t, modules[0].Testable)

	modules, err = WebModules(request(t, "test.war", marked, false))
	require.NoError(t, err)
	assert.True(t, modules[0].Testable)
}

func TestWebModules_EAR(t *testing.T) {
	appXML := []byte(`<application xmlns="http://java.sun.com/xml/ns/javaee">
  <module><web><web-uri>a.war</web-uri><context-root>/alpha</context-root></web></module>
</application>`)
	ear := buildZip(t, map[string][]byte{
		ApplicationXML: appXML,
		"a.war":        buildZip(t, map[string][]byte{TestableMarker: nil}),
		"b.war":        buildZip(t, map[string][]byte{"index.html": []byte("hi")}),
		"lib/util.jar": buildZip(t, map[string][]byte{"x.class": nil}),
	})

	modules, err := WebModules(request(t, "app.ear", ear, false))
	require.NoError(t, err)
	require.Len(t, modules, 2)

	assert.Equal(t, WebModule{Name: "a", FileName: "a.war", ContextRoot: "/alpha", Testable: true}, modules[0])
	assert.Equal(t, WebModule{Name: "b", FileName: "b.war", ContextRoot: "b"}, modules[1])
}

func TestWebModules_EARWithBrokenApplicationXML(t *testing.T) {
	ear := buildZip(t, map[string][]byte{
		ApplicationXML: []byte("<application><module>"),
		"a.war":        buildZip(t, map[string][]byte{"index.html": nil}),
	})

	modules, err := WebModules(request(t, "app.ear", ear, false))
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, "a", modules[0].ContextRoot)
}

func TestWebModules_Other(t *testing.T) {
	modules, err := WebModules(request(t, "bundle.eba", []byte("not even a zip"), false))
	require.NoError(t, err)
	assert.Empty(t, modules)

	_, err = WebModules(request(t, "broken.war", []byte("not a zip"), false))
	assert.True(t, api.IsArtifactError(err))
}

func TestWrapInEAR(t *testing.T) {
	war := buildZip(t, map[string][]byte{"index.html": []byte("hi")})

	ear, err := WrapInEAR(request(t, "shop.war", war, true))
	require.NoError(t, err)
	assert.Equal(t, "shop.ear", ear.ArchiveName)
	assert.Equal(t, "shop", ear.DeployName)
	assert.Equal(t, api.ArchiveEAR, ear.ArchiveType)

	a, err := Open(ear)
	require.NoError(t, err)
	nested, err := a.ReadEntry("shop.war")
	require.NoError(t, err)
	assert.Equal(t, war, nested)

	appXML, err := a.ReadEntry(ApplicationXML)
	require.NoError(t, err)
	app, err := descriptor.ParseApplication(appXML)
	require.NoError(t, err)
	assert.Equal(t, descriptor.NamespaceJavaEE, app.Namespace)
	root, ok := app.ContextRoot("shop.war")
	require.True(t, ok)
	assert.Equal(t, "shop", root)

	_, err = WrapInEAR(request(t, "app.ear", []byte("x"), false))
	assert.Error(t, err)
}
