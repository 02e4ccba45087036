package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"wasdeploy/internal/api"
	"wasdeploy/internal/descriptor"
)

// WrapInEAR packages a web archive as the only module of a new enterprise
// archive named after its deploy name. The generated application.xml maps
// the module to a context root equal to the deploy name.
func WrapInEAR(req api.DeploymentRequest) (api.DeploymentRequest, error) {
	if req.ArchiveType != api.ArchiveWAR {
		return api.DeploymentRequest{}, &api.ArtifactError{
			Path:    req.ArchiveName,
			Message: fmt.Sprintf("only web archives can be wrapped, got %s", req.ArchiveType),
		}
	}
	war, err := req.Bytes()
	if err != nil {
		return api.DeploymentRequest{}, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if err := writeEntry(zw, ApplicationXML, applicationXML(req.ArchiveName, req.DeployName)); err != nil {
		return api.DeploymentRequest{}, err
	}
	if err := writeEntry(zw, req.ArchiveName, war); err != nil {
		return api.DeploymentRequest{}, err
	}
	if err := zw.Close(); err != nil {
		return api.DeploymentRequest{}, err
	}

	return api.NewDeploymentRequest(req.DeployName+".ear", buf.Bytes(), req.Testable)
}

func applicationXML(webURI, contextRoot string) []byte {
	app := descriptor.NewElement("application",
		"xmlns", descriptor.NamespaceJavaEE,
		"xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance",
		"xsi:schemaLocation", descriptor.NamespaceJavaEE+" http://java.sun.com/xml/ns/javaee/application_6.xsd",
		"version", "6")
	app.Children = []descriptor.Node{descriptor.Text("\n")}

	web := descriptor.NewElement("web")
	web.Children = []descriptor.Node{descriptor.Text("\n")}
	web.Append(withText("web-uri", webURI))
	web.Append(withText("context-root", contextRoot))

	module := descriptor.NewElement("module")
	module.Children = []descriptor.Node{descriptor.Text("\n")}
	module.Append(web)

	app.Append(module)
	return (&descriptor.Document{Root: app}).Bytes()
}

func withText(name, text string) *descriptor.Element {
	el := descriptor.NewElement(name)
	el.Children = []descriptor.Node{descriptor.Text(text)}
	return el
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(data))
	return err
}
