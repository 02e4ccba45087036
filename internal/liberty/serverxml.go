package liberty

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wasdeploy/internal/descriptor"
)

// Application is an application element of server.xml.
type Application struct {
	ID       string
	Location string
	Name     string
	Type     string

	// CommonLibraryRef and APITypeVisibility populate an optional classloader child.
	CommonLibraryRef  string
	APITypeVisibility string

	// Security is appended verbatim as a child element, e.g. an application-bnd.
	Security *descriptor.Element
}

// ServerXML is a Liberty server.xml with accessors for the feature and
// application sections. Unrelated content is preserved on save.
type ServerXML struct {
	doc  *descriptor.Document
	path string
}

// LoadServerXML reads a server.xml file.
func LoadServerXML(path string) (*ServerXML, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := descriptor.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc.Root.Name != "server" {
		return nil, fmt.Errorf("%s: root element is %s, expected server", path, doc.Root.Name)
	}
	return &ServerXML{doc: doc, path: path}, nil
}

// ParseServerXML parses an in-memory document that saves to path.
func ParseServerXML(data []byte, path string) (*ServerXML, error) {
	doc, err := descriptor.ParseBytes(data)
	if err != nil {
		return nil, err
	}
	return &ServerXML{doc: doc, path: path}, nil
}

// Path is the file Save writes to.
func (s *ServerXML) Path() string { return s.path }

// Features lists the feature names declared in featureManager elements.
func (s *ServerXML) Features() []string {
	var features []string
	for _, fm := range s.doc.Root.Elements("featureManager") {
		for _, f := range fm.Elements("feature") {
			features = append(features, strings.TrimSpace(f.TextContent()))
		}
	}
	return features
}

// AddFeature declares a feature unless it is already present. It reports
// whether the document changed.
func (s *ServerXML) AddFeature(name string) bool {
	for _, f := range s.Features() {
		if f == name {
			return false
		}
	}
	fm := s.doc.Root.First("featureManager")
	if fm == nil {
		fm = descriptor.NewElement("featureManager")
		fm.Children = []descriptor.Node{descriptor.Text("\n    ")}
		s.doc.Root.Append(fm)
	}
	feature := descriptor.NewElement("feature")
	feature.Children = []descriptor.Node{descriptor.Text(name)}
	fm.Append(feature)
	return true
}

// Applications lists the application elements.
func (s *ServerXML) Applications() []Application {
	var apps []Application
	for _, el := range s.doc.Root.Elements("application") {
		app := Application{}
		app.ID, _ = el.Attr("id")
		app.Location, _ = el.Attr("location")
		app.Name, _ = el.Attr("name")
		app.Type, _ = el.Attr("type")
		if cl := el.First("classloader"); cl != nil {
			app.CommonLibraryRef, _ = cl.Attr("commonLibraryRef")
			app.APITypeVisibility, _ = cl.Attr("apiTypeVisibility")
		}
		apps = append(apps, app)
	}
	return apps
}

// AddApplication appends an application element.
func (s *ServerXML) AddApplication(app Application) {
	el := descriptor.NewElement("application",
		"id", app.ID,
		"location", app.Location,
		"name", app.Name,
		"type", app.Type)

	if app.CommonLibraryRef != "" || app.APITypeVisibility != "" {
		cl := descriptor.NewElement("classloader")
		if app.CommonLibraryRef != "" {
			cl.SetAttr("commonLibraryRef", app.CommonLibraryRef)
		}
		if app.APITypeVisibility != "" {
			cl.SetAttr("apiTypeVisibility", app.APITypeVisibility)
		}
		el.Children = append(el.Children, cl)
	}
	if app.Security != nil {
		el.Children = append(el.Children, app.Security.Clone())
	}
	s.doc.Root.Append(el)
}

// RemoveApplication removes every application element with the given id
// and reports whether one was found.
func (s *ServerXML) RemoveApplication(id string) bool {
	removed := false
	for _, el := range s.doc.Root.Elements("application") {
		if v, _ := el.Attr("id"); v == id {
			removed = s.doc.Root.Remove(el) || removed
		}
	}
	return removed
}

// LoggingAttr returns an attribute of the logging element, empty when absent.
func (s *ServerXML) LoggingAttr(name string) string {
	if el := s.doc.Root.First("logging"); el != nil {
		v, _ := el.Attr(name)
		return v
	}
	return ""
}

// Bytes serializes the document.
func (s *ServerXML) Bytes() []byte {
	return s.doc.Bytes()
}

// Save writes the document to its path and flushes it to disk before
// returning, so the server never observes a partial file.
func (s *ServerXML) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	if _, err := s.doc.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadSecurityElement reads the root element of a security configuration
// file so it can be attached to an application.
func LoadSecurityElement(path string) (*descriptor.Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Exception while reading %s file: %w", path, err)
	}
	defer f.Close()
	doc, err := descriptor.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("Exception while reading %s file: %w", path, err)
	}
	return doc.Root, nil
}
