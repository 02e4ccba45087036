package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

// Schema namespaces accepted for application.xml and web.xml, newest first.
// The empty namespace covers DTD based descriptors.
const (
	NamespaceJavaEE = "http://java.sun.com/xml/ns/javaee"
	NamespaceJ2EE   = "http://java.sun.com/xml/ns/j2ee"
	NamespaceNone   = ""
)

var schemaNamespaces = []string{NamespaceJavaEE, NamespaceJ2EE, NamespaceNone}

// ErrUnsupportedSchema is returned for descriptors whose root element or
// namespace is not one of the recognised schema generations.
var ErrUnsupportedSchema = errors.New("unsupported deployment descriptor schema")

// WebModule is a module/web entry of application.xml.
type WebModule struct {
	URI         string
	ContextRoot string
}

// Application is the parsed content of an application.xml.
type Application struct {
	Namespace  string
	WebModules []WebModule
}

// ServletMapping is a servlet-mapping entry of web.xml.
type ServletMapping struct {
	ServletName string
	URLPatterns []string
}

// WebApp is the parsed content of a web.xml.
type WebApp struct {
	Namespace       string
	ServletMappings []ServletMapping
}

// ParseApplication reads the web modules of an application.xml.
func ParseApplication(data []byte) (*Application, error) {
	root, ns, err := parseRoot(data, "application")
	if err != nil {
		return nil, err
	}
	app := &Application{Namespace: ns}
	for _, module := range root.Elements("module") {
		for _, web := range module.Elements("web") {
			app.WebModules = append(app.WebModules, WebModule{
				URI:         childText(web, "web-uri"),
				ContextRoot: childText(web, "context-root"),
			})
		}
	}
	return app, nil
}

// ContextRoot returns the context root declared for the web module with
// the given web-uri. Blank context roots count as absent.
func (a *Application) ContextRoot(webURI string) (string, bool) {
	for _, m := range a.WebModules {
		if m.URI == webURI && strings.TrimSpace(m.ContextRoot) != "" {
			return m.ContextRoot, true
		}
	}
	return "", false
}

// ParseWebApp reads the servlet mappings of a web.xml.
func ParseWebApp(data []byte) (*WebApp, error) {
	root, ns, err := parseRoot(data, "web-app")
	if err != nil {
		return nil, err
	}
	app := &WebApp{Namespace: ns}
	for _, sm := range root.Elements("servlet-mapping") {
		mapping := ServletMapping{ServletName: childText(sm, "servlet-name")}
		for _, p := range sm.Elements("url-pattern") {
			mapping.URLPatterns = append(mapping.URLPatterns, strings.TrimSpace(p.TextContent()))
		}
		app.ServletMappings = append(app.ServletMappings, mapping)
	}
	return app, nil
}

func parseRoot(data []byte, rootName string) (*Element, string, error) {
	doc, err := ParseBytes(data)
	if err != nil {
		return nil, "", err
	}
	root := doc.Root
	if LocalName(root.Name) != rootName {
		return nil, "", fmt.Errorf("%w: root element is %s, expected %s", ErrUnsupportedSchema, root.Name, rootName)
	}
	ns := namespaceOf(root)
	for _, known := range schemaNamespaces {
		if ns == known {
			return root, ns, nil
		}
	}
	return nil, "", fmt.Errorf("%w: namespace %q", ErrUnsupportedSchema, ns)
}

func namespaceOf(el *Element) string {
	attr := "xmlns"
	if idx := strings.IndexByte(el.Name, ':'); idx >= 0 {
		attr = "xmlns:" + el.Name[:idx]
	}
	ns, _ := el.Attr(attr)
	return ns
}

func childText(el *Element, name string) string {
	if c := el.First(name); c != nil {
		return strings.TrimSpace(c.TextContent())
	}
	return ""
}
