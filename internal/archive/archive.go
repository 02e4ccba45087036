package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"wasdeploy/internal/api"
	"wasdeploy/internal/descriptor"
	"wasdeploy/pkg/logging"
)

const subsystem = "Archive"

// TestableMarker is the entry that flags a web archive as carrying the
// test runner servlet.
const TestableMarker = "META-INF/arquillian.testable"

// ApplicationXML is the location of the EAR deployment descriptor.
const ApplicationXML = "META-INF/application.xml"

// WebModule is a web archive that is, or is contained in, a deployment.
type WebModule struct {
	// Name is the module file name without the .war extension.
	Name string
	// FileName is the module file name, e.g. "shop.war".
	FileName string
	// ContextRoot is the URL path prefix the module is served under.
	ContextRoot string
	// Testable is true when the module carries the test runner servlet.
	Testable bool
}

// Archive gives read access to the entries of a deployment archive.
type Archive struct {
	name string
	typ  string
	zr   *zip.Reader
}

// Open reads the archive of a deployment request.
func Open(req api.DeploymentRequest) (*Archive, error) {
	data, err := req.Bytes()
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &api.ArtifactError{Path: req.ArchiveName, Message: "archive is not a valid zip file", Err: err}
	}
	return &Archive{name: req.ArchiveName, typ: req.ArchiveType, zr: zr}, nil
}

// Name returns the archive file name.
func (a *Archive) Name() string { return a.name }

// Has reports whether the archive contains an entry.
func (a *Archive) Has(entry string) bool {
	return a.file(entry) != nil
}

// ReadEntry returns the content of an entry.
func (a *Archive) ReadEntry(entry string) ([]byte, error) {
	f := a.file(entry)
	if f == nil {
		return nil, fmt.Errorf("%s: no entry %s", a.name, entry)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Entries lists the names of the file entries in archive order.
func (a *Archive) Entries() []string {
	var names []string
	for _, f := range a.zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, strings.TrimPrefix(f.Name, "/"))
	}
	return names
}

func (a *Archive) file(entry string) *zip.File {
	entry = strings.TrimPrefix(entry, "/")
	for _, f := range a.zr.File {
		if strings.TrimPrefix(f.Name, "/") == entry {
			return f
		}
	}
	return nil
}

// WebModules returns the web modules of the deployment. A WAR is a single
// module whose context root is the deploy name; an EAR contributes every
// contained .war with the context root declared in its application.xml,
// falling back to the module name. Other archive types have no web modules.
func WebModules(req api.DeploymentRequest) ([]WebModule, error) {
	switch req.ArchiveType {
	case api.ArchiveWAR:
		a, err := Open(req)
		if err != nil {
			return nil, err
		}
		return []WebModule{{
			Name:        req.DeployName,
			FileName:    req.ArchiveName,
			ContextRoot: req.DeployName,
			Testable:    req.Testable || a.Has(TestableMarker),
		}}, nil
	case api.ArchiveEAR:
		a, err := Open(req)
		if err != nil {
			return nil, err
		}
		return a.earWebModules()
	}
	return nil, nil
}

func (a *Archive) earWebModules() ([]WebModule, error) {
	var app *descriptor.Application
	if data, err := a.ReadEntry(ApplicationXML); err == nil {
		app, err = descriptor.ParseApplication(data)
		if err != nil {
			logging.Warn(subsystem, "Unable to read context roots from %s in %s: %v", ApplicationXML, a.name, err)
		}
	}

	var modules []WebModule
	for _, entry := range a.Entries() {
		if !strings.HasSuffix(entry, ".war") {
			continue
		}
		fileName := path.Base(entry)
		module := WebModule{
			Name:     strings.TrimSuffix(fileName, ".war"),
			FileName: fileName,
		}
		module.ContextRoot = module.Name
		if app != nil {
			if root, ok := app.ContextRoot(fileName); ok {
				module.ContextRoot = root
			}
		}
		testable, err := a.nestedHas(entry, TestableMarker)
		if err != nil {
			return nil, &api.ArtifactError{Path: entry, Message: "cannot read web module", Err: err}
		}
		module.Testable = testable
		modules = append(modules, module)
	}
	sort.SliceStable(modules, func(i, j int) bool { return modules[i].FileName < modules[j].FileName })
	return modules, nil
}

func (a *Archive) nestedHas(entry, nested string) (bool, error) {
	data, err := a.ReadEntry(entry)
	if err != nil {
		return false, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false, err
	}
	for _, f := range zr.File {
		if strings.TrimPrefix(f.Name, "/") == nested {
			return true, nil
		}
	}
	return false, nil
}
