package api

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Archive types accepted by the servers.
const (
	ArchiveEAR = "ear"
	ArchiveWAR = "war"
	ArchiveEBA = "eba"
)

// DeploymentRequest is an archive to deploy together with the names derived
// from it. Values are immutable once created; construct them with
// NewDeploymentRequest or NewDeploymentRequestFromFile.
type DeploymentRequest struct {
	// ArchiveName is the file name of the archive, e.g. "foo.war".
	ArchiveName string

	// ArchiveType is the lower-cased extension of ArchiveName.
	ArchiveType string

	// DeployName is ArchiveName without its extension, e.g. "foo".
	DeployName string

	// Testable marks a web archive that carries the test runner servlet.
	Testable bool

	path    string
	content []byte
}

// SplitArchiveName derives the deploy name and archive type from an archive
// file name. The name is split at the last dot only, so "a.b.war" yields
// ("a.b", "war").
func SplitArchiveName(archiveName string) (deployName, archiveType string, err error) {
	idx := strings.LastIndex(archiveName, ".")
	if idx <= 0 || idx == len(archiveName)-1 {
		return "", "", &ArtifactError{Path: archiveName, Message: fmt.Sprintf("archive name %q has no extension", archiveName)}
	}
	return archiveName[:idx], strings.ToLower(archiveName[idx+1:]), nil
}

// NewDeploymentRequest creates a request for an archive held in memory.
func NewDeploymentRequest(archiveName string, content []byte, testable bool) (DeploymentRequest, error) {
	deployName, archiveType, err := SplitArchiveName(archiveName)
	if err != nil {
		return DeploymentRequest{}, err
	}
	return DeploymentRequest{
		ArchiveName: archiveName,
		ArchiveType: archiveType,
		DeployName:  deployName,
		Testable:    testable,
		content:     append([]byte(nil), content...),
	}, nil
}

// NewDeploymentRequestFromFile creates a request for an archive on disk.
// The file is not read until the archive is uploaded.
func NewDeploymentRequestFromFile(path string, testable bool) (DeploymentRequest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return DeploymentRequest{}, &ArtifactError{Path: path, Message: "cannot read archive", Err: err}
	}
	if info.IsDir() {
		return DeploymentRequest{}, &ArtifactError{Path: path, Message: "archive is a directory"}
	}
	archiveName := filepath.Base(path)
	deployName, archiveType, err := SplitArchiveName(archiveName)
	if err != nil {
		return DeploymentRequest{}, err
	}
	return DeploymentRequest{
		ArchiveName: archiveName,
		ArchiveType: archiveType,
		DeployName:  deployName,
		Testable:    testable,
		path:        path,
	}, nil
}

// Path returns the on-disk location of the archive, empty for in-memory requests.
func (r DeploymentRequest) Path() string {
	return r.path
}

// Open returns a reader over the archive bytes.
func (r DeploymentRequest) Open() (io.ReadCloser, error) {
	if r.path != "" {
		f, err := os.Open(r.path)
		if err != nil {
			return nil, &ArtifactError{Path: r.path, Message: "cannot open archive", Err: err}
		}
		return f, nil
	}
	return io.NopCloser(bytes.NewReader(r.content)), nil
}

// Bytes returns the full archive content.
func (r DeploymentRequest) Bytes() ([]byte, error) {
	if r.path != "" {
		data, err := os.ReadFile(r.path)
		if err != nil {
			return nil, &ArtifactError{Path: r.path, Message: "cannot read archive", Err: err}
		}
		return data, nil
	}
	return append([]byte(nil), r.content...), nil
}

// ValidateType returns an ArtifactError unless the archive type is one of allowed.
func (r DeploymentRequest) ValidateType(allowed ...string) error {
	for _, t := range allowed {
		if strings.EqualFold(r.ArchiveType, t) {
			return nil
		}
	}
	return &ArtifactError{
		Path:    r.ArchiveName,
		Message: fmt.Sprintf("Invalid archive type: %s.  Valid archive types are %s.", r.ArchiveType, joinTypes(allowed)),
	}
}

func joinTypes(types []string) string {
	switch len(types) {
	case 0:
		return "none"
	case 1:
		return types[0]
	case 2:
		return types[0] + " and " + types[1]
	}
	return strings.Join(types[:len(types)-1], ", ") + ", and " + types[len(types)-1]
}
