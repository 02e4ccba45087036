package transport

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"wasdeploy/internal/api"
	"wasdeploy/pkg/logging"
)

// ExitHookRegistry schedules cleanup for when wasdeploy exits.
type ExitHookRegistry interface {
	Register(fn func()) int
}

// writeArchive copies the archive of req to path and flushes it to disk.
func writeArchive(req api.DeploymentRequest, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &api.ArtifactError{Path: path, Message: "Cannot create directory", Err: err}
	}
	src, err := req.Open()
	if err != nil {
		return &api.ArtifactError{Path: req.ArchiveName, Message: "Cannot read archive", Err: err}
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return &api.ArtifactError{Path: path, Message: "Cannot write archive", Err: err}
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return &api.ArtifactError{Path: path, Message: "Cannot write archive", Err: err}
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		return &api.ArtifactError{Path: path, Message: "Cannot write archive", Err: err}
	}
	if err := dst.Close(); err != nil {
		return &api.ArtifactError{Path: path, Message: "Cannot write archive", Err: err}
	}
	return nil
}

// removeFile deletes path. In fail-safe mode a missing file is ignored and
// any other failure schedules the deletion for exit instead of failing.
func removeFile(path string, failSafe bool, hooks ExitHookRegistry) error {
	err := os.Remove(path)
	if err == nil {
		return nil
	}
	if !failSafe {
		return &api.ArtifactError{Path: path, Message: "Unable to delete", Err: err}
	}
	if errors.Is(err, os.ErrNotExist) {
		logging.Info(subsystem, "%s already removed", path)
		return nil
	}
	logging.Warn(subsystem, "Unable to delete %s, deleting it at exit: %v", path, err)
	if hooks != nil {
		hooks.Register(func() {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				logging.Warn(subsystem, "Deleting %s at exit failed: %v", path, err)
			}
		})
	}
	return nil
}
