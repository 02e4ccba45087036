package deployer

import (
	"bufio"
	"errors"
	"os"
	"strings"

	"wasdeploy/internal/api"
	"wasdeploy/pkg/logging"
)

// Message log markers of a failed application start.
const (
	MarkerAppStartFailed = "CWWKZ0002"
	ClassDefinition      = "DefinitionException"
	ClassDeployment      = "DeploymentException"
)

// ScanLog returns the first line of the message log at path that explains
// why appName failed: a CWWKZ0002 line naming a DefinitionException, or
// any line naming a DeploymentException. It returns nil when no line
// matches.
func ScanLog(path, appName string) (*api.LogCause, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, appName) {
			continue
		}
		if strings.Contains(line, MarkerAppStartFailed) && strings.Contains(line, ClassDefinition) {
			return &api.LogCause{Class: ClassDefinition, Line: line}, nil
		}
		if strings.Contains(line, ClassDeployment) {
			return &api.LogCause{Class: ClassDeployment, Line: line}, nil
		}
	}
	return nil, scanner.Err()
}

// Diagnose enriches a convergence timeout for appName with the cause found
// in the message log. Other errors, a missing matching line or an
// unreadable log return err unchanged.
func Diagnose(err error, logPath, appName, serverName string) error {
	if !api.IsConvergenceTimeout(err) || logPath == "" {
		return err
	}
	logging.Debug(subsystem, "Scanning message file %s", logPath)
	cause, scanErr := ScanLog(logPath, appName)
	if scanErr != nil {
		if errors.Is(scanErr, os.ErrNotExist) {
			logging.Debug(subsystem, "No message log at %s", logPath)
		} else {
			logging.Warn(subsystem, "Exception while reading messages.log: %s: %v", logPath, scanErr)
		}
		return err
	}
	if cause == nil {
		return err
	}
	logging.Debug(subsystem, "%s found in %s", cause.Class, logPath)
	return &api.DeploymentFailure{
		Application: appName,
		Server:      serverName,
		Cause:       cause,
		Timeout:     err,
	}
}
