package api

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Operation names the public container operation a ContainerError came from.
type Operation string

const (
	OpLifecycle Operation = "lifecycle"
	OpDeploy    Operation = "deploy"
	OpUndeploy  Operation = "undeploy"
)

// ContainerError is the single categorized error returned by container
// operations. It distinguishes lifecycle failures from deployment and
// undeployment failures and keeps the original error as its cause.
type ContainerError struct {
	// Op is the failing operation category.
	Op Operation

	// Message is a human readable summary.
	Message string

	// Err is the nested cause, may be nil.
	Err error
}

// Error implements the error interface for ContainerError.
func (e *ContainerError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

// Unwrap returns the nested cause.
func (e *ContainerError) Unwrap() error {
	return e.Err
}

// WrapContainerError wraps err into a ContainerError for op.
// A ContainerError of the same category is returned unchanged so that
// a more specific message raised deeper down is kept.
//
// Args:
//   - op: The failing operation category
//   - message: Summary used when err is not already categorized
//   - err: The cause; nil yields nil
//
// Returns:
//   - error: nil or a *ContainerError
func WrapContainerError(op Operation, message string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ContainerError
	if errors.As(err, &ce) && ce.Op == op {
		return err
	}
	return &ContainerError{Op: op, Message: message, Err: err}
}

// IsOperation reports whether err is a ContainerError for op.
func IsOperation(err error, op Operation) bool {
	var ce *ContainerError
	return errors.As(err, &ce) && ce.Op == op
}

// ConnectError means the management plane could not be reached or
// authenticated, or no connector address could be discovered.
type ConnectError struct {
	Address string
	Message string
	Err     error
}

func (e *ConnectError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "cannot connect to management endpoint"
	}
	if e.Address != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Address)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TransportError is a failed or non-success management call.
type TransportError struct {
	// Operation is the management call, e.g. "upload" or "getAttribute".
	Operation string
	// StatusCode is the HTTP status for HTTP based transports, zero otherwise.
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Operation)
	b.WriteString(" failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " with status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error { return e.Err }

// ArtifactError is an invalid archive or a failure to write or delete one.
type ArtifactError struct {
	Path    string
	Message string
	Err     error
}

func (e *ArtifactError) Error() string {
	msg := e.Message
	if e.Path != "" && !strings.Contains(msg, e.Path) {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// ProcessStartupError means the server process terminated before a
// management endpoint became available.
type ProcessStartupError struct {
	ExitCode int
}

func (e *ProcessStartupError) Error() string {
	return fmt.Sprintf("Process terminated prematurely; ev = %d", e.ExitCode)
}

// Convergence phases reported for applications that did not finish.
const (
	PhaseInitial            = "INITIAL"
	PhaseMatchesTargetState = "MATCHES_TARGET_STATE"
)

// StuckApplication is an application that did not reach FINISHED before the deadline.
type StuckApplication struct {
	Name  string
	Phase string
}

// Message returns the per-application timeout line.
func (s StuckApplication) Message() string {
	if s.Phase == PhaseMatchesTargetState {
		return fmt.Sprintf("Timeout while waiting for %q ApplicationState to reach STARTED.", s.Name)
	}
	return fmt.Sprintf("Timeout while waiting for %q ApplicationMBean to reach targetState.", s.Name)
}

// ConvergenceTimeoutError reports the applications that did not reach their
// target state within the timeout, and the phase each one was stuck in.
type ConvergenceTimeoutError struct {
	Target  bool
	Timeout time.Duration
	Stuck   []StuckApplication
}

func (e *ConvergenceTimeoutError) Error() string {
	lines := make([]string, 0, len(e.Stuck))
	for _, s := range e.Stuck {
		lines = append(lines, s.Message())
	}
	return strings.Join(lines, "\n")
}

// StuckNames returns the names of the stuck applications.
func (e *ConvergenceTimeoutError) StuckNames() []string {
	names := make([]string, 0, len(e.Stuck))
	for _, s := range e.Stuck {
		names = append(names, s.Name)
	}
	return names
}

// LogCause is a server log line correlated with a failing deployment.
type LogCause struct {
	// Class is the failure class found on the line, e.g. "DefinitionException".
	Class string
	// Line is the log line text.
	Line string
}

func (c *LogCause) Error() string { return c.Line }

// DeploymentFailure is a convergence failure whose cause was found in the
// server message log. Its message carries the log line in place of the
// generic timeout text; both remain reachable through errors.As.
type DeploymentFailure struct {
	Application string
	Server      string
	Cause       *LogCause
	Timeout     error
}

func (e *DeploymentFailure) Error() string {
	return fmt.Sprintf("Failed to deploy %s on %s: %s", e.Application, e.Server, e.Cause.Line)
}

func (e *DeploymentFailure) Unwrap() []error {
	errs := []error{e.Cause}
	if e.Timeout != nil {
		errs = append(errs, e.Timeout)
	}
	return errs
}

// IsConnectError reports whether err is or wraps a ConnectError.
func IsConnectError(err error) bool {
	var target *ConnectError
	return errors.As(err, &target)
}

// IsTransportError reports whether err is or wraps a TransportError.
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsArtifactError reports whether err is or wraps an ArtifactError.
func IsArtifactError(err error) bool {
	var target *ArtifactError
	return errors.As(err, &target)
}

// IsProcessStartupError reports whether err is or wraps a ProcessStartupError.
func IsProcessStartupError(err error) bool {
	var target *ProcessStartupError
	return errors.As(err, &target)
}

// IsConvergenceTimeout reports whether err is or wraps a ConvergenceTimeoutError.
func IsConvergenceTimeout(err error) bool {
	var target *ConvergenceTimeoutError
	return errors.As(err, &target)
}
