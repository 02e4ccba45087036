// Package api holds the types shared by every wasdeploy component: the
// deployment request handed to a container, the handle describing a running
// server, the endpoint contract returned after a deployment and the error
// taxonomy used across the management transports.
//
// The package depends on nothing else inside wasdeploy so that the locator,
// the transports, the deployment driver and the endpoint resolver can all
// exchange these values without importing each other.
//
// # Errors
//
// Failures are classified by concrete error types:
//
//   - ConnectError: the management plane cannot be reached or authenticated
//   - TransportError: a management call returned a non-success result
//   - ArtifactError: the archive is invalid or cannot be written or removed
//   - ProcessStartupError: the server process exited before it became manageable
//   - ConvergenceTimeoutError: applications did not reach their target state in time
//   - DeploymentFailure: a convergence failure enriched with a cause found in the server log
//
// Public container operations wrap all of them into a ContainerError that
// records whether the lifecycle, a deployment or an undeployment failed, and
// keeps the original error available through errors.As and errors.Is.
package api
