// Package container implements the lifecycle a test runner drives:
// Setup, Start, Deploy, Undeploy and Stop.
//
// Three kinds exist:
//
//   - liberty-managed launches a local Liberty server, or attaches to a
//     running one when allowed, and deploys by writing archives into its
//     directories.
//   - liberty-remote deploys to the dropins directory of a running Liberty
//     server through the REST connector.
//   - was-remote installs applications on a WebSphere traditional server
//     through the SOAP connector.
//
// Every error a Container returns is an *api.ContainerError whose Op tells
// lifecycle, deployment and undeployment failures apart.
package container
