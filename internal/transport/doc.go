// Package transport abstracts the management plane of a server.
//
// A Transport uploads and removes archives and answers two questions
// about an application: is it registered, and what is its runtime state.
// Three implementations exist:
//
//   - LocalTransport attaches to a server JVM on this machine. Archives
//     are written to the server's directories; the registry is reached
//     through the connector address the JVM publishes.
//   - RESTTransport drives a remote Liberty server through its REST
//     connector, including the connector's file service.
//   - SOAPTransport drives a WebSphere traditional server through its
//     SOAP connector. Install and uninstall complete through application
//     management notifications, so it also offers InstallApplication,
//     DistributionStatus and StartApplication.
//
// NewTransportFromType selects the implementation at configuration time.
package transport
