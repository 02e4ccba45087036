// Package soap is an administrative client for the SOAP connector of a
// WebSphere Application Server.
//
// Client exchanges XML envelopes over HTTP(S) through a retrying HTTP
// client and implements mbean.Connection. It also exposes the operations
// application deployment needs: invoking MBean operations, querying the
// configuration service and staging archives on the server.
//
// Notifications are pulled by a Subscription, which owns a pump goroutine
// that delivers them to a handler in sequence order.
package soap
