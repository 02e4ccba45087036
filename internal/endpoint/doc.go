// Package endpoint builds the EndpointContract a test client uses to reach
// a freshly deployed application.
//
// Liberty servers are resolved with a Resolver: servlets come from the
// J2EE management MBeans when the server exposes them, and otherwise a
// single ArquillianServletRunner entry is guessed from the web modules of
// the archive. The HTTP port is configured or read from the channel
// framework endpoint MBean.
//
// WebSphere traditional servers are resolved with a ConfigResolver, which
// reads the node host name and WC_defaulthost port from the configuration
// service and the servlet mappings from the live deployment descriptors.
package endpoint
