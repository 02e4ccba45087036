// Package mbean reads a server's MBean registry.
//
// ObjectName models JMX object names and patterns. Connection is the
// read-only view of the registry the deployers need; RESTClient implements
// it over the Liberty REST connector (IBMJMXConnectorREST) and adds the
// connector's file transfer resource used to upload and delete archives.
package mbean
