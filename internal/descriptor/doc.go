// Package descriptor reads and writes the XML files wasdeploy edits or
// inspects: Liberty's server.xml and the Java EE deployment descriptors
// application.xml and web.xml.
//
// Document keeps attribute order, comments and whitespace, so a file can be
// read, modified and written back with a minimal diff and the output is
// byte-for-byte reproducible.
//
// ParseApplication and ParseWebApp accept the Java EE, J2EE and DTD
// (no namespace) generations of the deployment descriptor schemas.
package descriptor
