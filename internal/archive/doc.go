// Package archive inspects deployment archives: it lists the web modules a
// WAR or EAR contributes together with their context roots and whether they
// carry the test runner servlet, and it wraps a WAR into an EAR for servers
// that only install enterprise applications.
package archive
