// Package liberty knows the on-disk layout of a Liberty installation.
//
// It resolves the directories of a server the way the server start script
// does (server.env, etc/server.env, bootstrap.properties and the process
// environment), edits server.xml without disturbing unrelated content, and
// watches the state directory where a running server publishes its
// connector address.
package liberty
