// Package locator finds an already running server by matching the display
// names of local JVMs, and reads the connector address it publishes.
package locator
