// Package logging provides subsystem-tagged structured logging for wasdeploy.
//
// The package wraps Go's standard slog package. Every entry carries a
// subsystem attribute so output from the locator, the process supervisor,
// the transports and the deployment driver can be told apart:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Deployer", "Deploying %s to %s", archiveName, serverName)
//	logging.Error("Transport", err, "Upload of %s failed", archiveName)
//
// Levels are configured from strings with ParseLevel, which accepts
// debug, info, warn and error.
//
// Output from a supervised server process is not routed through this
// package; it is copied verbatim to the configured writer.
package logging
