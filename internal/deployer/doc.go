// Package deployer drives archives onto a server and waits until the
// server reports the outcome.
//
// Poller implements the convergence wait shared by every deployer. Each
// application moves from INITIAL to MATCHES_TARGET_STATE once its
// registration matches the target, then to FINISHED once it is STARTED
// (deploy) or immediately (undeploy). Statuses never move backwards and
// the wait succeeds only when every application is FINISHED. Registry
// errors end the wait at once; anything else is retried every Interval
// until the timeout, which reports the stuck applications and their phase.
//
// A failed local deployment is enriched from the server's message log by
// Diagnose.
//
// Three deployers exist: FileDeployer writes into the directories of a
// local server, RemoteDeployer uploads to the dropins directory of a
// remote Liberty server, and InstallDeployer installs through the
// application management service of a WebSphere traditional server.
package deployer
