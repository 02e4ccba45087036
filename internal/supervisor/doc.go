// Package supervisor launches and terminates server processes.
//
// A launched Process has its merged stdout and stderr drained continuously,
// either to a writer or discarded, for as long as the child runs. Every
// launch registers a kill hook in an ExitHooks registry owned by the
// caller; Terminate removes it again. ExitHooks.Watch runs the remaining
// hooks when wasdeploy is interrupted.
package supervisor
