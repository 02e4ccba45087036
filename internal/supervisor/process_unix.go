//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// configureProcAttr puts the child in its own process group so a Ctrl+C
// typed at the terminal reaches wasdeploy only. The server is stopped by
// Terminate or the exit hooks, never by the terminal.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
