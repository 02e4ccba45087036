//go:build windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// configureProcAttr gives the child its own process group so console
// interrupts are not delivered to it.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
