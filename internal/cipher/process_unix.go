//go:build unix

package cipher

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

const passFDSupported = true

// setProcessGroup puts the child in its own group so gpg-agent helpers it
// spawns are signalled with it.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminate(cmd *exec.Cmd) { signalGroup(cmd, unix.SIGTERM) }

func kill(cmd *exec.Cmd) { signalGroup(cmd, unix.SIGKILL) }

func signalGroup(cmd *exec.Cmd, sig unix.Signal) {
	if cmd.Process == nil {
		return
	}
	_ = unix.Kill(-cmd.Process.Pid, sig)
}
