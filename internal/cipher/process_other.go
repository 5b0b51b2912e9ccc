//go:build !unix

package cipher

import "os/exec"

// Inherited descriptors beyond stdio are unavailable here; use the Sealed
// gateway or PassphraseArg mode.
const passFDSupported = false

func setProcessGroup(*exec.Cmd) {}

func terminate(cmd *exec.Cmd) { kill(cmd) }

func kill(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
