// Package ciphertest provides stand-in gpg executables for tests.
package ciphertest

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// fakeGPG stores the passphrase on the first line of the output file and the
// payload after it. Decrypt compares the first line with the passphrase it is
// given and fails like gpg does on a mismatch.
const fakeGPG = `#!/bin/sh
mode=""
out=""
src=""
pass=""
while [ $# -gt 0 ]; do
	case "$1" in
	--passphrase-fd) shift; IFS= read -r pass <&3 ;;
	--passphrase) shift; pass="$1" ;;
	--output) shift; out="$1" ;;
	-c) mode=enc ;;
	-d) shift; mode=dec; src="$1" ;;
	esac
	shift
done
case "$mode" in
enc)
	{ printf '%s\n' "$pass"; cat; } > "$out" || exit 2
	;;
dec)
	if [ ! -r "$src" ]; then
		echo "gpg: can't open '$src': No such file or directory" >&2
		exit 2
	fi
	if [ "$(head -n 1 "$src")" != "$pass" ]; then
		echo "gpg: decryption failed: Bad session key" >&2
		exit 2
	fi
	tail -n +2 "$src"
	;;
*)
	echo "gpg: no command" >&2
	exit 2
	;;
esac
`

// FakeGPG writes a gpg stand-in to a temp dir and returns its path.
func FakeGPG(t testing.TB) string {
	t.Helper()
	return writeScript(t, "gpg", fakeGPG)
}

// SlowGPG returns a gpg stand-in that sleeps for the given number of seconds.
func SlowGPG(t testing.TB, seconds int) string {
	t.Helper()
	return writeScript(t, "gpg-slow", fmt.Sprintf("#!/bin/sh\nsleep %d\n", seconds))
}

// FailingGPG returns a gpg stand-in that writes partial output (if asked to)
// and exits with code.
func FailingGPG(t testing.TB, code int) string {
	t.Helper()
	script := fmt.Sprintf(`#!/bin/sh
while [ $# -gt 0 ]; do
	if [ "$1" = "--output" ]; then shift; printf 'partial' > "$1"; fi
	shift
done
echo "gpg: simulated failure" >&2
exit %d
`, code)
	return writeScript(t, "gpg-fail", script)
}

func writeScript(t testing.TB, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script gpg stand-ins need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}
