package cipher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const stderrLines = 20

// invocation describes one synchronous run of the cipher binary.
type invocation struct {
	binary string
	args   []string
	stdin  []byte

	// passphrase is written to the child's fd 3 when passFD is set.
	passphrase string
	passFD     bool

	timeout time.Duration
	grace   time.Duration
}

type outcome struct {
	stdout   []byte
	stderr   string
	exitCode int
}

// run starts the binary, feeds stdin, and blocks until it exits or the
// deadline passes. On deadline or cancellation the whole process group gets
// SIGTERM, then SIGKILL once grace has elapsed.
func run(ctx context.Context, inv invocation) (outcome, error) {
	path, err := exec.LookPath(inv.binary)
	if err != nil {
		return outcome{}, fmt.Errorf("%w: %s: %v", ErrToolMissing, inv.binary, err)
	}
	if inv.passFD && !passFDSupported {
		return outcome{}, fmt.Errorf("passphrase fd delivery is not supported on this platform")
	}

	if inv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}

	cmd := exec.Command(path, inv.args...)
	var stdout bytes.Buffer
	stderr := newTailBuffer(stderrLines)
	cmd.Stdin = bytes.NewReader(inv.stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = inv.grace
	setProcessGroup(cmd)

	var passW *os.File
	if inv.passFD {
		r, w, err := os.Pipe()
		if err != nil {
			return outcome{}, fmt.Errorf("creating passphrase pipe: %w", err)
		}
		defer r.Close()
		defer w.Close()
		cmd.ExtraFiles = []*os.File{r}
		passW = w
	}

	if err := cmd.Start(); err != nil {
		return outcome{}, fmt.Errorf("%w: starting %s: %v", ErrToolMissing, inv.binary, err)
	}

	if passW != nil {
		// The child may exit without reading; the exit code reports that.
		_, _ = passW.Write([]byte(inv.passphrase + "\n"))
		_ = passW.Close()
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		terminate(cmd)
		select {
		case <-done:
		case <-time.After(inv.grace):
			kill(cmd)
			<-done
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return outcome{stderr: stderr.String()}, fmt.Errorf("%w after %s", ErrTimeout, inv.timeout)
		}
		return outcome{stderr: stderr.String()}, ctx.Err()
	}

	out := outcome{stdout: stdout.Bytes(), stderr: stderr.String()}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return out, fmt.Errorf("waiting for %s: %w", inv.binary, waitErr)
		}
		out.exitCode = exitErr.ExitCode()
	}
	return out, nil
}
