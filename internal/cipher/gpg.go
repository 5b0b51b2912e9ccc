package cipher

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single gpg run.
	DefaultTimeout = 30 * time.Second

	defaultBinary = "gpg"
	defaultGrace  = 2 * time.Second

	// passphraseFD is the child descriptor carrying the passphrase: the first
	// entry of exec.Cmd.ExtraFiles.
	passphraseFD = 3
)

// PassphraseMode selects how the passphrase reaches gpg.
type PassphraseMode int

const (
	// PassphraseFD writes the passphrase to an inherited pipe (fd 3).
	PassphraseFD PassphraseMode = iota

	// PassphraseArg passes --passphrase on the command line, where any
	// process listing can read it. Only meant for tests and debugging.
	PassphraseArg
)

// GPG is a Gateway backed by `gpg -c`.
type GPG struct {
	binary  string
	timeout time.Duration
	grace   time.Duration
	mode    PassphraseMode
	logger  *slog.Logger
}

// GPGOption configures a GPG gateway.
type GPGOption func(*GPG)

// WithBinary sets the gpg executable (name or path).
func WithBinary(binary string) GPGOption {
	return func(g *GPG) {
		if binary != "" {
			g.binary = binary
		}
	}
}

// WithTimeout bounds each gpg run. Zero disables the bound.
func WithTimeout(d time.Duration) GPGOption {
	return func(g *GPG) {
		g.timeout = d
	}
}

// WithGracePeriod sets how long a timed-out gpg gets between SIGTERM and SIGKILL.
func WithGracePeriod(d time.Duration) GPGOption {
	return func(g *GPG) {
		g.grace = d
	}
}

// WithPassphraseMode selects passphrase delivery.
func WithPassphraseMode(m PassphraseMode) GPGOption {
	return func(g *GPG) {
		g.mode = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) GPGOption {
	return func(g *GPG) {
		g.logger = l
	}
}

// NewGPG returns a gateway that runs gpg for every call.
func NewGPG(opts ...GPGOption) *GPG {
	g := &GPG{
		binary:  defaultBinary,
		timeout: DefaultTimeout,
		grace:   defaultGrace,
		mode:    PassphraseFD,
		logger:  slog.With("component", "cipher"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Encrypt runs `gpg --yes -c --output dest` with the base64 payload on stdin.
func (g *GPG) Encrypt(ctx context.Context, plaintext []byte, dest, passphrase string) error {
	if err := g.checkPassphrase(passphrase); err != nil {
		return err
	}
	args := g.passphraseArgs(passphrase)
	args = append(args, "--yes", "-c", "--output", dest)

	out, err := run(ctx, g.invocation(args, encodePayload(plaintext), passphrase))
	if err != nil {
		return err
	}
	g.logger.Debug("gpg encrypt finished", "dest", dest, "exit_code", out.exitCode)
	if out.exitCode != 0 {
		return &EncryptError{ExitCode: out.exitCode, Stderr: out.stderr}
	}
	return nil
}

// Decrypt runs `gpg -d src` and decodes its output.
func (g *GPG) Decrypt(ctx context.Context, src, passphrase string) ([]byte, error) {
	if err := g.checkPassphrase(passphrase); err != nil {
		return nil, err
	}
	args := g.passphraseArgs(passphrase)
	args = append(args, "-d", src)

	out, err := run(ctx, g.invocation(args, nil, passphrase))
	if err != nil {
		return nil, err
	}
	g.logger.Debug("gpg decrypt finished", "src", src, "exit_code", out.exitCode)
	if out.exitCode != 0 {
		return nil, &KeyfileDecodeError{ExitCode: out.exitCode, Stderr: out.stderr}
	}
	return decodePayload(out.stdout)
}

// passphraseArgs returns the flags that hand gpg the passphrase. With no
// passphrase gpg falls back to its own pinentry.
func (g *GPG) passphraseArgs(passphrase string) []string {
	if passphrase == "" {
		return []string{"--quiet"}
	}
	args := []string{"--batch", "--quiet", "--no-symkey-cache", "--pinentry-mode", "loopback"}
	if g.mode == PassphraseArg {
		g.logger.Warn("passing passphrase to gpg as an argument; it is visible in process listings")
		return append(args, "--passphrase", passphrase)
	}
	return append(args, "--passphrase-fd", strconv.Itoa(passphraseFD))
}

// checkPassphrase rejects passphrases gpg would silently truncate at the
// first line break when reading them from the descriptor.
func (g *GPG) checkPassphrase(passphrase string) error {
	if g.mode == PassphraseFD && strings.ContainsAny(passphrase, "\r\n") {
		return ErrMultilinePassphrase
	}
	return nil
}

func (g *GPG) invocation(args []string, stdin []byte, passphrase string) invocation {
	return invocation{
		binary:     g.binary,
		args:       args,
		stdin:      stdin,
		passphrase: passphrase,
		passFD:     passphrase != "" && g.mode == PassphraseFD,
		timeout:    g.timeout,
		grace:      g.grace,
	}
}

// Compile-time assertion that GPG implements Gateway.
var _ Gateway = (*GPG)(nil)
