package cipher

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	sealedFormatVersion = 1

	// sealedExitCode mirrors gpg's exit status for a failed decrypt so callers
	// see the same error whichever gateway is configured.
	sealedExitCode = 2

	// Limits on the scrypt parameters read from a keyfile. maxScryptWork
	// bounds N*r*p, which sets the derivation time.
	maxScryptN    = 1 << 20
	maxScryptR    = 32
	maxScryptP    = 16
	maxScryptWork = maxScryptN * 8
)

// sealedFile is the on-disk JSON envelope written by Sealed.
type sealedFile struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Nonce  []byte `json:"nonce"`
	Cipher []byte `json:"cipher"`
}

// Sealed is an in-process Gateway: scrypt derives a key from the passphrase
// and XChaCha20-Poly1305 seals the base64 payload.
type Sealed struct {
	n, r, p int
}

// SealedOption configures a Sealed gateway.
type SealedOption func(*Sealed)

// WithScryptCost overrides the scrypt parameters used for new files.
// Existing files are opened with the parameters stored in them.
func WithScryptCost(n, r, p int) SealedOption {
	return func(s *Sealed) {
		s.n, s.r, s.p = n, r, p
	}
}

// NewSealed returns a Sealed gateway with interactive-strength scrypt costs.
func NewSealed(opts ...SealedOption) *Sealed {
	s := &Sealed{n: 1 << 15, r: 8, p: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sealed) Encrypt(ctx context.Context, plaintext []byte, dest, passphrase string) error {
	if err := checkScryptCost(s.n, s.r, s.p); err != nil {
		return err
	}
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}
	key, err := deriveKey(ctx, passphrase, salt[:], s.n, s.r, s.p)
	if err != nil {
		return err
	}
	defer wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	payload := encodePayload(plaintext)
	defer wipe(payload)

	blob, err := json.Marshal(sealedFile{
		V:      sealedFormatVersion,
		Salt:   salt[:],
		N:      s.n,
		R:      s.r,
		P:      s.p,
		Nonce:  nonce,
		Cipher: aead.Seal(nil, nonce, payload, salt[:]),
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, blob, 0o600); err != nil {
		return &EncryptError{ExitCode: sealedExitCode, Stderr: err.Error()}
	}
	return nil
}

func (s *Sealed) Decrypt(ctx context.Context, src, passphrase string) ([]byte, error) {
	blob, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, decodeFailure("can't open %s", src)
		}
		return nil, decodeFailure("reading %s: %v", src, err)
	}

	var f sealedFile
	if err := json.Unmarshal(blob, &f); err != nil {
		return nil, decodeFailure("not a sealed keyfile: %v", err)
	}
	if f.V > sealedFormatVersion {
		return nil, decodeFailure("unsupported keyfile version %d", f.V)
	}
	if err := checkScryptCost(f.N, f.R, f.P); err != nil {
		return nil, decodeFailure("%v", err)
	}

	key, err := deriveKey(ctx, passphrase, f.Salt, f.N, f.R, f.P)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, decodeFailure("%v", err)
	}
	defer wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(f.Nonce) != aead.NonceSize() {
		return nil, decodeFailure("bad nonce length %d", len(f.Nonce))
	}
	payload, err := aead.Open(nil, f.Nonce, f.Cipher, f.Salt)
	if err != nil {
		return nil, decodeFailure("decryption failed: bad passphrase or corrupted file")
	}
	defer wipe(payload)
	return decodePayload(payload)
}

func checkScryptCost(n, r, p int) error {
	switch {
	case n < 2 || r < 1 || p < 1:
		return fmt.Errorf("invalid scrypt cost N=%d r=%d p=%d", n, r, p)
	case n > maxScryptN || r > maxScryptR || p > maxScryptP || n*r*p > maxScryptWork:
		return fmt.Errorf("scrypt cost N=%d r=%d p=%d too large", n, r, p)
	}
	return nil
}

// deriveKey runs scrypt off the calling goroutine so a cancelled context
// returns at once. An abandoned derivation finishes in the background and
// its key is wiped.
func deriveKey(ctx context.Context, passphrase string, salt []byte, n, r, p int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		key []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		key, err := scrypt.Key([]byte(passphrase), salt, n, r, p, chacha20poly1305.KeySize)
		if err != nil {
			err = fmt.Errorf("deriving key: %w", err)
		}
		done <- result{key, err}
	}()

	select {
	case res := <-done:
		return res.key, res.err
	case <-ctx.Done():
		go func() { wipe((<-done).key) }()
		return nil, ctx.Err()
	}
}

func decodeFailure(format string, args ...any) *KeyfileDecodeError {
	return &KeyfileDecodeError{ExitCode: sealedExitCode, Stderr: fmt.Sprintf(format, args...)}
}

// wipe zeroes b on a best-effort basis.
//
//go:noinline
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(&b)
}

// Compile-time assertion that Sealed implements Gateway.
var _ Gateway = (*Sealed)(nil)
