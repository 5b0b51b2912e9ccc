// Package cipher is the boundary between the store and the symmetric cipher
// that protects the credential file.
//
// Plaintext is base64-encoded before it reaches the cipher and decoded on the
// way back. The encoding only obscures the payload while it travels to the
// cipher process; it adds no cryptographic strength.
//
// Two gateways are provided:
//   - GPG runs the gpg binary as a subprocess (the default)
//   - Sealed encrypts in-process with scrypt and ChaCha20-Poly1305
//
// Both report a bad passphrase as *KeyfileDecodeError.
package cipher

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDecode is wrapped by every *KeyfileDecodeError.
	ErrDecode = errors.New("keyfile decode failed")

	// ErrEncrypt is wrapped by every *EncryptError.
	ErrEncrypt = errors.New("keyfile encrypt failed")

	// ErrTimeout is returned when the cipher process exceeds its deadline.
	ErrTimeout = errors.New("cipher process timed out")

	// ErrToolMissing is returned when the cipher binary cannot be launched.
	ErrToolMissing = errors.New("cipher tool not available")

	// ErrMultilinePassphrase is returned for a passphrase containing a line
	// break. gpg reads only the first line from --passphrase-fd.
	ErrMultilinePassphrase = errors.New("passphrase must be a single line")
)

// Gateway encrypts and decrypts the credential file.
type Gateway interface {
	// Encrypt writes (or overwrites) an encrypted file at dest.
	Encrypt(ctx context.Context, plaintext []byte, dest, passphrase string) error

	// Decrypt reads src and returns the plaintext.
	Decrypt(ctx context.Context, src, passphrase string) ([]byte, error)
}

// KeyfileDecodeError reports a failed decrypt. A wrong passphrase, a corrupt
// file and a broken cipher tool all look the same from here.
type KeyfileDecodeError struct {
	ExitCode int
	Stderr   string
}

func (e *KeyfileDecodeError) Error() string {
	return fmt.Sprintf("keyfile couldn't be decoded (return code: %d)", e.ExitCode)
}

func (e *KeyfileDecodeError) Unwrap() error { return ErrDecode }

// EncryptError reports a failed encrypt. The destination may hold partial
// output; the store never renames such a file into place.
type EncryptError struct {
	ExitCode int
	Stderr   string
}

func (e *EncryptError) Error() string {
	return fmt.Sprintf("keyfile couldn't be written (return code: %d)", e.ExitCode)
}

func (e *EncryptError) Unwrap() error { return ErrEncrypt }

func encodePayload(plaintext []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(plaintext)))
	base64.StdEncoding.Encode(out, plaintext)
	return out
}

func decodePayload(encoded []byte) ([]byte, error) {
	s := strings.TrimSpace(string(encoded))
	out, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64: %v", ErrDecode, err)
	}
	return out, nil
}
