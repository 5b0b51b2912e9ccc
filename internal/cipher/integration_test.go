//go:build integration

package cipher

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"
)

// Integration tests use a real gpg binary.
// Run with: go test -tags integration ./internal/cipher/

func requireGPG(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("gpg"); err != nil {
		t.Skip("gpg not installed")
	}
}

func TestRealGPGRoundTrip(t *testing.T) {
	requireGPG(t)
	g := NewGPG()
	dest := filepath.Join(t.TempDir(), "creds.gpg")
	ctx := context.Background()

	if err := g.Encrypt(ctx, []byte(`[{"service_name":"s2"}]`), dest, "foobar"); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := g.Decrypt(ctx, dest, "foobar")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(got) != `[{"service_name":"s2"}]` {
		t.Errorf("Decrypt = %q", got)
	}
}

func TestRealGPGWrongPassphrase(t *testing.T) {
	requireGPG(t)
	g := NewGPG()
	dest := filepath.Join(t.TempDir(), "creds.gpg")
	ctx := context.Background()

	if err := g.Encrypt(ctx, []byte("x"), dest, "pass123"); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := g.Decrypt(ctx, dest, "wrong_pass"); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}
