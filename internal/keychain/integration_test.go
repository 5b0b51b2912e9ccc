//go:build integration && darwin

package keychain

import (
	"testing"
)

// Integration tests use real macOS Keychain.
// Run with: go test -tags integration ./internal/keychain/
//
// Requires an unlocked login Keychain and an interactive session
// (first run may prompt for Keychain access approval).

func integrationStore() *SystemStore {
	return &SystemStore{service: "com.pwdy.test"}
}

func TestKeychainSetAndGet(t *testing.T) {
	s := integrationStore()
	path := "/tmp/pwdy-integration/creds.gpg"
	defer s.Delete(path)

	if err := s.Set(path, "hello-keychain"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	val, err := s.Get(path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != "hello-keychain" {
		t.Errorf("expected 'hello-keychain', got %q", val)
	}
}

func TestKeychainOverwrite(t *testing.T) {
	s := integrationStore()
	path := "/tmp/pwdy-integration/overwrite.gpg"
	defer s.Delete(path)

	s.Set(path, "first")
	s.Set(path, "second")

	val, err := s.Get(path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != "second" {
		t.Errorf("expected 'second', got %q", val)
	}
}

func TestKeychainDelete(t *testing.T) {
	s := integrationStore()
	path := "/tmp/pwdy-integration/delete.gpg"

	s.Set(path, "to-delete")
	s.Delete(path)

	if _, err := s.Get(path); err == nil {
		t.Error("expected error after delete")
	}
}

func TestKeychainList(t *testing.T) {
	s := integrationStore()
	paths := []string{"/tmp/pwdy-integration/a.gpg", "/tmp/pwdy-integration/b.gpg"}
	for _, p := range paths {
		defer s.Delete(p)
		s.Set(p, "val")
	}

	listed, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	found := make(map[string]bool)
	for _, k := range listed {
		found[k] = true
	}
	for _, p := range paths {
		if !found[p] {
			t.Errorf("expected %q in list, not found", p)
		}
	}
}
