// Package keychain remembers store passphrases in the macOS Keychain.
//
// Passphrases are stored as generic passwords with:
//   - Service: "com.pwdy" (all pwdy entries share this service)
//   - Account: the absolute path of the credential store
//   - Label: "pwdy: <path>" (for Keychain Access.app visibility)
//
// Entries are scoped with kSecAttrAccessibleWhenUnlockedThisDeviceOnly:
// never synced to iCloud, never available when the machine is locked.
// Other platforms get an in-memory store that forgets on exit.
package keychain

import (
	"errors"
	"path/filepath"
)

// ErrNotFound is returned when no passphrase is remembered for a store.
var ErrNotFound = errors.New("passphrase not found")

// Store is the interface for passphrase storage, keyed by store path.
type Store interface {
	Set(storePath, passphrase string) error
	Get(storePath string) (string, error)
	List() ([]string, error)
	Delete(storePath string) error
}

// Key normalizes a store path into the account name used for lookups, so
// relative and absolute spellings of the same file share one entry.
func Key(storePath string) string {
	abs, err := filepath.Abs(storePath)
	if err != nil {
		return filepath.Clean(storePath)
	}
	return abs
}
