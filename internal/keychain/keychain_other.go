//go:build !darwin

package keychain

// Persistent reports whether remembered passphrases survive the process.
const Persistent = false

// NewSystemStore returns a MemoryStore on non-darwin platforms.
// The macOS Keychain is not available outside of macOS; passphrases are
// held in memory only and are forgotten when pwdy exits.
func NewSystemStore() *MemoryStore {
	return NewMemoryStore()
}
