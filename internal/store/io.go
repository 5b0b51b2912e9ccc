package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/benaskins/pwdy/internal/cipher"
)

// writeEncrypted encrypts data into a temp file beside path and renames it
// over path once the cipher has produced a non-empty file. A failed or
// interrupted write leaves the previous store intact.
func writeEncrypted(ctx context.Context, gw cipher.Gateway, path, passphrase string, data []byte) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing temp file: %w", err)
	}
	// No-op once the rename has happened.
	defer os.Remove(tmp)

	if err := gw.Encrypt(ctx, data, tmp, passphrase); err != nil {
		return err
	}

	info, err := os.Stat(tmp)
	if err != nil {
		return fmt.Errorf("checking encrypted output: %w", err)
	}
	if info.Size() == 0 {
		return ErrEmptyCiphertext
	}
	if err := os.Chmod(tmp, 0o600); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := syncFile(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing store: %w", err)
	}
	return syncDir(dir)
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening encrypted output: %w", err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing encrypted output: %w", err)
	}
	return nil
}

// syncDir flushes a directory so a rename into it survives a crash.
// Windows cannot sync directory handles and commits renames itself.
func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("opening store directory: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("syncing store directory: %w", err)
	}
	return nil
}
