// Package store persists credentials in a single passphrase-encrypted file.
//
// The file holds a JSON array of credential records and is read and written
// through a cipher.Gateway. Nothing is cached between calls: every operation
// decrypts the file afresh, and every mutation re-encrypts the whole
// collection into a temp file that replaces the store atomically.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/benaskins/pwdy/internal/audit"
	"github.com/benaskins/pwdy/internal/cipher"
	"github.com/benaskins/pwdy/internal/credential"
)

var (
	// ErrCorrupt is returned when the file decrypts but does not hold a
	// credential array.
	ErrCorrupt = errors.New("store contents are not valid credential records")

	// ErrEmptyCiphertext is returned when the cipher reported success but
	// produced an empty file. The existing store is left untouched.
	ErrEmptyCiphertext = errors.New("cipher produced an empty file")
)

// Store is a handle on one encrypted credential file.
type Store struct {
	mu         sync.Mutex
	path       string
	passphrase string
	gateway    cipher.Gateway
	logger     *slog.Logger
	audit      *audit.Logger
	actor      string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithAudit records store accesses to l, attributed to actor.
func WithAudit(l *audit.Logger, actor string) Option {
	return func(s *Store) {
		s.audit = l
		s.actor = actor
	}
}

// New returns a Store for the file at path. The file is not touched until
// the first operation.
func New(path, passphrase string, gw cipher.Gateway, opts ...Option) *Store {
	s := &Store{
		path:       path,
		passphrase: passphrase,
		gateway:    gw,
		logger:     slog.With("component", "store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the store file location.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the store file is present.
func (s *Store) Exists() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking store: %w", err)
}

// EnsureExists creates an encrypted empty store if the file is absent and
// reports whether it did. An existing file is never overwritten.
func (s *Store) EnsureExists(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepareDir(); err != nil {
		return false, err
	}
	release, err := acquireLock(ctx, s.path, true)
	if err != nil {
		return false, err
	}
	defer release()

	exists, err := s.Exists()
	if err != nil || exists {
		return false, err
	}

	if err := s.dumpLocked(ctx, List{}); err != nil {
		s.record(audit.Entry{Action: audit.ActionStoreCreate, Error: err.Error()})
		return false, err
	}
	s.logger.Info("created store", "path", s.path)
	s.record(audit.Entry{Action: audit.ActionStoreCreate, Result: "ok"})
	return true, nil
}

// Load decrypts the store and returns its credentials in file order. An
// absent file yields an empty slice. Decode failures propagate unchanged.
func (s *Store) Load(ctx context.Context) ([]credential.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.loadShared(ctx)
	if err != nil {
		return nil, err
	}
	s.record(audit.Entry{Action: audit.ActionCredentialList, Count: len(creds), Result: "ok"})
	return creds, nil
}

// LoadIndexed is Load keyed by identity. When the file holds more than one
// record for an identity the last one wins.
func (s *Store) LoadIndexed(ctx context.Context) (*Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.loadShared(ctx)
	if err != nil {
		return nil, err
	}
	return s.index(creds), nil
}

// Get returns the credential stored under identity ("service:username").
func (s *Store) Get(ctx context.Context, identity string) (credential.Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.loadShared(ctx)
	if err != nil {
		return credential.Credential{}, false, err
	}
	c, ok := s.index(creds).Get(identity)
	if ok {
		s.record(audit.Entry{Action: audit.ActionCredentialRead, Identity: identity, Result: "ok"})
	}
	return c, ok, nil
}

// Identities returns every identity in the store, sorted.
func (s *Store) Identities(ctx context.Context) ([]string, error) {
	creds, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(creds))
	seen := make(map[string]bool, len(creds))
	for _, c := range creds {
		id := c.Identity()
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Insert adds c unless its identity is already present. It reports false,
// without writing, for a duplicate. The load, check and dump happen under
// one exclusive lock.
func (s *Store) Insert(ctx context.Context, c credential.Credential) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepareDir(); err != nil {
		return false, err
	}
	release, err := acquireLock(ctx, s.path, true)
	if err != nil {
		return false, err
	}
	defer release()

	creds, err := s.loadLocked(ctx)
	if err != nil {
		return false, err
	}
	ix := s.index(creds)

	id := c.Identity()
	if ix.Has(id) {
		s.logger.Debug("credential already present", "identity", id)
		s.record(audit.Entry{Action: audit.ActionCredentialInsert, Identity: id, Result: "duplicate"})
		return false, nil
	}
	ix.Put(c)

	if err := s.dumpLocked(ctx, ix); err != nil {
		s.record(audit.Entry{Action: audit.ActionCredentialInsert, Identity: id, Error: err.Error()})
		return false, err
	}
	s.logger.Info("inserted credential", "identity", id, "count", ix.Len())
	s.record(audit.Entry{Action: audit.ActionCredentialInsert, Identity: id, Count: ix.Len(), Result: "ok"})
	return true, nil
}

// Dump replaces the store with coll. On any failure the previous file is
// left in place.
func (s *Store) Dump(ctx context.Context, coll Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepareDir(); err != nil {
		return err
	}
	release, err := acquireLock(ctx, s.path, true)
	if err != nil {
		return err
	}
	defer release()

	return s.dumpLocked(ctx, coll)
}

func (s *Store) loadShared(ctx context.Context) ([]credential.Credential, error) {
	exists, err := s.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return []credential.Credential{}, nil
	}

	release, err := acquireLock(ctx, s.path, false)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.loadLocked(ctx)
}

// loadLocked expects the caller to hold the file lock.
func (s *Store) loadLocked(ctx context.Context) ([]credential.Credential, error) {
	exists, err := s.Exists()
	if err != nil {
		return nil, err
	}
	if !exists {
		return []credential.Credential{}, nil
	}

	plaintext, err := s.gateway.Decrypt(ctx, s.path, s.passphrase)
	if err != nil {
		if errors.Is(err, cipher.ErrDecode) {
			s.logger.Warn("store could not be decoded", "path", s.path, "error", err)
			s.record(audit.Entry{Action: audit.ActionDecodeFailure, Error: err.Error()})
		}
		return nil, err
	}

	var records []credential.Record
	if err := json.Unmarshal(plaintext, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	creds := make([]credential.Credential, 0, len(records))
	for _, r := range records {
		creds = append(creds, credential.FromRecord(r))
	}
	return creds, nil
}

// dumpLocked expects the caller to hold the file lock.
func (s *Store) dumpLocked(ctx context.Context, coll Collection) error {
	creds := coll.Credentials()
	records := make([]credential.Record, 0, len(creds))
	for _, c := range creds {
		records = append(records, c.Record())
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := writeEncrypted(ctx, s.gateway, s.path, s.passphrase, data); err != nil {
		return err
	}
	s.logger.Debug("wrote store", "path", s.path, "count", len(records))
	return nil
}

func (s *Store) index(creds []credential.Credential) *Index {
	ix := NewIndex()
	for _, c := range creds {
		if ix.Put(c) {
			s.logger.Warn("duplicate identity in store, keeping the last record", "identity", c.Identity())
		}
	}
	return ix
}

func (s *Store) prepareDir() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}
	return nil
}

func (s *Store) record(e audit.Entry) {
	e.Store = s.path
	e.Actor = s.actor
	if err := s.audit.Log(e); err != nil {
		s.logger.Warn("audit log write failed", "error", err)
	}
}
