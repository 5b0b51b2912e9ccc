package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benaskins/pwdy/internal/audit"
	"github.com/benaskins/pwdy/internal/cipher"
	"github.com/benaskins/pwdy/internal/completion"
	"github.com/benaskins/pwdy/internal/config"
	"github.com/benaskins/pwdy/internal/keychain"
	"github.com/benaskins/pwdy/internal/prompt"
	"github.com/benaskins/pwdy/internal/store"
)

// errNoStore is returned when the user declines to create a missing store.
var errNoStore = errors.New("no credential store; run `pwdy init` to create one")

// openKeychain is swapped out in tests.
var openKeychain = func() keychain.Store { return keychain.NewSystemStore() }

type passphraseSource int

const (
	fromPrompt passphraseSource = iota
	fromFlag
	fromEnv
	fromKeychain
)

// session is the per-invocation state shared by all commands.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	audit    *audit.Logger
	prompter *prompt.Prompter
	keychain keychain.Store
	gateway  cipher.Gateway
	actor    string

	passphrase     string
	passphraseFlag bool
}

func newSession(cmd *cobra.Command) (*session, error) {
	logger := newLogger()
	slog.SetDefault(logger)

	cfg, v, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:    cfg,
		logger: logger,
		prompter: prompt.New(
			prompt.WithIO(cmd.InOrStdin(), statusOut),
			prompt.WithAttempts(cfg.PassphraseAttempts),
		),
		keychain:       openKeychain(),
		gateway:        newGateway(cfg, logger),
		actor:          "cli",
		passphrase:     v.GetString("passphrase"),
		passphraseFlag: cmd.Flags().Changed("passphrase"),
	}

	if cfg.AuditLog != "" {
		al, err := audit.NewLogger(cfg.AuditLog)
		if err != nil {
			logger.Warn("audit log unavailable", "path", cfg.AuditLog, "error", err)
		} else {
			s.audit = al
		}
	}
	if cfg.Keychain && !keychain.Persistent {
		logger.Debug("keychain not available on this platform; passphrases are remembered for this run only")
	}
	return s, nil
}

func newGateway(cfg *config.Config, logger *slog.Logger) cipher.Gateway {
	if cfg.Cipher == config.CipherSealed {
		return cipher.NewSealed()
	}
	return cipher.NewGPG(
		cipher.WithBinary(cfg.GPGBinary),
		cipher.WithTimeout(cfg.CipherTimeout.Duration),
		cipher.WithLogger(logger.With("component", "cipher")),
	)
}

func (s *session) close() {
	if s == nil {
		return
	}
	if err := s.audit.Close(); err != nil {
		s.logger.Warn("closing audit log", "error", err)
	}
}

func (s *session) store(passphrase string) *store.Store {
	return store.New(s.cfg.StorePath, passphrase, s.gateway,
		store.WithLogger(s.logger.With("component", "store")),
		store.WithAudit(s.audit, s.actor),
	)
}

// resolvePassphrase looks for the store passphrase in the --passphrase flag,
// PWDY_PASSPHRASE, the keychain, and finally the prompt. A new store's
// passphrase is asked for twice.
func (s *session) resolvePassphrase(ctx context.Context, creating bool) (string, passphraseSource, error) {
	if s.passphrase != "" {
		if strings.ContainsAny(s.passphrase, "\r\n") {
			return "", fromEnv, fmt.Errorf("PWDY_PASSPHRASE or --passphrase: %w", cipher.ErrMultilinePassphrase)
		}
		if s.passphraseFlag {
			printWarning("--passphrase is visible in process listings and shell history")
			return s.passphrase, fromFlag, nil
		}
		return s.passphrase, fromEnv, nil
	}

	if !creating && s.cfg.Keychain {
		p, err := s.keychain.Get(s.cfg.StorePath)
		if err == nil {
			return p, fromKeychain, nil
		}
		if !errors.Is(err, keychain.ErrNotFound) {
			s.logger.Warn("keychain lookup failed", "error", err)
		}
	}

	var (
		p   string
		err error
	)
	if creating {
		p, err = s.prompter.NewSecret(ctx, "Keyfile password")
	} else {
		p, err = s.prompter.Secret(ctx, "Password for keyfile")
	}
	if err != nil {
		return "", fromPrompt, err
	}
	if p == "" {
		return "", fromPrompt, errors.New("empty passphrase")
	}
	return p, fromPrompt, nil
}

// createStore sets a passphrase and writes an empty store. It reports false
// when the store already existed.
func (s *session) createStore(ctx context.Context) (*store.Store, bool, error) {
	pass, src, err := s.resolvePassphrase(ctx, true)
	if err != nil {
		return nil, false, err
	}
	st := s.store(pass)
	created, err := st.EnsureExists(ctx)
	if err != nil {
		return nil, false, err
	}
	if created {
		printSuccess("Created credential store at %s", st.Path())
		s.remember(pass, src)
	}
	return st, created, nil
}

// withStore runs fn against the configured store, offering to create it on
// first use. A keychain passphrase the store rejects is forgotten, and a
// prompted one that works is remembered when the keychain is enabled.
func (s *session) withStore(ctx context.Context, fn func(*store.Store) error) error {
	st := s.store("")
	exists, err := st.Exists()
	if err != nil {
		return err
	}
	if !exists {
		ok, err := s.prompter.Confirm(ctx, fmt.Sprintf("No credential store exists at %q. Create one?", st.Path()))
		if err != nil {
			return err
		}
		if !ok {
			return errNoStore
		}
		fresh, _, err := s.createStore(ctx)
		if err != nil {
			return err
		}
		return fn(fresh)
	}

	pass, src, err := s.resolvePassphrase(ctx, false)
	if err != nil {
		return err
	}

	err = fn(s.store(pass))
	switch {
	case err == nil:
		s.remember(pass, src)
	case errors.Is(err, cipher.ErrDecode) && src == fromKeychain:
		if derr := s.keychain.Delete(s.cfg.StorePath); derr != nil {
			s.logger.Warn("forgetting rejected passphrase", "error", derr)
		} else {
			printWarning("The remembered passphrase was rejected and has been forgotten")
		}
	}
	return err
}

func (s *session) remember(pass string, src passphraseSource) {
	if !s.cfg.Keychain || src != fromPrompt {
		return
	}
	if err := s.keychain.Set(s.cfg.StorePath, pass); err != nil {
		s.logger.Warn("remembering passphrase", "error", err)
	}
}

// refreshCompletion rewrites the completion script from the store.
func (s *session) refreshCompletion(ctx context.Context, st *store.Store) error {
	ids, err := st.Identities(ctx)
	if err != nil {
		return err
	}
	d := completion.Data{Commands: commandNames(), Identities: ids}
	if err := completion.Write(s.cfg.CompletionPath, d); err != nil {
		return err
	}
	s.logger.Debug("completion updated", "path", s.cfg.CompletionPath, "count", len(ids))
	return nil
}

func commandNames() []string {
	var names []string
	for _, c := range rootCmd.Commands() {
		if c.Hidden || c.Name() == "help" {
			continue
		}
		names = append(names, c.Name())
		names = append(names, c.Aliases...)
	}
	slices.Sort(names)
	return names
}
