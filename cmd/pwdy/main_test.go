package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/benaskins/pwdy/internal/cipher"
	"github.com/benaskins/pwdy/internal/keychain"
)

type testEnv struct {
	dir        string
	configPath string
	storePath  string
	completion string
	keychain   *keychain.MemoryStore
	clipboard  []string
}

func newTestEnv(t *testing.T, extraConfig string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		storePath:  filepath.Join(dir, "creds.gpg"),
		completion: filepath.Join(dir, "pwdy-completion.bash"),
		keychain:   keychain.NewMemoryStore(),
	}

	cfg := fmt.Sprintf(`store_path: %s
cipher: sealed
audit_log: %s
completion_path: %s
%s`, env.storePath, filepath.Join(dir, "audit.log"), env.completion, extraConfig)
	if err := os.WriteFile(env.configPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PWDY_PASSPHRASE", "")
	t.Setenv("PWDY_STORE_PATH", "")

	prevKeychain, prevClipboard, prevStatus := openKeychain, copyToClipboard, statusOut
	openKeychain = func() keychain.Store { return env.keychain }
	copyToClipboard = func(text string) error {
		env.clipboard = append(env.clipboard, text)
		return nil
	}
	statusOut = io.Discard
	t.Cleanup(func() {
		openKeychain, copyToClipboard, statusOut = prevKeychain, prevClipboard, prevStatus
	})
	return env
}

// run executes pwdy with the given stdin and arguments and returns stdout.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	sess = nil

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--config", e.configPath}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	sess.close()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestInitCreatesStore(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv("PWDY_PASSPHRASE", "pass123")

	if _, err := env.run(t, "", "init", "--yes"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(env.storePath); err != nil {
		t.Fatalf("store not created: %v", err)
	}
	if _, err := os.Stat(env.completion); err != nil {
		t.Errorf("completion not written: %v", err)
	}

	// A second init leaves the store alone.
	before, _ := os.ReadFile(env.storePath)
	if _, err := env.run(t, "", "init", "--yes"); err != nil {
		t.Fatalf("second init: %v", err)
	}
	after, _ := os.ReadFile(env.storePath)
	if !bytes.Equal(before, after) {
		t.Error("second init rewrote the store")
	}
}

func TestInitPromptsForPassphrase(t *testing.T) {
	env := newTestEnv(t, "")

	if _, err := env.run(t, "y\npass123\npass123\n", "init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := env.run(t, "pass123\n", "ls"); err != nil {
		t.Fatalf("ls with the new passphrase: %v", err)
	}
}

func TestFirstRunDeclined(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.run(t, "n\n", "ls")
	if !errors.Is(err, errNoStore) {
		t.Fatalf("expected errNoStore, got %v", err)
	}
	if _, err := os.Stat(env.storePath); !os.IsNotExist(err) {
		t.Error("declined prompt still created a store")
	}
}

func TestFirstRunCreatesOnRequest(t *testing.T) {
	env := newTestEnv(t, "")

	out, err := env.run(t, "y\npass123\npass123\n", "ls")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	if out != "" {
		t.Errorf("new store listed %q", out)
	}
	if _, err := os.Stat(env.storePath); err != nil {
		t.Fatalf("store not created: %v", err)
	}
}

func TestAddAndList(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv("PWDY_PASSPHRASE", "pass123")

	if _, err := env.run(t, "", "init", "--yes"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.run(t, "123\n123\n", "add", "--service-name", "gmail", "--username", "joe", "--other-info", "work"); err != nil {
		t.Fatalf("add gmail:joe: %v", err)
	}
	if _, err := env.run(t, "hotmail\njoe\n\nabc\nabc\n", "add"); err != nil {
		t.Fatalf("add hotmail:joe: %v", err)
	}

	_, err := env.run(t, "456\n456\n", "add", "--service-name", "gmail", "--username", "joe", "--other-info", "again")
	if err == nil || !strings.Contains(err.Error(), "already stored") {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	out, err := env.run(t, "", "ls")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	if out != "gmail:joe\nhotmail:joe\n" {
		t.Errorf("ls = %q", out)
	}

	out, err = env.run(t, "", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if out != "gmail:joe\nhotmail:joe\n" {
		t.Errorf("list = %q", out)
	}

	script, err := os.ReadFile(env.completion)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"'gmail:joe'", "'hotmail:joe'"} {
		if !strings.Contains(string(script), want) {
			t.Errorf("completion script missing %s", want)
		}
	}
}

func TestAddPasswordMismatch(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv("PWDY_PASSPHRASE", "pass123")

	if _, err := env.run(t, "", "init", "--yes"); err != nil {
		t.Fatal(err)
	}
	_, err := env.run(t, "a\nb\nc\nd\ne\nf\n", "add", "--service-name", "gmail", "--username", "joe", "--other-info", "x")
	if err == nil {
		t.Fatal("expected an error after three mismatches")
	}
	if !strings.Contains(describe(err), "quitting") {
		t.Errorf("describe = %q", describe(err))
	}

	out, err := env.run(t, "", "ls")
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("failed add stored something: %q", out)
	}
}

func TestGetCopiesPassword(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv("PWDY_PASSPHRASE", "pass123")

	if _, err := env.run(t, "", "init", "--yes"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.run(t, "", "add", "--service-name", "gmail", "--username", "joe", "--password", "s3cret", "--other-info", "work"); err != nil {
		t.Fatal(err)
	}

	out, err := env.run(t, "", "get", "gmail:joe")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, want := range []string{"Retrieved credential for gmail:joe.", "Username: joe", `Other info: "work"`, "copied to clipboard"} {
		if !strings.Contains(out, want) {
			t.Errorf("get output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "s3cret") {
		t.Error("get printed the password")
	}
	if len(env.clipboard) != 1 || env.clipboard[0] != "s3cret" {
		t.Errorf("clipboard = %v", env.clipboard)
	}

	out, err = env.run(t, "", "get", "--show", "gmail:joe")
	if err != nil {
		t.Fatalf("get --show: %v", err)
	}
	if !strings.Contains(out, "Password: s3cret") {
		t.Errorf("get --show output:\n%s", out)
	}
}

func TestGetUnknownIdentity(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv("PWDY_PASSPHRASE", "pass123")

	if _, err := env.run(t, "", "init", "--yes"); err != nil {
		t.Fatal(err)
	}
	_, err := env.run(t, "", "get", "gmail:nobody")
	if err == nil || !strings.Contains(err.Error(), "gmail:nobody") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestWrongPassphrase(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv("PWDY_PASSPHRASE", "pass123")
	if _, err := env.run(t, "", "init", "--yes"); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PWDY_PASSPHRASE", "wrong_pass")
	_, err := env.run(t, "", "ls")
	var decodeErr *cipher.KeyfileDecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *KeyfileDecodeError, got %v", err)
	}
	if !strings.Contains(describe(err), "wrong passphrase") {
		t.Errorf("describe = %q", describe(err))
	}
}

func TestMultilinePassphraseRejected(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv("PWDY_PASSPHRASE", "pass123")
	if _, err := env.run(t, "", "init", "--yes"); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PWDY_PASSPHRASE", "pass123\nignored")
	if _, err := env.run(t, "", "ls"); !errors.Is(err, cipher.ErrMultilinePassphrase) {
		t.Errorf("env: expected ErrMultilinePassphrase, got %v", err)
	}

	t.Setenv("PWDY_PASSPHRASE", "")
	if _, err := env.run(t, "", "--passphrase", "pass123\r\n", "ls"); !errors.Is(err, cipher.ErrMultilinePassphrase) {
		t.Errorf("flag: expected ErrMultilinePassphrase, got %v", err)
	}
}

func TestPassphraseFlagOverridesEnv(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv("PWDY_PASSPHRASE", "pass123")
	if _, err := env.run(t, "", "init", "--yes"); err != nil {
		t.Fatal(err)
	}

	_, err := env.run(t, "", "--passphrase", "wrong_pass", "ls")
	if !errors.Is(err, cipher.ErrDecode) {
		t.Fatalf("expected the flag passphrase to be used, got %v", err)
	}
}

func TestStorePathFromEnv(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv("PWDY_PASSPHRASE", "pass123")
	other := filepath.Join(env.dir, "elsewhere", "creds.gpg")
	t.Setenv("PWDY_STORE_PATH", other)

	if _, err := env.run(t, "", "init", "--yes"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("store not created at env path: %v", err)
	}
	if _, err := os.Stat(env.storePath); !os.IsNotExist(err) {
		t.Error("store created at config path despite PWDY_STORE_PATH")
	}
}

func TestKeychainRemembersAndForgets(t *testing.T) {
	env := newTestEnv(t, "keychain: true\n")

	if _, err := env.run(t, "pass123\npass123\n", "init", "--yes"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if got, err := env.keychain.Get(env.storePath); err != nil || got != "pass123" {
		t.Fatalf("keychain = %q, %v", got, err)
	}

	// No prompt input needed once remembered.
	if _, err := env.run(t, "", "ls"); err != nil {
		t.Fatalf("ls from keychain: %v", err)
	}

	if err := env.keychain.Set(env.storePath, "stale"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.run(t, "", "ls"); !errors.Is(err, cipher.ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if _, err := env.keychain.Get(env.storePath); !errors.Is(err, keychain.ErrNotFound) {
		t.Errorf("rejected passphrase still remembered: %v", err)
	}
}

func TestPassphraseForget(t *testing.T) {
	env := newTestEnv(t, "keychain: true\n")
	env.keychain.Set(env.storePath, "pass123")
	env.keychain.Set(filepath.Join(env.dir, "other.gpg"), "x")

	if _, err := env.run(t, "", "passphrase", "forget"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, err := env.keychain.Get(env.storePath); !errors.Is(err, keychain.ErrNotFound) {
		t.Error("passphrase still remembered")
	}
	if listed, _ := env.keychain.List(); len(listed) != 1 {
		t.Errorf("forget removed other stores: %v", listed)
	}

	if _, err := env.run(t, "", "passphrase", "forget", "--all"); err != nil {
		t.Fatalf("forget --all: %v", err)
	}
	if listed, _ := env.keychain.List(); len(listed) != 0 {
		t.Errorf("forget --all left %v", listed)
	}
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.run(t, "", "--cipher", "rot13", "ls")
	if err == nil || !strings.Contains(err.Error(), "rot13") {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestCommandNames(t *testing.T) {
	names := strings.Join(commandNames(), " ")
	for _, want := range []string{"add", "get", "init", "list", "ls", "passphrase", "update"} {
		if !strings.Contains(names, want) {
			t.Errorf("commandNames() = %q, missing %s", names, want)
		}
	}
}
