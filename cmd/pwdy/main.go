package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/benaskins/pwdy/internal/cipher"
	"github.com/benaskins/pwdy/internal/config"
	"github.com/benaskins/pwdy/internal/prompt"
)

var (
	cfgFile string
	verbose bool
	noColor bool

	sess *session
)

var rootCmd = &cobra.Command{
	Use:   "pwdy",
	Short: "A password-storage utility",
	Long: `pwdy keeps service credentials in a single passphrase-encrypted file
(~/.pwdy/creds.gpg by default). Passwords are copied to the clipboard on
retrieval and never printed unless asked for.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		sess = s
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", config.DefaultPath(), "config file")
	flags.String("store", "", "credential store file (default ~/.pwdy/creds.gpg)")
	flags.String("cipher", "", `cipher backend: "gpg" or "sealed"`)
	flags.String("gpg-binary", "", "gpg executable")
	flags.String("passphrase", "", "store passphrase (visible to other users; prefer the prompt or PWDY_PASSPHRASE)")
	flags.Bool("keychain", false, "remember the passphrase in the system keychain")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")

	cobra.OnInitialize(func() {
		if noColor {
			color.NoColor = true
		}
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	sess.close()
	stop()

	if err != nil {
		printError("%s", describe(err))
		os.Exit(1)
	}
}

// loadConfig reads the YAML config file, then applies PWDY_* environment
// variables and flags on top (flag > env > file > default).
func loadConfig(cmd *cobra.Command) (*config.Config, *viper.Viper, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("PWDY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"store_path": "store",
		"cipher":     "cipher",
		"gpg_binary": "gpg-binary",
		"keychain":   "keychain",
		"passphrase": "passphrase",
	}
	for key, name := range bindings {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, nil, err
			}
		}
	}

	if v.IsSet("store_path") {
		cfg.StorePath = v.GetString("store_path")
	}
	if v.IsSet("cipher") {
		cfg.Cipher = v.GetString("cipher")
	}
	if v.IsSet("gpg_binary") {
		cfg.GPGBinary = v.GetString("gpg_binary")
	}
	if v.IsSet("cipher_timeout") {
		cfg.CipherTimeout = config.Duration{Duration: v.GetDuration("cipher_timeout")}
	}
	if v.IsSet("audit_log") {
		cfg.AuditLog = v.GetString("audit_log")
	}
	if v.IsSet("completion_path") {
		cfg.CompletionPath = v.GetString("completion_path")
	}
	if v.IsSet("keychain") {
		cfg.Keychain = v.GetBool("keychain")
	}
	if v.IsSet("passphrase_attempts") {
		cfg.PassphraseAttempts = v.GetInt("passphrase_attempts")
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, v, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// describe adds a hint to errors users can act on.
func describe(err error) string {
	var decodeErr *cipher.KeyfileDecodeError
	switch {
	case errors.As(err, &decodeErr):
		msg := err.Error() + ": wrong passphrase or damaged store"
		if verbose && decodeErr.Stderr != "" {
			msg += "\n" + decodeErr.Stderr
		}
		return msg
	case errors.Is(err, cipher.ErrToolMissing):
		return err.Error() + " (install gnupg or set cipher: sealed)"
	case errors.Is(err, prompt.ErrMismatch):
		return err.Error() + "; quitting"
	case errors.Is(err, context.Canceled):
		return "interrupted"
	}
	return err.Error()
}
