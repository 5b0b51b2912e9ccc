// Package config loads pwdy settings from ~/.pwdy/config.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Cipher names accepted in the cipher field.
const (
	CipherGPG    = "gpg"
	CipherSealed = "sealed"
)

// Config holds persistent pwdy configuration.
type Config struct {
	StorePath          string   `yaml:"store_path"`
	Cipher             string   `yaml:"cipher"`
	GPGBinary          string   `yaml:"gpg_binary"`
	CipherTimeout      Duration `yaml:"cipher_timeout"`
	AuditLog           string   `yaml:"audit_log"`
	CompletionPath     string   `yaml:"completion_path"`
	Keychain           bool     `yaml:"keychain"`
	PassphraseAttempts int      `yaml:"passphrase_attempts"`
}

// Duration wraps time.Duration for YAML unmarshaling from strings like "10s", "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// Home returns the pwdy state directory, ~/.pwdy.
func Home() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pwdy"
	}
	return filepath.Join(home, ".pwdy")
}

// DefaultPath returns the default config file path: ~/.pwdy/config.yaml.
func DefaultPath() string {
	return filepath.Join(Home(), "config.yaml")
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	home := Home()
	return &Config{
		StorePath:          filepath.Join(home, "creds.gpg"),
		Cipher:             CipherGPG,
		GPGBinary:          "gpg",
		CipherTimeout:      Duration{30 * time.Second},
		AuditLog:           filepath.Join(home, "audit.log"),
		CompletionPath:     filepath.Join(home, "pwdy-completion.bash"),
		PassphraseAttempts: 3,
	}
}

// Load reads a YAML config file from path over the defaults. If the file
// does not exist, it returns Default() and no error. An empty or
// all-comment file also returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.StorePath = expandHome(cfg.StorePath)
	cfg.AuditLog = expandHome(cfg.AuditLog)
	cfg.CompletionPath = expandHome(cfg.CompletionPath)
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	var errs []error
	if c.StorePath == "" {
		errs = append(errs, errors.New("store_path is required"))
	}
	switch c.Cipher {
	case CipherGPG:
		if c.GPGBinary == "" {
			errs = append(errs, errors.New("gpg_binary is required when cipher is gpg"))
		}
	case CipherSealed:
	default:
		errs = append(errs, fmt.Errorf("cipher %q: must be %q or %q", c.Cipher, CipherGPG, CipherSealed))
	}
	if c.CipherTimeout.Duration <= 0 {
		errs = append(errs, fmt.Errorf("cipher_timeout must be positive, got %s", c.CipherTimeout.Duration))
	}
	if c.PassphraseAttempts < 1 {
		errs = append(errs, fmt.Errorf("passphrase_attempts must be at least 1, got %d", c.PassphraseAttempts))
	}
	return errors.Join(errs...)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
