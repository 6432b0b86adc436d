package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio/v2"
	apperr "github.com/tessro/onetap/internal/errors"
)

// Load reads configuration from standard locations with environment overrides.
// Search order: $ONETAP_CONFIG, $XDG_CONFIG_HOME/onetap/config.toml,
// ~/.config/onetap/config.toml. Without a file the defaults are used.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := FindConfigFile(); path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadPath loads path when it is set and searches the standard locations
// otherwise.
func LoadPath(path string) (*Config, error) {
	if path != "" {
		return LoadFrom(path)
	}
	return Load()
}

// LoadForEdit reads path for modification and saving. Environment overrides
// are not applied, so saving never persists them. A missing file yields the
// defaults.
func LoadForEdit(path string) (*Config, error) {
	cfg := &Config{}
	if err := decodeFile(path, cfg); err != nil && !errors.Is(err, apperr.ErrConfigNotFound) {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", apperr.ErrConfigNotFound, path)
		}
		return fmt.Errorf("%w: %s: %v", apperr.ErrInvalidConfig, path, err)
	}
	return nil
}

// FindConfigFile returns the first existing config file path, or "".
func FindConfigFile() string {
	if p := os.Getenv("ONETAP_CONFIG"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "onetap", "config.toml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "onetap", "config.toml"))
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// DefaultPath is where a new config file is written when none exists.
func DefaultPath() string {
	if p := os.Getenv("ONETAP_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "onetap", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "onetap", "config.toml")
}

// ResolvePath returns explicit if set, else the existing config file, else
// DefaultPath.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := FindConfigFile(); p != "" {
		return p
	}
	return DefaultPath()
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes cfg to path atomically. Readers see either the old file or the
// new one, never a partial write.
func Save(path string, cfg *Config) error {
	data, err := Encode(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ONETAP_MODE"); v != "" {
		cfg.Mode = strings.ToLower(v)
	}

	// History
	if v := os.Getenv("ONETAP_HISTORY_BACKEND"); v != "" {
		cfg.History.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("ONETAP_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}

	// Transport
	if v := os.Getenv("ONETAP_TRANSPORT"); v != "" {
		cfg.Transport.Kind = strings.ToLower(v)
	}
	if v := os.Getenv("ONETAP_KODI_URL"); v != "" {
		cfg.Transport.KodiURL = v
	}

	if v := os.Getenv("ONETAP_PIN"); v != "" {
		cfg.Caregiver.PIN = v
	}

	// Log
	if v := os.Getenv("ONETAP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ONETAP_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}
