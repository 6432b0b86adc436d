package caregiver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/renameio/v2"
	"github.com/tessro/onetap/internal/config"
	apperr "github.com/tessro/onetap/internal/errors"
	"gopkg.in/yaml.v3"
)

// Format is a config serialization format.
type Format string

const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks a format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unsupported file type %q (use .toml, .json or .yaml)", apperr.ErrConfiguration, filepath.Ext(path))
	}
}

// Marshal encodes cfg in format.
func Marshal(cfg *config.Config, format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		return config.Encode(cfg)
	case FormatJSON:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// Unmarshal decodes data in format into a new Config with defaults applied.
func Unmarshal(data []byte, format Format) (*config.Config, error) {
	cfg := &config.Config{}
	var err error
	switch format {
	case FormatTOML:
		_, err = toml.Decode(string(data), cfg)
	case FormatJSON:
		err = json.Unmarshal(data, cfg)
	case FormatYAML:
		err = yaml.Unmarshal(data, cfg)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidConfig, err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Export writes cfg to path atomically, in the format implied by its
// extension.
func Export(cfg *config.Config, path string) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := Marshal(cfg, format)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// Import reads and validates a config previously exported to path.
func Import(path string) (*config.Config, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import: %w", err)
	}
	cfg, err := Unmarshal(data, format)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
