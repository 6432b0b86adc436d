package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
)

// Validate checks the configuration for errors. All problems are reported
// together, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error

	if _, err := core.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if err := validateTiles(c.Tiles); err != nil {
		errs = append(errs, fmt.Errorf("tiles: %w", err))
	}
	if err := c.Random.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("random: %w", err))
	}
	if err := c.History.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("history: %w", err))
	}
	if c.Playback.FailureBudget < 0 {
		errs = append(errs, errors.New("playback: failure_budget must be non-negative"))
	}
	if c.AutoAdvance.PollInterval < 0 {
		errs = append(errs, errors.New("auto_advance: poll_interval must be non-negative"))
	}
	if err := c.Transport.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("transport: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidConfig, err)
	}
	return nil
}

func validateTiles(tiles []TileConfig) error {
	var errs []error
	seen := make(map[string]bool, len(tiles))
	for i, t := range tiles {
		if err := t.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tile %d: %w", i, err))
			continue
		}
		if seen[t.ShowID] {
			errs = append(errs, fmt.Errorf("tile %d: duplicate show_id %q", i, t.ShowID))
		}
		seen[t.ShowID] = true
	}
	return errors.Join(errs...)
}

// Validate checks TileConfig for errors.
func (t *TileConfig) Validate() error {
	if strings.TrimSpace(t.ShowID) == "" {
		return errors.New("show_id is required")
	}
	if strings.TrimSpace(t.Path) == "" {
		return fmt.Errorf("%s: path is required", t.ShowID)
	}
	if t.Weight < 0 {
		return fmt.Errorf("%s: weight must be non-negative", t.ShowID)
	}
	if t.Mode != "" {
		if _, err := core.ParseMode(t.Mode); err != nil {
			return fmt.Errorf("%s: %w", t.ShowID, err)
		}
	}
	return nil
}

// Validate checks RandomConfig for errors.
func (c *RandomConfig) Validate() error {
	if c.ExcludeLastN < 0 {
		return errors.New("exclude_last_n must be non-negative")
	}
	return nil
}

// Validate checks HistoryConfig for errors.
func (c *HistoryConfig) Validate() error {
	switch c.Backend {
	case "", "sqlite", "json", "memory":
		// valid
	default:
		return fmt.Errorf("invalid backend: %s (must be sqlite, json, or memory)", c.Backend)
	}
	if c.Max < 0 {
		return errors.New("max must be non-negative")
	}
	return nil
}

// Validate checks TransportConfig for errors.
func (c *TransportConfig) Validate() error {
	switch c.Kind {
	case "", "kodi":
		if c.KodiURL != "" {
			u, err := url.Parse(c.KodiURL)
			if err != nil {
				return fmt.Errorf("invalid kodi_url: %w", err)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("invalid kodi_url: %s (must be http or https)", c.KodiURL)
			}
		}
	case "command":
		if len(c.Command) == 0 {
			return errors.New("command is required for kind command")
		}
	case "noop":
		// valid
	default:
		return fmt.Errorf("invalid kind: %s (must be kodi, command, or noop)", c.Kind)
	}
	if c.Timeout < 0 {
		return errors.New("timeout must be non-negative")
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}
	return nil
}
