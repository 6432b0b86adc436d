// Package caregiver implements the PIN-gated tools a caregiver uses to curate
// the home screen: tile add/remove, mode changes and config export/import.
package caregiver

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/tessro/onetap/internal/config"
	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
)

// PromptFunc asks the user for a PIN.
type PromptFunc func() (string, error)

// VerifyPIN checks the caregiver PIN. When no PIN is configured it returns
// nil without prompting.
func VerifyPIN(cfg *config.Config, prompt PromptFunc) error {
	want := cfg.Caregiver.PIN
	if want == "" {
		return nil
	}
	got, err := prompt()
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(want)) != 1 {
		return apperr.ErrPINRejected
	}
	return nil
}

// AddTile appends tile. A tile whose show ID is already configured is
// rejected.
func AddTile(cfg *config.Config, tile config.TileConfig) error {
	tile.ShowID = strings.TrimSpace(tile.ShowID)
	if err := tile.Validate(); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidConfig, err)
	}
	if _, ok := cfg.Tile(tile.ShowID); ok {
		return apperr.WithSuggestion(
			fmt.Errorf("%w: tile %q already exists", apperr.ErrInvalidConfig, tile.ShowID),
			"Remove the existing tile first with 'onetap tiles rm "+tile.ShowID+"'",
		)
	}
	cfg.Tiles = append(cfg.Tiles, tile)
	return nil
}

// RemoveTile deletes the tile for showID.
func RemoveTile(cfg *config.Config, showID string) error {
	for i, t := range cfg.Tiles {
		if t.ShowID == showID {
			cfg.Tiles = append(cfg.Tiles[:i:i], cfg.Tiles[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", apperr.ErrShowNotFound, showID)
}

// ToggleMode flips the global mode between order and random and returns the
// new mode.
func ToggleMode(cfg *config.Config) core.Mode {
	next := cfg.PlaybackMode().Toggle()
	cfg.Mode = string(next)
	return next
}

// SetMode sets the global mode, or a single tile's mode when showID is set.
// An empty mode on a tile clears its override.
func SetMode(cfg *config.Config, showID, mode string) error {
	if showID == "" {
		m, err := core.ParseMode(mode)
		if err != nil {
			return fmt.Errorf("%w: %w", apperr.ErrInvalidConfig, err)
		}
		cfg.Mode = string(m)
		return nil
	}

	var parsed core.Mode
	if mode != "" {
		m, err := core.ParseMode(mode)
		if err != nil {
			return fmt.Errorf("%w: %w", apperr.ErrInvalidConfig, err)
		}
		parsed = m
	}
	for i := range cfg.Tiles {
		if cfg.Tiles[i].ShowID == showID {
			cfg.Tiles[i].Mode = string(parsed)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", apperr.ErrShowNotFound, showID)
}
