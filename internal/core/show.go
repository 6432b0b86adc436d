package core

import (
	"fmt"
	"strings"
)

// Mode selects how the next episode of a show is chosen.
type Mode string

const (
	ModeOrder  Mode = "order"
	ModeRandom Mode = "random"
)

// DefaultWeight is the show weight used when a tile does not set one.
const DefaultWeight = 1.0

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeOrder:
		return ModeOrder, nil
	case ModeRandom:
		return ModeRandom, nil
	default:
		return "", fmt.Errorf("invalid mode: %q (must be order or random)", s)
	}
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeRandom {
		return ModeOrder
	}
	return ModeRandom
}

// Show is a configured tile backed by a directory of episode files.
type Show struct {
	ID     string  `json:"show_id"`
	Path   string  `json:"path"`
	Label  string  `json:"label,omitempty"`
	Weight float64 `json:"weight,omitempty"`
	Mode   Mode    `json:"mode,omitempty"`
}

// DisplayLabel returns the label, falling back to the show ID.
func (s Show) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.ID
}

// EffectiveWeight returns the weight used for cross-show selection.
func (s Show) EffectiveWeight() float64 {
	if s.Weight <= 0 {
		return DefaultWeight
	}
	return s.Weight
}

// EffectiveMode returns the show's own mode, or fallback when unset.
func (s Show) EffectiveMode(fallback Mode) Mode {
	if s.Mode != "" {
		return s.Mode
	}
	if fallback == "" {
		return ModeOrder
	}
	return fallback
}

// RandomOptions controls random-mode candidate generation.
type RandomOptions struct {
	// ExcludeLastN removes episodes found in the most recent N history
	// entries, unless that would leave nothing to play.
	ExcludeLastN int `json:"exclude_last_n"`

	// UseComfortWeights biases the first pick toward episodes near the
	// last one watched.
	UseComfortWeights bool `json:"use_comfort_weights"`
}
