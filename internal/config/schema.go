package config

import (
	"time"

	"github.com/tessro/onetap/internal/core"
)

// Config is the root configuration structure.
type Config struct {
	Mode        string            `toml:"mode" json:"mode" yaml:"mode"`
	Tiles       []TileConfig      `toml:"tiles" json:"tiles" yaml:"tiles"`
	Random      RandomConfig      `toml:"random" json:"random" yaml:"random"`
	History     HistoryConfig     `toml:"history" json:"history" yaml:"history"`
	Playback    PlaybackConfig    `toml:"playback" json:"playback" yaml:"playback"`
	AutoAdvance AutoAdvanceConfig `toml:"auto_advance" json:"auto_advance" yaml:"auto_advance"`
	Transport   TransportConfig   `toml:"transport" json:"transport" yaml:"transport"`
	Caregiver   CaregiverConfig   `toml:"caregiver" json:"caregiver" yaml:"caregiver"`
	Log         LogConfig         `toml:"log" json:"log" yaml:"log"`
	Server      ServerConfig      `toml:"server" json:"server" yaml:"server"`
}

// TileConfig is one show on the home screen.
type TileConfig struct {
	ShowID string  `toml:"show_id" json:"show_id" yaml:"show_id"`
	Path   string  `toml:"path" json:"path" yaml:"path"`
	Label  string  `toml:"label,omitempty" json:"label,omitempty" yaml:"label,omitempty"`
	Weight float64 `toml:"weight,omitempty" json:"weight,omitempty" yaml:"weight,omitempty"`
	Mode   string  `toml:"mode,omitempty" json:"mode,omitempty" yaml:"mode,omitempty"`
}

// RandomConfig tunes random mode.
type RandomConfig struct {
	ExcludeLastN      int  `toml:"exclude_last_n" json:"exclude_last_n" yaml:"exclude_last_n"`
	UseComfortWeights bool `toml:"use_comfort_weights" json:"use_comfort_weights" yaml:"use_comfort_weights"`
}

// HistoryConfig selects the history backend.
type HistoryConfig struct {
	Backend string `toml:"backend" json:"backend" yaml:"backend"`
	Path    string `toml:"path" json:"path" yaml:"path"`
	Max     int    `toml:"max" json:"max" yaml:"max"`
}

// PlaybackConfig holds session settings.
type PlaybackConfig struct {
	FailureBudget int `toml:"failure_budget" json:"failure_budget" yaml:"failure_budget"`
}

// AutoAdvanceConfig holds settings for continuous playback.
type AutoAdvanceConfig struct {
	Enabled      bool `toml:"enabled" json:"enabled" yaml:"enabled"`
	CrossShow    bool `toml:"cross_show" json:"cross_show" yaml:"cross_show"`
	PollInterval int  `toml:"poll_interval" json:"poll_interval" yaml:"poll_interval"` // milliseconds
}

// TransportConfig selects and configures the playback host.
type TransportConfig struct {
	Kind     string   `toml:"kind" json:"kind" yaml:"kind"`
	KodiURL  string   `toml:"kodi_url" json:"kodi_url" yaml:"kodi_url"`
	Username string   `toml:"username,omitempty" json:"username,omitempty" yaml:"username,omitempty"`
	Password string   `toml:"password,omitempty" json:"password,omitempty" yaml:"password,omitempty"`
	Timeout  int      `toml:"timeout" json:"timeout" yaml:"timeout"` // seconds
	Command  []string `toml:"command,omitempty" json:"command,omitempty" yaml:"command,omitempty"`
}

// CaregiverConfig holds caregiver menu settings.
type CaregiverConfig struct {
	PIN string `toml:"pin" json:"pin" yaml:"pin"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level" json:"level" yaml:"level"`
	File  string `toml:"file,omitempty" json:"file,omitempty" yaml:"file,omitempty"`
}

// ServerConfig holds the HTTP control server settings.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr" yaml:"addr"`
}

// Show converts the tile into its domain form.
func (t TileConfig) Show() core.Show {
	return core.Show{
		ID:     t.ShowID,
		Path:   t.Path,
		Label:  t.Label,
		Weight: t.Weight,
		Mode:   core.Mode(t.Mode),
	}
}

// Shows returns every tile as a core.Show, in configured order.
func (c *Config) Shows() []core.Show {
	shows := make([]core.Show, len(c.Tiles))
	for i, t := range c.Tiles {
		shows[i] = t.Show()
	}
	return shows
}

// Tile returns the tile with the given show ID.
func (c *Config) Tile(showID string) (TileConfig, bool) {
	for _, t := range c.Tiles {
		if t.ShowID == showID {
			return t, true
		}
	}
	return TileConfig{}, false
}

// PlaybackMode returns the global selection mode.
func (c *Config) PlaybackMode() core.Mode {
	return core.Mode(c.Mode)
}

// RandomOptions returns the random-mode tuning.
func (c *Config) RandomOptions() core.RandomOptions {
	return core.RandomOptions{
		ExcludeLastN:      c.Random.ExcludeLastN,
		UseComfortWeights: c.Random.UseComfortWeights,
	}
}

// PollInterval returns the auto-advance poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.AutoAdvance.PollInterval) * time.Millisecond
}

// TransportTimeout returns the transport request timeout.
func (c *Config) TransportTimeout() time.Duration {
	return time.Duration(c.Transport.Timeout) * time.Second
}
