package config

import (
	"os"
	"path/filepath"
)

// MaxTiles is the number of tiles the home screen can show.
const MaxTiles = 12

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Mode: "order",
		History: HistoryConfig{
			Backend: "sqlite",
			Path:    filepath.Join(DataDir(), "history.db"),
			Max:     50,
		},
		Playback: PlaybackConfig{
			FailureBudget: 3,
		},
		AutoAdvance: AutoAdvanceConfig{
			PollInterval: 1000,
		},
		Transport: TransportConfig{
			Kind:    "kodi",
			KodiURL: "http://127.0.0.1:8080",
			Timeout: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8765",
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	d := Default()

	if c.Mode == "" {
		c.Mode = d.Mode
	}

	// History
	if c.History.Backend == "" {
		c.History.Backend = d.History.Backend
	}
	if c.History.Path == "" {
		c.History.Path = d.History.Path
		if c.History.Backend == "json" {
			c.History.Path = filepath.Join(DataDir(), "history.json")
		}
	}
	if c.History.Max == 0 {
		c.History.Max = d.History.Max
	}

	if c.Playback.FailureBudget == 0 {
		c.Playback.FailureBudget = d.Playback.FailureBudget
	}
	if c.AutoAdvance.PollInterval == 0 {
		c.AutoAdvance.PollInterval = d.AutoAdvance.PollInterval
	}

	// Transport
	if c.Transport.Kind == "" {
		c.Transport.Kind = d.Transport.Kind
	}
	if c.Transport.KodiURL == "" && c.Transport.Kind == "kodi" {
		c.Transport.KodiURL = d.Transport.KodiURL
	}
	if c.Transport.Timeout == 0 {
		c.Transport.Timeout = d.Transport.Timeout
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
}

// DataDir returns the directory for history and other state.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "onetap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "onetap")
	}
	return filepath.Join(home, ".local", "share", "onetap")
}
