package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
)

const sampleConfig = `
mode = "random"

[[tiles]]
show_id = "bluey"
path = "/tv/Bluey"
label = "Bluey"
weight = 2.0

[[tiles]]
show_id = "trains"
path = "/tv/Trains"
mode = "order"

[random]
exclude_last_n = 3
use_comfort_weights = true

[transport]
kind = "command"
command = ["mpv", "--fs", "{file}"]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFrom(t *testing.T) {
	cfg, err := LoadFrom(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.PlaybackMode() != core.ModeRandom {
		t.Errorf("Mode = %q, want random", cfg.Mode)
	}

	want := []core.Show{
		{ID: "bluey", Path: "/tv/Bluey", Label: "Bluey", Weight: 2.0},
		{ID: "trains", Path: "/tv/Trains", Mode: core.ModeOrder},
	}
	if diff := cmp.Diff(want, cfg.Shows()); diff != "" {
		t.Errorf("Shows() mismatch (-want +got):\n%s", diff)
	}

	opts := cfg.RandomOptions()
	if opts.ExcludeLastN != 3 || !opts.UseComfortWeights {
		t.Errorf("RandomOptions() = %+v", opts)
	}
	if got := cfg.Transport.Command; len(got) != 3 || got[2] != "{file}" {
		t.Errorf("Transport.Command = %v", got)
	}

	// Defaults fill the rest
	if cfg.History.Max != 50 {
		t.Errorf("History.Max = %d, want 50", cfg.History.Max)
	}
	if cfg.Playback.FailureBudget != 3 {
		t.Errorf("Playback.FailureBudget = %d, want 3", cfg.Playback.FailureBudget)
	}
	if cfg.Transport.KodiURL != "" {
		t.Errorf("Transport.KodiURL = %q, want empty for command transport", cfg.Transport.KodiURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFromErrors(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, apperr.ErrConfigNotFound) {
		t.Errorf("missing file error = %v, want ErrConfigNotFound", err)
	}

	_, err = LoadFrom(writeConfig(t, "mode = "))
	if !errors.Is(err, apperr.ErrInvalidConfig) {
		t.Errorf("bad toml error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadUsesEnvPath(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("ONETAP_CONFIG", path)

	if got := FindConfigFile(); got != path {
		t.Errorf("FindConfigFile() = %q, want %q", got, path)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Tiles) != 2 {
		t.Errorf("len(Tiles) = %d, want 2", len(cfg.Tiles))
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ONETAP_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Mode != "order" {
		t.Errorf("Mode = %q, want order", cfg.Mode)
	}
	if cfg.Server.Addr != "127.0.0.1:8765" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if want := filepath.Join(dir, "onetap", "config.toml"); DefaultPath() != want {
		t.Errorf("DefaultPath() = %q, want %q", DefaultPath(), want)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ONETAP_MODE", "RANDOM")
	t.Setenv("ONETAP_HISTORY_BACKEND", "json")
	t.Setenv("ONETAP_HISTORY_PATH", "/var/lib/onetap/h.json")
	t.Setenv("ONETAP_TRANSPORT", "noop")
	t.Setenv("ONETAP_KODI_URL", "http://kodi.local:8080")
	t.Setenv("ONETAP_PIN", "4321")
	t.Setenv("ONETAP_LOG_LEVEL", "debug")

	cfg, err := LoadFrom(writeConfig(t, `mode = "order"`))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"mode", cfg.Mode, "random"},
		{"history backend", cfg.History.Backend, "json"},
		{"history path", cfg.History.Path, "/var/lib/onetap/h.json"},
		{"transport", cfg.Transport.Kind, "noop"},
		{"kodi url", cfg.Transport.KodiURL, "http://kodi.local:8080"},
		{"pin", cfg.Caregiver.PIN, "4321"},
		{"log level", cfg.Log.Level, "debug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := LoadFrom(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 600", perm)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestLoadForEditSkipsEnv(t *testing.T) {
	t.Setenv("ONETAP_PIN", "9999")

	cfg, err := LoadForEdit(writeConfig(t, "[caregiver]\npin = \"1234\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Caregiver.PIN != "1234" {
		t.Errorf("PIN = %q, want file value 1234", cfg.Caregiver.PIN)
	}

	cfg, err = LoadForEdit(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadForEdit(missing) error = %v", err)
	}
	if cfg.Mode != "order" {
		t.Errorf("Mode = %q, want default", cfg.Mode)
	}
}
