package caregiver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tessro/onetap/internal/config"
	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
)

func TestVerifyPIN(t *testing.T) {
	prompted := 0
	answer := func(pin string) PromptFunc {
		return func() (string, error) {
			prompted++
			return pin, nil
		}
	}

	cfg := config.Default()
	require.NoError(t, VerifyPIN(cfg, answer("anything")))
	assert.Equal(t, 0, prompted, "must not prompt without a PIN")

	cfg.Caregiver.PIN = "1234"
	assert.NoError(t, VerifyPIN(cfg, answer("1234")))
	assert.NoError(t, VerifyPIN(cfg, answer(" 1234\n")))
	assert.ErrorIs(t, VerifyPIN(cfg, answer("0000")), apperr.ErrPINRejected)
	assert.Equal(t, 3, prompted)

	cancelled := errors.New("cancelled")
	assert.ErrorIs(t, VerifyPIN(cfg, func() (string, error) { return "", cancelled }), cancelled)
}

func TestAddTile(t *testing.T) {
	cfg := config.Default()

	require.NoError(t, AddTile(cfg, config.TileConfig{ShowID: " bluey ", Path: "/tv/Bluey"}))
	require.Len(t, cfg.Tiles, 1)
	assert.Equal(t, "bluey", cfg.Tiles[0].ShowID)

	err := AddTile(cfg, config.TileConfig{ShowID: "bluey", Path: "/elsewhere"})
	assert.ErrorIs(t, err, apperr.ErrInvalidConfig)
	assert.Contains(t, apperr.GetSuggestion(err), "onetap tiles rm bluey")
	assert.Len(t, cfg.Tiles, 1)

	err = AddTile(cfg, config.TileConfig{ShowID: "nopath"})
	assert.ErrorIs(t, err, apperr.ErrInvalidConfig)
}

func TestRemoveTile(t *testing.T) {
	cfg := config.Default()
	cfg.Tiles = []config.TileConfig{
		{ShowID: "a", Path: "/a"},
		{ShowID: "b", Path: "/b"},
		{ShowID: "c", Path: "/c"},
	}
	original := cfg.Tiles

	require.NoError(t, RemoveTile(cfg, "b"))
	assert.Equal(t, []string{"a", "c"}, ids(cfg.Tiles))
	assert.Equal(t, "b", original[1].ShowID, "removal must not clobber the previous slice")

	assert.ErrorIs(t, RemoveTile(cfg, "zzz"), apperr.ErrShowNotFound)
}

func ids(tiles []config.TileConfig) []string {
	out := make([]string, len(tiles))
	for i, t := range tiles {
		out[i] = t.ShowID
	}
	return out
}

func TestModes(t *testing.T) {
	cfg := config.Default()
	cfg.Tiles = []config.TileConfig{{ShowID: "a", Path: "/a"}}

	assert.Equal(t, core.ModeRandom, ToggleMode(cfg))
	assert.Equal(t, "random", cfg.Mode)
	assert.Equal(t, core.ModeOrder, ToggleMode(cfg))

	require.NoError(t, SetMode(cfg, "", "Random"))
	assert.Equal(t, "random", cfg.Mode)

	require.NoError(t, SetMode(cfg, "a", "order"))
	assert.Equal(t, "order", cfg.Tiles[0].Mode)
	require.NoError(t, SetMode(cfg, "a", ""))
	assert.Equal(t, "", cfg.Tiles[0].Mode)

	assert.ErrorIs(t, SetMode(cfg, "", "shuffle"), apperr.ErrInvalidConfig)
	assert.ErrorIs(t, SetMode(cfg, "zzz", "order"), apperr.ErrShowNotFound)
}
