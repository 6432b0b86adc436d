package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperr "github.com/tessro/onetap/internal/errors"
)

func TestNew(t *testing.T) {
	live, err := New(Options{Kind: "noop"})
	require.NoError(t, err)
	assert.IsType(t, &Noop{}, live)

	live, err = New(Options{Kind: "Kodi", KodiURL: "http://127.0.0.1:8080"})
	require.NoError(t, err)
	assert.IsType(t, &Kodi{}, live)

	live, err = New(Options{Kind: "command", Command: []string{"mpv", "{file}"}})
	require.NoError(t, err)
	assert.IsType(t, &Command{}, live)

	tests := []Options{
		{Kind: "kodi"},
		{Kind: "command"},
		{Kind: "vlc"},
	}
	for _, opts := range tests {
		t.Run(opts.Kind, func(t *testing.T) {
			_, err := New(opts)
			assert.ErrorIs(t, err, apperr.ErrConfiguration)
		})
	}
}
