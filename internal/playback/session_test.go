package playback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
	"github.com/tessro/onetap/internal/history"
	xlog "github.com/tessro/onetap/internal/log"
	"github.com/tessro/onetap/internal/transport"
)

func newSession(t *testing.T, respond func(int, string) (core.PlayResult, error), opts ...SessionOption) (*Session, *transport.Noop, *history.MemoryStore) {
	t.Helper()
	noop := transport.NewNoop()
	noop.Respond = respond
	store := history.NewMemoryStore()
	opts = append([]SessionOption{WithLogger(xlog.Nop())}, opts...)
	return NewSession(noop, history.NewTolerant(store, xlog.Nop()), opts...), noop, store
}

func failFirst(n int) func(int, string) (core.PlayResult, error) {
	return func(call int, episode string) (core.PlayResult, error) {
		if call < n {
			return core.PlayResult{Error: "cannot open " + episode}, nil
		}
		return core.PlayResult{}, nil
	}
}

func alwaysFail(call int, episode string) (core.PlayResult, error) {
	return core.PlayResult{}, apperr.ErrTransportUnavailable
}

func TestSessionCommitsOnlyTheEpisodeThatStarted(t *testing.T) {
	ctx := context.Background()
	s, noop, store := newSession(t, failFirst(2))

	out, err := s.Run(ctx, "show", []string{"a", "b", "c", "d"})
	require.NoError(t, err)

	assert.Equal(t, core.OutcomePlayed, out.Status)
	assert.Equal(t, "c", out.Episode)
	assert.Equal(t, 3, out.Attempts)
	assert.Len(t, out.Failures, 2)
	assert.Equal(t, []string{"a", "b", "c"}, noop.Plays())

	got, err := store.Get(ctx, "show")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, got)
}

func TestSessionExhaustion(t *testing.T) {
	tests := []struct {
		name       string
		budget     int
		candidates []string
		want       int
	}{
		{"budget smaller than list", 3, []string{"a", "b", "c", "d", "e"}, 3},
		{"list smaller than budget", 3, []string{"a", "b"}, 2},
		{"custom budget", 1, []string{"a", "b"}, 1},
		{"empty list", 3, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s, noop, store := newSession(t, alwaysFail, WithFailureBudget(tt.budget))

			out, err := s.Run(ctx, "show", tt.candidates)

			var exhausted *apperr.ExhaustedError
			require.True(t, errors.As(err, &exhausted), "err = %v", err)
			assert.ErrorIs(t, err, apperr.ErrPlaybackExhausted)
			assert.Equal(t, tt.want, exhausted.Attempts)
			assert.Equal(t, core.OutcomeExhausted, out.Status)
			assert.Len(t, noop.Plays(), tt.want)

			got, _ := store.Get(ctx, "show")
			assert.Empty(t, got)
		})
	}
}

func TestSessionAbortBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, noop, store := newSession(t, func(call int, episode string) (core.PlayResult, error) {
		cancel()
		return core.PlayResult{Error: "nope"}, nil
	})

	out, err := s.Run(ctx, "show", []string{"a", "b", "c"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, core.OutcomeAborted, out.Status)
	assert.Equal(t, []string{"a"}, noop.Plays())

	got, _ := store.Get(context.Background(), "show")
	assert.Empty(t, got)
}

func TestSessionSurvivesHistoryFailure(t *testing.T) {
	noop := transport.NewNoop()
	s := NewSession(noop, history.NewTolerant(failingStore{}, xlog.Nop()), WithLogger(xlog.Nop()))

	out, err := s.Run(context.Background(), "show", []string{"a"})
	require.NoError(t, err)
	assert.True(t, out.Played())
	assert.False(t, out.Recorded, "failed append must not be reported as recorded")
}

func TestSessionReportsRecordedEntry(t *testing.T) {
	s, _, _ := newSession(t, nil)

	out, err := s.Run(context.Background(), "show", []string{"a"})
	require.NoError(t, err)
	assert.True(t, out.Recorded)
}

func TestSessionLimitsChangeAtRuntime(t *testing.T) {
	ctx := context.Background()
	s, noop, store := newSession(t, alwaysFail)

	s.SetFailureBudget(1)
	_, err := s.Run(ctx, "show", []string{"a", "b", "c"})
	require.ErrorIs(t, err, apperr.ErrPlaybackExhausted)
	assert.Len(t, noop.Plays(), 1)

	s.SetFailureBudget(0)
	assert.Equal(t, 1, s.Budget(), "non-positive budget must be ignored")

	noop.Respond = nil
	s.SetMaxHistory(2)
	for _, ep := range []string{"a", "b", "c"} {
		_, err := s.Run(ctx, "show", []string{ep})
		require.NoError(t, err)
	}
	got, _ := store.Get(ctx, "show")
	assert.Equal(t, []string{"b", "c"}, got)
}

type failingStore struct {
	core.HistoryStore
}

func (failingStore) Append(context.Context, string, string, int) error {
	return apperr.ErrHistoryStore
}

func TestSessionDefaults(t *testing.T) {
	s := NewSession(transport.NewNoop(), nil, WithFailureBudget(0), WithMaxHistory(-1))
	assert.Equal(t, DefaultFailureBudget, s.Budget())
	assert.Equal(t, core.DefaultMaxHistory, s.maxHistory)
}
