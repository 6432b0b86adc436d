package advance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
	"github.com/tessro/onetap/internal/history"
	xlog "github.com/tessro/onetap/internal/log"
	"github.com/tessro/onetap/internal/playback"
	"github.com/tessro/onetap/internal/selector"
	"github.com/tessro/onetap/internal/transport"
	"go.uber.org/goleak"
)

type fixture struct {
	ctrl  *Controller
	noop  *transport.Noop
	store *history.MemoryStore
}

func newFixture(t *testing.T, shows []core.Show, eps map[string][]string, opts ...Option) fixture {
	t.Helper()
	noop := transport.NewNoop()
	store := history.NewMemoryStore()
	tol := history.NewTolerant(store, xlog.Nop())
	session := playback.NewSession(noop, tol, playback.WithLogger(xlog.Nop()))
	lister := core.EpisodeListerFunc(func(path string) ([]string, error) { return eps[path], nil })
	launcher := playback.NewLauncher(playback.Settings{Shows: shows, Mode: core.ModeOrder}, lister, selector.New(), tol, session)
	opts = append([]Option{WithLogger(xlog.Nop())}, opts...)
	return fixture{ctrl: NewController(launcher, noop, opts...), noop: noop, store: store}
}

var oneShow = []core.Show{{ID: "show", Path: "/tv/show"}}

func TestEndedAdvancesWithinShow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, oneShow, map[string][]string{"/tv/show": {"A", "B", "C"}})

	out, err := f.ctrl.Start(ctx, "show")
	require.NoError(t, err)
	assert.Equal(t, "A", out.Episode)
	assert.Equal(t, StatePlaying, f.ctrl.State())

	f.ctrl.Handle(ctx, core.Event{Type: core.EventEnded, Episode: "A"})

	_, ep := f.ctrl.Current()
	assert.Equal(t, "B", ep)
	got, _ := f.store.Get(ctx, "show")
	assert.Equal(t, []string{"A", "B"}, got)
}

func TestErrorUndoesLastEntryBeforeAdvancing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, oneShow, map[string][]string{"/tv/show": {"A", "B", "C"}})

	_, err := f.ctrl.Start(ctx, "show")
	require.NoError(t, err)
	f.ctrl.Handle(ctx, core.Event{Type: core.EventEnded})
	got, _ := f.store.Get(ctx, "show")
	require.Equal(t, []string{"A", "B"}, got)

	f.ctrl.Handle(ctx, core.Event{Type: core.EventError, Episode: "B", Detail: "decoder crashed"})

	// B is removed, so the next candidate list starts after A again.
	got, _ = f.store.Get(ctx, "show")
	assert.Equal(t, []string{"A", "B"}, got)
	assert.Equal(t, []string{"A", "B", "B"}, f.noop.Plays())
}

func TestRepeatedErrorsSpendTheBudget(t *testing.T) {
	ctx := context.Background()
	var outcomes []core.Outcome
	var lastErr error
	f := newFixture(t, oneShow, map[string][]string{"/tv/show": {"A", "B"}},
		WithOutcomeFunc(func(o core.Outcome, err error) {
			outcomes = append(outcomes, o)
			lastErr = err
		}))

	_, err := f.ctrl.Start(ctx, "show")
	require.NoError(t, err)

	// A starts every time and then dies mid-playback.
	for i := 0; i < 10; i++ {
		f.ctrl.Handle(ctx, core.Event{Type: core.EventError, Episode: "A", Detail: "decoder crashed"})
	}

	assert.Equal(t, StateIdle, f.ctrl.State())
	assert.Equal(t, []string{"A", "A", "A"}, f.noop.Plays())
	require.Len(t, outcomes, 4)
	last := outcomes[3]
	assert.Equal(t, core.OutcomeExhausted, last.Status)
	assert.Equal(t, 3, last.Attempts)
	assert.Len(t, last.Failures, 3)
	assert.ErrorIs(t, lastErr, apperr.ErrPlaybackExhausted)

	got, _ := f.store.Get(ctx, "show")
	assert.Empty(t, got, "every errored play must be undone")
}

func TestEndedResetsErrorCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, oneShow, map[string][]string{"/tv/show": {"A", "B", "C"}})

	_, err := f.ctrl.Start(ctx, "show")
	require.NoError(t, err)

	// Two errors, a natural end, then two more: never three in a row.
	f.ctrl.Handle(ctx, core.Event{Type: core.EventError})
	f.ctrl.Handle(ctx, core.Event{Type: core.EventError})
	f.ctrl.Handle(ctx, core.Event{Type: core.EventEnded})
	f.ctrl.Handle(ctx, core.Event{Type: core.EventError})
	f.ctrl.Handle(ctx, core.Event{Type: core.EventError})

	assert.Equal(t, StatePlaying, f.ctrl.State())
	assert.Len(t, f.noop.Plays(), 6)
}

// appendFailsAfter accepts the first n appends and fails the rest.
type appendFailsAfter struct {
	*history.MemoryStore
	n, calls int
}

func (s *appendFailsAfter) Append(ctx context.Context, showID, episode string, max int) error {
	s.calls++
	if s.calls > s.n {
		return apperr.ErrHistoryStore
	}
	return s.MemoryStore.Append(ctx, showID, episode, max)
}

func TestErrorKeepsHistoryWhenEntryWasNotRecorded(t *testing.T) {
	ctx := context.Background()
	noop := transport.NewNoop()
	store := &appendFailsAfter{MemoryStore: history.NewMemoryStore(), n: 1}
	tol := history.NewTolerant(store, xlog.Nop())
	session := playback.NewSession(noop, tol, playback.WithLogger(xlog.Nop()))
	eps := map[string][]string{"/tv/show": {"A", "B", "C"}}
	lister := core.EpisodeListerFunc(func(path string) ([]string, error) { return eps[path], nil })
	launcher := playback.NewLauncher(playback.Settings{Shows: oneShow, Mode: core.ModeOrder}, lister, selector.New(), tol, session)
	ctrl := NewController(launcher, noop, WithLogger(xlog.Nop()))

	out, err := ctrl.Start(ctx, "show")
	require.NoError(t, err)
	require.True(t, out.Recorded)

	ctrl.Handle(ctx, core.Event{Type: core.EventEnded, Episode: "A"})
	_, ep := ctrl.Current()
	require.Equal(t, "B", ep)

	ctrl.Handle(ctx, core.Event{Type: core.EventError, Episode: "B"})

	got, _ := store.Get(ctx, "show")
	assert.Equal(t, []string{"A"}, got, "the earlier watch must survive")
}

func TestStoppedGoesIdle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, oneShow, map[string][]string{"/tv/show": {"A", "B"}})

	_, err := f.ctrl.Start(ctx, "show")
	require.NoError(t, err)

	f.ctrl.Handle(ctx, core.Event{Type: core.EventStopped, Episode: "A"})
	assert.Equal(t, StateIdle, f.ctrl.State())

	f.ctrl.Handle(ctx, core.Event{Type: core.EventEnded, Episode: "A"})
	assert.Equal(t, []string{"A"}, f.noop.Plays(), "events while idle must be ignored")
}

func TestStaleEpisodeEventsAreIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, oneShow, map[string][]string{"/tv/show": {"A", "B"}})

	_, err := f.ctrl.Start(ctx, "show")
	require.NoError(t, err)

	f.ctrl.Handle(ctx, core.Event{Type: core.EventEnded, Episode: "Z"})
	assert.Equal(t, []string{"A"}, f.noop.Plays())
}

func TestCrossShowPicksAnotherShow(t *testing.T) {
	ctx := context.Background()
	shows := []core.Show{{ID: "a", Path: "/tv/a"}, {ID: "b", Path: "/tv/b"}}
	f := newFixture(t, shows, map[string][]string{"/tv/a": {"a1"}, "/tv/b": {"b1"}}, WithCrossShow(true))

	_, err := f.ctrl.Start(ctx, "a")
	require.NoError(t, err)

	f.ctrl.Handle(ctx, core.Event{Type: core.EventEnded})
	showID, ep := f.ctrl.Current()
	assert.Equal(t, "b", showID)
	assert.Equal(t, "b1", ep)

	f.ctrl.Handle(ctx, core.Event{Type: core.EventEnded})
	showID, _ = f.ctrl.Current()
	assert.Equal(t, "a", showID)
}

func TestExhaustionGoesIdleAndReports(t *testing.T) {
	ctx := context.Background()
	var outcomes []core.Outcome
	f := newFixture(t, oneShow, map[string][]string{"/tv/show": {"A", "B"}},
		WithOutcomeFunc(func(o core.Outcome, err error) { outcomes = append(outcomes, o) }))
	f.noop.Respond = func(call int, _ string) (core.PlayResult, error) {
		if call == 0 {
			return core.PlayResult{}, nil
		}
		return core.PlayResult{}, apperr.ErrTransportUnavailable
	}

	_, err := f.ctrl.Start(ctx, "show")
	require.NoError(t, err)
	f.ctrl.Handle(ctx, core.Event{Type: core.EventEnded})

	assert.Equal(t, StateIdle, f.ctrl.State())
	require.Len(t, outcomes, 2)
	assert.Equal(t, core.OutcomePlayed, outcomes[0].Status)
	assert.Equal(t, core.OutcomeExhausted, outcomes[1].Status)
}

func TestRunDeliversEventsSerially(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	played := make(chan string, 4)
	f := newFixture(t, oneShow, map[string][]string{"/tv/show": {"A", "B", "C"}})
	f.noop.Respond = func(_ int, episode string) (core.PlayResult, error) {
		played <- episode
		return core.PlayResult{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.ctrl.Start(ctx, "show")
	require.NoError(t, err)
	require.Equal(t, "A", <-played)

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Run(ctx) }()

	// Emit until the subscription is live; events before that are dropped
	// by the hub because no handler is registered yet.
	deadline := time.After(5 * time.Second)
	for {
		f.noop.Emit(core.Event{Type: core.EventEnded, Episode: "A"})
		select {
		case ep := <-played:
			assert.Equal(t, "B", ep)
			cancel()
			assert.NoError(t, <-done)
			return
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatal("timed out waiting for auto-advance")
		}
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "attempting", StateAttempting.String())
	assert.Equal(t, "playing", StatePlaying.String())
}

func TestPlayRunsOnEventLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t, oneShow, map[string][]string{"/tv/show": {"A", "B"}})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.ctrl.Run(ctx) }()

	out, err := f.ctrl.Play(ctx, "show")
	require.NoError(t, err)
	assert.Equal(t, "A", out.Episode)
	assert.Equal(t, StatePlaying, f.ctrl.State())

	cancel()
	require.NoError(t, <-done)

	_, err = f.ctrl.Play(ctx, "show")
	assert.ErrorIs(t, err, context.Canceled)
}
