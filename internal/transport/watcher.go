package transport

import (
	"context"
	"sync"
	"time"

	"github.com/tessro/onetap/internal/core"
)

// completionThreshold is the fraction of an item's duration after which its
// disappearance counts as a natural end.
const completionThreshold = 0.95

// StatePoller reports the host's current playback state.
type StatePoller interface {
	State(ctx context.Context) (*core.PlaybackState, error)
}

// Watcher polls a host for state changes and turns them into lifecycle events.
type Watcher struct {
	poller   StatePoller
	interval time.Duration
	emit     func(core.Event)
	now      func() time.Time

	mu       sync.Mutex
	expected string
}

// NewWatcher creates a watcher that reports events through emit.
func NewWatcher(poller StatePoller, interval time.Duration, emit func(core.Event)) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{
		poller:   poller,
		interval: interval,
		emit:     emit,
		now:      time.Now,
	}
}

// Expect records that file was just opened on purpose, so switching to it
// from another item is not reported as the old item stopping.
func (w *Watcher) Expect(file string) {
	w.mu.Lock()
	w.expected = file
	w.mu.Unlock()
}

func (w *Watcher) takeExpected(file string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if file != "" && w.expected == file {
		w.expected = ""
		return true
	}
	return false
}

// Start polls until ctx is done and returns ctx.Err().
func (w *Watcher) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	prev, err := w.poller.State(ctx)
	if err != nil {
		prev = nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			curr, err := w.poller.State(ctx)
			if err != nil {
				continue
			}
			w.step(prev, curr)
			prev = curr
		}
	}
}

func (w *Watcher) step(prev, curr *core.PlaybackState) {
	if prev.HasItem() && curr.HasItem() && prev.File != curr.File && w.takeExpected(curr.File) {
		return
	}
	if ev, ok := diffStates(prev, curr, w.now()); ok {
		w.emit(ev)
	}
}

// diffStates reports the lifecycle event implied by moving from prev to curr.
// Only the disappearance or replacement of a loaded item produces an event.
func diffStates(prev, curr *core.PlaybackState, now time.Time) (core.Event, bool) {
	if !prev.HasItem() || curr == nil {
		return core.Event{}, false
	}
	if curr.HasItem() && curr.File == prev.File {
		return core.Event{}, false
	}

	ev := core.Event{Episode: prev.File, Timestamp: now}
	switch {
	case prev.Duration == 0:
		ev.Type = core.EventError
		ev.Detail = "item ended before reporting a duration"
	case wasCompleted(prev):
		ev.Type = core.EventEnded
	default:
		ev.Type = core.EventStopped
	}
	return ev, true
}

func wasCompleted(state *core.PlaybackState) bool {
	if state.Duration == 0 {
		return false
	}
	return float64(state.Progress) >= float64(state.Duration)*completionThreshold
}
