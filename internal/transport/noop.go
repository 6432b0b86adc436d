package transport

import (
	"context"
	"sync"

	"github.com/tessro/onetap/internal/core"
)

// Noop is a transport that plays nothing. It records every request and can be
// scripted to fail, which makes it the test double for sessions and the
// controller.
type Noop struct {
	Hub

	// Respond, when set, decides the result of the n-th (0-based) Play call.
	Respond func(call int, episode string) (core.PlayResult, error)

	// PingErr is returned by Ping.
	PingErr error

	mu    sync.Mutex
	plays []string
	stops int
}

// NewNoop returns a transport on which every play succeeds.
func NewNoop() *Noop {
	return &Noop{}
}

// Play records episode and returns the scripted result.
func (n *Noop) Play(ctx context.Context, episode string) (core.PlayResult, error) {
	n.mu.Lock()
	call := len(n.plays)
	n.plays = append(n.plays, episode)
	respond := n.Respond
	n.mu.Unlock()

	if respond == nil {
		return core.PlayResult{}, nil
	}
	return respond(call, episode)
}

// Plays returns a copy of every episode passed to Play, in order.
func (n *Noop) Plays() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.plays))
	copy(out, n.plays)
	return out
}

// Run blocks until ctx is done. Events are only produced through Emit.
func (n *Noop) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Stop counts the request and reports the last played episode as stopped.
func (n *Noop) Stop(ctx context.Context) error {
	n.mu.Lock()
	n.stops++
	var episode string
	if len(n.plays) > 0 {
		episode = n.plays[len(n.plays)-1]
	}
	n.mu.Unlock()
	n.Emit(core.Event{Type: core.EventStopped, Episode: episode})
	return nil
}

// Stops returns how many times Stop was called.
func (n *Noop) Stops() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stops
}

// Ping returns PingErr.
func (n *Noop) Ping(ctx context.Context) error {
	return n.PingErr
}
