// Package advance keeps playback going after an episode ends by reacting to
// transport lifecycle events.
package advance

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
	xlog "github.com/tessro/onetap/internal/log"
	"github.com/tessro/onetap/internal/metrics"
	"github.com/tessro/onetap/internal/playback"
)

// State is the controller's position in the playback lifecycle.
type State int

const (
	StateIdle State = iota
	StateAttempting
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// OutcomeFunc observes the result of every session the controller starts.
type OutcomeFunc func(core.Outcome, error)

// Option configures a Controller.
type Option func(*Controller)

// WithCrossShow makes the controller pick a different show, weighted by tile
// weight, after each natural end.
func WithCrossShow(enabled bool) Option {
	return func(c *Controller) { c.crossShow = enabled }
}

// WithOutcomeFunc registers a callback for session outcomes.
func WithOutcomeFunc(fn OutcomeFunc) Option {
	return func(c *Controller) { c.onOutcome = fn }
}

// WithLogger sets the controller logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller drives continuous playback. Events are handled one at a time on
// the goroutine running Run, so sessions never overlap.
type Controller struct {
	launcher  *playback.Launcher
	source    core.EventSource
	onOutcome OutcomeFunc
	logger    zerolog.Logger
	events    chan core.Event
	requests  chan playRequest

	mu        sync.Mutex
	crossShow bool
	state     State
	showID    string
	episode   string
	recorded  bool

	// failures are playback errors since the last natural end. They count
	// against the session budget the same way start failures do.
	failures []core.AttemptFailure
}

// NewController creates a controller that plays through launcher and listens
// to source.
func NewController(launcher *playback.Launcher, source core.EventSource, opts ...Option) *Controller {
	c := &Controller{
		launcher: launcher,
		source:   source,
		logger:   xlog.WithComponent("advance"),
		events:   make(chan core.Event, 8),
		requests: make(chan playRequest),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetCrossShow switches cross-show advancing on or off.
func (c *Controller) SetCrossShow(enabled bool) {
	c.mu.Lock()
	c.crossShow = enabled
	c.mu.Unlock()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the show and episode last started.
func (c *Controller) Current() (showID, episode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showID, c.episode
}

// Start plays showID on the caller's goroutine. Once Run is running, use Play
// instead.
func (c *Controller) Start(ctx context.Context, showID string) (core.Outcome, error) {
	c.mu.Lock()
	c.failures = nil
	c.mu.Unlock()
	return c.start(ctx, showID)
}

func (c *Controller) start(ctx context.Context, showID string) (core.Outcome, error) {
	c.setState(StateAttempting, showID, "")

	out, err := c.launcher.Play(ctx, showID)
	if err != nil || !out.Played() {
		c.setState(StateIdle, showID, "")
	} else {
		c.setState(StatePlaying, showID, out.Episode)
	}
	c.mu.Lock()
	c.recorded = out.Recorded
	c.mu.Unlock()

	if c.onOutcome != nil {
		c.onOutcome(out, err)
	}
	return out, err
}

type playRequest struct {
	ctx    context.Context
	showID string
	reply  chan playReply
}

type playReply struct {
	outcome core.Outcome
	err     error
}

// Play starts showID on the event loop, so it never overlaps with an
// auto-advance. Run must be running.
func (c *Controller) Play(ctx context.Context, showID string) (core.Outcome, error) {
	req := playRequest{ctx: ctx, showID: showID, reply: make(chan playReply, 1)}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return core.Outcome{ShowID: showID, Status: core.OutcomeAborted}, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.outcome, r.err
	case <-ctx.Done():
		return core.Outcome{ShowID: showID, Status: core.OutcomeAborted}, ctx.Err()
	}
}

// Run subscribes to the event source and handles events and play requests
// until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	unsubscribe := c.source.Subscribe(func(ev core.Event) {
		select {
		case c.events <- ev:
		case <-ctx.Done():
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.events:
			c.Handle(ctx, ev)
		case req := <-c.requests:
			out, err := c.Start(req.ctx, req.showID)
			req.reply <- playReply{outcome: out, err: err}
		}
	}
}

// Handle reacts to a single event. Events arriving while idle, or naming an
// episode other than the current one, are ignored.
func (c *Controller) Handle(ctx context.Context, ev core.Event) {
	metrics.RecordAutoAdvanceEvent(ev.Type.String())

	c.mu.Lock()
	state, showID, episode, recorded := c.state, c.showID, c.episode, c.recorded
	c.mu.Unlock()

	logger := c.logger.With().Stringer("event", ev.Type).Str("show_id", showID).Logger()

	if state != StatePlaying {
		logger.Debug().Stringer("state", state).Msg("ignoring event")
		return
	}
	if ev.Episode != "" && episode != "" && ev.Episode != episode {
		logger.Debug().Str("episode", ev.Episode).Msg("ignoring event for stale episode")
		return
	}

	switch ev.Type {
	case core.EventEnded:
		logger.Info().Str("episode", episode).Msg("episode ended")
		c.mu.Lock()
		c.failures = nil
		c.mu.Unlock()
		c.advance(ctx, showID)
	case core.EventError:
		logger.Warn().Str("episode", episode).Str("detail", ev.Detail).Bool("recorded", recorded).Msg("playback error")
		if recorded {
			c.launcher.History().RemoveLast(ctx, showID)
		}
		if c.recordFailure(episode, ev.Detail) {
			c.exhaust(showID)
			return
		}
		c.advance(ctx, showID)
	case core.EventStopped:
		logger.Info().Str("episode", episode).Msg("playback stopped")
		c.setState(StateIdle, showID, "")
	}
}

// recordFailure counts a playback error and reports whether the budget is
// spent.
func (c *Controller) recordFailure(episode, detail string) bool {
	if detail == "" {
		detail = "playback error"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, core.AttemptFailure{Episode: episode, Reason: detail})
	return len(c.failures) >= c.launcher.Session().Budget()
}

// exhaust stops advancing after too many playback errors in a row.
func (c *Controller) exhaust(showID string) {
	c.mu.Lock()
	failures := c.failures
	c.failures = nil
	c.mu.Unlock()
	c.setState(StateIdle, showID, "")

	var last error
	if n := len(failures); n > 0 {
		last = errors.New(failures[n-1].Reason)
	}
	out := core.Outcome{
		Status:   core.OutcomeExhausted,
		ShowID:   showID,
		Attempts: len(failures),
		Failures: failures,
	}
	err := &apperr.ExhaustedError{ShowID: showID, Attempts: out.Attempts, Last: last}
	metrics.RecordOutcome(showID, string(out.Status))
	c.logger.Error().Err(err).Str("show_id", showID).Msg("auto-advance stopped after repeated playback errors")
	if c.onOutcome != nil {
		c.onOutcome(out, err)
	}
}

func (c *Controller) advance(ctx context.Context, showID string) {
	if ctx.Err() != nil {
		c.setState(StateIdle, showID, "")
		return
	}

	next := showID
	c.mu.Lock()
	crossShow := c.crossShow
	c.mu.Unlock()

	if crossShow {
		show, err := c.launcher.Selector().PickShow(c.launcher.Settings().Shows, showID)
		if err != nil {
			c.logger.Error().Err(err).Msg("cross-show pick failed")
			c.setState(StateIdle, showID, "")
			return
		}
		next = show.ID
	}

	_, err := c.start(ctx, next)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error().Err(err).Str("show_id", next).Msg("auto-advance stopped")
	}
}

func (c *Controller) setState(s State, showID, episode string) {
	c.mu.Lock()
	c.state = s
	c.showID = showID
	c.episode = episode
	if s != StatePlaying {
		c.recorded = false
	}
	c.mu.Unlock()
}
