// Package playback drains candidate lists through a transport with bounded
// retries and commits history only for episodes that actually started.
package playback

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
	"github.com/tessro/onetap/internal/history"
	xlog "github.com/tessro/onetap/internal/log"
	"github.com/tessro/onetap/internal/metrics"
)

// DefaultFailureBudget is how many candidates may fail to start before a
// session gives up.
const DefaultFailureBudget = 3

// Session attempts candidates through a transport until one starts.
type Session struct {
	transport core.Transport
	history   *history.Tolerant
	logger    zerolog.Logger

	mu         sync.RWMutex
	budget     int
	maxHistory int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithFailureBudget caps the failed attempts per session. Values <= 0 use
// DefaultFailureBudget.
func WithFailureBudget(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.budget = n
		}
	}
}

// WithMaxHistory bounds the history kept per show.
func WithMaxHistory(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = l
	}
}

// NewSession creates a session.
func NewSession(t core.Transport, h *history.Tolerant, opts ...SessionOption) *Session {
	s := &Session{
		transport:  t,
		history:    h,
		budget:     DefaultFailureBudget,
		maxHistory: core.DefaultMaxHistory,
		logger:     xlog.WithComponent("playback"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Budget returns the failure budget.
func (s *Session) Budget() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budget
}

// SetFailureBudget changes the budget for sessions that start afterwards.
// Values <= 0 are ignored.
func (s *Session) SetFailureBudget(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.budget = n
	s.mu.Unlock()
}

// SetMaxHistory changes the history bound for later commits. Values <= 0 are
// ignored.
func (s *Session) SetMaxHistory(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.maxHistory = n
	s.mu.Unlock()
}

func (s *Session) limits() (budget, maxHistory int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budget, s.maxHistory
}

// Run attempts candidates in order. It stops at the first episode that starts
// and records it in history. When the budget or the list runs out it returns
// an *errors.ExhaustedError; when ctx is cancelled between attempts it returns
// ctx.Err(). The outcome is always filled in.
func (s *Session) Run(ctx context.Context, showID string, candidates []string) (core.Outcome, error) {
	if xlog.SessionIDFromContext(ctx) == "" {
		ctx = xlog.ContextWithSessionID(ctx, uuid.NewString())
	}
	logger := xlog.FromContext(ctx, s.logger.With().Str("show_id", showID).Logger())

	budget, maxHistory := s.limits()
	out := core.Outcome{ShowID: showID}
	var last error

	for _, episode := range candidates {
		if len(out.Failures) >= budget {
			break
		}
		if err := ctx.Err(); err != nil {
			out.Status = core.OutcomeAborted
			metrics.RecordOutcome(showID, string(out.Status))
			logger.Info().Int("attempts", out.Attempts).Msg("playback aborted")
			return out, err
		}

		out.Attempts++
		res, err := s.transport.Play(ctx, episode)
		if err == nil && res.Failed() {
			err = &playError{msg: res.Error}
		}
		if err != nil {
			last = err
			out.Failures = append(out.Failures, core.AttemptFailure{Episode: episode, Reason: err.Error()})
			metrics.RecordAttempt(showID, false)
			logger.Warn().Err(err).Str("episode", episode).Int("attempt", out.Attempts).Msg("playback failed to start")
			continue
		}

		metrics.RecordAttempt(showID, true)
		out.Recorded = s.history.Append(ctx, showID, episode, maxHistory)

		out.Status = core.OutcomePlayed
		out.Episode = episode
		metrics.RecordOutcome(showID, string(out.Status))
		logger.Info().Str("episode", episode).Int("attempts", out.Attempts).Bool("recorded", out.Recorded).Msg("playback started")
		return out, nil
	}

	out.Status = core.OutcomeExhausted
	metrics.RecordOutcome(showID, string(out.Status))
	logger.Error().Err(last).Int("attempts", out.Attempts).Msg("playback exhausted")
	return out, &apperr.ExhaustedError{ShowID: showID, Attempts: out.Attempts, Last: last}
}

// playError is a start failure reported in the transport's result payload.
type playError struct {
	msg string
}

func (e *playError) Error() string {
	return "player reported error: " + e.msg
}

func (e *playError) Unwrap() error {
	return apperr.ErrTransport
}
