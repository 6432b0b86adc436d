// Package selector computes ordered playback candidates for a show.
//
// Everything here is a pure function of its inputs plus the injected
// randomness source: no I/O, no history mutation.
package selector

import (
	"fmt"

	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
)

// Selector produces candidate lists. The zero value is not usable; use New.
type Selector struct {
	rng     Rand
	sampler Sampler
}

// Option configures a Selector.
type Option func(*Selector)

// WithRand sets the randomness source used for shuffles and, unless a
// sampler is also given, weighted picks.
func WithRand(r Rand) Option {
	return func(s *Selector) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithSampler overrides the weighted sampler.
func WithSampler(smp Sampler) Option {
	return func(s *Selector) {
		s.sampler = smp
	}
}

// New creates a Selector backed by the process-wide random source unless
// options say otherwise.
func New(opts ...Option) *Selector {
	s := &Selector{rng: globalRand{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.sampler == nil {
		s.sampler = weightedSampler{rng: s.rng}
	}
	return s
}

var defaultSelector = New()

// EpisodeCandidates uses the default Selector.
func EpisodeCandidates(showID string, episodes, history []string, mode core.Mode, opts core.RandomOptions) ([]string, error) {
	return defaultSelector.EpisodeCandidates(showID, episodes, history, mode, opts)
}

// EpisodeCandidates returns every episode to attempt for one playback
// request, in priority order.
//
// episodes must be in series order. history is the show's play log,
// oldest first. The result never contains duplicates.
func (s *Selector) EpisodeCandidates(showID string, episodes, history []string, mode core.Mode, opts core.RandomOptions) ([]string, error) {
	if len(episodes) == 0 {
		return nil, fmt.Errorf("%s: %w", showID, apperr.ErrEmptyEpisodeSet)
	}

	switch mode {
	case core.ModeRandom:
		return s.randomCandidates(episodes, history, opts), nil
	case core.ModeOrder, "":
		return orderCandidates(episodes, history), nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %q for %s", apperr.ErrConfiguration, mode, showID)
	}
}

// orderCandidates rotates episodes to start just past the last one played.
func orderCandidates(episodes, history []string) []string {
	start := 0
	if idx := lastPlayedIndex(episodes, history); idx >= 0 {
		start = (idx + 1) % len(episodes)
	}

	out := make([]string, 0, len(episodes))
	out = append(out, episodes[start:]...)
	out = append(out, episodes[:start]...)
	return out
}

func (s *Selector) randomCandidates(episodes, history []string, opts core.RandomOptions) []string {
	pool := excludeRecent(episodes, history, opts.ExcludeLastN)

	if !opts.UseComfortWeights || len(pool) <= 1 {
		s.shuffle(pool)
		return pool
	}

	last := lastPlayedIndex(episodes, history)
	if last < 0 {
		last = 0
	}

	index := indexOf(episodes)
	weights := make([]float64, len(pool))
	for i, ep := range pool {
		weights[i] = 1 / (1 + float64(abs(index[ep]-last)))
	}

	pick := s.sampler.Sample(weights)
	if pick < 0 || pick >= len(pool) {
		pick = 0
	}

	first := pool[pick]
	rest := make([]string, 0, len(pool)-1)
	rest = append(rest, pool[:pick]...)
	rest = append(rest, pool[pick+1:]...)
	s.shuffle(rest)

	return append([]string{first}, rest...)
}

func (s *Selector) shuffle(items []string) {
	s.rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

// excludeRecent drops episodes seen in the last n history entries. If that
// leaves nothing, the full set is returned instead.
func excludeRecent(episodes, history []string, n int) []string {
	pool := make([]string, 0, len(episodes))
	if n <= 0 || len(history) == 0 {
		return append(pool, episodes...)
	}
	if n > len(history) {
		n = len(history)
	}

	recent := make(map[string]struct{}, n)
	for _, ep := range history[len(history)-n:] {
		recent[ep] = struct{}{}
	}
	for _, ep := range episodes {
		if _, ok := recent[ep]; !ok {
			pool = append(pool, ep)
		}
	}
	if len(pool) == 0 {
		return append(pool, episodes...)
	}
	return pool
}

// lastPlayedIndex returns the index in episodes of the newest history entry,
// or -1 when history is empty or that episode is gone.
func lastPlayedIndex(episodes, history []string) int {
	if len(history) == 0 {
		return -1
	}
	last := history[len(history)-1]
	for i, ep := range episodes {
		if ep == last {
			return i
		}
	}
	return -1
}

func indexOf(episodes []string) map[string]int {
	m := make(map[string]int, len(episodes))
	for i, ep := range episodes {
		if _, ok := m[ep]; !ok {
			m[ep] = i
		}
	}
	return m
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
