package selector

import (
	"fmt"

	"github.com/tessro/onetap/internal/core"
	apperr "github.com/tessro/onetap/internal/errors"
)

// PickShow chooses the next show for cross-show auto-advance.
//
// The show identified by currentID is left out when there is more than one
// show. Each remaining show is drawn with probability proportional to its
// weight (1.0 when unset).
func (s *Selector) PickShow(shows []core.Show, currentID string) (core.Show, error) {
	if len(shows) == 0 {
		return core.Show{}, fmt.Errorf("%w: no shows configured", apperr.ErrConfiguration)
	}

	pool := make([]core.Show, 0, len(shows))
	if len(shows) > 1 {
		for _, sh := range shows {
			if sh.ID != currentID {
				pool = append(pool, sh)
			}
		}
	}
	if len(pool) == 0 {
		pool = append(pool, shows...)
	}
	if len(pool) == 1 {
		return pool[0], nil
	}

	weights := make([]float64, len(pool))
	for i, sh := range pool {
		weights[i] = sh.EffectiveWeight()
	}

	pick := s.sampler.Sample(weights)
	if pick < 0 || pick >= len(pool) {
		pick = 0
	}
	return pool[pick], nil
}

// PickShow uses the default Selector.
func PickShow(shows []core.Show, currentID string) (core.Show, error) {
	return defaultSelector.PickShow(shows, currentID)
}
