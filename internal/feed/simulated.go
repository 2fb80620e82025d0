package feed

import (
	"context"
	"math"
	"math/rand"
	"sync"
)

// Simulated is a random-walk price source for local runs and tests.
// Log returns are drawn from a normal distribution scaled to the
// configured per-tick volatility.
type Simulated struct {
	name    string
	mu      sync.Mutex
	rng     *rand.Rand
	price   float64
	stepVol float64
}

var _ Source = (*Simulated)(nil)

// NewSimulated creates a simulated source starting at the given price.
// stepVol is the standard deviation of one tick's log return.
func NewSimulated(startPrice, stepVol float64, seed int64) *Simulated {
	return &Simulated{
		name:    "simulated",
		rng:     rand.New(rand.NewSource(seed)),
		price:   startPrice,
		stepVol: stepVol,
	}
}

func (s *Simulated) Name() string { return s.name }

// Price advances the walk one step and returns the new price together
// with a synthetic volume.
func (s *Simulated) Price(ctx context.Context) (float64, float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.price *= math.Exp(s.rng.NormFloat64() * s.stepVol)
	volume := 0.5 + s.rng.Float64()*4.5
	return s.price, volume, nil
}

func (s *Simulated) Healthy() bool { return true }
