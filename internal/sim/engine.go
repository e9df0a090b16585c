// Package sim implements the synthetic market engine: order book
// generation, trade sampling, manipulation pattern injection, and the toy
// anomaly scorer. All output is fabricated; nothing here touches a real
// venue.
package sim

import (
	"math"
	"math/rand"
	"time"
)

// Config controls engine randomness and time.
type Config struct {
	// Seed initialises the random source. Zero seeds from the clock.
	Seed int64

	// Now supplies timestamps; defaults to time.Now in UTC. Tests pin it.
	Now func() time.Time
}

// Engine produces synthetic market data. It is NOT safe for concurrent use;
// callers that share an Engine across goroutines must serialise access (the
// Driver does).
type Engine struct {
	rng *rand.Rand
	now func() time.Time
}

// NewEngine creates an engine from cfg.
func NewEngine(cfg Config) *Engine {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		rng: rand.New(rand.NewSource(cfg.Seed)),
		now: now,
	}
}

// uniform returns a draw from [0, 1).
func (e *Engine) uniform() float64 {
	return e.rng.Float64()
}

// coin returns buy-or-not with equal probability.
func (e *Engine) coin() bool {
	return e.rng.Float64() > 0.5
}

// round2 rounds to two decimal places, the display precision of every
// generated price.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
