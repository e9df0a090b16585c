package sim

import (
	"fmt"
	"math"

	"github.com/guardiana/sentinel/internal/domain"
)

// Default ladder parameters, applied when a BookParams field is zero.
const (
	DefaultBasePrice   = 100.0
	DefaultDepth       = 10
	DefaultSpread      = 0.05
	DefaultVolumeScale = 100.0
)

// BookParams selects the shape of a generated ladder. Zero fields take the
// package defaults.
type BookParams struct {
	BasePrice   float64
	Depth       int
	Spread      float64
	VolumeScale float64
}

func (p *BookParams) applyDefaults() {
	if p.BasePrice == 0 {
		p.BasePrice = DefaultBasePrice
	}
	if p.Depth == 0 {
		p.Depth = DefaultDepth
	}
	if p.Spread == 0 {
		p.Spread = DefaultSpread
	}
	if p.VolumeScale == 0 {
		p.VolumeScale = DefaultVolumeScale
	}
}

func (p BookParams) validate() error {
	if p.Depth < 0 {
		return fmt.Errorf("sim: depth %d: %w", p.Depth, domain.ErrInvalidParameter)
	}
	if p.BasePrice < 0 || p.Spread < 0 || p.VolumeScale < 0 {
		return fmt.Errorf("sim: negative book parameter: %w", domain.ErrInvalidParameter)
	}
	return nil
}

// GenerateOrderBook builds a fresh two-sided ladder around p.BasePrice.
// Level i sits spread*(i+1) away from the base price, so the ladder prices
// are deterministic for fixed params; only the volumes vary. Bids come back
// sorted descending, asks ascending, and MidPrice is the base price itself.
func (e *Engine) GenerateOrderBook(p BookParams) (domain.OrderBook, error) {
	p.applyDefaults()
	if err := p.validate(); err != nil {
		return domain.OrderBook{}, err
	}

	bids := make([]domain.PriceLevel, 0, p.Depth)
	asks := make([]domain.PriceLevel, 0, p.Depth)
	for i := 0; i < p.Depth; i++ {
		offset := p.Spread * float64(i+1)
		bids = append(bids, domain.PriceLevel{
			Price:  round2(p.BasePrice - offset),
			Volume: int64(math.Round(p.VolumeScale * (1 + e.uniform()))),
		})
		asks = append(asks, domain.PriceLevel{
			Price:  round2(p.BasePrice + offset),
			Volume: int64(math.Round(p.VolumeScale * (1 + e.uniform()))),
		})
	}

	// Built in increasing distance from mid: bids are already descending,
	// asks ascending.
	return domain.OrderBook{
		Bids:      bids,
		Asks:      asks,
		MidPrice:  p.BasePrice,
		Timestamp: e.now(),
	}, nil
}
