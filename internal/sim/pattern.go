package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/guardiana/sentinel/internal/domain"
)

// InjectPattern fabricates one self-consistent manipulation event of the
// given kind against the current book. Spoofing and layering populate
// Orders; wash and momentum_ignition populate Trades; the other slice stays
// empty. Confidence always lands in [0.75, 0.95).
func (e *Engine) InjectPattern(book domain.OrderBook, typ domain.PatternType) (domain.ManipulationPattern, error) {
	if !typ.Valid() {
		return domain.ManipulationPattern{}, fmt.Errorf("sim: pattern type %q: %w", typ, domain.ErrInvalidPatternType)
	}

	p := domain.ManipulationPattern{
		Timestamp:  e.now(),
		Type:       typ,
		Confidence: 0.75 + 0.2*e.uniform(),
		Impact:     domain.ImpactHigh,
		Details:    map[string]string{},
		Orders:     []domain.ManipulationOrder{},
		Trades:     []domain.Trade{},
	}

	switch typ {
	case domain.PatternSpoofing:
		e.buildSpoofing(&p, book)
	case domain.PatternLayering:
		e.buildLayering(&p, book)
	case domain.PatternWash:
		p.Impact = domain.ImpactMedium
		e.buildWash(&p, book)
	case domain.PatternMomentumIgnition:
		e.buildMomentumIgnition(&p, book)
	}
	return p, nil
}

// buildSpoofing places one oversized order 2-8% away from mid, beyond the
// visible ladder. The order is never executed; the cancel probability is
// documentary only.
func (e *Engine) buildSpoofing(p *domain.ManipulationPattern, book domain.OrderBook) {
	side := domain.SideSell
	if e.coin() {
		side = domain.SideBuy
	}
	price := book.MidPrice * (1.05 + 0.03*e.uniform())
	if side == domain.SideBuy {
		price = book.MidPrice * (0.95 - 0.03*e.uniform())
	}

	p.Side = side
	p.Details["description"] = "Large order placed far from midpoint, likely to be canceled"
	p.Details["side"] = string(side)
	p.Details["cancel_probability"] = "0.95"
	p.Orders = append(p.Orders, domain.ManipulationOrder{
		ID:       uuid.Must(uuid.NewRandom()).String(),
		Side:     side,
		Price:    round2(price),
		Volume:   int64(math.Round(1000 + 9000*e.uniform())),
		Lifespan: time.Duration(math.Round(500+2000*e.uniform())) * time.Millisecond,
	})
}

// buildLayering stacks four same-side orders at geometrically offset prices
// to fabricate depth, starting 3% away from mid and stepping 0.5% of mid per
// layer.
func (e *Engine) buildLayering(p *domain.ManipulationPattern, book domain.OrderBook) {
	side := domain.SideSell
	base := 1.03
	if e.coin() {
		side = domain.SideBuy
		base = 0.97
	}

	p.Side = side
	p.Details["description"] = "Multiple orders at different price levels on one side of the book"
	p.Details["side"] = string(side)
	p.Details["layers"] = "4"
	for i := 0; i < 4; i++ {
		adj := base + float64(i)*0.005
		if side == domain.SideBuy {
			adj = base - float64(i)*0.005
		}
		p.Orders = append(p.Orders, domain.ManipulationOrder{
			ID:       uuid.Must(uuid.NewRandom()).String(),
			Side:     side,
			Price:    round2(book.MidPrice * adj),
			Volume:   int64(math.Round(500 + 1500*e.uniform())),
			Lifespan: time.Duration(math.Round(800+1500*e.uniform())) * time.Millisecond,
		})
	}
}

// buildWash emits five buy/sell pairs from a single fictitious entity. Each
// pair shares a perturbed price and volume; the sell prints 100ms after the
// buy so the pair is visibly simultaneous on the tape.
func (e *Engine) buildWash(p *domain.ManipulationPattern, book domain.OrderBook) {
	entity := fmt.Sprintf("entity-%d", e.rng.Intn(1000))
	p.Details["description"] = "Same entity trading with itself to create false impression of market activity"
	p.Details["entity_id"] = entity

	now := e.now()
	for i := 0; i < 5; i++ {
		price := round2(book.MidPrice * (0.999 + 0.002*e.uniform()))
		volume := int64(math.Round(100 + 300*e.uniform()))
		p.Trades = append(p.Trades,
			domain.Trade{
				ID:        uuid.Must(uuid.NewRandom()).String(),
				Timestamp: now,
				Price:     price,
				Size:      volume,
				Side:      domain.SideBuy,
				Entity:    entity,
				Malicious: true,
			},
			domain.Trade{
				ID:        uuid.Must(uuid.NewRandom()).String(),
				Timestamp: now.Add(100 * time.Millisecond),
				Price:     price,
				Size:      volume,
				Side:      domain.SideSell,
				Entity:    entity,
				Malicious: true,
			},
		)
	}
}

// buildMomentumIgnition fires three aggressive same-side trades pinned just
// beyond the best quote, 200ms apart, to mimic a stop-hunting burst.
func (e *Engine) buildMomentumIgnition(p *domain.ManipulationPattern, book domain.OrderBook) {
	side := domain.SideSell
	if e.coin() {
		side = domain.SideBuy
	}

	price := book.MidPrice
	if side == domain.SideBuy {
		if best, ok := book.BestAsk(); ok {
			price = best.Price * 1.003
		}
	} else {
		if best, ok := book.BestBid(); ok {
			price = best.Price * 0.997
		}
	}
	price = round2(price)

	p.Side = side
	p.Details["description"] = "Aggressive orders to trigger price momentum and algorithm responses"
	p.Details["side"] = string(side)
	p.Details["target"] = "stop orders and algorithms"

	now := e.now()
	for i := 0; i < 3; i++ {
		p.Trades = append(p.Trades, domain.Trade{
			ID:        uuid.Must(uuid.NewRandom()).String(),
			Timestamp: now.Add(time.Duration(i) * 200 * time.Millisecond),
			Price:     price,
			Size:      int64(math.Round(300 + 700*e.uniform())),
			Side:      side,
			Malicious: true,
		})
	}
}
