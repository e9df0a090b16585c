package sim

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/guardiana/sentinel/internal/domain"
)

// topLevels is how deep into the book trade sampling reaches on each side.
const topLevels = 3

// GenerateTrades samples count trades against the book's near levels. Each
// trade flips a fair coin for side, picks uniformly among the nearest three
// levels on that side, prints at that level's price, and sizes between 10%
// and 50% of the level's displayed volume. When the chosen side is empty the
// opposite side is used; an entirely empty book yields an empty tape.
func (e *Engine) GenerateTrades(book domain.OrderBook, count int) ([]domain.Trade, error) {
	if count < 0 {
		return nil, fmt.Errorf("sim: trade count %d: %w", count, domain.ErrInvalidParameter)
	}
	if len(book.Bids) == 0 && len(book.Asks) == 0 {
		return nil, nil
	}

	trades := make([]domain.Trade, 0, count)
	for i := 0; i < count; i++ {
		side := domain.SideSell
		levels := book.Bids
		if e.coin() {
			side = domain.SideBuy
			levels = book.Asks
		}
		if len(levels) == 0 {
			side = side.Opposite()
			if side == domain.SideBuy {
				levels = book.Asks
			} else {
				levels = book.Bids
			}
		}

		n := topLevels
		if len(levels) < n {
			n = len(levels)
		}
		lvl := levels[e.rng.Intn(n)]

		trades = append(trades, domain.Trade{
			ID:        uuid.Must(uuid.NewRandom()).String(),
			Timestamp: e.now(),
			Price:     lvl.Price,
			Size:      int64(math.Round(float64(lvl.Volume) * (0.1 + 0.4*e.uniform()))),
			Side:      side,
			Malicious: false,
		})
	}
	return trades, nil
}
