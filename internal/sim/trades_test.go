package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardiana/sentinel/internal/domain"
)

func TestGenerateTrades(t *testing.T) {
	e := testEngine(t, 42)

	book, err := e.GenerateOrderBook(BookParams{})
	require.NoError(t, err)

	trades, err := e.GenerateTrades(book, 50)
	require.NoError(t, err)
	require.Len(t, trades, 50)

	levelVolume := make(map[float64]int64)
	for _, lvl := range append(book.Bids, book.Asks...) {
		levelVolume[lvl.Price] = lvl.Volume
	}
	topPrices := make(map[float64]bool)
	for i := 0; i < topLevels; i++ {
		topPrices[book.Bids[i].Price] = true
		topPrices[book.Asks[i].Price] = true
	}

	seen := make(map[string]bool)
	for _, tr := range trades {
		assert.False(t, seen[tr.ID], "duplicate trade id")
		seen[tr.ID] = true

		assert.True(t, topPrices[tr.Price], "trade price %v not among top levels", tr.Price)
		assert.False(t, tr.Malicious)
		assert.Zero(t, tr.AnomalyScore)

		// Size is between 10% and 50% of the level's displayed volume.
		vol := float64(levelVolume[tr.Price])
		assert.GreaterOrEqual(t, float64(tr.Size), math.Floor(0.1*vol))
		assert.LessOrEqual(t, float64(tr.Size), math.Ceil(0.5*vol))

		if tr.Side == domain.SideBuy {
			assert.Greater(t, tr.Price, book.MidPrice)
		} else {
			assert.Less(t, tr.Price, book.MidPrice)
		}
	}
}

func TestGenerateTradesEmptyBook(t *testing.T) {
	e := testEngine(t, 1)

	trades, err := e.GenerateTrades(domain.OrderBook{}, 5)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestGenerateTradesOneSidedBook(t *testing.T) {
	e := testEngine(t, 5)

	book := domain.OrderBook{
		MidPrice: 100,
		Asks: []domain.PriceLevel{
			{Price: 101, Volume: 100},
		},
	}

	trades, err := e.GenerateTrades(book, 20)
	require.NoError(t, err)
	require.Len(t, trades, 20)
	for _, tr := range trades {
		assert.Equal(t, domain.SideBuy, tr.Side)
		assert.Equal(t, 101.0, tr.Price)
	}
}

func TestGenerateTradesNegativeCount(t *testing.T) {
	e := testEngine(t, 1)

	book, err := e.GenerateOrderBook(BookParams{})
	require.NoError(t, err)

	_, err = e.GenerateTrades(book, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestGenerateTradesZeroCount(t *testing.T) {
	e := testEngine(t, 1)

	book, err := e.GenerateOrderBook(BookParams{})
	require.NoError(t, err)

	trades, err := e.GenerateTrades(book, 0)
	require.NoError(t, err)
	assert.Empty(t, trades)
}
