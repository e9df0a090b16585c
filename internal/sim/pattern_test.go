package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardiana/sentinel/internal/domain"
)

func patternBook(t *testing.T, e *Engine) domain.OrderBook {
	t.Helper()
	book, err := e.GenerateOrderBook(BookParams{})
	require.NoError(t, err)
	return book
}

func TestInjectPatternInvalidType(t *testing.T) {
	e := testEngine(t, 1)

	_, err := e.InjectPattern(patternBook(t, e), "front_running")
	assert.ErrorIs(t, err, domain.ErrInvalidPatternType)
}

func TestInjectPatternCommonShape(t *testing.T) {
	e := testEngine(t, 42)
	book := patternBook(t, e)

	for _, typ := range domain.PatternTypes {
		p, err := e.InjectPattern(book, typ)
		require.NoError(t, err, "type %s", typ)

		assert.Equal(t, typ, p.Type)
		assert.GreaterOrEqual(t, p.Confidence, 0.75)
		assert.Less(t, p.Confidence, 0.95)
		assert.NotEmpty(t, p.Description())
		assert.False(t, p.Timestamp.IsZero())
	}
}

func TestInjectSpoofing(t *testing.T) {
	e := testEngine(t, 42)
	book := patternBook(t, e)

	p, err := e.InjectPattern(book, domain.PatternSpoofing)
	require.NoError(t, err)

	assert.Equal(t, domain.ImpactHigh, p.Impact)
	assert.Equal(t, "0.95", p.Details["cancel_probability"])
	assert.Empty(t, p.Trades)
	require.Len(t, p.Orders, 1)

	o := p.Orders[0]
	assert.Equal(t, p.Side, o.Side)
	assert.GreaterOrEqual(t, o.Volume, int64(1000))
	assert.LessOrEqual(t, o.Volume, int64(10000))
	assert.GreaterOrEqual(t, o.Lifespan, 500*time.Millisecond)
	assert.LessOrEqual(t, o.Lifespan, 2500*time.Millisecond)

	// The spoof order sits 2-8% away from mid, outside the visible ladder.
	if o.Side == domain.SideBuy {
		assert.Less(t, o.Price, book.MidPrice*0.951)
		assert.GreaterOrEqual(t, o.Price, round2(book.MidPrice*0.92))
	} else {
		assert.GreaterOrEqual(t, o.Price, book.MidPrice*1.05)
		assert.LessOrEqual(t, o.Price, round2(book.MidPrice*1.08))
	}
}

func TestInjectLayering(t *testing.T) {
	e := testEngine(t, 7)
	book := patternBook(t, e)

	p, err := e.InjectPattern(book, domain.PatternLayering)
	require.NoError(t, err)

	assert.Equal(t, domain.ImpactHigh, p.Impact)
	assert.Equal(t, "4", p.Details["layers"])
	assert.Empty(t, p.Trades)
	require.Len(t, p.Orders, 4)

	for i, o := range p.Orders {
		assert.Equal(t, p.Side, o.Side)
		assert.GreaterOrEqual(t, o.Volume, int64(500))
		assert.LessOrEqual(t, o.Volume, int64(2000))

		// Layers step 0.5% of mid further from the touch.
		step := float64(i) * 0.005
		if p.Side == domain.SideBuy {
			assert.Equal(t, round2(book.MidPrice*(0.97-step)), o.Price)
		} else {
			assert.Equal(t, round2(book.MidPrice*(1.03+step)), o.Price)
		}
	}
}

func TestInjectWashTrading(t *testing.T) {
	e := testEngine(t, 11)
	book := patternBook(t, e)

	p, err := e.InjectPattern(book, domain.PatternWash)
	require.NoError(t, err)

	assert.Equal(t, domain.ImpactMedium, p.Impact)
	assert.Empty(t, p.Orders)
	assert.Empty(t, p.Side)
	require.Len(t, p.Trades, 10)

	entity := p.Trades[0].Entity
	require.NotEmpty(t, entity)
	assert.Equal(t, entity, p.Details["entity_id"])

	for i := 0; i < 10; i += 2 {
		buy, sell := p.Trades[i], p.Trades[i+1]

		assert.Equal(t, domain.SideBuy, buy.Side)
		assert.Equal(t, domain.SideSell, sell.Side)
		assert.Equal(t, buy.Price, sell.Price)
		assert.Equal(t, buy.Size, sell.Size)
		assert.Equal(t, entity, buy.Entity)
		assert.Equal(t, entity, sell.Entity)
		assert.True(t, buy.Malicious)
		assert.True(t, sell.Malicious)
		assert.Equal(t, 100*time.Millisecond, sell.Timestamp.Sub(buy.Timestamp))

		assert.GreaterOrEqual(t, buy.Size, int64(100))
		assert.LessOrEqual(t, buy.Size, int64(400))
		assert.InDelta(t, book.MidPrice, buy.Price, book.MidPrice*0.0011)
	}
}

func TestInjectMomentumIgnition(t *testing.T) {
	e := testEngine(t, 3)
	book := patternBook(t, e)

	p, err := e.InjectPattern(book, domain.PatternMomentumIgnition)
	require.NoError(t, err)

	assert.Equal(t, domain.ImpactHigh, p.Impact)
	assert.Empty(t, p.Orders)
	require.Len(t, p.Trades, 3)

	bestBid, _ := book.BestBid()
	bestAsk, _ := book.BestAsk()

	want := round2(bestBid.Price * 0.997)
	if p.Side == domain.SideBuy {
		want = round2(bestAsk.Price * 1.003)
	}

	for i, tr := range p.Trades {
		assert.Equal(t, p.Side, tr.Side)
		assert.Equal(t, want, tr.Price)
		assert.True(t, tr.Malicious)
		assert.GreaterOrEqual(t, tr.Size, int64(300))
		assert.LessOrEqual(t, tr.Size, int64(1000))
		assert.Equal(t, time.Duration(i)*200*time.Millisecond, tr.Timestamp.Sub(p.Trades[0].Timestamp))
	}
}
