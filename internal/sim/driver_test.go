package sim

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardiana/sentinel/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBus records published payloads per channel.
type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	stream    [][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: make(map[string][][]byte)}
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *fakeBus) StreamAppend(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stream = append(b.stream, payload)
	return nil
}

func (b *fakeBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func (b *fakeBus) count(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published[channel])
}

// memState is an in-memory stand-in for the Redis state cache.
type memState struct {
	mu      sync.Mutex
	book    *domain.OrderBook
	tape    []domain.Trade
	history []domain.PricePoint
	metrics *domain.MarketMetrics
}

func (s *memState) SetBook(_ context.Context, book domain.OrderBook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book = &book
	return nil
}

func (s *memState) GetBook(context.Context) (domain.OrderBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.book == nil {
		return domain.OrderBook{}, domain.ErrNotFound
	}
	return *s.book, nil
}

func (s *memState) PushTrades(_ context.Context, trades []domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tape = append(trades, s.tape...)
	return nil
}

func (s *memState) RecentTrades(_ context.Context, limit int) ([]domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.tape) {
		limit = len(s.tape)
	}
	return s.tape[:limit], nil
}

func (s *memState) AppendPrice(_ context.Context, point domain.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, point)
	return nil
}

func (s *memState) PriceHistory(context.Context) ([]domain.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history, nil
}

func (s *memState) SetMetrics(_ context.Context, m domain.MarketMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = &m
	return nil
}

func (s *memState) GetMetrics(context.Context) (domain.MarketMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metrics == nil {
		return domain.MarketMetrics{}, domain.ErrNotFound
	}
	return *s.metrics, nil
}

// memStores records persisted records.
type memStores struct {
	mu       sync.Mutex
	alerts   []domain.DetectionAlert
	patterns []domain.ManipulationPattern
	trades   []domain.Trade
}

func (s *memStores) Insert(_ context.Context, alert domain.DetectionAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *memStores) ListRecent(context.Context, domain.ListOpts) ([]domain.DetectionAlert, error) {
	return nil, nil
}

func (s *memStores) ListBefore(context.Context, time.Time) ([]domain.DetectionAlert, error) {
	return nil, nil
}

func (s *memStores) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type memPatternStore struct{ s *memStores }

func (p memPatternStore) Insert(_ context.Context, pattern domain.ManipulationPattern) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.patterns = append(p.s.patterns, pattern)
	return nil
}

func (p memPatternStore) ListRecent(context.Context, domain.ListOpts) ([]domain.ManipulationPattern, error) {
	return nil, nil
}

func (p memPatternStore) ListBefore(context.Context, time.Time) ([]domain.ManipulationPattern, error) {
	return nil, nil
}

func (p memPatternStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type memTradeStore struct{ s *memStores }

func (t memTradeStore) InsertBatch(_ context.Context, trades []domain.Trade) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.trades = append(t.s.trades, trades...)
	return nil
}

func (t memTradeStore) ListRecent(context.Context, domain.ListOpts) ([]domain.Trade, error) {
	return nil, nil
}

func (t memTradeStore) ListBefore(context.Context, time.Time) ([]domain.Trade, error) {
	return nil, nil
}

func (t memTradeStore) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func testDriver(t *testing.T) (*Driver, *fakeBus, *memState, *memStores) {
	t.Helper()

	bus := newFakeBus()
	state := &memState{}
	stores := &memStores{}

	d := NewDriver(
		DriverConfig{Seed: 42},
		NewEngine(Config{Seed: 42}),
		bus,
		Caches{Book: state, Tape: state, History: state, Metrics: state},
		Stores{
			Alerts:   stores,
			Patterns: memPatternStore{stores},
			Trades:   memTradeStore{stores},
		},
		nil,
		discardLogger(),
	)
	return d, bus, state, stores
}

func TestDriverSeed(t *testing.T) {
	d, bus, state, _ := testDriver(t)
	ctx := context.Background()

	require.NoError(t, d.seed(ctx))

	book, err := state.GetBook(ctx)
	require.NoError(t, err)
	assert.Len(t, book.Bids, DefaultDepth)
	assert.Equal(t, DefaultBasePrice, book.MidPrice)

	assert.Len(t, state.tape, 15)
	assert.Len(t, state.history, 21)

	// History is back-filled oldest first, one minute apart.
	for i := 1; i < len(state.history); i++ {
		assert.Equal(t, time.Minute, state.history[i].Timestamp.Sub(state.history[i-1].Timestamp))
	}

	metrics, err := state.GetMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 18.0, metrics.ManipulationScore)

	assert.Equal(t, 1, bus.count(ChannelBook))
	assert.Equal(t, 1, bus.count(ChannelTrades))
	assert.Equal(t, 1, bus.count(ChannelMetrics))
}

func TestDriverTick(t *testing.T) {
	d, bus, state, _ := testDriver(t)
	ctx := context.Background()

	require.NoError(t, d.seed(ctx))
	require.NoError(t, d.tick(ctx))

	assert.Len(t, state.tape, 17)
	assert.Len(t, state.history, 22)
	assert.Equal(t, 2, bus.count(ChannelBook))
	assert.Equal(t, 2, bus.count(ChannelTrades))

	// The mid drifts at most 0.05% per tick.
	book, err := state.GetBook(ctx)
	require.NoError(t, err)
	assert.InDelta(t, DefaultBasePrice, book.MidPrice, DefaultBasePrice*0.0006)
}

func TestDriverTriggerPattern(t *testing.T) {
	d, bus, state, stores := testDriver(t)
	ctx := context.Background()

	require.NoError(t, d.seed(ctx))

	before := d.Metrics()
	pattern, err := d.TriggerPattern(ctx, domain.PatternWash)
	require.NoError(t, err)

	assert.Equal(t, domain.PatternWash, pattern.Type)
	require.Len(t, pattern.Trades, 10)

	after := d.Metrics()
	assert.GreaterOrEqual(t, after.ManipulationScore, before.ManipulationScore+15)
	assert.LessOrEqual(t, after.ManipulationScore, before.ManipulationScore+35)
	assert.InDelta(t, before.AnomalyRate+0.05, after.AnomalyRate, 1e-9)

	// Pattern trades land on the tape in front of the seeded prints.
	assert.Len(t, state.tape, 25)

	require.Len(t, stores.patterns, 1)
	require.Len(t, stores.alerts, 1)
	alert := stores.alerts[0]
	assert.Equal(t, domain.AlertCritical, alert.Level)
	assert.Equal(t, "Potential wash detected", alert.Title)
	assert.Equal(t, domain.PatternWash, alert.PatternType)
	assert.Len(t, stores.trades, 10)

	assert.Equal(t, 1, bus.count(ChannelPatterns))
	assert.Equal(t, 1, bus.count(ChannelAlerts))
}

func TestDriverTriggerPatternTitleSpacing(t *testing.T) {
	d, _, _, stores := testDriver(t)
	ctx := context.Background()

	require.NoError(t, d.seed(ctx))

	_, err := d.TriggerPattern(ctx, domain.PatternMomentumIgnition)
	require.NoError(t, err)

	require.Len(t, stores.alerts, 1)
	assert.Equal(t, "Potential momentum ignition detected", stores.alerts[0].Title)
}

func TestDriverTriggerPatternInvalidType(t *testing.T) {
	d, _, _, _ := testDriver(t)

	_, err := d.TriggerPattern(context.Background(), "pump_and_dump")
	assert.ErrorIs(t, err, domain.ErrInvalidPatternType)
}

func TestDriverTriggerPatternRandomType(t *testing.T) {
	d, _, _, stores := testDriver(t)
	ctx := context.Background()

	require.NoError(t, d.seed(ctx))

	pattern, err := d.TriggerPattern(ctx, "")
	require.NoError(t, err)
	assert.True(t, pattern.Type.Valid())
	assert.Len(t, stores.patterns, 1)
}

func TestDriverScoreCap(t *testing.T) {
	d, _, _, _ := testDriver(t)
	ctx := context.Background()

	require.NoError(t, d.seed(ctx))

	for i := 0; i < 10; i++ {
		_, err := d.TriggerPattern(ctx, domain.PatternSpoofing)
		require.NoError(t, err)
	}

	m := d.Metrics()
	assert.LessOrEqual(t, m.ManipulationScore, 100.0)
	assert.LessOrEqual(t, m.AnomalyRate, 0.25)
	assert.Equal(t, domain.RiskHigh, m.Risk())
}
