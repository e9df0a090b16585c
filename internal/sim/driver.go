package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/guardiana/sentinel/internal/domain"
	"github.com/guardiana/sentinel/internal/notify"
)

// Signal bus channels the driver publishes on. The websocket hub subscribes
// to all of them.
const (
	ChannelBook     = "sentinel:book"
	ChannelTrades   = "sentinel:trades"
	ChannelAlerts   = "sentinel:alerts"
	ChannelPatterns = "sentinel:patterns"
	ChannelMetrics  = "sentinel:metrics"

	// StreamEvents is the durable stream every published event is appended to.
	StreamEvents = "sentinel:events"
)

// DriverConfig tunes the simulation cadence. Zero fields take defaults that
// match the dashboard the service was built for.
type DriverConfig struct {
	Seed            int64
	TickInterval    time.Duration // market tick, default 5s
	PatternInterval time.Duration // pattern injection, default 30s
	BasePrice       float64
	Depth           int
	Spread          float64
	VolumeScale     float64
	TradesPerTick   int     // default 2
	SeedTrades      int     // tape warm-up on start, default 15
	HistoryPoints   int     // back-filled history on start, default 21
	AlertThreshold  float64 // anomaly threshold per tick, default 0.7
	WarnScore       float64 // score above which a tick alert is a warning, default 0.85
}

func (c *DriverConfig) applyDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = 5 * time.Second
	}
	if c.PatternInterval <= 0 {
		c.PatternInterval = 30 * time.Second
	}
	if c.TradesPerTick <= 0 {
		c.TradesPerTick = 2
	}
	if c.SeedTrades <= 0 {
		c.SeedTrades = 15
	}
	if c.HistoryPoints <= 0 {
		c.HistoryPoints = 21
	}
	if c.AlertThreshold <= 0 {
		c.AlertThreshold = 0.7
	}
	if c.WarnScore <= 0 {
		c.WarnScore = 0.85
	}
}

// Stores bundles the optional persistence targets. Any nil store is skipped;
// headless sim mode runs with none.
type Stores struct {
	Alerts   domain.AlertStore
	Patterns domain.PatternStore
	Trades   domain.TradeStore
}

// Caches bundles the live-state caches the driver keeps warm.
type Caches struct {
	Book    domain.BookCache
	Tape    domain.TapeCache
	History domain.HistoryCache
	Metrics domain.MetricsCache
}

// Driver runs the simulation: a market tick that rebuilds the book and
// prints trades, and a slower pattern tick that injects one manipulation
// event. Results flow to the signal bus, the caches, the stores, and the
// notifier.
type Driver struct {
	cfg      DriverConfig
	engine   *Engine
	rng      *rand.Rand
	bus      domain.SignalBus
	caches   Caches
	stores   Stores
	notifier *notify.Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	mid     float64
	book    domain.OrderBook
	metrics domain.MarketMetrics
}

// NewDriver creates a driver. bus and caches are required; stores and
// notifier may be zero/nil for headless operation.
func NewDriver(
	cfg DriverConfig,
	engine *Engine,
	bus domain.SignalBus,
	caches Caches,
	stores Stores,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *Driver {
	cfg.applyDefaults()
	if cfg.BasePrice == 0 {
		cfg.BasePrice = DefaultBasePrice
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UTC().UnixNano()
	}
	return &Driver{
		cfg:      cfg,
		engine:   engine,
		rng:      rand.New(rand.NewSource(seed)),
		bus:      bus,
		caches:   caches,
		stores:   stores,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "sim_driver")),
		mid:      cfg.BasePrice,
		metrics: domain.MarketMetrics{
			Volatility:        0.015,
			Volume24h:         128750,
			PriceChange24h:    0.0245,
			AnomalyRate:       0.05,
			ManipulationScore: 18,
		},
	}
}

// Run seeds the initial state and drives both tickers until ctx is
// cancelled.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.seed(ctx); err != nil {
		return fmt.Errorf("sim driver: seed: %w", err)
	}

	d.logger.InfoContext(ctx, "simulation driver started",
		slog.Duration("tick_interval", d.cfg.TickInterval),
		slog.Duration("pattern_interval", d.cfg.PatternInterval),
	)
	defer d.logger.Info("simulation driver stopped")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(d.cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := d.tick(ctx); err != nil {
					d.logger.Warn("market tick failed", slog.String("error", err.Error()))
				}
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(d.cfg.PatternInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := d.TriggerPattern(ctx, ""); err != nil {
					d.logger.Warn("pattern injection failed", slog.String("error", err.Error()))
				}
			}
		}
	})

	return g.Wait()
}

// seed builds the initial book, a warm tape, and a back-filled price history
// so the dashboard has something to render before the first tick.
func (d *Driver) seed(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	book, err := d.engine.GenerateOrderBook(d.bookParams())
	if err != nil {
		return err
	}
	d.book = book

	trades, err := d.engine.GenerateTrades(book, d.cfg.SeedTrades)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for i := d.cfg.HistoryPoints - 1; i >= 0; i-- {
		point := domain.PricePoint{
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
			Price:     d.mid + (d.rng.Float64()-0.5)*1.5,
		}
		if err := d.caches.History.AppendPrice(ctx, point); err != nil {
			return err
		}
	}

	if err := d.caches.Book.SetBook(ctx, book); err != nil {
		return err
	}
	if err := d.caches.Tape.PushTrades(ctx, trades); err != nil {
		return err
	}
	if err := d.caches.Metrics.SetMetrics(ctx, d.metrics); err != nil {
		return err
	}

	d.publish(ctx, ChannelBook, "book_update", book)
	d.publish(ctx, ChannelTrades, "trades", trades)
	d.publishMetricsLocked(ctx)
	return nil
}

// tick advances the market: drift the mid, rebuild the book, print a couple
// of trades, score them, and raise an alert when something trips the
// detector.
func (d *Driver) tick(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.mid *= 1 + (d.rng.Float64()-0.5)*0.001
	book, err := d.engine.GenerateOrderBook(d.bookParams())
	if err != nil {
		return err
	}
	d.book = book

	trades, err := d.engine.GenerateTrades(book, d.cfg.TradesPerTick)
	if err != nil {
		return err
	}

	if err := d.caches.Book.SetBook(ctx, book); err != nil {
		return err
	}
	if err := d.caches.Tape.PushTrades(ctx, trades); err != nil {
		return err
	}
	point := domain.PricePoint{Timestamp: book.Timestamp, Price: book.MidPrice}
	if err := d.caches.History.AppendPrice(ctx, point); err != nil {
		return err
	}

	d.publish(ctx, ChannelBook, "book_update", book)
	d.publish(ctx, ChannelTrades, "trades", trades)

	flagged, err := d.engine.DetectAnomalies(trades, d.cfg.AlertThreshold)
	if err != nil {
		return err
	}
	if len(flagged) == 0 {
		return nil
	}

	level := domain.AlertInfo
	if flagged[0].AnomalyScore > d.cfg.WarnScore {
		level = domain.AlertWarning
	}
	alert := domain.DetectionAlert{
		ID:            uuid.Must(uuid.NewRandom()).String(),
		Timestamp:     time.Now().UTC(),
		Level:         level,
		Title:         "Unusual Trading Activity Detected",
		Description:   fmt.Sprintf("Anomalous trade patterns identified with confidence score of %.2f", flagged[0].AnomalyScore),
		RelatedTrades: flagged,
	}
	d.raiseAlert(ctx, "anomaly", alert, flagged)
	return nil
}

// TriggerPattern injects a manipulation pattern against the current book and
// raises a critical alert. An empty typ picks one of the four kinds at
// random; an unsupported typ returns domain.ErrInvalidPatternType.
func (d *Driver) TriggerPattern(ctx context.Context, typ domain.PatternType) (domain.ManipulationPattern, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if typ == "" {
		typ = domain.PatternTypes[d.rng.Intn(len(domain.PatternTypes))]
	}
	pattern, err := d.engine.InjectPattern(d.book, typ)
	if err != nil {
		return domain.ManipulationPattern{}, err
	}

	d.metrics.ManipulationScore = min100(d.metrics.ManipulationScore + 15 + 20*d.rng.Float64())
	if d.metrics.AnomalyRate += 0.05; d.metrics.AnomalyRate > 0.25 {
		d.metrics.AnomalyRate = 0.25
	}
	if err := d.caches.Metrics.SetMetrics(ctx, d.metrics); err != nil {
		d.logger.Warn("metrics cache write failed", slog.String("error", err.Error()))
	}

	if len(pattern.Trades) > 0 {
		if err := d.caches.Tape.PushTrades(ctx, pattern.Trades); err != nil {
			d.logger.Warn("tape push failed", slog.String("error", err.Error()))
		}
	}

	d.publish(ctx, ChannelPatterns, "pattern", pattern)
	d.publishMetricsLocked(ctx)

	if d.stores.Patterns != nil {
		if err := d.stores.Patterns.Insert(ctx, pattern); err != nil {
			d.logger.Warn("pattern persist failed", slog.String("error", err.Error()))
		}
	}

	name := strings.ReplaceAll(string(pattern.Type), "_", " ")
	description := pattern.Description()
	if description == "" {
		description = fmt.Sprintf("Market %s pattern identified with %.0f%% confidence", name, pattern.Confidence*100)
	}
	alert := domain.DetectionAlert{
		ID:            uuid.Must(uuid.NewRandom()).String(),
		Timestamp:     time.Now().UTC(),
		Level:         domain.AlertCritical,
		Title:         fmt.Sprintf("Potential %s detected", name),
		Description:   description,
		PatternType:   pattern.Type,
		RelatedTrades: pattern.Trades,
	}
	d.raiseAlert(ctx, "pattern", alert, pattern.Trades)

	d.logger.InfoContext(ctx, "pattern injected",
		slog.String("type", string(pattern.Type)),
		slog.Float64("confidence", pattern.Confidence),
		slog.Float64("manipulation_score", d.metrics.ManipulationScore),
		slog.String("risk", string(d.metrics.Risk())),
	)
	return pattern, nil
}

// Metrics returns a copy of the current market metrics.
func (d *Driver) Metrics() domain.MarketMetrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metrics
}

// raiseAlert publishes an alert, persists it plus any flagged trades, and
// forwards it to the notifier under the given event kind. Caller holds d.mu.
func (d *Driver) raiseAlert(ctx context.Context, event string, alert domain.DetectionAlert, flagged []domain.Trade) {
	d.publish(ctx, ChannelAlerts, "alert", alert)

	if d.stores.Alerts != nil {
		if err := d.stores.Alerts.Insert(ctx, alert); err != nil {
			d.logger.Warn("alert persist failed", slog.String("error", err.Error()))
		}
	}
	if d.stores.Trades != nil && len(flagged) > 0 {
		if err := d.stores.Trades.InsertBatch(ctx, flagged); err != nil {
			d.logger.Warn("flagged trade persist failed", slog.String("error", err.Error()))
		}
	}
	if d.notifier != nil {
		if err := d.notifier.Notify(ctx, event, alert); err != nil {
			d.logger.Warn("notification failed", slog.String("error", err.Error()))
		}
	}
}

// publishMetricsLocked publishes the metrics envelope with the derived risk
// level attached. Caller holds d.mu.
func (d *Driver) publishMetricsLocked(ctx context.Context) {
	d.publish(ctx, ChannelMetrics, "metrics", map[string]any{
		"metrics":    d.metrics,
		"risk_level": d.metrics.Risk(),
	})
}

// publish wraps payload in the standard envelope, publishes it on the given
// channel, and appends it to the durable event stream. Publish failures are
// logged, not fatal: a dropped frame only costs the dashboard one repaint.
func (d *Driver) publish(ctx context.Context, channel, typ string, payload any) {
	data, err := json.Marshal(map[string]any{
		"type":    typ,
		"payload": payload,
	})
	if err != nil {
		d.logger.Error("event marshal failed", slog.String("type", typ), slog.String("error", err.Error()))
		return
	}
	if err := d.bus.Publish(ctx, channel, data); err != nil {
		d.logger.Warn("event publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
	if err := d.bus.StreamAppend(ctx, StreamEvents, data); err != nil {
		d.logger.Warn("event stream append failed", slog.String("error", err.Error()))
	}
}

func (d *Driver) bookParams() BookParams {
	return BookParams{
		BasePrice:   d.mid,
		Depth:       d.cfg.Depth,
		Spread:      d.cfg.Spread,
		VolumeScale: d.cfg.VolumeScale,
	}
}

func min100(x float64) float64 {
	if x > 100 {
		return 100
	}
	return x
}
