package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guardiana/sentinel/internal/server"
	"github.com/guardiana/sentinel/internal/server/handler"
	"github.com/guardiana/sentinel/internal/server/ws"
	"github.com/guardiana/sentinel/internal/sim"
)

// newDriver builds the simulation engine and driver from the configuration.
func (a *App) newDriver(deps *Dependencies) *sim.Driver {
	engine := sim.NewEngine(sim.Config{Seed: a.cfg.Simulation.Seed})

	return sim.NewDriver(
		sim.DriverConfig{
			Seed:            a.cfg.Simulation.Seed,
			TickInterval:    a.cfg.Simulation.TickInterval.Duration,
			PatternInterval: a.cfg.Simulation.PatternInterval.Duration,
			BasePrice:       a.cfg.Simulation.BasePrice,
			Depth:           a.cfg.Simulation.Depth,
			Spread:          a.cfg.Simulation.Spread,
			VolumeScale:     a.cfg.Simulation.VolumeScale,
			TradesPerTick:   a.cfg.Simulation.TradesPerTick,
			AlertThreshold:  a.cfg.Simulation.AlertThreshold,
			WarnScore:       a.cfg.Simulation.WarnScore,
		},
		engine,
		deps.SignalBus,
		sim.Caches{
			Book:    deps.BookCache,
			Tape:    deps.TapeCache,
			History: deps.HistoryCache,
			Metrics: deps.MetricsCache,
		},
		sim.Stores{
			Alerts:   deps.AlertStore,
			Patterns: deps.PatternStore,
			Trades:   deps.TradeStore,
		},
		deps.Notifier,
		a.logger,
	)
}

// ServeMode runs the full service: the simulation driver, the WebSocket hub,
// the HTTP API, and the archiver when enabled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	driver := a.newDriver(deps)
	g.Go(func() error {
		return driver.Run(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		hub := ws.NewHub(deps.SignalBus, ws.Config{
			Mode: a.cfg.Mode,
			Channels: []string{
				sim.ChannelBook,
				sim.ChannelTrades,
				sim.ChannelAlerts,
				sim.ChannelPatterns,
				sim.ChannelMetrics,
			},
			StartedAt: time.Now().UTC(),
		}, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})

		handlers := server.Handlers{
			Health: handler.NewHealthHandler(map[string]handler.Pinger{
				"redis":    deps.Redis,
				"postgres": deps.Postgres,
			}, a.logger),
			Market:   handler.NewMarketHandler(deps.BookCache, deps.HistoryCache, deps.MetricsCache, a.logger),
			Trades:   handler.NewTradeHandler(deps.TapeCache, deps.TradeStore, a.logger),
			Alerts:   handler.NewAlertHandler(deps.AlertStore, a.logger),
			Patterns: handler.NewPatternHandler(deps.PatternStore, driver, a.logger),
		}

		srv := server.NewServer(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
		}, handlers, hub, deps.RateLimiter, a.logger)

		g.Go(func() error {
			return srv.Start()
		})
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	return g.Wait()
}

// SimMode runs the simulation driver headless, publishing to Redis only. No
// HTTP server, no persistence, no archiving.
func (a *App) SimMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sim mode",
		slog.Int64("seed", a.cfg.Simulation.Seed),
	)

	driver := a.newDriver(deps)
	return driver.Run(ctx)
}
