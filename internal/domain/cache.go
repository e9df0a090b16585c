package domain

import (
	"context"
	"time"
)

// RateLimiter throttles requests per key over a sliding window.
type RateLimiter interface {
	// Allow reports whether a request for key is permitted under the limit,
	// counting the request when it is.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// BookCache stores the latest order book snapshot.
type BookCache interface {
	SetBook(ctx context.Context, book OrderBook) error
	GetBook(ctx context.Context) (OrderBook, error)
}

// TapeCache stores the rolling trade tape, newest first, capped by the
// implementation.
type TapeCache interface {
	PushTrades(ctx context.Context, trades []Trade) error
	RecentTrades(ctx context.Context, limit int) ([]Trade, error)
}

// HistoryCache stores the rolling mid price history, oldest first.
type HistoryCache interface {
	AppendPrice(ctx context.Context, point PricePoint) error
	PriceHistory(ctx context.Context) ([]PricePoint, error)
}

// MetricsCache stores the current market metrics.
type MetricsCache interface {
	SetMetrics(ctx context.Context, m MarketMetrics) error
	GetMetrics(ctx context.Context) (MarketMetrics, error)
}

// StreamMessage is a single entry read back from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub fan-out plus a durable event stream.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
