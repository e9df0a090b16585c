package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/guardiana/sentinel/internal/domain"
)

// Key schema:
//
//	sentinel:book     - JSON string, latest order book snapshot
//	sentinel:tape     - list of JSON trades, newest first, trimmed to tapeLimit
//	sentinel:history  - list of JSON price points, oldest first, trimmed to historyLimit
//	sentinel:metrics  - JSON string, current market metrics
const (
	bookKey    = "sentinel:book"
	tapeKey    = "sentinel:tape"
	historyKey = "sentinel:history"
	metricsKey = "sentinel:metrics"
)

// Rolling caps mirrored from the dashboard: 25 tape rows, 30 history points.
const (
	tapeLimit    = 25
	historyLimit = 30
)

// StateCache implements domain.BookCache, domain.TapeCache,
// domain.HistoryCache and domain.MetricsCache on a single Redis client. All
// simulation live state lives under the sentinel:* keys.
type StateCache struct {
	rdb *redis.Client
}

// NewStateCache creates a StateCache backed by the given Client.
func NewStateCache(c *Client) *StateCache {
	return &StateCache{rdb: c.Underlying()}
}

// SetBook replaces the latest order book snapshot.
func (sc *StateCache) SetBook(ctx context.Context, book domain.OrderBook) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("redis: marshal book: %w", err)
	}
	if err := sc.rdb.Set(ctx, bookKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set book: %w", err)
	}
	return nil
}

// GetBook returns the latest order book snapshot, or domain.ErrNotFound when
// no snapshot has been written yet.
func (sc *StateCache) GetBook(ctx context.Context) (domain.OrderBook, error) {
	data, err := sc.rdb.Get(ctx, bookKey).Bytes()
	if err == redis.Nil {
		return domain.OrderBook{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("redis: get book: %w", err)
	}
	var book domain.OrderBook
	if err := json.Unmarshal(data, &book); err != nil {
		return domain.OrderBook{}, fmt.Errorf("redis: unmarshal book: %w", err)
	}
	return book, nil
}

// PushTrades prepends trades to the tape (newest first) and trims it to the
// rolling cap. Trades are pushed in reverse so the first element of the
// input ends up at the head of the list.
func (sc *StateCache) PushTrades(ctx context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	values := make([]any, 0, len(trades))
	for i := len(trades) - 1; i >= 0; i-- {
		data, err := json.Marshal(trades[i])
		if err != nil {
			return fmt.Errorf("redis: marshal trade %s: %w", trades[i].ID, err)
		}
		values = append(values, data)
	}

	pipe := sc.rdb.TxPipeline()
	pipe.LPush(ctx, tapeKey, values...)
	pipe.LTrim(ctx, tapeKey, 0, tapeLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: push trades: %w", err)
	}
	return nil
}

// RecentTrades returns up to limit trades from the tape, newest first. A
// non-positive limit returns the full tape.
func (sc *StateCache) RecentTrades(ctx context.Context, limit int) ([]domain.Trade, error) {
	if limit <= 0 || limit > tapeLimit {
		limit = tapeLimit
	}
	raw, err := sc.rdb.LRange(ctx, tapeKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read tape: %w", err)
	}

	trades := make([]domain.Trade, 0, len(raw))
	for _, item := range raw {
		var t domain.Trade
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("redis: unmarshal trade: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// AppendPrice appends a history point (oldest first) and trims the series to
// the rolling cap from the front.
func (sc *StateCache) AppendPrice(ctx context.Context, point domain.PricePoint) error {
	data, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("redis: marshal price point: %w", err)
	}
	pipe := sc.rdb.TxPipeline()
	pipe.RPush(ctx, historyKey, data)
	pipe.LTrim(ctx, historyKey, -historyLimit, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: append price: %w", err)
	}
	return nil
}

// PriceHistory returns the full rolling price series, oldest first.
func (sc *StateCache) PriceHistory(ctx context.Context) ([]domain.PricePoint, error) {
	raw, err := sc.rdb.LRange(ctx, historyKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read history: %w", err)
	}

	points := make([]domain.PricePoint, 0, len(raw))
	for _, item := range raw {
		var p domain.PricePoint
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			return nil, fmt.Errorf("redis: unmarshal price point: %w", err)
		}
		points = append(points, p)
	}
	return points, nil
}

// SetMetrics replaces the current market metrics.
func (sc *StateCache) SetMetrics(ctx context.Context, m domain.MarketMetrics) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("redis: marshal metrics: %w", err)
	}
	if err := sc.rdb.Set(ctx, metricsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set metrics: %w", err)
	}
	return nil
}

// GetMetrics returns the current market metrics, or domain.ErrNotFound when
// none have been written yet.
func (sc *StateCache) GetMetrics(ctx context.Context) (domain.MarketMetrics, error) {
	data, err := sc.rdb.Get(ctx, metricsKey).Bytes()
	if err == redis.Nil {
		return domain.MarketMetrics{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.MarketMetrics{}, fmt.Errorf("redis: get metrics: %w", err)
	}
	var m domain.MarketMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.MarketMetrics{}, fmt.Errorf("redis: unmarshal metrics: %w", err)
	}
	return m, nil
}

// Compile-time interface checks.
var (
	_ domain.BookCache    = (*StateCache)(nil)
	_ domain.TapeCache    = (*StateCache)(nil)
	_ domain.HistoryCache = (*StateCache)(nil)
	_ domain.MetricsCache = (*StateCache)(nil)
)
