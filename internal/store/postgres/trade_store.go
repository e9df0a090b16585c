package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guardiana/sentinel/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL. Only trades
// flagged by the detector (or labeled by the injector) are persisted; the
// raw tape lives in Redis.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, ts, price, size, side, is_malicious, entity, anomaly_score, flag_reason`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var (
			t      domain.Trade
			entity *string
		)
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.Price, &t.Size, &t.Side, &t.Malicious, &entity, &t.AnomalyScore, &t.FlagReason); err != nil {
			return nil, err
		}
		if entity != nil {
			t.Entity = *entity
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// InsertBatch inserts flagged trades using a pgx batch. A trade already
// persisted under the same id is silently skipped, so re-flagging a pattern
// trade is harmless.
func (s *TradeStore) InsertBatch(ctx context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO flagged_trades (id, ts, price, size, side, is_malicious, entity, anomaly_score, flag_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	for _, t := range trades {
		var entity *string
		if t.Entity != "" {
			e := t.Entity
			entity = &e
		}
		batch.Queue(query, t.ID, t.Timestamp, t.Price, t.Size, t.Side, t.Malicious, entity, t.AnomalyScore, t.FlagReason)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range trades {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert flagged trade batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListRecent returns flagged trades ordered newest first with pagination.
func (s *TradeStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM flagged_trades`
	var args []any
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" WHERE ts >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}

	query += " ORDER BY ts DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list flagged trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan flagged trades: %w", err)
	}
	return trades, nil
}

// ListBefore returns all flagged trades strictly older than the given time,
// oldest first (for archiving).
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM flagged_trades WHERE ts < $1 ORDER BY ts ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list flagged trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// DeleteBefore deletes all flagged trades older than the given time and
// returns the number of rows removed.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM flagged_trades WHERE ts < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete flagged trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
