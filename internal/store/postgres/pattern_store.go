package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guardiana/sentinel/internal/domain"
)

// PatternStore implements domain.PatternStore using PostgreSQL. Orders,
// trades and the details map are stored as JSONB documents; the table row
// carries the queryable columns (timestamp, type, confidence, impact).
type PatternStore struct {
	pool *pgxpool.Pool
}

// NewPatternStore creates a new PatternStore backed by the given pool.
func NewPatternStore(pool *pgxpool.Pool) *PatternStore {
	return &PatternStore{pool: pool}
}

const patternSelectCols = `ts, type, confidence, impact, side, details, orders, trades`

func scanPatternRows(rows pgx.Rows) ([]domain.ManipulationPattern, error) {
	var patterns []domain.ManipulationPattern
	for rows.Next() {
		var (
			p       domain.ManipulationPattern
			side    *string
			details []byte
			orders  []byte
			trades  []byte
		)
		if err := rows.Scan(&p.Timestamp, &p.Type, &p.Confidence, &p.Impact, &side, &details, &orders, &trades); err != nil {
			return nil, err
		}
		if side != nil {
			p.Side = domain.Side(*side)
		}
		if err := json.Unmarshal(details, &p.Details); err != nil {
			return nil, fmt.Errorf("decode pattern details: %w", err)
		}
		if err := json.Unmarshal(orders, &p.Orders); err != nil {
			return nil, fmt.Errorf("decode pattern orders: %w", err)
		}
		if err := json.Unmarshal(trades, &p.Trades); err != nil {
			return nil, fmt.Errorf("decode pattern trades: %w", err)
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// Insert persists an injected pattern.
func (s *PatternStore) Insert(ctx context.Context, pattern domain.ManipulationPattern) error {
	details, err := json.Marshal(pattern.Details)
	if err != nil {
		return fmt.Errorf("postgres: marshal pattern details: %w", err)
	}
	orders, err := json.Marshal(pattern.Orders)
	if err != nil {
		return fmt.Errorf("postgres: marshal pattern orders: %w", err)
	}
	trades, err := json.Marshal(pattern.Trades)
	if err != nil {
		return fmt.Errorf("postgres: marshal pattern trades: %w", err)
	}

	var side *string
	if pattern.Side != "" {
		sd := string(pattern.Side)
		side = &sd
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO patterns (ts, type, confidence, impact, side, details, orders, trades)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pattern.Timestamp, pattern.Type, pattern.Confidence, pattern.Impact, side, details, orders, trades,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert pattern: %w", err)
	}
	return nil
}

// ListRecent returns patterns ordered newest first with pagination and
// optional time filtering.
func (s *PatternStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.ManipulationPattern, error) {
	query := `SELECT ` + patternSelectCols + ` FROM patterns`
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
		return nil, fmt.Errorf("postgres: list patterns: %w", err)
	}
	defer rows.Close()

	patterns, err := scanPatternRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan patterns: %w", err)
	}
	return patterns, nil
}

// ListBefore returns all patterns strictly older than the given time, oldest
// first (for archiving).
func (s *PatternStore) ListBefore(ctx context.Context, before time.Time) ([]domain.ManipulationPattern, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+patternSelectCols+` FROM patterns WHERE ts < $1 ORDER BY ts ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list patterns before: %w", err)
	}
	defer rows.Close()
	return scanPatternRows(rows)
}

// DeleteBefore deletes all patterns older than the given time and returns
// the number of rows removed.
func (s *PatternStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM patterns WHERE ts < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete patterns before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.PatternStore = (*PatternStore)(nil)
