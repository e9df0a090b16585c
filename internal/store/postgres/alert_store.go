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

// AlertStore implements domain.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *pgxpool.Pool
}

// NewAlertStore creates a new AlertStore backed by the given connection pool.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

const alertSelectCols = `id, ts, level, title, description, pattern_type, related_trades`

func scanAlertRows(rows pgx.Rows) ([]domain.DetectionAlert, error) {
	var alerts []domain.DetectionAlert
	for rows.Next() {
		var (
			a           domain.DetectionAlert
			patternType *string
			related     []byte
		)
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.Level, &a.Title, &a.Description, &patternType, &related); err != nil {
			return nil, err
		}
		if patternType != nil {
			a.PatternType = domain.PatternType(*patternType)
		}
		if len(related) > 0 {
			if err := json.Unmarshal(related, &a.RelatedTrades); err != nil {
				return nil, fmt.Errorf("decode related trades for alert %s: %w", a.ID, err)
			}
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Insert persists a detection alert. Related trades are stored as JSONB.
func (s *AlertStore) Insert(ctx context.Context, alert domain.DetectionAlert) error {
	related, err := json.Marshal(alert.RelatedTrades)
	if err != nil {
		return fmt.Errorf("postgres: marshal related trades: %w", err)
	}

	var patternType *string
	if alert.PatternType != "" {
		pt := string(alert.PatternType)
		patternType = &pt
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO alerts (id, ts, level, title, description, pattern_type, related_trades)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		alert.ID, alert.Timestamp, alert.Level, alert.Title, alert.Description, patternType, related,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert alert: %w", err)
	}
	return nil
}

// ListRecent returns alerts ordered newest first with pagination and
// optional time filtering.
func (s *AlertStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.DetectionAlert, error) {
	query := `SELECT ` + alertSelectCols + ` FROM alerts`
	var args []any
	argIdx := 1

	var where []string
	if opts.Since != nil {
		where = append(where, fmt.Sprintf("ts >= $%d", argIdx))
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		where = append(where, fmt.Sprintf("ts <= $%d", argIdx))
		args = append(args, *opts.Until)
		argIdx++
	}
	for i, w := range where {
		if i == 0 {
			query += " WHERE " + w
		} else {
			query += " AND " + w
		}
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
		return nil, fmt.Errorf("postgres: list alerts: %w", err)
	}
	defer rows.Close()

	alerts, err := scanAlertRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan alerts: %w", err)
	}
	return alerts, nil
}

// ListBefore returns all alerts strictly older than the given time, oldest
// first (for archiving).
func (s *AlertStore) ListBefore(ctx context.Context, before time.Time) ([]domain.DetectionAlert, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+alertSelectCols+` FROM alerts WHERE ts < $1 ORDER BY ts ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list alerts before: %w", err)
	}
	defer rows.Close()
	return scanAlertRows(rows)
}

// DeleteBefore deletes all alerts older than the given time and returns the
// number of rows removed.
func (s *AlertStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alerts WHERE ts < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete alerts before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.AlertStore = (*AlertStore)(nil)
