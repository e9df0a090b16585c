package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/guardiana/sentinel/internal/domain"
)

// BlobWriter is the upload surface the archiver needs. *Writer satisfies it;
// tests substitute an in-memory fake.
type BlobWriter interface {
	Put(ctx context.Context, key string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, key string, data io.Reader, partSize int64) error
}

// Narrow store views required by the archiver. The Postgres stores satisfy
// these implicitly through their ListBefore / DeleteBefore methods.

// AlertArchiveStore provides archival access to detection alerts.
type AlertArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.DetectionAlert, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// PatternArchiveStore provides archival access to injected patterns.
type PatternArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.ManipulationPattern, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// TradeArchiveStore provides archival access to flagged trades.
type TradeArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Config controls the archiver's sweep cadence and how long records stay in
// the primary store before being exported.
type Config struct {
	Interval  time.Duration
	Retention time.Duration
}

// Archiver exports surveillance records older than the retention window to
// JSONL objects in cold storage and then prunes them from Postgres. Rows are
// deleted only after the corresponding upload succeeds.
type Archiver struct {
	cfg      Config
	writer   BlobWriter
	alerts   AlertArchiveStore
	patterns PatternArchiveStore
	trades   TradeArchiveStore
	logger   *slog.Logger
}

// NewArchiver creates an Archiver. Any of the store arguments may be nil, in
// which case the corresponding record kind is skipped.
func NewArchiver(cfg Config, writer BlobWriter, alerts AlertArchiveStore, patterns PatternArchiveStore, trades TradeArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		cfg:      cfg,
		writer:   writer,
		alerts:   alerts,
		patterns: patterns,
		trades:   trades,
		logger:   logger.With(slog.String("component", "archiver")),
	}
}

// Run sweeps once immediately and then on every interval tick until the
// context is cancelled. Sweep errors are logged, not fatal; a transient S3 or
// database failure should not bring the service down.
func (a *Archiver) Run(ctx context.Context) error {
	a.sweep(ctx)

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.sweep(ctx)
		}
	}
}

func (a *Archiver) sweep(ctx context.Context) {
	before := time.Now().Add(-a.cfg.Retention)

	if a.alerts != nil {
		if n, err := a.ArchiveAlerts(ctx, before); err != nil {
			a.logger.Error("archive alerts failed", slog.Any("error", err))
		} else if n > 0 {
			a.logger.Info("archived alerts", slog.Int64("count", n))
		}
	}
	if a.patterns != nil {
		if n, err := a.ArchivePatterns(ctx, before); err != nil {
			a.logger.Error("archive patterns failed", slog.Any("error", err))
		} else if n > 0 {
			a.logger.Info("archived patterns", slog.Int64("count", n))
		}
	}
	if a.trades != nil {
		if n, err := a.ArchiveTrades(ctx, before); err != nil {
			a.logger.Error("archive flagged trades failed", slog.Any("error", err))
		} else if n > 0 {
			a.logger.Info("archived flagged trades", slog.Int64("count", n))
		}
	}
}

// ArchiveAlerts exports alerts older than the cutoff to
// archive/alerts/YYYY-MM.jsonl and deletes them from the store. Returns the
// number of records archived.
func (a *Archiver) ArchiveAlerts(ctx context.Context, before time.Time) (int64, error) {
	alerts, err := a.alerts.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive alerts query: %w", err)
	}
	if len(alerts) == 0 {
		return 0, nil
	}

	if err := upload(ctx, a.writer, archivePath("alerts", before), alerts); err != nil {
		return 0, err
	}
	if _, err := a.alerts.DeleteBefore(ctx, before); err != nil {
		return 0, fmt.Errorf("s3blob: prune alerts: %w", err)
	}
	return int64(len(alerts)), nil
}

// ArchivePatterns exports injected patterns older than the cutoff to
// archive/patterns/YYYY-MM.jsonl and deletes them from the store.
func (a *Archiver) ArchivePatterns(ctx context.Context, before time.Time) (int64, error) {
	patterns, err := a.patterns.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive patterns query: %w", err)
	}
	if len(patterns) == 0 {
		return 0, nil
	}

	if err := upload(ctx, a.writer, archivePath("patterns", before), patterns); err != nil {
		return 0, err
	}
	if _, err := a.patterns.DeleteBefore(ctx, before); err != nil {
		return 0, fmt.Errorf("s3blob: prune patterns: %w", err)
	}
	return int64(len(patterns)), nil
}

// ArchiveTrades exports flagged trades older than the cutoff to
// archive/flagged_trades/YYYY-MM.jsonl and deletes them from the store.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive flagged trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	if err := upload(ctx, a.writer, archivePath("flagged_trades", before), trades); err != nil {
		return 0, err
	}
	if _, err := a.trades.DeleteBefore(ctx, before); err != nil {
		return 0, fmt.Errorf("s3blob: prune flagged trades: %w", err)
	}
	return int64(len(trades)), nil
}

// upload serialises records to JSONL and writes the object, switching to a
// multipart upload for large exports.
func upload[T any](ctx context.Context, w BlobWriter, key string, records []T) error {
	buf, err := marshalJSONL(records)
	if err != nil {
		return fmt.Errorf("s3blob: archive marshal %s: %w", key, err)
	}

	if int64(len(buf)) > multipartThreshold {
		if err := w.PutMultipart(ctx, key, bytes.NewReader(buf), minPartSize); err != nil {
			return fmt.Errorf("s3blob: archive upload %s: %w", key, err)
		}
		return nil
	}
	if err := w.Put(ctx, key, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive upload %s: %w", key, err)
	}
	return nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/alerts/2026-08.jsonl
//	archive/patterns/2026-08.jsonl
//	archive/flagged_trades/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice as newline-delimited JSON, one compact line
// per record.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
