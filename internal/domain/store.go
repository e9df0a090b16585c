package domain

import (
	"context"
	"time"
)

// ListOpts carries pagination and time filters for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// AlertStore persists detection alerts.
type AlertStore interface {
	Insert(ctx context.Context, alert DetectionAlert) error
	ListRecent(ctx context.Context, opts ListOpts) ([]DetectionAlert, error)
	ListBefore(ctx context.Context, before time.Time) ([]DetectionAlert, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// PatternStore persists injected manipulation patterns.
type PatternStore interface {
	Insert(ctx context.Context, pattern ManipulationPattern) error
	ListRecent(ctx context.Context, opts ListOpts) ([]ManipulationPattern, error)
	ListBefore(ctx context.Context, before time.Time) ([]ManipulationPattern, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// TradeStore persists trades flagged by the detector.
type TradeStore interface {
	InsertBatch(ctx context.Context, trades []Trade) error
	ListRecent(ctx context.Context, opts ListOpts) ([]Trade, error)
	ListBefore(ctx context.Context, before time.Time) ([]Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
