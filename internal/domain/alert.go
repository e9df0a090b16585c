package domain

import "time"

// AlertLevel is the severity of a detection alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "info"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// DetectionAlert is the operator-facing record derived from anomaly hits and
// injected patterns. Alerts are what the dashboard, the notifier, and the
// archive see.
type DetectionAlert struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	Level         AlertLevel  `json:"level"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	PatternType   PatternType `json:"pattern_type,omitempty"`
	RelatedTrades []Trade     `json:"related_trades,omitempty"`
}
