package domain

import "time"

// Trade is a single print on the simulated tape. Trades are immutable after
// creation except for the anomaly annotation pass, which fills in
// AnomalyScore (on every scored trade) and FlagReason (on flagged copies).
type Trade struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Price        float64   `json:"price"`
	Size         int64     `json:"size"`
	Side         Side      `json:"side"`
	Malicious    bool      `json:"is_malicious"`
	Entity       string    `json:"entity,omitempty"` // shared entity id for wash pairs
	AnomalyScore float64   `json:"anomaly_score"`
	FlagReason   string    `json:"flag_reason,omitempty"`
}
