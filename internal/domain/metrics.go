package domain

// MarketMetrics is the rolling summary shown on the dashboard header card.
// ManipulationScore is a 0-100 gauge bumped on every injected pattern;
// AnomalyRate is the fraction of recent tape flagged by the detector.
type MarketMetrics struct {
	Volatility        float64 `json:"volatility"`
	Volume24h         float64 `json:"volume_24h"`
	PriceChange24h    float64 `json:"price_change_24h"`
	AnomalyRate       float64 `json:"anomaly_rate"`
	ManipulationScore float64 `json:"manipulation_score"`
}

// RiskLevel is the coarse operator risk classification derived from the
// manipulation score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Risk maps the manipulation score to a risk level: high above 70, medium
// above 40, low otherwise.
func (m MarketMetrics) Risk() RiskLevel {
	switch {
	case m.ManipulationScore > 70:
		return RiskHigh
	case m.ManipulationScore > 40:
		return RiskMedium
	default:
		return RiskLow
	}
}
