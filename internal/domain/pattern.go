package domain

import "time"

// PatternType identifies one of the four fabricated manipulation signatures.
type PatternType string

const (
	PatternSpoofing         PatternType = "spoofing"
	PatternLayering         PatternType = "layering"
	PatternWash             PatternType = "wash"
	PatternMomentumIgnition PatternType = "momentum_ignition"
)

// PatternTypes lists all supported pattern kinds in a stable order.
var PatternTypes = []PatternType{
	PatternSpoofing,
	PatternLayering,
	PatternWash,
	PatternMomentumIgnition,
}

// Valid reports whether t is one of the four supported kinds.
func (t PatternType) Valid() bool {
	switch t {
	case PatternSpoofing, PatternLayering, PatternWash, PatternMomentumIgnition:
		return true
	}
	return false
}

// Impact is the qualitative market impact of a pattern.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// ManipulationOrder is a synthetic resting order associated with a pattern.
// It is never inserted into an OrderBook; the simulation does not maintain
// order lifecycle, Lifespan is documentary.
type ManipulationOrder struct {
	ID       string        `json:"id"`
	Side     Side          `json:"side"`
	Price    float64       `json:"price"`
	Volume   int64         `json:"volume"`
	Lifespan time.Duration `json:"lifespan_ms"`
}

// ManipulationPattern is one fabricated manipulation event. Depending on
// Type either Orders (spoofing, layering) or Trades (wash,
// momentum_ignition) is populated; the other slice is always empty.
type ManipulationPattern struct {
	Timestamp  time.Time           `json:"timestamp"`
	Type       PatternType         `json:"type"`
	Confidence float64             `json:"confidence"` // [0.75, 0.95)
	Impact     Impact              `json:"impact"`
	Side       Side                `json:"side,omitempty"` // empty for wash
	Details    map[string]string   `json:"details"`
	Orders     []ManipulationOrder `json:"orders"`
	Trades     []Trade             `json:"trades"`
}

// Description returns the free-form detail line for the pattern, if set.
func (p ManipulationPattern) Description() string {
	return p.Details["description"]
}
