package sim

import (
	"fmt"

	"github.com/guardiana/sentinel/internal/domain"
)

// highVolumeSize is the trade size above which the scorer treats a trade as
// high volume and scores it in the [0.6, 1.0) band.
const highVolumeSize = 400

// DetectAnomalies scores every trade in the input slice and returns flagged
// copies. The score is written back onto EVERY element of trades, flagged or
// not -- the dashboard renders scores on unflagged tape rows, so callers
// depend on this in-place annotation. The returned trades are copies with
// FlagReason filled in; a trade is flagged when its score exceeds threshold
// or it carries a manipulation label.
func (e *Engine) DetectAnomalies(trades []domain.Trade, threshold float64) ([]domain.Trade, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("sim: threshold %v outside [0,1]: %w", threshold, domain.ErrInvalidParameter)
	}

	var flagged []domain.Trade
	for i := range trades {
		u := e.uniform()
		if trades[i].Size > highVolumeSize {
			trades[i].AnomalyScore = 0.6 + 0.4*u
		} else {
			trades[i].AnomalyScore = 0.5 * u
		}

		if trades[i].AnomalyScore <= threshold && !trades[i].Malicious {
			continue
		}
		t := trades[i]
		if t.Malicious {
			t.FlagReason = "Known manipulation pattern"
		} else {
			t.FlagReason = "Abnormal trading pattern detected"
		}
		flagged = append(flagged, t)
	}
	return flagged, nil
}
