package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardiana/sentinel/internal/domain"
)

func TestDetectAnomaliesThresholdValidation(t *testing.T) {
	e := testEngine(t, 1)

	_, err := e.DetectAnomalies(nil, -0.1)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = e.DetectAnomalies(nil, 1.1)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestDetectAnomaliesAnnotatesEveryTrade(t *testing.T) {
	e := testEngine(t, 42)

	trades := []domain.Trade{
		{ID: "a", Size: 100},
		{ID: "b", Size: 500},
		{ID: "c", Size: 401},
		{ID: "d", Size: 400},
	}

	_, err := e.DetectAnomalies(trades, 1)
	require.NoError(t, err)

	// High volume trades score in [0.6, 1.0), everything else in [0, 0.5).
	assert.GreaterOrEqual(t, trades[1].AnomalyScore, 0.6)
	assert.Less(t, trades[1].AnomalyScore, 1.0)
	assert.GreaterOrEqual(t, trades[2].AnomalyScore, 0.6)

	assert.GreaterOrEqual(t, trades[0].AnomalyScore, 0.0)
	assert.Less(t, trades[0].AnomalyScore, 0.5)
	assert.Less(t, trades[3].AnomalyScore, 0.5)
}

func TestDetectAnomaliesFlagsMalicious(t *testing.T) {
	e := testEngine(t, 42)

	trades := []domain.Trade{
		{ID: "wash", Size: 10, Malicious: true},
	}

	flagged, err := e.DetectAnomalies(trades, 1)
	require.NoError(t, err)

	require.Len(t, flagged, 1)
	assert.Equal(t, "wash", flagged[0].ID)
	assert.Equal(t, "Known manipulation pattern", flagged[0].FlagReason)

	// The input element is annotated in place but never gets a flag reason.
	assert.Empty(t, trades[0].FlagReason)
	assert.Equal(t, trades[0].AnomalyScore, flagged[0].AnomalyScore)
}

func TestDetectAnomaliesFlagsHighScores(t *testing.T) {
	e := testEngine(t, 42)

	// Every high volume trade scores at least 0.6, so a zero threshold flags
	// them all.
	trades := []domain.Trade{
		{ID: "a", Size: 1000},
		{ID: "b", Size: 1000},
		{ID: "c", Size: 1000},
	}

	flagged, err := e.DetectAnomalies(trades, 0)
	require.NoError(t, err)

	require.Len(t, flagged, 3)
	for _, f := range flagged {
		assert.Equal(t, "Abnormal trading pattern detected", f.FlagReason)
	}
}

func TestDetectAnomaliesBelowThreshold(t *testing.T) {
	e := testEngine(t, 42)

	trades := []domain.Trade{
		{ID: "a", Size: 10},
		{ID: "b", Size: 10},
	}

	// Small trades score below 0.5.
	flagged, err := e.DetectAnomalies(trades, 0.5)
	require.NoError(t, err)
	assert.Empty(t, flagged)
}

func TestDetectAnomaliesEmptyInput(t *testing.T) {
	e := testEngine(t, 1)

	flagged, err := e.DetectAnomalies(nil, 0.7)
	require.NoError(t, err)
	assert.Empty(t, flagged)
}
