package drawdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
)

func jan(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func series(values ...float64) []contracts.EquityPoint {
	points := make([]contracts.EquityPoint, len(values))
	for i, v := range values {
		points[i] = contracts.EquityPoint{Time: jan(i + 1), Equity: v}
	}
	return points
}

// 100 → 120 → 90 → 100 → 125 (recovered) → 120 → 130 (recovered) → 110 → 118 (open)
func sample() []contracts.EquityPoint {
	return series(100, 120, 90, 100, 125, 120, 130, 110, 118)
}

func TestUnderwater(t *testing.T) {
	uw := Underwater(sample())

	require.Len(t, uw, 9)
	wantDD := []float64{0, 0, -25, -100.0 / 6, 0, -4, 0, -200.0 / 13, -120.0 / 13}
	wantDays := []int{0, 0, 1, 2, 0, 1, 0, 1, 2}
	for i, p := range uw {
		assert.InDelta(t, wantDD[i], p.DrawdownPct, 1e-9, "drawdown[%d]", i)
		assert.Equal(t, wantDays[i], p.DaysUnderwater, "days[%d]", i)
		assert.LessOrEqual(t, p.DrawdownPct, 0.0)
	}
}

func TestUnderwaterEmpty(t *testing.T) {
	assert.Empty(t, Underwater(nil))
	assert.Equal(t, contracts.DrawdownStats{}, Stats(nil))
}

func TestStats(t *testing.T) {
	s := Stats(Underwater(sample()))

	assert.InDelta(t, -25.0, s.MaxDrawdownPct, 1e-9)
	assert.InDelta(t, -120.0/13, s.CurrentDrawdownPct, 1e-9)
	assert.Equal(t, 2, s.LongestDrawdownDays)
	assert.Equal(t, 2, s.AverageDrawdownDays) // closed runs 2 and 1, rounded
	assert.Equal(t, 3, s.DrawdownCount)
	assert.InDelta(t, 500.0/9, s.PctTimeInDrawdown, 1e-9)
	assert.InDelta(t, 300.0/9, s.PctTimeBelowMinus10, 1e-9)
}

func TestMajorDrawdowns(t *testing.T) {
	episodes := MajorDrawdowns(sample(), DefaultThreshold)

	require.Len(t, episodes, 2, "the -4% episode is filtered out")

	worst := episodes[0]
	assert.InDelta(t, -25.0, worst.DepthPct, 1e-9)
	assert.Equal(t, jan(2), worst.PeakDate)
	assert.Equal(t, jan(3), worst.TroughDate)
	require.NotNil(t, worst.RecoveryDate)
	assert.Equal(t, jan(5), *worst.RecoveryDate)
	assert.Equal(t, 1, worst.DaysToTrough)
	require.NotNil(t, worst.DaysToRecovery)
	assert.Equal(t, 2, *worst.DaysToRecovery)
	assert.Equal(t, 3, worst.DurationDays)
	assert.False(t, worst.IsOngoing)
	assert.Equal(t, 120.0, worst.PeakEquity)
	assert.Equal(t, 90.0, worst.TroughEquity)

	open := episodes[1]
	assert.InDelta(t, -200.0/13, open.DepthPct, 1e-9)
	assert.True(t, open.IsOngoing)
	assert.Nil(t, open.RecoveryDate)
	assert.Nil(t, open.DaysToRecovery)
	assert.Equal(t, jan(7), open.PeakDate)
	assert.Equal(t, 2, open.DurationDays)
}

func TestMajorDrawdownsThreshold(t *testing.T) {
	for _, ep := range MajorDrawdowns(sample(), -3) {
		assert.Less(t, ep.DepthPct, -3.0)
	}
	assert.Len(t, MajorDrawdowns(sample(), -3), 3)
	assert.Len(t, MajorDrawdowns(sample(), 20), 1, "positive threshold is read as negative")
	assert.Empty(t, MajorDrawdowns(series(100, 110, 120), DefaultThreshold))
	assert.Empty(t, MajorDrawdowns(nil, DefaultThreshold))
}

func TestMajorDrawdownsSortedWorstFirst(t *testing.T) {
	episodes := MajorDrawdowns(series(100, 85, 100, 50, 100, 80, 100), DefaultThreshold)

	require.Len(t, episodes, 3)
	assert.InDelta(t, -50.0, episodes[0].DepthPct, 1e-9)
	assert.InDelta(t, -20.0, episodes[1].DepthPct, 1e-9)
	assert.InDelta(t, -15.0, episodes[2].DepthPct, 1e-9)
}
