package contracts

import "time"

// UnderwaterPoint is the drawdown of one equity observation, as a non-positive percentage
type UnderwaterPoint struct {
	Time           time.Time `json:"time"`
	DrawdownPct    float64   `json:"drawdown_pct"` // <= 0
	DaysUnderwater int       `json:"days_underwater"`
}

// DrawdownStats summarizes the duration structure of an underwater curve
type DrawdownStats struct {
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`     // <= 0
	CurrentDrawdownPct  float64 `json:"current_drawdown_pct"` // <= 0
	LongestDrawdownDays int     `json:"longest_drawdown_days"`
	AverageDrawdownDays int     `json:"average_drawdown_days"`
	DrawdownCount       int     `json:"drawdown_count"`
	PctTimeInDrawdown   float64 `json:"pct_time_in_drawdown"`
	PctTimeBelowMinus10 float64 `json:"pct_time_below_minus_10"`
}

// MajorDrawdown is a closed (or still open) peak-to-recovery episode
type MajorDrawdown struct {
	PeakDate       time.Time  `json:"peak_date"`
	TroughDate     time.Time  `json:"trough_date"`
	RecoveryDate   *time.Time `json:"recovery_date"`
	PeakEquity     float64    `json:"peak_equity"`
	TroughEquity   float64    `json:"trough_equity"`
	DepthPct       float64    `json:"depth_pct"` // negative
	DaysToTrough   int        `json:"days_to_trough"`
	DaysToRecovery *int       `json:"days_to_recovery"`
	DurationDays   int        `json:"duration_days"`
	IsOngoing      bool       `json:"is_ongoing"`
}
