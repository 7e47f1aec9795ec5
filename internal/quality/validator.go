// Package quality classifies trade batches before they reach the calculators.
package quality

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/equity"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/stats"
)

// Config holds quality thresholds
type Config struct {
	StartingCapital float64 `yaml:"starting_capital"` // negative-equity replay
	ZScoreThreshold float64 `yaml:"zscore_threshold"` // 3.0

	// Score thresholds (percent of trades)
	ExcellentMaxOutlierPct float64 `yaml:"excellent_max_outlier_pct"` // 1
	GoodMaxInvalidPct      float64 `yaml:"good_max_invalid_pct"`      // 1
	GoodMaxOutlierPct      float64 `yaml:"good_max_outlier_pct"`      // 5
	FairMaxInvalidPct      float64 `yaml:"fair_max_invalid_pct"`      // 5
	FairMaxOutlierPct      float64 `yaml:"fair_max_outlier_pct"`      // 10
}

// DefaultZScoreThreshold flags trades more than 3 standard deviations out
const DefaultZScoreThreshold = 3.0

// minOutlierSample is the smallest batch with a meaningful z-score
const minOutlierSample = 3

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		StartingCapital:        equity.DefaultStartingCapital,
		ZScoreThreshold:        DefaultZScoreThreshold,
		ExcellentMaxOutlierPct: 1,
		GoodMaxInvalidPct:      1,
		GoodMaxOutlierPct:      5,
		FairMaxInvalidPct:      5,
		FairMaxOutlierPct:      10,
	}
}

// =============================================================================
// Per-trade checks
// =============================================================================

// ValidateTrade runs structural checks. Errors make the trade invalid;
// warnings only flag it.
func ValidateTrade(t contracts.Trade) contracts.TradeValidation {
	v := contracts.TradeValidation{TradeID: t.ID, Errors: []string{}, Warnings: []string{}}
	fail := func(format string, args ...interface{}) { v.Errors = append(v.Errors, fmt.Sprintf(format, args...)) }
	warn := func(format string, args ...interface{}) { v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...)) }

	if t.ID == "" {
		fail("missing id")
	}
	if t.StrategyID == "" {
		fail("missing strategy_id")
	}
	if t.EntryTime.IsZero() {
		fail("missing entry_time")
	}
	if t.ExitTime.IsZero() {
		fail("missing exit_time")
	}
	if !t.EntryTime.IsZero() && !t.ExitTime.IsZero() && t.ExitTime.Before(t.EntryTime) {
		fail("exit_time %s before entry_time %s", t.ExitTime.Format(time.RFC3339), t.EntryTime.Format(time.RFC3339))
	}
	if t.EntryPrice < 0 {
		fail("negative entry_price %d", t.EntryPrice)
	}
	if t.ExitPrice < 0 {
		fail("negative exit_price %d", t.ExitPrice)
	}
	if !t.Direction.Valid() {
		fail("invalid direction %q", t.Direction)
	}
	if t.Quantity <= 0 {
		fail("non-positive quantity %d", t.Quantity)
	}

	if t.EntryPrice == 0 {
		warn("zero entry_price")
	}
	if t.ExitPrice == 0 {
		warn("zero exit_price")
	}
	if t.Commission < 0 {
		warn("negative commission %d", t.Commission)
	}
	if msg, ok := pnlSignMismatch(t); ok {
		warn("%s", msg)
	}

	v.IsValid = len(v.Errors) == 0
	return v
}

// pnlSignMismatch compares the sign of P&L with the direction-adjusted price move
func pnlSignMismatch(t contracts.Trade) (string, bool) {
	if !t.Direction.Valid() || t.EntryPrice < 0 || t.ExitPrice < 0 || t.PnL == 0 {
		return "", false
	}
	move := t.ExitPrice - t.EntryPrice
	if t.Direction == contracts.DirectionShort {
		move = -move
	}
	if move == 0 || (move > 0) == (t.PnL > 0) {
		return "", false
	}
	return fmt.Sprintf("pnl %d inconsistent with %s move %d→%d", t.PnL, t.Direction, t.EntryPrice, t.ExitPrice), true
}

// =============================================================================
// Batch checks
// =============================================================================

// DetectOutliers flags trades whose P&L z-score exceeds threshold (<= 0 uses 3.0).
// Fewer than 3 trades or zero variance yields an empty slice.
func DetectOutliers(trades []contracts.Trade, threshold float64) []contracts.Outlier {
	out := make([]contracts.Outlier, 0)
	if len(trades) < minOutlierSample {
		return out
	}
	if threshold <= 0 {
		threshold = DefaultZScoreThreshold
	}

	pnls := make([]float64, len(trades))
	for i, t := range trades {
		pnls[i] = t.PnLDollars()
	}
	mean := stats.Mean(pnls)
	sd := stats.StdDev(pnls)
	if stats.IsZeroVariance(sd, mean) {
		return out
	}

	for i, t := range trades {
		z := (pnls[i] - mean) / sd
		if math.Abs(z) > threshold {
			out = append(out, contracts.Outlier{TradeID: t.ID, PnL: pnls[i], ZScore: z})
		}
	}
	return out
}

// CheckNegativeEquity replays trades in exit order from startingCapital and
// reports the lowest point and the first time equity went below zero.
func CheckNegativeEquity(trades []contracts.Trade, startingCapital float64) contracts.NegativeEquityCheck {
	startingCapital = equity.NormalizeCapital(startingCapital)
	check := contracts.NegativeEquityCheck{LowestEquity: startingCapital}

	eq := decimal.NewFromFloat(startingCapital)
	lowest := eq
	for _, t := range equity.SortByExit(trades) {
		eq = eq.Add(decimal.New(t.PnL, -2))

		if eq.LessThan(lowest) {
			lowest = eq
			at := t.ExitTime
			check.LowestAt = &at
		}
		if eq.IsNegative() && check.FirstNegativeAt == nil {
			at := t.ExitTime
			check.FirstNegativeAt = &at
			check.WentNegative = true
		}
	}

	check.LowestEquity = lowest.InexactFloat64()
	return check
}

// FilterValid returns the trades whose validation (same index) is valid
func FilterValid(trades []contracts.Trade, validations []contracts.TradeValidation) []contracts.Trade {
	out := make([]contracts.Trade, 0, len(trades))
	for i, t := range trades {
		if i < len(validations) && !validations[i].IsValid {
			continue
		}
		out = append(out, t)
	}
	return out
}

// =============================================================================
// Aggregate report
// =============================================================================

// Assess validates every trade, detects outliers, replays equity and grades the batch.
// Validations are in input order.
func Assess(trades []contracts.Trade, cfg Config) contracts.DataQualityReport {
	report := contracts.DataQualityReport{
		TotalTrades: len(trades),
		Validations: make([]contracts.TradeValidation, 0, len(trades)),
	}

	for _, t := range trades {
		v := ValidateTrade(t)
		if v.IsValid {
			report.ValidTrades++
		} else {
			report.InvalidTrades++
		}
		report.WarningCount += len(v.Warnings)
		report.IssueCount += len(v.Errors) + len(v.Warnings)
		report.Validations = append(report.Validations, v)
	}

	report.Outliers = DetectOutliers(trades, cfg.ZScoreThreshold)
	report.NegativeEquity = CheckNegativeEquity(trades, cfg.StartingCapital)
	report.Score = Score(report, cfg)
	return report
}

// Score grades a report:
//
//	excellent  no invalid trades, no issues, outliers <= ExcellentMaxOutlierPct, equity never negative
//	good       invalid < GoodMaxInvalidPct, outliers < GoodMaxOutlierPct, equity never negative
//	fair       invalid < FairMaxInvalidPct, outliers < FairMaxOutlierPct
//	poor       otherwise
func Score(r contracts.DataQualityReport, cfg Config) contracts.QualityScore {
	if r.TotalTrades == 0 {
		return contracts.QualityPoor
	}
	invalidPct := 100 * float64(r.InvalidTrades) / float64(r.TotalTrades)
	outlierPct := 100 * float64(len(r.Outliers)) / float64(r.TotalTrades)
	negative := r.NegativeEquity.WentNegative

	switch {
	case r.InvalidTrades == 0 && r.IssueCount == 0 && outlierPct <= cfg.ExcellentMaxOutlierPct && !negative:
		return contracts.QualityExcellent
	case invalidPct < cfg.GoodMaxInvalidPct && outlierPct < cfg.GoodMaxOutlierPct && !negative:
		return contracts.QualityGood
	case invalidPct < cfg.FairMaxInvalidPct && outlierPct < cfg.FairMaxOutlierPct:
		return contracts.QualityFair
	default:
		return contracts.QualityPoor
	}
}
