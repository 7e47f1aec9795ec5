package contracts

import "time"

// EquityPoint is one observation of the running account value
// ⭐ Invariant: Peak >= Equity, DrawdownPct in [0,100], 0 exactly at a peak
type EquityPoint struct {
	Time        time.Time `json:"time"`
	Equity      float64   `json:"equity"`
	Peak        float64   `json:"peak"`
	DrawdownPct float64   `json:"drawdown_pct"`
}

// DailyEquityPoint is one trading day of the continuous daily series
type DailyEquityPoint struct {
	Date            time.Time `json:"date"`
	Equity          float64   `json:"equity"`
	DailyPnL        float64   `json:"daily_pnl"`
	DailyReturn     float64   `json:"daily_return"`
	TradeCount      int       `json:"trade_count"`
	IsForwardFilled bool      `json:"is_forward_filled"`
}

// EquityValues extracts the equity column of a point series
func EquityValues(points []EquityPoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Equity
	}
	return values
}

// DailyEquityValues extracts the equity column of a daily series
func DailyEquityValues(points []DailyEquityPoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Equity
	}
	return values
}
