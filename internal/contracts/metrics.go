package contracts

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// SortinoConvention identifies the downside-deviation contract used by the engine
// ⭐ SSOT: sample (N-1) downside stdev, risk-free rate 0
const SortinoConvention = "sortino/v1"

// PerformanceMetrics is the aggregate return/risk result for one strategy set
// Optional sections (Calmar, currency drawdown, trade stats) live in this one
// schema instead of parallel result types.
type PerformanceMetrics struct {
	StartingCapital float64   `json:"starting_capital"`
	FinalEquity     float64   `json:"final_equity"`
	TotalPnL        float64   `json:"total_pnl"`
	FirstExit       time.Time `json:"first_exit"`
	LastExit        time.Time `json:"last_exit"`
	YearsElapsed    float64   `json:"years_elapsed"`
	TradingDays     int       `json:"trading_days"`

	// 수익률 (%)
	TotalReturnPct      float64 `json:"total_return_pct"`
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`

	// 리스크 지표
	SharpeRatio       float64 `json:"sharpe_ratio"`
	SortinoRatio      float64 `json:"sortino_ratio"`
	SortinoConvention string  `json:"sortino_convention"`
	CalmarRatio       float64 `json:"calmar_ratio"`
	MaxDrawdownPct    float64 `json:"max_drawdown_pct"`
	MaxDrawdownAmount float64 `json:"max_drawdown_amount"`

	// 트레이딩 지표
	TradeStats *TradeStats `json:"trade_stats,omitempty"`
}

// TradeStats aggregates win/loss behaviour of the raw trade list
// Money fields are decimal currency units.
type TradeStats struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	FlatTrades    int     `json:"flat_trades"`
	WinRate       float64 `json:"win_rate"` // 0..100

	BestTrade   float64 `json:"best_trade"`
	WorstTrade  float64 `json:"worst_trade"`
	MeanTrade   float64 `json:"mean_trade"`
	MedianTrade float64 `json:"median_trade"`

	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"` // positive magnitude
	GrossWins    float64 `json:"gross_wins"`
	GrossLosses  float64 `json:"gross_losses"` // positive magnitude
	ProfitFactor float64 `json:"profit_factor"`

	Expectancy    float64 `json:"expectancy"`
	ExpectancyPct float64 `json:"expectancy_pct"`

	AvgHoldingMinutes    float64 `json:"avg_holding_minutes"`
	MedianHoldingMinutes float64 `json:"median_holding_minutes"`

	LongestWinStreak  int `json:"longest_win_streak"`
	LongestLossStreak int `json:"longest_loss_streak"`

	TotalCommission float64 `json:"total_commission"`

	RiskOfRuinDetails *RiskOfRuinDetails `json:"risk_of_ruin_details"`
}

// RiskOfRuinDetails holds the position-sizing estimates derived from TradeStats
type RiskOfRuinDetails struct {
	WinProbability   float64 `json:"win_probability"`
	LossProbability  float64 `json:"loss_probability"`
	PayoffRatio      float64 `json:"payoff_ratio"`
	TradingAdvantage float64 `json:"trading_advantage"`
	CapitalUnits     float64 `json:"capital_units"`
	RiskOfRuin       float64 `json:"risk_of_ruin"` // 0..100
	// MinBalanceForZeroRisk is only defined for a positive trading advantage
	MinBalanceForZeroRisk *float64 `json:"min_balance_for_zero_risk"`
	KellyPct              float64  `json:"kelly_pct"`
}

// profitFactorInfinity is the wire form of an unbounded profit factor
const profitFactorInfinity = "Infinity"

// MarshalJSON encodes an infinite profit factor as the string "Infinity"
func (s TradeStats) MarshalJSON() ([]byte, error) {
	type alias TradeStats
	out := struct {
		alias
		ProfitFactor interface{} `json:"profit_factor"`
	}{alias: alias(s), ProfitFactor: s.ProfitFactor}

	if math.IsInf(s.ProfitFactor, 1) {
		out.ProfitFactor = profitFactorInfinity
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both numeric and "Infinity" profit factors
func (s *TradeStats) UnmarshalJSON(data []byte) error {
	type alias TradeStats
	in := struct {
		*alias
		ProfitFactor json.RawMessage `json:"profit_factor"`
	}{alias: (*alias)(s)}

	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.ProfitFactor) == 0 || string(in.ProfitFactor) == "null" {
		s.ProfitFactor = 0
		return nil
	}

	var text string
	if err := json.Unmarshal(in.ProfitFactor, &text); err == nil {
		if text != profitFactorInfinity {
			return fmt.Errorf("invalid profit_factor %q", text)
		}
		s.ProfitFactor = math.Inf(1)
		return nil
	}
	return json.Unmarshal(in.ProfitFactor, &s.ProfitFactor)
}

// BenchmarkComparison relates a strategy's daily returns to a benchmark series
type BenchmarkComparison struct {
	Observations int     `json:"observations"`
	Beta         float64 `json:"beta"`
	AlphaPct     float64 `json:"alpha_pct"` // annualized, percentage points
	Correlation  float64 `json:"correlation"`
}
