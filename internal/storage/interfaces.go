// Package storage defines the persistence boundary of the analytics service.
//
// The engine itself never touches storage: trades are materialized here,
// handed to the calculators as values, and report summaries are written back.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
)

// TradeFilter narrows a trade query. Zero values mean "no bound".
type TradeFilter struct {
	StrategyIDs []string
	From        time.Time // exit_time >= From
	To          time.Time // exit_time <= To
	Limit       int
}

// Matches reports whether t passes the filter (Limit is not applied)
func (f TradeFilter) Matches(t contracts.Trade) bool {
	if len(f.StrategyIDs) > 0 {
		found := false
		for _, id := range f.StrategyIDs {
			if id == t.StrategyID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && t.ExitTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.ExitTime.After(f.To) {
		return false
	}
	return true
}

// TradeStore reads closed trades.
type TradeStore interface {
	// ListTrades returns trades matching filter, ordered by exit_time then id.
	ListTrades(ctx context.Context, filter TradeFilter) ([]contracts.Trade, error)

	// ListStrategyIDs returns every strategy with at least one trade, sorted.
	ListStrategyIDs(ctx context.Context) ([]string, error)
}

// TradeWriter bulk-loads trades. Existing ids are left untouched.
type TradeWriter interface {
	// InsertTrades returns the number of newly inserted rows.
	InsertTrades(ctx context.Context, trades []contracts.Trade) (int, error)
}

// ReportRun is the persisted summary of one computed report
// 금액 컬럼은 NUMERIC, decimal로 그대로 저장
type ReportRun struct {
	ID              string                 `json:"id"`
	StrategyID      string                 `json:"strategy_id"`
	ParamsHash      string                 `json:"params_hash"`
	CreatedAt       time.Time              `json:"created_at"`
	TradeCount      int                    `json:"trade_count"`
	QualityScore    contracts.QualityScore `json:"quality_score"`
	StartingCapital decimal.Decimal        `json:"starting_capital"`
	FinalEquity     decimal.Decimal        `json:"final_equity"`
	TotalPnL        decimal.Decimal        `json:"total_pnl"`
	TotalReturnPct  float64                `json:"total_return_pct"`
	SharpeRatio     float64                `json:"sharpe_ratio"`
	SortinoRatio    float64                `json:"sortino_ratio"`
	MaxDrawdownPct  float64                `json:"max_drawdown_pct"`
	Report          json.RawMessage        `json:"report,omitempty"`
}

// ReportRunStore persists report summaries.
type ReportRunStore interface {
	SaveRun(ctx context.Context, run *ReportRun) error

	// LatestRun returns the newest run of a strategy, ErrNotFound if none.
	LatestRun(ctx context.Context, strategyID string) (*ReportRun, error)

	// ListRuns returns up to limit runs of a strategy, newest first.
	ListRuns(ctx context.Context, strategyID string, limit int) ([]ReportRun, error)
}
