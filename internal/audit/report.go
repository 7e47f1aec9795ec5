package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/analysisconfig"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/risk"
)

// ErrNoTrades is returned when a report is requested over an empty trade set
var ErrNoTrades = errors.New("no trades to analyze")

// =============================================================================
// Report Types
// =============================================================================

// PerformanceReport is the full analytics result for one strategy set
type PerformanceReport struct {
	ID         string    `json:"id"`
	StrategyID string    `json:"strategy_id,omitempty"` // 단일 전략일 때만
	CreatedAt  time.Time `json:"created_at"`

	Quality contracts.DataQualityReport `json:"quality"`

	EquityCurve []contracts.EquityPoint      `json:"equity_curve"`
	DailyEquity []contracts.DailyEquityPoint `json:"daily_equity"`

	Metrics contracts.PerformanceMetrics `json:"metrics"`

	Underwater     []contracts.UnderwaterPoint `json:"underwater"`
	DrawdownStats  contracts.DrawdownStats     `json:"drawdown_stats"`
	MajorDrawdowns []contracts.MajorDrawdown   `json:"major_drawdowns"`

	Rolling      []contracts.RollingMetricsData `json:"rolling"`
	Distribution contracts.Distribution         `json:"distribution"`

	MonteCarlo       *risk.MonteCarloResult          `json:"monte_carlo,omitempty"`
	Benchmark        *contracts.BenchmarkComparison  `json:"benchmark,omitempty"`
	RollingBenchmark *contracts.RollingBenchmarkData `json:"rolling_benchmark,omitempty"` // Benchmark와 함께 설정

	Metadata ReportMetadata `json:"metadata"`
}

// ReportMetadata records what the report was computed from
type ReportMetadata struct {
	ParamsHash     string                   `json:"params_hash"`
	Params         analysisconfig.Params    `json:"params"`
	InputTrades    int                      `json:"input_trades"`
	AnalyzedTrades int                      `json:"analyzed_trades"` // ExcludeInvalid 적용 후
	ExcludedTrades int                      `json:"excluded_trades"`
	DataFrom       time.Time                `json:"data_from"`
	DataTo         time.Time                `json:"data_to"`
	Warnings       []analysisconfig.Warning `json:"warnings,omitempty"`
	ElapsedMs      int64                    `json:"elapsed_ms"`
}

// PortfolioReport groups per-strategy reports with their correlation matrix
type PortfolioReport struct {
	Strategies  map[string]*PerformanceReport `json:"strategies"`
	Combined    *PerformanceReport            `json:"combined"`
	Correlation contracts.CorrelationMatrix   `json:"correlation"`
	// Overlap is the date range shared by every strategy's daily series
	OverlapFrom time.Time `json:"overlap_from"`
	OverlapTo   time.Time `json:"overlap_to"`
}

// =============================================================================
// Output
// =============================================================================

// ToJSON JSON 형식으로 출력
func (report *PerformanceReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// ToSummary 요약 문자열 출력
func (report *PerformanceReport) ToSummary() string {
	var b strings.Builder
	m := report.Metrics

	title := report.StrategyID
	if title == "" {
		title = "portfolio"
	}
	fmt.Fprintf(&b, "=== Performance Report: %s (%s) ===\n", title, report.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Report ID: %s\n", report.ID)
	fmt.Fprintf(&b, "Params: %s (%s)\n", report.Metadata.Params.Name, shortHash(report.Metadata.ParamsHash))
	fmt.Fprintf(&b, "Period: %s ~ %s (%d trading days)\n\n",
		m.FirstExit.Format("2006-01-02"), m.LastExit.Format("2006-01-02"), m.TradingDays)

	b.WriteString("📈 Returns\n")
	fmt.Fprintf(&b, "  Starting Capital: %.2f\n", m.StartingCapital)
	fmt.Fprintf(&b, "  Final Equity: %.2f\n", m.FinalEquity)
	fmt.Fprintf(&b, "  Total P&L: %.2f\n", m.TotalPnL)
	fmt.Fprintf(&b, "  Total Return: %.2f%%\n", m.TotalReturnPct)
	fmt.Fprintf(&b, "  Annualized: %.2f%% (%.2f years)\n\n", m.AnnualizedReturnPct, m.YearsElapsed)

	b.WriteString("📊 Risk\n")
	fmt.Fprintf(&b, "  Sharpe: %.2f\n", m.SharpeRatio)
	fmt.Fprintf(&b, "  Sortino: %.2f (%s)\n", m.SortinoRatio, m.SortinoConvention)
	fmt.Fprintf(&b, "  Calmar: %.2f\n", m.CalmarRatio)
	fmt.Fprintf(&b, "  Max Drawdown: %.2f%% (%.2f)\n", m.MaxDrawdownPct, m.MaxDrawdownAmount)
	fmt.Fprintf(&b, "  Longest Drawdown: %d days, %.1f%% of time underwater\n",
		report.DrawdownStats.LongestDrawdownDays, report.DrawdownStats.PctTimeInDrawdown)
	fmt.Fprintf(&b, "  VaR 95%%: %.2f%%  CVaR 95%%: %.2f%%\n\n",
		report.Distribution.Stats.VaR95, report.Distribution.Stats.CVaR95)

	if s := m.TradeStats; s != nil {
		b.WriteString("🧾 Trades\n")
		fmt.Fprintf(&b, "  Trades: %d (W %d / L %d / flat %d)\n", s.TotalTrades, s.WinningTrades, s.LosingTrades, s.FlatTrades)
		fmt.Fprintf(&b, "  Win Rate: %.2f%%\n", s.WinRate)
		fmt.Fprintf(&b, "  Avg Win / Loss: %.2f / %.2f\n", s.AvgWin, s.AvgLoss)
		fmt.Fprintf(&b, "  Profit Factor: %s\n", formatProfitFactor(s.ProfitFactor))
		fmt.Fprintf(&b, "  Expectancy: %.2f\n", s.Expectancy)
		fmt.Fprintf(&b, "  Streaks: %d wins / %d losses\n", s.LongestWinStreak, s.LongestLossStreak)
		if r := s.RiskOfRuinDetails; r != nil {
			fmt.Fprintf(&b, "  Risk of Ruin: %.4f%% (Kelly %.2f%%)\n", r.RiskOfRuin, r.KellyPct)
		}
		b.WriteString("\n")
	}

	if len(report.MajorDrawdowns) > 0 {
		b.WriteString("📉 Major Drawdowns\n")
		for i, dd := range report.MajorDrawdowns {
			if i == 5 {
				fmt.Fprintf(&b, "  ... %d more\n", len(report.MajorDrawdowns)-5)
				break
			}
			recovery := "ongoing"
			if dd.RecoveryDate != nil {
				recovery = dd.RecoveryDate.Format("2006-01-02")
			}
			fmt.Fprintf(&b, "  %.2f%%  %s -> %s -> %s (%d days)\n", dd.DepthPct,
				dd.PeakDate.Format("2006-01-02"), dd.TroughDate.Format("2006-01-02"), recovery, dd.DurationDays)
		}
		b.WriteString("\n")
	}

	if mc := report.MonteCarlo; mc != nil {
		b.WriteString("🎲 Monte Carlo Simulation\n")
		fmt.Fprintf(&b, "  Simulations: %d (seed %d)\n", mc.Config.NumSimulations, mc.Config.Seed)
		fmt.Fprintf(&b, "  Ruin Probability: %.2f%% (-%.0f%%)\n", mc.RuinProbabilityPct, mc.Config.RuinLossPct)
		fmt.Fprintf(&b, "  Median Final Equity: %.2f\n", mc.FinalEquity[50])
		fmt.Fprintf(&b, "  Median Max Drawdown: %.2f%%\n\n", mc.MedianMaxDrawdownPct)
	}

	if bm := report.Benchmark; bm != nil {
		b.WriteString("🏁 Benchmark\n")
		fmt.Fprintf(&b, "  Beta: %.3f  Alpha: %.2f%%  Corr: %.3f (%d obs)\n\n",
			bm.Beta, bm.AlphaPct, bm.Correlation, bm.Observations)
	}

	q := report.Quality
	fmt.Fprintf(&b, "🔍 Data Quality: %s\n", q.Score)
	fmt.Fprintf(&b, "  Valid: %d/%d  Warnings: %d  Outliers: %d\n", q.ValidTrades, q.TotalTrades, q.WarningCount, len(q.Outliers))
	if q.NegativeEquity.WentNegative {
		fmt.Fprintf(&b, "  ⚠️ Equity went negative (lowest %.2f)\n", q.NegativeEquity.LowestEquity)
	}
	for _, w := range report.Metadata.Warnings {
		fmt.Fprintf(&b, "  ⚠️ %s: %s\n", w.Code, w.Message)
	}

	return b.String()
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.2f", pf)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
