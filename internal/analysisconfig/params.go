// Package analysisconfig holds the scalar parameters of one analytics run.
//
// Parameters come from pkg/config defaults, optionally overlaid with a YAML
// profile, and are hashed onto every report so a result can be reproduced.
package analysisconfig

import (
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/distribution"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/drawdown"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/equity"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/quality"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/risk"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/rolling"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/config"
)

// Params is the full parameter set of an analytics run
// ⭐ SSOT: 리포트에 찍히는 해시는 이 struct의 JSON에서 계산
type Params struct {
	Name               string  `yaml:"name" json:"name"`
	StartingCapital    float64 `yaml:"starting_capital" json:"starting_capital"`
	ContractMultiplier float64 `yaml:"contract_multiplier" json:"contract_multiplier"`
	YearsOverride      float64 `yaml:"years_override" json:"years_override"` // 0 = 실제 기간
	ExcludeInvalid     bool    `yaml:"exclude_invalid" json:"exclude_invalid"`

	Rolling    RollingParams                `yaml:"rolling" json:"rolling"`
	Drawdown   DrawdownParams               `yaml:"drawdown" json:"drawdown"`
	Quality    QualityParams                `yaml:"quality" json:"quality"`
	Histogram  distribution.HistogramConfig `yaml:"histogram" json:"histogram"`
	MonteCarlo MonteCarloParams             `yaml:"monte_carlo" json:"monte_carlo"`
}

// RollingParams trailing window sizes in days
type RollingParams struct {
	Windows         []int `yaml:"windows" json:"windows"`
	BenchmarkWindow int   `yaml:"benchmark_window" json:"benchmark_window"` // rolling beta/alpha
}

// DrawdownParams major drawdown filter
type DrawdownParams struct {
	MajorThresholdPct float64 `yaml:"major_threshold_pct" json:"major_threshold_pct"` // negative, e.g. -10
}

// QualityParams outlier detection
type QualityParams struct {
	ZScoreThreshold float64 `yaml:"zscore_threshold" json:"zscore_threshold"`
}

// MonteCarloParams bootstrap ruin simulation
type MonteCarloParams struct {
	Enabled        bool    `yaml:"enabled" json:"enabled"`
	NumSimulations int     `yaml:"num_simulations" json:"num_simulations"`
	TradesPerPath  int     `yaml:"trades_per_path" json:"trades_per_path"`
	RuinLossPct    float64 `yaml:"ruin_loss_pct" json:"ruin_loss_pct"`
	Seed           int64   `yaml:"seed" json:"seed"`
	MinSamples     int     `yaml:"min_samples" json:"min_samples"`
}

// Default returns the built-in parameter set
func Default() Params {
	mc := risk.DefaultMonteCarloConfig()
	return Params{
		Name:               "default",
		StartingCapital:    equity.DefaultStartingCapital,
		ContractMultiplier: 1,
		Rolling:            RollingParams{Windows: append([]int(nil), rolling.DefaultWindows...), BenchmarkWindow: rolling.DefaultBenchmarkWindow},
		Drawdown:           DrawdownParams{MajorThresholdPct: drawdown.DefaultThreshold},
		Quality:            QualityParams{ZScoreThreshold: quality.DefaultZScoreThreshold},
		Histogram:          distribution.DefaultHistogramConfig(),
		MonteCarlo: MonteCarloParams{
			Enabled:        true,
			NumSimulations: mc.NumSimulations,
			TradesPerPath:  mc.TradesPerPath,
			RuinLossPct:    mc.RuinLossPct,
			Seed:           mc.Seed,
			MinSamples:     mc.MinSamples,
		},
	}
}

// FromConfig builds Params from the environment-level analytics defaults
func FromConfig(cfg *config.Config) Params {
	p := Default()
	if cfg == nil {
		return p
	}
	a := cfg.Analytics
	p.StartingCapital = a.StartingCapital
	p.ContractMultiplier = a.ContractMultiplier
	if len(a.RollingWindows) > 0 {
		p.Rolling.Windows = append([]int(nil), a.RollingWindows...)
	}
	p.Drawdown.MajorThresholdPct = a.DrawdownThreshold
	p.Quality.ZScoreThreshold = a.ZScoreThreshold
	p.Histogram = distribution.HistogramConfig{
		BucketWidth: a.HistBucketWidth,
		Min:         a.HistMin,
		Max:         a.HistMax,
	}
	return p
}

// MonteCarloConfig converts to the simulator config
func (p Params) MonteCarloConfig() risk.MonteCarloConfig {
	return risk.MonteCarloConfig{
		NumSimulations: p.MonteCarlo.NumSimulations,
		TradesPerPath:  p.MonteCarlo.TradesPerPath,
		RuinLossPct:    p.MonteCarlo.RuinLossPct,
		Seed:           p.MonteCarlo.Seed,
		MinSamples:     p.MonteCarlo.MinSamples,
	}
}

// QualityConfig converts to validator thresholds
func (p Params) QualityConfig() quality.Config {
	qc := quality.DefaultConfig()
	qc.StartingCapital = p.StartingCapital
	qc.ZScoreThreshold = p.Quality.ZScoreThreshold
	return qc
}

// TradeStatsOptions converts to trade statistics options
func (p Params) TradeStatsOptions() risk.Options {
	return risk.Options{StartingCapital: p.StartingCapital, Multiplier: p.ContractMultiplier}
}
