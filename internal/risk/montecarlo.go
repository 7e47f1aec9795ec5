package risk

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/equity"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/stats"
)

var (
	ErrInsufficientData = errors.New("insufficient data for simulation")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// =============================================================================
// Monte Carlo Types
// =============================================================================

// MonteCarloConfig Monte Carlo ruin 시뮬레이션 설정
// ⭐ SSOT: 재현성을 위해 모든 설정을 결과에 기록
type MonteCarloConfig struct {
	NumSimulations int     `json:"num_simulations" yaml:"num_simulations"` // 경로 수 (기본: 1000)
	TradesPerPath  int     `json:"trades_per_path" yaml:"trades_per_path"` // 0 = 입력 거래 수
	RuinLossPct    float64 `json:"ruin_loss_pct" yaml:"ruin_loss_pct"`     // 시작 자본 대비 손실 % (기본: 50)
	Seed           int64   `json:"seed" yaml:"seed"`                       // 재현성용 시드 (0=랜덤)
	MinSamples     int     `json:"min_samples" yaml:"min_samples"`         // 최소 거래 수 (fail-closed)
}

// DefaultMonteCarloConfig 기본 Monte Carlo 설정
func DefaultMonteCarloConfig() MonteCarloConfig {
	return MonteCarloConfig{
		NumSimulations: 1000,
		TradesPerPath:  0,
		RuinLossPct:    50,
		Seed:           0,
		MinSamples:     10,
	}
}

// Validate checks config ranges
func (c MonteCarloConfig) Validate() error {
	if c.NumSimulations <= 0 {
		return fmt.Errorf("%w: num_simulations must be positive", ErrInvalidConfig)
	}
	if c.TradesPerPath < 0 {
		return fmt.Errorf("%w: trades_per_path must be >= 0", ErrInvalidConfig)
	}
	if c.RuinLossPct <= 0 || c.RuinLossPct > 100 {
		return fmt.Errorf("%w: ruin_loss_pct must be in (0, 100]", ErrInvalidConfig)
	}
	if c.MinSamples < 0 {
		return fmt.Errorf("%w: min_samples must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// MonteCarloResult bootstrap ruin 시뮬레이션 결과
type MonteCarloResult struct {
	RunID                string           `json:"run_id"`
	RunDate              time.Time        `json:"run_date"`
	Config               MonteCarloConfig `json:"config"`
	InputSampleCount     int              `json:"input_sample_count"`
	StartingCapital      float64          `json:"starting_capital"`
	RuinProbabilityPct   float64          `json:"ruin_probability_pct"`
	MeanFinalEquity      float64          `json:"mean_final_equity"`
	FinalEquity          map[int]float64  `json:"final_equity_percentiles"` // 5, 25, 50, 75, 95
	MedianMaxDrawdownPct float64          `json:"median_max_drawdown_pct"`
	WorstMaxDrawdownPct  float64          `json:"worst_max_drawdown_pct"`
}

var finalEquityPercentiles = []int{5, 25, 50, 75, 95}

// =============================================================================
// Simulation
// =============================================================================

// SimulateRuin resamples trade P&L (decimal currency) with replacement into
// NumSimulations equity paths and reports how often a path loses RuinLossPct of
// the starting capital. The same Seed always yields the same result.
func SimulateRuin(ctx context.Context, pnls []float64, startingCapital float64, cfg MonteCarloConfig) (*MonteCarloResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(pnls) == 0 || len(pnls) < cfg.MinSamples {
		return nil, fmt.Errorf("%w: %d trades, need %d", ErrInsufficientData, len(pnls), max(cfg.MinSamples, 1))
	}
	startingCapital = equity.NormalizeCapital(startingCapital)

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		cfg.Seed = seed // 실제 사용한 시드를 결과에 기록
	}
	rng := rand.New(rand.NewSource(seed))

	steps := cfg.TradesPerPath
	if steps == 0 {
		steps = len(pnls)
	}
	ruinLevel := startingCapital * (1 - cfg.RuinLossPct/100)

	finals := make([]float64, cfg.NumSimulations)
	drawdowns := make([]float64, cfg.NumSimulations)
	ruined := 0

	for i := 0; i < cfg.NumSimulations; i++ {
		// CPU-bound 루프: 주기적으로 취소 확인
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("simulation cancelled: %w", err)
			}
		}

		eq := startingCapital
		peak := startingCapital
		maxDD := 0.0
		hitRuin := false
		for d := 0; d < steps; d++ {
			eq += pnls[rng.Intn(len(pnls))]
			if eq > peak {
				peak = eq
			}
			if peak > 0 {
				if dd := 100 * (peak - eq) / peak; dd > maxDD {
					maxDD = dd
				}
			}
			if eq <= ruinLevel {
				hitRuin = true
			}
		}
		if hitRuin {
			ruined++
		}
		finals[i] = eq
		drawdowns[i] = maxDD
	}

	sortedFinals := stats.Sorted(finals)
	percentiles := make(map[int]float64, len(finalEquityPercentiles))
	for _, p := range finalEquityPercentiles {
		percentiles[p] = stats.Percentile(sortedFinals, float64(p))
	}
	sortedDD := stats.Sorted(drawdowns)

	return &MonteCarloResult{
		RunID:                uuid.New().String(),
		RunDate:              time.Now(),
		Config:               cfg,
		InputSampleCount:     len(pnls),
		StartingCapital:      startingCapital,
		RuinProbabilityPct:   100 * float64(ruined) / float64(cfg.NumSimulations),
		MeanFinalEquity:      stats.Mean(finals),
		FinalEquity:          percentiles,
		MedianMaxDrawdownPct: stats.Median(drawdowns),
		WorstMaxDrawdownPct:  sortedDD[len(sortedDD)-1],
	}, nil
}
