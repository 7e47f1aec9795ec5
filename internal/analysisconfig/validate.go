package analysisconfig

import (
	"fmt"
)

// ValidationError 검증 실패 (리포트 계산 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// maxWindowDays bounds rolling windows to roughly ten years of calendar days
const maxWindowDays = 3650

// Validate checks all required constraints
// 실패 시 ValidationError 반환
func Validate(p *Params) error {
	if p.StartingCapital <= 0 {
		return ValidationError{"starting_capital", "must be > 0"}
	}
	if p.ContractMultiplier <= 0 {
		return ValidationError{"contract_multiplier", "must be > 0"}
	}
	if p.YearsOverride < 0 {
		return ValidationError{"years_override", "must be >= 0"}
	}

	// === Rolling ===
	seen := make(map[int]bool, len(p.Rolling.Windows))
	for i, w := range p.Rolling.Windows {
		if w <= 0 || w > maxWindowDays {
			return ValidationError{fmt.Sprintf("rolling.windows[%d]", i), fmt.Sprintf("must be in [1, %d]", maxWindowDays)}
		}
		if seen[w] {
			return ValidationError{fmt.Sprintf("rolling.windows[%d]", i), fmt.Sprintf("duplicate window %d", w)}
		}
		seen[w] = true
	}
	if p.Rolling.BenchmarkWindow < 2 || p.Rolling.BenchmarkWindow > maxWindowDays {
		return ValidationError{"rolling.benchmark_window", fmt.Sprintf("must be in [2, %d]", maxWindowDays)}
	}

	// === Drawdown ===
	if p.Drawdown.MajorThresholdPct >= 0 || p.Drawdown.MajorThresholdPct < -100 {
		return ValidationError{"drawdown.major_threshold_pct", "must be in [-100, 0)"}
	}

	// === Quality ===
	if p.Quality.ZScoreThreshold <= 0 {
		return ValidationError{"quality.zscore_threshold", "must be > 0"}
	}

	// === Histogram ===
	if !p.Histogram.Valid() {
		return ValidationError{"histogram", "bucket_width must be > 0 and max > min"}
	}

	// === Monte Carlo ===
	if p.MonteCarlo.Enabled {
		if err := p.MonteCarloConfig().Validate(); err != nil {
			return ValidationError{"monte_carlo", err.Error()}
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(p *Params) []Warning {
	var warnings []Warning

	if p.MonteCarlo.Enabled && p.MonteCarlo.NumSimulations < 500 {
		warnings = append(warnings, Warning{
			Code:    "FEW_SIMULATIONS",
			Message: "monte_carlo.num_simulations < 500: 파산 확률 추정 오차 큼",
		})
	}
	if p.MonteCarlo.Enabled && p.MonteCarlo.Seed == 0 {
		warnings = append(warnings, Warning{
			Code:    "RANDOM_SEED",
			Message: "monte_carlo.seed = 0: 실행마다 결과가 달라짐 (실제 시드는 결과에 기록)",
		})
	}
	if p.YearsOverride > 0 {
		warnings = append(warnings, Warning{
			Code:    "YEARS_OVERRIDE",
			Message: "years_override set: 연환산 수익률이 실제 기간과 다를 수 있음",
		})
	}
	if len(p.Rolling.Windows) == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_ROLLING_WINDOWS",
			Message: "rolling.windows empty: 기본 윈도우(30/90/365) 사용",
		})
	}

	return warnings
}
