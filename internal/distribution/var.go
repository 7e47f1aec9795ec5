package distribution

import (
	"math"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/stats"
)

// =============================================================================
// VaR (Value at Risk) - Historical Simulation
// =============================================================================

// VaRResult VaR 계산 결과
// ⭐ SSOT: VaR/CVaR는 손실을 양수로 표현
// - VaR=1.8 → 95% 신뢰수준에서 일 최대 1.8% 손실 가능
// - CVaR=2.4 → tail 구간 평균 2.4% 손실 예상
type VaRResult struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
}

// HistoricalVaR computes VaR/CVaR from returns at a confidence level (e.g. 0.95).
// The tail is the floor((1-confidence)*N) lowest observations, at least one.
func HistoricalVaR(returns []float64, confidence float64) VaRResult {
	res := VaRResult{Confidence: confidence}
	if len(returns) == 0 || confidence <= 0 || confidence >= 1 {
		return res
	}

	// 오름차순: 손실이 앞에
	sorted := stats.Sorted(returns)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	if sorted[idx] < 0 {
		res.VaR = -sorted[idx]
	}
	res.CVaR = tailLoss(sorted, idx)
	return res
}

// tailLoss is the mean of sorted[0..varIdx] as a positive loss, 0 if it is a gain
func tailLoss(sorted []float64, varIdx int) float64 {
	if len(sorted) == 0 || varIdx < 0 {
		return 0
	}
	avg := stats.Mean(sorted[:varIdx+1])
	if avg < 0 {
		return -avg
	}
	return 0
}
