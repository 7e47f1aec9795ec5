package risk

import (
	"math"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/equity"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/stats"
)

// TargetRiskOfRuin is the ruin probability (fraction) solved for by MinBalanceForZeroRisk
const TargetRiskOfRuin = 0.0001

// CalculateRiskOfRuin derives payoff ratio, trading advantage, capital units,
// risk of ruin and Kelly from trade stats.
// Returns nil without trades or without an average loss.
//
//	A   = (p*b - q) / b
//	U   = capital / avgLoss
//	RoR = 100 * ((1-A)/(1+A))^U   (A > 0), 50 (A == 0), 100 (A < 0)
func CalculateRiskOfRuin(s contracts.TradeStats, startingCapital float64) *contracts.RiskOfRuinDetails {
	if s.TotalTrades == 0 || s.AvgLoss == 0 {
		return nil
	}
	startingCapital = equity.NormalizeCapital(startingCapital)

	d := &contracts.RiskOfRuinDetails{
		WinProbability:  float64(s.WinningTrades) / float64(s.TotalTrades),
		LossProbability: float64(s.LosingTrades) / float64(s.TotalTrades),
		PayoffRatio:     s.AvgWin / s.AvgLoss,
		CapitalUnits:    startingCapital / s.AvgLoss,
	}

	if d.PayoffRatio > 0 {
		d.TradingAdvantage = (d.WinProbability*d.PayoffRatio - d.LossProbability) / d.PayoffRatio
	} else {
		d.TradingAdvantage = -1 // 수익 거래 없음
	}

	if stats.IsNearZero(d.TradingAdvantage) {
		d.TradingAdvantage = 0
	}
	a := d.TradingAdvantage
	switch {
	case a > 0:
		base := (1 - a) / (1 + a)
		d.RiskOfRuin = stats.Finite(100 * math.Pow(base, d.CapitalUnits))
		minBalance := MinBalanceForRisk(a, s.AvgLoss, TargetRiskOfRuin)
		d.MinBalanceForZeroRisk = &minBalance
	case a == 0:
		d.RiskOfRuin = 50
	default:
		d.RiskOfRuin = 100
	}

	d.KellyPct = 100 * math.Max(0, a)
	return d
}

// MinBalanceForRisk solves U = ln(target)/ln((1-A)/(1+A)) and returns U*avgLoss.
// Only meaningful for A > 0.
func MinBalanceForRisk(advantage, avgLoss, target float64) float64 {
	if advantage <= 0 || avgLoss <= 0 || target <= 0 || target >= 1 {
		return 0
	}
	base := (1 - advantage) / (1 + advantage)
	if base <= 0 {
		return avgLoss
	}
	units := math.Log(target) / math.Log(base)
	return stats.Finite(units * avgLoss)
}
