// Package drawdown analyzes the underwater structure of an equity series.
package drawdown

import (
	"math"
	"sort"
	"time"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
)

// DefaultThreshold is the depth (%) a drawdown must exceed to count as major
const DefaultThreshold = -10.0

// deepDrawdownPct marks the "below -10%" time bucket of Stats
const deepDrawdownPct = -10.0

// Underwater converts an equity series into non-positive drawdown percentages
// with the calendar days elapsed since the latest peak.
func Underwater(points []contracts.EquityPoint) []contracts.UnderwaterPoint {
	out := make([]contracts.UnderwaterPoint, 0, len(points))
	if len(points) == 0 {
		return out
	}

	peak := points[0].Equity
	peakAt := points[0].Time
	for _, p := range points {
		if p.Equity >= peak {
			peak = p.Equity
			peakAt = p.Time
			out = append(out, contracts.UnderwaterPoint{Time: p.Time})
			continue
		}

		dd := 0.0
		if peak > 0 {
			dd = -100 * (peak - p.Equity) / peak
		}
		out = append(out, contracts.UnderwaterPoint{
			Time:           p.Time,
			DrawdownPct:    dd,
			DaysUnderwater: contracts.DaysBetween(peakAt, p.Time),
		})
	}
	return out
}

// Stats summarizes drawdown durations. A run is a maximal sequence of points
// with negative drawdown; its length is counted in observations, which are
// trading days for a daily series. The average covers closed runs only.
func Stats(underwater []contracts.UnderwaterPoint) contracts.DrawdownStats {
	var s contracts.DrawdownStats
	n := len(underwater)
	if n == 0 {
		return s
	}

	var (
		run        int
		closedRuns []int
		inDD       int
		deep       int
	)
	for _, p := range underwater {
		if p.DrawdownPct < s.MaxDrawdownPct {
			s.MaxDrawdownPct = p.DrawdownPct
		}
		if p.DrawdownPct <= deepDrawdownPct {
			deep++
		}

		if p.DrawdownPct < 0 {
			run++
			inDD++
			if run > s.LongestDrawdownDays {
				s.LongestDrawdownDays = run
			}
			continue
		}
		if run > 0 {
			closedRuns = append(closedRuns, run)
			s.DrawdownCount++
			run = 0
		}
	}
	if run > 0 {
		s.DrawdownCount++ // 진행 중인 drawdown
	}

	if len(closedRuns) > 0 {
		total := 0
		for _, r := range closedRuns {
			total += r
		}
		s.AverageDrawdownDays = int(math.Round(float64(total) / float64(len(closedRuns))))
	}

	s.CurrentDrawdownPct = underwater[n-1].DrawdownPct
	s.PctTimeInDrawdown = 100 * float64(inDD) / float64(n)
	s.PctTimeBelowMinus10 = 100 * float64(deep) / float64(n)
	return s
}

// MajorDrawdowns detects peak-to-recovery episodes in one pass and keeps those
// deeper than threshold (a negative %, e.g. -10), worst first. A positive
// threshold is read as its negative. Recovery is the first point back at or
// above the prior peak; an episode still open at the end is IsOngoing.
func MajorDrawdowns(points []contracts.EquityPoint, threshold float64) []contracts.MajorDrawdown {
	if threshold > 0 {
		threshold = -threshold
	}
	episodes := make([]contracts.MajorDrawdown, 0)
	if len(points) == 0 {
		return episodes
	}

	var (
		peak      = points[0].Equity
		peakAt    = points[0].Time
		inDD      bool
		trough    float64
		troughAt  time.Time
		lastPoint = points[len(points)-1].Time
	)

	closeEpisode := func(recovery *time.Time) {
		ep := contracts.MajorDrawdown{
			PeakDate:     peakAt,
			TroughDate:   troughAt,
			PeakEquity:   peak,
			TroughEquity: trough,
			DaysToTrough: contracts.DaysBetween(peakAt, troughAt),
			IsOngoing:    recovery == nil,
		}
		if peak > 0 {
			ep.DepthPct = -100 * (peak - trough) / peak
		}
		if recovery != nil {
			r := *recovery
			days := contracts.DaysBetween(troughAt, r)
			ep.RecoveryDate = &r
			ep.DaysToRecovery = &days
			ep.DurationDays = contracts.DaysBetween(peakAt, r)
		} else {
			ep.DurationDays = contracts.DaysBetween(peakAt, lastPoint)
		}
		if ep.DepthPct < threshold {
			episodes = append(episodes, ep)
		}
	}

	for _, p := range points[1:] {
		if p.Equity >= peak {
			if inDD {
				at := p.Time
				closeEpisode(&at)
				inDD = false
			}
			peak = p.Equity
			peakAt = p.Time
			continue
		}

		if !inDD || p.Equity < trough {
			trough = p.Equity
			troughAt = p.Time
		}
		inDD = true
	}
	if inDD {
		closeEpisode(nil)
	}

	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].DepthPct < episodes[j].DepthPct
	})
	return episodes
}
