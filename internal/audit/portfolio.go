package audit

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/analysisconfig"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/correlation"
)

// GroupByStrategy splits trades by StrategyID, keeping input order per group
func GroupByStrategy(trades []contracts.Trade) map[string][]contracts.Trade {
	groups := make(map[string][]contracts.Trade)
	for _, t := range trades {
		groups[t.StrategyID] = append(groups[t.StrategyID], t)
	}
	return groups
}

// AnalyzeStrategies computes one report per strategy in parallel, a combined
// report over all trades and the correlation matrix of the daily equity
// curves over their common date range.
// A strategy left empty by ExcludeInvalid is dropped from the result.
func (a *Analyzer) AnalyzeStrategies(ctx context.Context, trades []contracts.Trade, params *analysisconfig.Params) (*PortfolioReport, error) {
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}
	groups := GroupByStrategy(trades)

	out := &PortfolioReport{Strategies: make(map[string]*PerformanceReport, len(groups))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for id, group := range groups {
		g.Go(func() error {
			report, err := a.Analyze(gctx, group, params, Options{StrategyID: id})
			if errors.Is(err, ErrNoTrades) {
				a.log.Warn().Str("strategy_id", id).Err(err).Msg("strategy skipped")
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			out.Strategies[id] = report
			mu.Unlock()
			return nil
		})
	}

	g.Go(func() error {
		combined, err := a.Analyze(gctx, trades, params, Options{})
		if err != nil {
			return err
		}
		out.Combined = combined
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	curves, from, to := alignDaily(out.Strategies)
	out.Correlation = correlation.Matrix(curves)
	out.OverlapFrom, out.OverlapTo = from, to

	return out, nil
}

// alignDaily cuts every daily equity series to the dates all of them cover.
// Each series has one point per trading day of its own range, so the cut
// series are date-aligned index by index. No overlap yields empty curves.
func alignDaily(reports map[string]*PerformanceReport) (map[string][]float64, time.Time, time.Time) {
	curves := make(map[string][]float64, len(reports))
	if len(reports) == 0 {
		return curves, time.Time{}, time.Time{}
	}

	ids := make([]string, 0, len(reports))
	for id := range reports {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		from, to time.Time
		seen     bool
	)
	for _, id := range ids {
		points := reports[id].DailyEquity
		if len(points) == 0 {
			continue
		}
		first, last := points[0].Date, points[len(points)-1].Date
		if !seen || first.After(from) {
			from = first
		}
		if !seen || last.Before(to) {
			to = last
		}
		seen = true
	}

	for _, id := range ids {
		values := []float64{}
		if !from.After(to) {
			for _, p := range reports[id].DailyEquity {
				if !p.Date.Before(from) && !p.Date.After(to) {
					values = append(values, p.Equity)
				}
			}
		}
		curves[id] = values
	}
	if from.After(to) {
		return curves, time.Time{}, time.Time{}
	}
	return curves, from, to
}
