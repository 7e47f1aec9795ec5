package equity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/calendar"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
)

// DailySeries is the trading-day equity series plus the return arrays derived from it
type DailySeries struct {
	Points          []contracts.DailyEquityPoint
	StartingCapital float64
	// Returns has one entry per point (dailyPnL / previousEquity)
	Returns []float64
	// DownsideReturns is the strictly negative subset of Returns
	DownsideReturns []float64
}

// IsEmpty reports whether the series has no points
func (s DailySeries) IsEmpty() bool {
	return len(s.Points) == 0
}

// Equity returns the equity values in date order
func (s DailySeries) Equity() []float64 {
	return contracts.DailyEquityValues(s.Points)
}

// ReturnsPct returns the daily returns as percentages
func (s DailySeries) ReturnsPct() []float64 {
	out := make([]float64, len(s.Returns))
	for i, r := range s.Returns {
		out[i] = r * 100
	}
	return out
}

// AsEquityPoints converts the series to equity points with running peak and drawdown
func (s DailySeries) AsEquityPoints() []contracts.EquityPoint {
	points := make([]contracts.EquityPoint, len(s.Points))
	for i, p := range s.Points {
		points[i] = contracts.EquityPoint{Time: p.Date, Equity: p.Equity}
	}
	return WithDrawdown(points)
}

type dayBucket struct {
	pnl   decimal.Decimal
	count int
}

// BuildDaily buckets trades by exit day and walks every trading day from the
// first to the last exit day. Trading days without trades carry equity forward
// with IsForwardFilled set. A trade exiting on a weekend or holiday is booked
// on the next trading day.
func BuildDaily(trades []contracts.Trade, startingCapital float64) DailySeries {
	startingCapital = NormalizeCapital(startingCapital)
	series := DailySeries{
		Points:          []contracts.DailyEquityPoint{},
		StartingCapital: startingCapital,
		Returns:         []float64{},
		DownsideReturns: []float64{},
	}
	if len(trades) == 0 {
		return series
	}

	buckets := make(map[int64]*dayBucket) // key: unix seconds of the UTC day
	var first, last time.Time
	for i, t := range trades {
		day := calendar.OnOrAfter(t.ExitTime)
		b, ok := buckets[day.Unix()]
		if !ok {
			b = &dayBucket{pnl: decimal.Zero}
			buckets[day.Unix()] = b
		}
		b.pnl = b.pnl.Add(decimal.NewFromInt(t.PnL).Div(hundred))
		b.count++

		if i == 0 || day.Before(first) {
			first = day
		}
		if i == 0 || day.After(last) {
			last = day
		}
	}

	days := calendar.TradingDaysBetween(first, last)
	series.Points = make([]contracts.DailyEquityPoint, 0, days)
	series.Returns = make([]float64, 0, days)

	equity := decimal.NewFromFloat(startingCapital)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if !calendar.IsTradingDay(day) {
			continue
		}

		prev := equity
		pnl := decimal.Zero
		count := 0
		if b, ok := buckets[day.Unix()]; ok {
			pnl = b.pnl
			count = b.count
		}
		equity = equity.Add(pnl)

		ret := 0.0
		if prev.IsPositive() {
			ret = pnl.Div(prev).InexactFloat64()
		}

		series.Points = append(series.Points, contracts.DailyEquityPoint{
			Date:            day,
			Equity:          equity.InexactFloat64(),
			DailyPnL:        pnl.InexactFloat64(),
			DailyReturn:     ret,
			TradeCount:      count,
			IsForwardFilled: count == 0,
		})
		series.Returns = append(series.Returns, ret)
		if ret < 0 {
			series.DownsideReturns = append(series.DownsideReturns, ret)
		}
	}

	return series
}
