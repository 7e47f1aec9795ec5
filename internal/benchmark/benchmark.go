// Package benchmark loads daily benchmark closes and aligns them to a strategy's trading days.
package benchmark

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bostonrobbie/Manus-Dashboard-sub003/internal/contracts"
	"github.com/bostonrobbie/Manus-Dashboard-sub003/pkg/httputil"
)

const dateLayout = "2006-01-02"

// Point is one daily close
type Point struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Close float64 `json:"close"`
}

// Series holds closes sorted by date
type Series struct {
	Name   string
	dates  []time.Time
	closes []float64
}

// NewSeries validates and sorts points. Duplicate dates keep the last close.
func NewSeries(name string, points []Point) (*Series, error) {
	byDay := make(map[string]float64, len(points))
	for i, p := range points {
		if _, err := time.Parse(dateLayout, p.Date); err != nil {
			return nil, fmt.Errorf("point %d: invalid date %q", i, p.Date)
		}
		if p.Close <= 0 {
			return nil, fmt.Errorf("point %d (%s): close must be > 0", i, p.Date)
		}
		byDay[p.Date] = p.Close
	}

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys) // YYYY-MM-DD는 문자열 정렬 = 날짜 정렬

	s := &Series{Name: name, dates: make([]time.Time, len(keys)), closes: make([]float64, len(keys))}
	for i, k := range keys {
		s.dates[i], _ = time.Parse(dateLayout, k)
		s.closes[i] = byDay[k]
	}
	return s, nil
}

// Len returns the number of closes
func (s *Series) Len() int {
	return len(s.dates)
}

// closeOnOrBefore returns the latest close at or before day
func (s *Series) closeOnOrBefore(day time.Time) (float64, bool) {
	i := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(day) })
	if i == 0 {
		return 0, false
	}
	return s.closes[i-1], true
}

// AlignedReturns returns one simple return per day, matching a daily equity series.
// Missing closes carry the previous close forward (return 0). The first day's
// return uses the close before it when known, else 0.
func (s *Series) AlignedReturns(days []time.Time) []float64 {
	out := make([]float64, len(days))
	if s == nil || len(days) == 0 || len(s.dates) == 0 {
		return out
	}

	prev, ok := s.closeOnOrBefore(contracts.TruncateDay(days[0]).AddDate(0, 0, -1))
	for i, d := range days {
		cur, found := s.closeOnOrBefore(contracts.TruncateDay(d))
		if !found {
			continue
		}
		if ok && prev > 0 {
			out[i] = cur/prev - 1
		}
		prev, ok = cur, true
	}
	return out
}

// Load reads points from a JSON file or an http(s) URL.
// The body is a JSON array of {"date": "YYYY-MM-DD", "close": 123.4}.
func Load(ctx context.Context, source string, client *httputil.Client) (*Series, error) {
	var points []Point

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if client == nil {
			return nil, fmt.Errorf("benchmark %s: no http client", source)
		}
		if err := client.GetJSON(ctx, source, &points); err != nil {
			return nil, fmt.Errorf("fetch benchmark: %w", err)
		}
	} else {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("read benchmark: %w", err)
		}
		if err := json.Unmarshal(data, &points); err != nil {
			return nil, fmt.Errorf("decode benchmark %s: %w", source, err)
		}
	}

	return NewSeries(source, points)
}
