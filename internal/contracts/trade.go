package contracts

import (
	"fmt"
	"time"
)

// Direction is the side of a closed position
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Valid reports whether d is a known direction
func (d Direction) Valid() bool {
	return d == DirectionLong || d == DirectionShort
}

// Trade represents a closed position as materialized by the persistence layer
// ⭐ SSOT: 금액 필드는 모두 minor unit (cents) 정수
// The analytics engine treats a Trade as a read-only value.
type Trade struct {
	ID         string    `json:"id"`
	StrategyID string    `json:"strategy_id"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	Direction  Direction `json:"direction"`
	EntryPrice int64     `json:"entry_price"` // cents
	ExitPrice  int64     `json:"exit_price"`  // cents
	Quantity   int64     `json:"quantity"`
	PnL        int64     `json:"pnl"`        // cents, realized
	Commission int64     `json:"commission"` // cents
}

// PnLDollars converts the realized P&L to decimal currency units
func (t Trade) PnLDollars() float64 {
	return float64(t.PnL) / 100
}

// HoldingMinutes returns the time between entry and exit in minutes
func (t Trade) HoldingMinutes() float64 {
	return t.ExitTime.Sub(t.EntryTime).Minutes()
}

// ExitDay returns the UTC calendar day of the exit (time-of-day dropped)
func (t Trade) ExitDay() time.Time {
	return TruncateDay(t.ExitTime)
}

// Notional returns entry price * quantity * multiplier in cents
func (t Trade) Notional(multiplier float64) float64 {
	if multiplier <= 0 {
		multiplier = 1
	}
	return float64(t.EntryPrice) * float64(t.Quantity) * multiplier
}

func (t Trade) String() string {
	return fmt.Sprintf("Trade{id=%s strategy=%s %s exit=%s pnl=%d}",
		t.ID, t.StrategyID, t.Direction, t.ExitTime.Format(time.RFC3339), t.PnL)
}

// TruncateDay returns midnight UTC of the calendar day containing t
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns whole calendar days from a to b (negative if b is before a)
func DaysBetween(a, b time.Time) int {
	return int(TruncateDay(b).Sub(TruncateDay(a)).Hours() / 24)
}
