// Package calc derives per-trade performance fields and aggregate statistics from
// trade records. Every function is pure and total: empty or all-open inputs produce
// zero-valued results, never errors.
package calc

import (
	"math"
	"time"

	"fxjournal/internal/models"

	"github.com/shopspring/decimal"
)

// MonthKey returns the "YYYY-MM" grouping key of t in t's own location.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// ValidMonthKey reports whether s is a "YYYY-MM" month key.
func ValidMonthKey(s string) bool {
	if len(s) != 7 {
		return false
	}
	_, err := time.Parse("2006-01", s)
	return err == nil
}

// ValidDateKey reports whether s is a "YYYY-MM-DD" calendar date.
func ValidDateKey(s string) bool {
	if len(s) != 10 {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// DateKey returns the "YYYY-MM-DD" calendar date of t in t's own location.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ChangePercent is the direction-aware percentage move from entry to exit; positive
// is favourable. An absent or zero exit yields 0.
func ChangePercent(direction models.Direction, entry float64, exit *float64) float64 {
	if exit == nil || *exit == 0 || entry == 0 {
		return 0
	}
	if direction == models.DirectionShort {
		return (entry - *exit) / entry * 100
	}
	return (*exit - entry) / entry * 100
}

// PLAmount is the dollar result of a trade. A positive take-profit amount is
// returned as-is and a positive stop-loss amount is returned negated, whatever the
// exit price was; only when neither is set is the result computed from the price
// move. An absent or zero exit yields 0.
func PLAmount(direction models.Direction, entry float64, exit *float64, volume float64, stopLoss, takeProfit *float64) float64 {
	if exit == nil || *exit == 0 {
		return 0
	}
	if takeProfit != nil && *takeProfit > 0 {
		return *takeProfit
	}
	if stopLoss != nil && *stopLoss > 0 {
		return -*stopLoss
	}
	return Round2(direction.Sign() * (*exit - entry) * volume)
}

// PLSign is "+" for a non-negative change and "-" otherwise.
func PLSign(changePct float64) string {
	if changePct >= 0 {
		return "+"
	}
	return "-"
}

// Derive recomputes every derived field of t from its own attributes. It must run
// after every create and every merged update so the derived columns never drift.
func Derive(t *models.Trade) {
	change := ChangePercent(t.Direction, t.EntryPrice, t.ExitPrice)
	t.MonthKey = MonthKey(t.OpenedAt)
	t.ChangePct = change
	// Swap is not folded into the P&L percentage yet.
	t.PLPct = change
	t.PLSign = PLSign(change)
	t.PLAmount = PLAmount(t.Direction, t.EntryPrice, t.ExitPrice, t.Volume, t.StopLoss, t.TakeProfit)
}

// NewTrade builds a fully derived trade from attrs.
func NewTrade(id, userID string, attrs models.TradeAttributes) models.Trade {
	t := models.Trade{ID: id, UserID: userID}
	t.SetAttributes(attrs)
	Derive(&t)
	return t
}

// Finite reports whether x is neither NaN nor an infinity.
func Finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Round2 rounds x to two decimal places, half away from zero, on the shortest
// decimal representation of x. So -0.125 becomes -0.13. NaN and infinities are
// returned unchanged.
func Round2(x float64) float64 {
	if !Finite(x) {
		return x
	}
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}
