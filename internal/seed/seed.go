// Package seed generates plausible demo trades for an empty journal.
package seed

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"fxjournal/internal/models"
)

// DefaultCount is the number of trades a demo seed creates.
const DefaultCount = 20

// Symbols are the instruments demo trades are drawn from.
var Symbols = []string{"XAUUSD", "EURUSD", "GBPUSD", "USDJPY", "AUDUSD"}

const demoNote = "Demo trade note"

type priceRange struct {
	low, high float64
	move      float64 // maximum exit distance from entry
	decimals  int
}

func rangeFor(symbol string) priceRange {
	switch {
	case strings.HasPrefix(symbol, "XAU"):
		return priceRange{low: 2000, high: 2100, move: 30, decimals: 2}
	case strings.Contains(symbol, "JPY"):
		return priceRange{low: 140, high: 150, move: 2, decimals: 3}
	default:
		return priceRange{low: 1.0, high: 1.5, move: 0.01, decimals: 5}
	}
}

func round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

func between(rng *rand.Rand, low, high float64) float64 {
	return low + rng.Float64()*(high-low)
}

func ptr[T any](v T) *T { return &v }

// Generate returns n trades opened within the 30 days before now. About 70% are
// closed. Stop loss and take profit are dollar amounts, matching how the P&L
// derivation uses them.
func Generate(rng *rand.Rand, now time.Time, n int) []models.TradeAttributes {
	out := make([]models.TradeAttributes, 0, n)
	for i := 0; i < n; i++ {
		symbol := Symbols[rng.Intn(len(Symbols))]
		pr := rangeFor(symbol)

		direction := models.DirectionLong
		if rng.Intn(2) == 1 {
			direction = models.DirectionShort
		}

		openedAt := now.
			Add(-time.Duration(rng.Intn(30)) * 24 * time.Hour).
			Add(-time.Duration(rng.Intn(24)) * time.Hour).
			Truncate(time.Minute)

		entry := round(between(rng, pr.low, pr.high), pr.decimals)
		a := models.TradeAttributes{
			Symbol:     symbol,
			OpenedAt:   openedAt,
			Direction:  direction,
			Volume:     math.Max(0.01, round(between(rng, 0.01, 0.5), 2)),
			EntryPrice: entry,
		}

		if rng.Float64() < 0.7 {
			exit := round(entry+between(rng, -pr.move, pr.move), pr.decimals)
			if exit <= 0 {
				exit = entry
			}
			a.ExitPrice = ptr(exit)
		}
		if rng.Float64() < 0.5 {
			a.StopLoss = ptr(round(between(rng, 5, 50), 2))
		}
		if rng.Float64() < 0.5 {
			a.TakeProfit = ptr(round(between(rng, 5, 50), 2))
		}
		if rng.Float64() < 0.5 {
			a.Swap = ptr(round(between(rng, -5, 5), 2))
		}
		if rng.Float64() < 0.3 {
			a.Notes = ptr(demoNote)
		}
		out = append(out, a)
	}
	return out
}
