package calc

import (
	"sort"

	"fxjournal/internal/models"
)

// MonthlyStats aggregates a set of trades, normally one month's worth.
type MonthlyStats struct {
	MonthKey      string  `json:"month_key"`
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	AvgChangePct  float64 `json:"avg_change_pct"`
	TotalVolume   float64 `json:"total_volume"`
	NetPL         float64 `json:"net_pl"`
	GrossProfit   float64 `json:"gross_profit"`
	GrossLoss     float64 `json:"gross_loss"`
}

// SymbolStats aggregates the trades of one symbol.
type SymbolStats struct {
	Symbol       string  `json:"symbol"`
	TradeCount   int     `json:"trade_count"`
	AvgChangePct float64 `json:"avg_change_pct"`
	WinCount     int     `json:"win_count"`
	LossCount    int     `json:"loss_count"`
	TotalVolume  float64 `json:"total_volume"`
	NetPL        float64 `json:"net_pl"`
}

// DailyPoint is one day of a cumulative series.
type DailyPoint struct {
	Date       string  `json:"date"`
	Cumulative float64 `json:"cumulative"`
}

// DirectionCounts splits trades by side.
type DirectionCounts struct {
	Buy  int `json:"buy"`
	Sell int `json:"sell"`
}

// Closed returns the trades that have an exit price, preserving order.
func Closed(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			out = append(out, t)
		}
	}
	return out
}

// weightedChange returns Σ(change%×volume)/Σvolume and Σvolume, or 0 when the total
// volume is 0.
func weightedChange(trades []models.Trade) (avg, volume float64) {
	var weighted float64
	for _, t := range trades {
		volume += t.Volume
		weighted += t.ChangePct * t.Volume
	}
	if volume == 0 {
		return 0, 0
	}
	return weighted / volume, volume
}

// Monthly computes MonthlyStats. TotalTrades counts every input trade; all other
// figures cover closed trades only.
func Monthly(trades []models.Trade) MonthlyStats {
	stats := MonthlyStats{TotalTrades: len(trades)}
	if len(trades) > 0 {
		stats.MonthKey = trades[0].MonthKey
	}

	closed := Closed(trades)
	if len(closed) == 0 {
		return stats
	}

	var net, profit, loss float64
	for _, t := range closed {
		net += t.PLAmount
		switch {
		case t.ChangePct > 0:
			stats.WinningTrades++
			profit += t.PLAmount
		case t.ChangePct < 0:
			stats.LosingTrades++
			loss += t.PLAmount
		}
	}

	stats.AvgChangePct, stats.TotalVolume = weightedChange(closed)
	stats.NetPL = Round2(net)
	stats.GrossProfit = Round2(profit)
	if loss < 0 {
		loss = -loss
	}
	stats.GrossLoss = Round2(loss)
	return stats
}

// BySymbol groups trades per symbol, most traded first. Equal counts are ordered by
// symbol so the output is deterministic.
func BySymbol(trades []models.Trade) []SymbolStats {
	groups := make(map[string][]models.Trade)
	for _, t := range trades {
		groups[t.Symbol] = append(groups[t.Symbol], t)
	}

	out := make([]SymbolStats, 0, len(groups))
	for symbol, group := range groups {
		s := SymbolStats{Symbol: symbol, TradeCount: len(group)}

		closed := Closed(group)
		var net float64
		for _, t := range closed {
			net += t.PLAmount
			if t.ChangePct > 0 {
				s.WinCount++
			} else if t.ChangePct < 0 {
				s.LossCount++
			}
		}
		s.AvgChangePct, s.TotalVolume = weightedChange(closed)
		s.NetPL = Round2(net)
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TradeCount != out[j].TradeCount {
			return out[i].TradeCount > out[j].TradeCount
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// WinRate is the percentage of closed trades with a positive change, 0 when nothing
// is closed.
func WinRate(trades []models.Trade) float64 {
	var closed, wins int
	for _, t := range trades {
		if !t.IsClosed() {
			continue
		}
		closed++
		if t.ChangePct > 0 {
			wins++
		}
	}
	if closed == 0 {
		return 0
	}
	return float64(wins) / float64(closed) * 100
}

// DailyCumulative builds the running sum of each day's volume-weighted change% for
// the closed trades of monthKey, in ascending date order.
func DailyCumulative(trades []models.Trade, monthKey string) []DailyPoint {
	days := make(map[string][]models.Trade)
	for _, t := range trades {
		if t.MonthKey != monthKey || !t.IsClosed() {
			continue
		}
		key := DateKey(t.OpenedAt)
		days[key] = append(days[key], t)
	}

	dates := make([]string, 0, len(days))
	for d := range days {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]DailyPoint, 0, len(dates))
	var running float64
	for _, d := range dates {
		avg, _ := weightedChange(days[d])
		running += avg
		out = append(out, DailyPoint{Date: d, Cumulative: running})
	}
	return out
}

// MostTraded returns the symbol with the most trades, breaking ties with the
// lexicographically smallest symbol. ok is false for an empty input.
func MostTraded(trades []models.Trade) (symbol string, ok bool) {
	counts := make(map[string]int)
	for _, t := range trades {
		counts[t.Symbol]++
	}

	best := 0
	for s, n := range counts {
		if n > best || (n == best && s < symbol) {
			symbol, best = s, n
		}
	}
	return symbol, best > 0
}

// DirectionSplit counts BUY and SELL trades.
func DirectionSplit(trades []models.Trade) DirectionCounts {
	var c DirectionCounts
	for _, t := range trades {
		switch t.Direction {
		case models.DirectionLong:
			c.Buy++
		case models.DirectionShort:
			c.Sell++
		}
	}
	return c
}
