package services

import (
	"time"

	"fxjournal/internal/calc"
	apperrors "fxjournal/internal/errors"
	"fxjournal/internal/models"
)

// statsService computes statistics on top of the trade store. It holds no state
// of its own.
type statsService struct {
	trades TradeServicer
	now    func() time.Time
}

// NewStatsService creates a new StatsServicer reading trades through trades.
func NewStatsService(trades TradeServicer) StatsServicer {
	return &statsService{trades: trades, now: time.Now}
}

// resolveMonth defaults an empty month to the current one.
func (s *statsService) resolveMonth(monthKey string) (string, error) {
	if monthKey == "" {
		return currentMonthKey(s.now()), nil
	}
	if !calc.ValidMonthKey(monthKey) {
		return "", apperrors.ErrInvalidMonth
	}
	return monthKey, nil
}

func (s *statsService) monthTrades(userID, monthKey string) (string, []models.Trade, error) {
	monthKey, err := s.resolveMonth(monthKey)
	if err != nil {
		return "", nil, err
	}
	trades, err := s.trades.ListTradesByMonth(userID, monthKey)
	if err != nil {
		return "", nil, err
	}
	return monthKey, trades, nil
}

// MonthlySummary returns the aggregate statistics and win rate of one month.
func (s *statsService) MonthlySummary(userID, monthKey string) (*MonthlySummary, error) {
	monthKey, trades, err := s.monthTrades(userID, monthKey)
	if err != nil {
		return nil, err
	}

	stats := calc.Monthly(trades)
	stats.MonthKey = monthKey
	return &MonthlySummary{MonthlyStats: stats, WinRate: calc.WinRate(trades)}, nil
}

// SymbolBreakdown returns per-symbol statistics for one month.
func (s *statsService) SymbolBreakdown(userID, monthKey string) ([]calc.SymbolStats, error) {
	_, trades, err := s.monthTrades(userID, monthKey)
	if err != nil {
		return nil, err
	}
	return calc.BySymbol(trades), nil
}

// DailySeries returns the cumulative daily change of one month. It reads every
// trade and lets the calculation select the month.
func (s *statsService) DailySeries(userID, monthKey string) ([]calc.DailyPoint, error) {
	monthKey, err := s.resolveMonth(monthKey)
	if err != nil {
		return nil, err
	}
	trades, err := s.trades.ListTrades(userID)
	if err != nil {
		return nil, err
	}
	return calc.DailyCumulative(trades, monthKey), nil
}

// Dashboard returns the KPI bundle of one month.
func (s *statsService) Dashboard(userID, monthKey string) (*Dashboard, error) {
	monthKey, trades, err := s.monthTrades(userID, monthKey)
	if err != nil {
		return nil, err
	}

	stats := calc.Monthly(trades)
	dash := &Dashboard{
		MonthKey:     monthKey,
		WinRate:      calc.WinRate(trades),
		TotalTrades:  stats.TotalTrades,
		NetPL:        stats.NetPL,
		AvgChangePct: stats.AvgChangePct,
		Directions:   calc.DirectionSplit(trades),
		Symbols:      calc.BySymbol(trades),
		Daily:        calc.DailyCumulative(trades, monthKey),
	}
	if symbol, ok := calc.MostTraded(trades); ok {
		dash.MostTraded = &symbol
	}
	return dash, nil
}
