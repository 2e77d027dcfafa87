package services

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"fxjournal/internal/calc"
	apperrors "fxjournal/internal/errors"
	"fxjournal/internal/models"
)

const tradeOrder = "opened_at DESC, id DESC"

// tradeService persists trades and keeps their derived fields in step with the
// stored attributes.
type tradeService struct {
	db *gorm.DB
}

// NewTradeService creates a new TradeServicer.
func NewTradeService(db *gorm.DB) TradeServicer {
	return &tradeService{db: db}
}

// normalizeAttributes validates a and returns it with the symbol upper-cased and
// the direction in its canonical form.
func normalizeAttributes(a models.TradeAttributes) (models.TradeAttributes, error) {
	symbol, ok := models.NormalizeSymbol(a.Symbol)
	if !ok {
		return a, apperrors.WithMessage(apperrors.ErrInvalidTrade, "symbol must be 1-20 letters or digits")
	}
	a.Symbol = symbol

	direction, err := models.ParseDirection(string(a.Direction))
	if err != nil {
		return a, apperrors.WithMessage(apperrors.ErrInvalidTrade, "direction must be BUY or SELL")
	}
	a.Direction = direction

	if a.OpenedAt.IsZero() {
		return a, apperrors.WithMessage(apperrors.ErrInvalidTrade, "opened_at is required")
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"volume", a.Volume},
		{"entry_price", a.EntryPrice},
	} {
		if !calc.Finite(f.value) {
			return a, apperrors.WithMessage(apperrors.ErrInvalidTrade, f.name+" must be a finite number")
		}
		if f.value <= 0 {
			return a, apperrors.WithMessage(apperrors.ErrInvalidTrade, f.name+" must be greater than zero")
		}
	}
	for _, f := range []struct {
		name     string
		value    *float64
		positive bool
	}{
		{"exit_price", a.ExitPrice, true},
		{"stop_loss", a.StopLoss, true},
		{"take_profit", a.TakeProfit, true},
		{"swap", a.Swap, false},
	} {
		if f.value == nil {
			continue
		}
		if !calc.Finite(*f.value) {
			return a, apperrors.WithMessage(apperrors.ErrInvalidTrade, f.name+" must be a finite number")
		}
		if f.positive && *f.value <= 0 {
			return a, apperrors.WithMessage(apperrors.ErrInvalidTrade, f.name+" must be greater than zero when set")
		}
	}
	if a.Notes != nil && utf8.RuneCountInString(*a.Notes) > models.MaxNotesLength {
		return a, apperrors.WithMessage(apperrors.ErrInvalidTrade, fmt.Sprintf("notes must be at most %d characters", models.MaxNotesLength))
	}

	change := calc.ChangePercent(a.Direction, a.EntryPrice, a.ExitPrice)
	pl := calc.PLAmount(a.Direction, a.EntryPrice, a.ExitPrice, a.Volume, a.StopLoss, a.TakeProfit)
	if !calc.Finite(change) || !calc.Finite(pl) {
		return a, apperrors.WithMessage(apperrors.ErrInvalidTrade, "volume and prices are too large to compute a result")
	}
	return a, nil
}

func requireUser(userID string) error {
	if userID == "" {
		return apperrors.ErrUnauthorized
	}
	return nil
}

// AddTrade validates attrs, derives the performance fields and stores the trade.
func (s *tradeService) AddTrade(userID string, attrs models.TradeAttributes) (*models.Trade, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	attrs, err := normalizeAttributes(attrs)
	if err != nil {
		return nil, err
	}

	trade := calc.NewTrade("", userID, attrs)
	if err := s.db.Create(&trade).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &trade, nil
}

// UpdateTrade merges patch onto the stored trade, validates the merged attributes
// and re-derives every derived field from them.
func (s *tradeService) UpdateTrade(userID, tradeID string, patch models.TradePatch) (*models.Trade, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	trade, err := s.GetTradeByID(userID, tradeID)
	if err != nil {
		return nil, err
	}

	merged, err := patch.ApplyTo(trade.Attributes())
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidTrade, err.Error())
	}
	merged, err = normalizeAttributes(merged)
	if err != nil {
		return nil, err
	}

	trade.SetAttributes(merged)
	calc.Derive(trade)

	if err := s.db.Save(trade).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return trade, nil
}

// DeleteTrade permanently removes a trade.
func (s *tradeService) DeleteTrade(userID, tradeID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	result := s.db.Where("id = ? AND user_id = ?", tradeID, userID).Delete(&models.Trade{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrTradeNotFound
	}
	return nil
}

// GetTradeByID retrieves a trade by ID for a specific user
func (s *tradeService) GetTradeByID(userID, tradeID string) (*models.Trade, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var trade models.Trade
	if err := s.db.Where("id = ? AND user_id = ?", tradeID, userID).First(&trade).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTradeNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &trade, nil
}

func (s *tradeService) find(q *gorm.DB) ([]models.Trade, error) {
	trades := []models.Trade{}
	if err := q.Order(tradeOrder).Find(&trades).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return trades, nil
}

// ListTrades returns every trade of the user.
func (s *tradeService) ListTrades(userID string) ([]models.Trade, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.find(s.db.Where("user_id = ?", userID))
}

// ListTradesByMonth returns the trades whose derived month key is monthKey.
func (s *tradeService) ListTradesByMonth(userID, monthKey string) ([]models.Trade, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if !calc.ValidMonthKey(monthKey) {
		return nil, apperrors.ErrInvalidMonth
	}
	return s.find(s.db.Where("user_id = ? AND month_key = ?", userID, monthKey))
}

// ListTradesByFilter applies filter to the user's trades. The date filter runs in
// memory against the derived calendar date so it does not depend on how the
// backend stores timestamps.
func (s *tradeService) ListTradesByFilter(userID string, filter TradeFilter) ([]models.Trade, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if filter.MonthKey != "" && !calc.ValidMonthKey(filter.MonthKey) {
		return nil, apperrors.ErrInvalidMonth
	}
	if filter.Date != "" && !calc.ValidDateKey(filter.Date) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "date must be formatted as YYYY-MM-DD")
	}

	q, err := applyTradeFilters(s.db.Where("user_id = ?", userID), filter)
	if err != nil {
		return nil, err
	}

	trades, err := s.find(q)
	if err != nil {
		return nil, err
	}
	if filter.Date == "" {
		return trades, nil
	}

	matched := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if calc.DateKey(t.OpenedAt) == filter.Date {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

func applyTradeFilters(q *gorm.DB, f TradeFilter) (*gorm.DB, error) {
	if f.MonthKey != "" {
		q = q.Where("month_key = ?", f.MonthKey)
	}
	if len(f.Symbols) > 0 {
		symbols := make([]string, 0, len(f.Symbols))
		for _, raw := range f.Symbols {
			symbol, ok := models.NormalizeSymbol(raw)
			if !ok {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("invalid symbol %q", raw))
			}
			symbols = append(symbols, symbol)
		}
		q = q.Where("symbol IN ?", symbols)
	}
	if f.Direction != nil {
		q = q.Where("direction = ?", *f.Direction)
	}
	if f.OnlyOpen {
		q = q.Where("exit_price IS NULL")
	}
	return q, nil
}

// ListSymbols returns the distinct symbols the user has traded, ascending.
func (s *tradeService) ListSymbols(userID string) ([]string, error) {
	return s.distinct(userID, "symbol", "symbol ASC")
}

// ListMonthKeys returns the distinct months that have trades, newest first.
func (s *tradeService) ListMonthKeys(userID string) ([]string, error) {
	return s.distinct(userID, "month_key", "month_key DESC")
}

func (s *tradeService) distinct(userID, column, order string) ([]string, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	values := []string{}
	if err := s.db.Model(&models.Trade{}).
		Where("user_id = ?", userID).
		Distinct(column).
		Order(order).
		Pluck(column, &values).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return values, nil
}

// BulkAddTrades stores all of attrs or none of them. A validation failure names
// the offending position, counted from 1.
func (s *tradeService) BulkAddTrades(userID string, attrs []models.TradeAttributes) ([]models.Trade, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if len(attrs) == 0 {
		return []models.Trade{}, nil
	}

	trades := make([]models.Trade, 0, len(attrs))
	for i, a := range attrs {
		normalized, err := normalizeAttributes(a)
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidTrade, fmt.Sprintf("trade %d: %s", i+1, appErr.Message))
			}
			return nil, err
		}
		trades = append(trades, calc.NewTrade("", userID, normalized))
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&trades, 100).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trades, nil
}

// ClearTrades deletes every trade of the user and returns how many were removed.
func (s *tradeService) ClearTrades(userID string) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}

	result := s.db.Where("user_id = ?", userID).Delete(&models.Trade{})
	if result.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	return result.RowsAffected, nil
}

// currentMonthKey is the month key of now, used when a caller omits the month.
func currentMonthKey(now time.Time) string {
	return calc.MonthKey(now)
}
