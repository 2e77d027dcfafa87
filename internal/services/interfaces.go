package services

import (
	"time"

	"fxjournal/internal/calc"
	"fxjournal/internal/models"
	"fxjournal/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, displayName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// TradeFilter narrows a trade listing. Empty fields do not filter; set fields
// combine with AND.
type TradeFilter struct {
	Symbols   []string
	Direction *models.Direction
	OnlyOpen  bool
	MonthKey  string
	Date      string // YYYY-MM-DD, matched against the trade's local opening date
}

// TradeServicer defines the contract for the trade journal storage. Every call is
// scoped to the trades owned by userID, and every list is ordered newest first.
type TradeServicer interface {
	AddTrade(userID string, attrs models.TradeAttributes) (*models.Trade, error)
	UpdateTrade(userID, tradeID string, patch models.TradePatch) (*models.Trade, error)
	DeleteTrade(userID, tradeID string) error
	GetTradeByID(userID, tradeID string) (*models.Trade, error)
	ListTrades(userID string) ([]models.Trade, error)
	ListTradesByMonth(userID, monthKey string) ([]models.Trade, error)
	ListTradesByFilter(userID string, filter TradeFilter) ([]models.Trade, error)
	ListSymbols(userID string) ([]string, error)
	ListMonthKeys(userID string) ([]string, error)
	BulkAddTrades(userID string, attrs []models.TradeAttributes) ([]models.Trade, error)
	ClearTrades(userID string) (int64, error)
}

// MonthlySummary is a month's aggregate statistics plus its win rate.
type MonthlySummary struct {
	calc.MonthlyStats
	WinRate float64 `json:"win_rate"`
}

// Dashboard bundles the KPIs shown for one month.
type Dashboard struct {
	MonthKey     string               `json:"month_key"`
	MostTraded   *string              `json:"most_traded"`
	WinRate      float64              `json:"win_rate"`
	TotalTrades  int                  `json:"total_trades"`
	NetPL        float64              `json:"net_pl"`
	AvgChangePct float64              `json:"avg_change_pct"`
	Directions   calc.DirectionCounts `json:"directions"`
	Symbols      []calc.SymbolStats   `json:"symbols"`
	Daily        []calc.DailyPoint    `json:"daily"`
}

// StatsServicer defines the contract for trade statistics.
type StatsServicer interface {
	MonthlySummary(userID, monthKey string) (*MonthlySummary, error)
	SymbolBreakdown(userID, monthKey string) ([]calc.SymbolStats, error)
	DailySeries(userID, monthKey string) ([]calc.DailyPoint, error)
	Dashboard(userID, monthKey string) (*Dashboard, error)
}

// SnapshotServicer defines the contract for monthly performance snapshots.
type SnapshotServicer interface {
	RecordSnapshots(monthKey string, recordedAt time.Time) (int, error)
	ListSnapshots(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.PerformanceSnapshot], error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
	List(userID, action string, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
}
