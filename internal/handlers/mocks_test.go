package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"fxjournal/internal/calc"
	"fxjournal/internal/config"
	"fxjournal/internal/logger"
	"fxjournal/internal/models"
	"fxjournal/internal/pagination"
	"fxjournal/internal/services"
	"fxjournal/internal/validator"
)

const testUserID = "0190b6a4-5f6e-7c3d-9a1b-2c3d4e5f6a7b"

// --- mock services ---

type mockUserService struct {
	createUserFn            func(email, password, displayName string) (*models.User, error)
	getUserByIDFn           func(id string) (*models.User, error)
	attemptLoginFn          func(email, password string) (*models.User, error)
	storeRefreshTokenHashFn func(userID, tokenHash string) error
	getRefreshTokenHashFn   func(userID string) (string, error)
}

func (m *mockUserService) CreateUser(email, password, displayName string) (*models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(email, password, displayName)
	}
	return &models.User{Base: models.Base{ID: testUserID}, Email: email, DisplayName: displayName}, nil
}

func (m *mockUserService) GetUserByEmail(email string) (*models.User, error) {
	return &models.User{Base: models.Base{ID: testUserID}, Email: email}, nil
}

func (m *mockUserService) GetUserByID(id string) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(id)
	}
	return &models.User{Base: models.Base{ID: id}, Email: "trader@example.com"}, nil
}

func (m *mockUserService) VerifyPassword(*models.User, string) bool { return true }

func (m *mockUserService) AttemptLogin(email, password string) (*models.User, error) {
	if m.attemptLoginFn != nil {
		return m.attemptLoginFn(email, password)
	}
	return &models.User{Base: models.Base{ID: testUserID}, Email: email}, nil
}

func (m *mockUserService) StoreRefreshTokenHash(userID, tokenHash string) error {
	if m.storeRefreshTokenHashFn != nil {
		return m.storeRefreshTokenHashFn(userID, tokenHash)
	}
	return nil
}

func (m *mockUserService) GetRefreshTokenHash(userID string) (string, error) {
	if m.getRefreshTokenHashFn != nil {
		return m.getRefreshTokenHashFn(userID)
	}
	return "", nil
}

// mockTradeService embeds the interface so tests only stub what they call; an
// unstubbed call panics.
type mockTradeService struct {
	services.TradeServicer

	addTradeFn      func(userID string, attrs models.TradeAttributes) (*models.Trade, error)
	updateTradeFn   func(userID, tradeID string, patch models.TradePatch) (*models.Trade, error)
	deleteTradeFn   func(userID, tradeID string) error
	getTradeFn      func(userID, tradeID string) (*models.Trade, error)
	listTradesFn    func(userID string) ([]models.Trade, error)
	listByMonthFn   func(userID, monthKey string) ([]models.Trade, error)
	listByFilterFn  func(userID string, filter services.TradeFilter) ([]models.Trade, error)
	listSymbolsFn   func(userID string) ([]string, error)
	listMonthKeysFn func(userID string) ([]string, error)
	bulkAddFn       func(userID string, attrs []models.TradeAttributes) ([]models.Trade, error)
	clearFn         func(userID string) (int64, error)
}

func (m *mockTradeService) AddTrade(userID string, attrs models.TradeAttributes) (*models.Trade, error) {
	return m.addTradeFn(userID, attrs)
}

func (m *mockTradeService) UpdateTrade(userID, tradeID string, patch models.TradePatch) (*models.Trade, error) {
	return m.updateTradeFn(userID, tradeID, patch)
}

func (m *mockTradeService) DeleteTrade(userID, tradeID string) error {
	return m.deleteTradeFn(userID, tradeID)
}

func (m *mockTradeService) GetTradeByID(userID, tradeID string) (*models.Trade, error) {
	return m.getTradeFn(userID, tradeID)
}

func (m *mockTradeService) ListTrades(userID string) ([]models.Trade, error) {
	return m.listTradesFn(userID)
}

func (m *mockTradeService) ListTradesByMonth(userID, monthKey string) ([]models.Trade, error) {
	return m.listByMonthFn(userID, monthKey)
}

func (m *mockTradeService) ListTradesByFilter(userID string, filter services.TradeFilter) ([]models.Trade, error) {
	return m.listByFilterFn(userID, filter)
}

func (m *mockTradeService) ListSymbols(userID string) ([]string, error) {
	return m.listSymbolsFn(userID)
}

func (m *mockTradeService) ListMonthKeys(userID string) ([]string, error) {
	return m.listMonthKeysFn(userID)
}

func (m *mockTradeService) BulkAddTrades(userID string, attrs []models.TradeAttributes) ([]models.Trade, error) {
	return m.bulkAddFn(userID, attrs)
}

func (m *mockTradeService) ClearTrades(userID string) (int64, error) {
	return m.clearFn(userID)
}

type mockStatsService struct {
	monthlyFn   func(userID, monthKey string) (*services.MonthlySummary, error)
	symbolsFn   func(userID, monthKey string) ([]calc.SymbolStats, error)
	dailyFn     func(userID, monthKey string) ([]calc.DailyPoint, error)
	dashboardFn func(userID, monthKey string) (*services.Dashboard, error)
}

func (m *mockStatsService) MonthlySummary(userID, monthKey string) (*services.MonthlySummary, error) {
	return m.monthlyFn(userID, monthKey)
}

func (m *mockStatsService) SymbolBreakdown(userID, monthKey string) ([]calc.SymbolStats, error) {
	return m.symbolsFn(userID, monthKey)
}

func (m *mockStatsService) DailySeries(userID, monthKey string) ([]calc.DailyPoint, error) {
	return m.dailyFn(userID, monthKey)
}

func (m *mockStatsService) Dashboard(userID, monthKey string) (*services.Dashboard, error) {
	return m.dashboardFn(userID, monthKey)
}

type mockSnapshotService struct {
	recordFn func(monthKey string, recordedAt time.Time) (int, error)
	listFn   func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.PerformanceSnapshot], error)
}

func (m *mockSnapshotService) RecordSnapshots(monthKey string, recordedAt time.Time) (int, error) {
	return m.recordFn(monthKey, recordedAt)
}

func (m *mockSnapshotService) ListSnapshots(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.PerformanceSnapshot], error) {
	return m.listFn(userID, page)
}

type auditEntry struct {
	userID, action, resourceType, resourceID string
	changes                                  map[string]any
}

type mockAuditService struct {
	mu      sync.Mutex
	entries []auditEntry
	listFn  func(userID, action string, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
}

func (m *mockAuditService) Log(userID, action, resourceType, resourceID, _ string, changes map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, auditEntry{userID, action, resourceType, resourceID, changes})
}

func (m *mockAuditService) List(userID, action string, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
	if m.listFn != nil {
		return m.listFn(userID, action, page)
	}
	return nil, nil
}

func (m *mockAuditService) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.action
	}
	return out
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
	config.Set(&config.Config{
		JWTSecret:            "handlers-test-secret",
		JWTExpirationDur:     15 * time.Minute,
		JWTRefreshExpiration: 24 * time.Hour,
	})
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}
