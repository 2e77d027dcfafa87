package handlers

import (
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fxjournal/internal/csvio"
	apperrors "fxjournal/internal/errors"
	"fxjournal/internal/logger"
	"fxjournal/internal/models"
	"fxjournal/internal/seed"
	"fxjournal/internal/services"
)

const (
	maxImportBytes = 5 << 20
	maxDemoTrades  = 500
)

// TradeHandler handles trade journal requests.
type TradeHandler struct {
	tradeService services.TradeServicer
	auditService services.AuditServicer
	newRand      func() *rand.Rand
	now          func() time.Time
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeService services.TradeServicer, auditService services.AuditServicer) *TradeHandler {
	return &TradeHandler{
		tradeService: tradeService,
		auditService: auditService,
		newRand:      func() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) },
		now:          time.Now,
	}
}

// TradeRequest represents the request payload for logging a trade
type TradeRequest struct {
	Symbol     string           `json:"symbol" binding:"required,symbol"`
	OpenedAt   time.Time        `json:"opened_at" binding:"required"`
	Direction  models.Direction `json:"direction" binding:"required,trade_direction"`
	Volume     float64          `json:"volume" binding:"required,gt=0"`
	EntryPrice float64          `json:"entry_price" binding:"required,gt=0"`
	ExitPrice  *float64         `json:"exit_price" binding:"omitempty,gt=0"`
	StopLoss   *float64         `json:"stop_loss" binding:"omitempty,gt=0"`
	TakeProfit *float64         `json:"take_profit" binding:"omitempty,gt=0"`
	Swap       *float64         `json:"swap"`
	Notes      *string          `json:"notes" binding:"omitempty,max=2000"`
}

func (r TradeRequest) attributes() models.TradeAttributes {
	return models.TradeAttributes{
		Symbol:     r.Symbol,
		OpenedAt:   r.OpenedAt,
		Direction:  r.Direction,
		Volume:     r.Volume,
		EntryPrice: r.EntryPrice,
		ExitPrice:  r.ExitPrice,
		StopLoss:   r.StopLoss,
		TakeProfit: r.TakeProfit,
		Swap:       r.Swap,
		Notes:      r.Notes,
	}
}

// BulkTradesRequest represents a batch of trades stored all-or-nothing
type BulkTradesRequest struct {
	Trades []TradeRequest `json:"trades" binding:"required,min=1,max=1000,dive"`
}

// TradeListResponse wraps a list of trades
type TradeListResponse struct {
	Trades []models.Trade `json:"trades"`
	Count  int            `json:"count"`
}

func tradeList(trades []models.Trade) TradeListResponse {
	return TradeListResponse{Trades: trades, Count: len(trades)}
}

// CreateTrade logs a new trade
// @Summary     Log a trade
// @Description Store a trade; month key, change%, P&L% and P&L amount are derived
// @Tags        trades
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body TradeRequest true "Trade details"
// @Success     201 {object} models.Trade "Trade created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /trades [post]
func (h *TradeHandler) CreateTrade(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	trade, err := h.tradeService.AddTrade(userID, req.attributes())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditActionCreate, models.AuditResourceTrade, trade.ID, c.ClientIP(),
		map[string]any{"symbol": trade.Symbol, "direction": trade.Direction, "volume": trade.Volume})

	c.JSON(http.StatusCreated, gin.H{"trade": trade})
}

// ListTrades lists the user's trades, newest first
// @Summary     List trades
// @Description List trades with optional filters. All set filters must match.
// @Tags        trades
// @Produce     json
// @Security    BearerAuth
// @Param       symbols query string false "Comma-separated symbols"
// @Param       type    query string false "BUY or SELL"
// @Param       open    query bool   false "Only trades without an exit price"
// @Param       month   query string false "Month key YYYY-MM"
// @Param       date    query string false "Opening date YYYY-MM-DD"
// @Success     200 {object} TradeListResponse "Trades"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /trades [get]
func (h *TradeHandler) ListTrades(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := parseTradeFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	trades, err := h.tradeService.ListTradesByFilter(userID, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, tradeList(trades))
}

func parseTradeFilter(c *gin.Context) (services.TradeFilter, error) {
	var filter services.TradeFilter

	for _, v := range c.QueryArray("symbols") {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Symbols = append(filter.Symbols, s)
			}
		}
	}

	if v := c.Query("type"); v != "" {
		d, err := models.ParseDirection(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type, must be BUY or SELL")
		}
		filter.Direction = &d
	}

	if v := c.Query("open"); v != "" {
		open, err := strconv.ParseBool(v)
		if err != nil {
			return filter, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid open, must be true or false")
		}
		filter.OnlyOpen = open
	}

	filter.MonthKey = c.Query("month")
	filter.Date = c.Query("date")
	return filter, nil
}

// GetTrade returns one trade
// @Summary     Get a trade
// @Tags        trades
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trade ID"
// @Success     200 {object} models.Trade "Trade"
// @Failure     400 {object} ErrorResponse "Invalid id"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Trade not found"
// @Router      /trades/{id} [get]
func (h *TradeHandler) GetTrade(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tradeID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	trade, err := h.tradeService.GetTradeByID(userID, tradeID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trade": trade})
}

// UpdateTrade applies a partial update
// @Summary     Update a trade
// @Description Absent fields are kept, null clears optional fields. Derived fields are recomputed.
// @Tags        trades
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Trade ID"
// @Param       request body models.TradePatch true "Fields to change"
// @Success     200 {object} models.Trade "Updated trade"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Trade not found"
// @Router      /trades/{id} [patch]
func (h *TradeHandler) UpdateTrade(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tradeID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var patch models.TradePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	trade, err := h.tradeService.UpdateTrade(userID, tradeID, patch)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditActionUpdate, models.AuditResourceTrade, trade.ID, c.ClientIP(),
		map[string]any{"fields": patchedFields(patch)})

	c.JSON(http.StatusOK, gin.H{"trade": trade})
}

func patchedFields(p models.TradePatch) []string {
	fields := []string{}
	for _, f := range []struct {
		name string
		set  bool
	}{
		{"symbol", p.Symbol.Set},
		{"opened_at", p.OpenedAt.Set},
		{"direction", p.Direction.Set},
		{"volume", p.Volume.Set},
		{"entry_price", p.EntryPrice.Set},
		{"exit_price", p.ExitPrice.Set},
		{"stop_loss", p.StopLoss.Set},
		{"take_profit", p.TakeProfit.Set},
		{"swap", p.Swap.Set},
		{"notes", p.Notes.Set},
	} {
		if f.set {
			fields = append(fields, f.name)
		}
	}
	return fields
}

// DeleteTrade permanently removes a trade
// @Summary     Delete a trade
// @Tags        trades
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Trade ID"
// @Success     200 {object} map[string]string "Trade deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Trade not found"
// @Router      /trades/{id} [delete]
func (h *TradeHandler) DeleteTrade(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	tradeID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.tradeService.DeleteTrade(userID, tradeID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditActionDelete, models.AuditResourceTrade, tradeID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Trade deleted successfully"})
}

// ClearTrades deletes every trade of the user
// @Summary     Delete all trades
// @Description Requires confirm=true
// @Tags        trades
// @Produce     json
// @Security    BearerAuth
// @Param       confirm query bool true "Must be true"
// @Success     200 {object} map[string]int64 "Number of deleted trades"
// @Failure     400 {object} ErrorResponse "Confirmation required"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /trades [delete]
func (h *TradeHandler) ClearTrades(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if confirmed, _ := strconv.ParseBool(c.Query("confirm")); !confirmed {
		respondWithError(c, apperrors.ErrConfirmationRequired)
		return
	}

	deleted, err := h.tradeService.ClearTrades(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditActionClear, models.AuditResourceTrade, "", c.ClientIP(), map[string]any{"deleted": deleted})

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// BulkCreateTrades stores a batch of trades atomically
// @Summary     Log several trades
// @Description Either every trade is stored or none is
// @Tags        trades
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body BulkTradesRequest true "Trades"
// @Success     201 {object} TradeListResponse "Trades created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /trades/bulk [post]
func (h *TradeHandler) BulkCreateTrades(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BulkTradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	attrs := make([]models.TradeAttributes, len(req.Trades))
	for i, t := range req.Trades {
		attrs[i] = t.attributes()
	}
	h.storeBatch(c, userID, models.AuditActionBulk, attrs)
}

func (h *TradeHandler) storeBatch(c *gin.Context, userID, action string, attrs []models.TradeAttributes) {
	trades, err := h.tradeService.BulkAddTrades(userID, attrs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, action, models.AuditResourceTrade, "", c.ClientIP(), map[string]any{"count": len(trades)})

	c.JSON(http.StatusCreated, tradeList(trades))
}

// ImportTrades imports trades from CSV
// @Summary     Import trades from CSV
// @Description Accepts a text/csv body or a multipart form with a "file" field. Header: symbol,datetime,type,volume,entry,exit,sl,tp,swap,notes
// @Tags        trades
// @Accept      text/csv,multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file formData file false "CSV file"
// @Success     201 {object} TradeListResponse "Imported trades"
// @Failure     400 {object} ErrorResponse "Invalid CSV"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /trades/import [post]
func (h *TradeHandler) ImportTrades(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	var src io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "multipart form needs a file field"))
			return
		}
		file, err := header.Open()
		if err != nil {
			respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
			return
		}
		defer file.Close()
		src = file
	}

	attrs, err := csvio.Decode(src)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.storeBatch(c, userID, models.AuditActionImport, attrs)
}

// SeedDemoTrades fills the journal with random demo trades
// @Summary     Add demo trades
// @Tags        trades
// @Produce     json
// @Security    BearerAuth
// @Param       count query int false "Number of trades (default 20, max 500)"
// @Success     201 {object} TradeListResponse "Demo trades"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /trades/demo [post]
func (h *TradeHandler) SeedDemoTrades(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	count := seed.DefaultCount
	if v := c.Query("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxDemoTrades {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("count must be between 1 and %d", maxDemoTrades)))
			return
		}
		count = n
	}

	h.storeBatch(c, userID, models.AuditActionSeed, seed.Generate(h.newRand(), h.now(), count))
}

// ExportTrades downloads trades as CSV
// @Summary     Export trades as CSV
// @Tags        trades
// @Produce     text/csv
// @Security    BearerAuth
// @Param       month query string false "Month key YYYY-MM; all trades when omitted"
// @Success     200 {string} string "CSV file"
// @Failure     400 {object} ErrorResponse "Invalid month"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /exports/trades [get]
func (h *TradeHandler) ExportTrades(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	month := c.Query("month")
	var trades []models.Trade
	if month == "" {
		trades, err = h.tradeService.ListTrades(userID)
		month = "all"
	} else {
		trades, err = h.tradeService.ListTradesByMonth(userID, month)
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="trades-%s.csv"`, month))
	c.Status(http.StatusOK)
	if err := csvio.Encode(c.Writer, trades); err != nil {
		logger.Get().Errorw("failed to write trade export", "user_id", userID, "error", err)
	}
}

// ListSymbols returns the distinct symbols the user traded
// @Summary     List traded symbols
// @Tags        trades
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string][]string "Symbols, ascending"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /symbols [get]
func (h *TradeHandler) ListSymbols(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	symbols, err := h.tradeService.ListSymbols(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols})
}

// ListMonths returns the months that have trades
// @Summary     List months with trades
// @Tags        trades
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string][]string "Month keys, newest first"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /months [get]
func (h *TradeHandler) ListMonths(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	months, err := h.tradeService.ListMonthKeys(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"months": months})
}
