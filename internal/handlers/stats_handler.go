package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fxjournal/internal/services"
)

// StatsHandler serves monthly statistics. Every endpoint takes an optional
// month=YYYY-MM query and defaults to the current month.
type StatsHandler struct {
	statsService services.StatsServicer
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(statsService services.StatsServicer) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// statsEndpoint runs fetch for the authenticated user and the requested month and
// writes its result under key.
func statsEndpoint[T any](key string, fetch func(userID, monthKey string) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := getUserID(c)
		if err != nil {
			respondWithError(c, err)
			return
		}

		result, err := fetch(userID, c.Query("month"))
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{key: result})
	}
}

// MonthlySummary returns the month's aggregate statistics
// @Summary     Monthly summary
// @Tags        stats
// @Produce     json
// @Security    BearerAuth
// @Param       month query string false "Month key YYYY-MM"
// @Success     200 {object} services.MonthlySummary "Summary"
// @Failure     400 {object} ErrorResponse "Invalid month"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /stats/monthly [get]
func (h *StatsHandler) MonthlySummary(c *gin.Context) {
	statsEndpoint("summary", h.statsService.MonthlySummary)(c)
}

// SymbolBreakdown returns per-symbol statistics of the month
// @Summary     Per-symbol statistics
// @Tags        stats
// @Produce     json
// @Security    BearerAuth
// @Param       month query string false "Month key YYYY-MM"
// @Success     200 {array}  calc.SymbolStats "Symbols, most traded first"
// @Failure     400 {object} ErrorResponse "Invalid month"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /stats/symbols [get]
func (h *StatsHandler) SymbolBreakdown(c *gin.Context) {
	statsEndpoint("symbols", h.statsService.SymbolBreakdown)(c)
}

// DailySeries returns the month's cumulative daily P&L
// @Summary     Daily cumulative P&L
// @Tags        stats
// @Produce     json
// @Security    BearerAuth
// @Param       month query string false "Month key YYYY-MM"
// @Success     200 {array}  calc.DailyPoint "One point per day with closed trades"
// @Failure     400 {object} ErrorResponse "Invalid month"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /stats/daily [get]
func (h *StatsHandler) DailySeries(c *gin.Context) {
	statsEndpoint("daily", h.statsService.DailySeries)(c)
}

// Dashboard returns every KPI of the month in one response
// @Summary     Dashboard KPIs
// @Tags        stats
// @Produce     json
// @Security    BearerAuth
// @Param       month query string false "Month key YYYY-MM"
// @Success     200 {object} services.Dashboard "Dashboard"
// @Failure     400 {object} ErrorResponse "Invalid month"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /stats/dashboard [get]
func (h *StatsHandler) Dashboard(c *gin.Context) {
	statsEndpoint("dashboard", h.statsService.Dashboard)(c)
}
