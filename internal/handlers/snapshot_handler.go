package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fxjournal/internal/calc"
	"fxjournal/internal/pagination"
	"fxjournal/internal/services"
)

// SnapshotHandler serves monthly performance snapshots.
type SnapshotHandler struct {
	snapshotService services.SnapshotServicer
	now             func() time.Time
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(snapshotService services.SnapshotServicer) *SnapshotHandler {
	return &SnapshotHandler{snapshotService: snapshotService, now: time.Now}
}

// RecordSnapshotsRequest selects the month to record; empty means the current month.
type RecordSnapshotsRequest struct {
	Month string `json:"month" binding:"omitempty,month_key"`
}

// ListSnapshots returns the user's snapshots, newest month first
// @Summary     List performance snapshots
// @Tags        snapshots
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.PerformanceSnapshot] "Paginated snapshots"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /snapshots [get]
func (h *SnapshotHandler) ListSnapshots(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	result, err := h.snapshotService.ListSnapshots(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RecordSnapshots records the snapshots of every user with trades in a month
// @Summary     Record performance snapshots
// @Description Pipeline endpoint authenticated with X-API-Key
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header string                 true  "Pipeline API key"
// @Param       request   body   RecordSnapshotsRequest false "Month to record"
// @Success     200 {object} map[string]interface{} "Month and number of users recorded"
// @Failure     400 {object} ErrorResponse "Invalid month"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Snapshots unavailable"
// @Router      /pipeline/snapshots [post]
func (h *SnapshotHandler) RecordSnapshots(c *gin.Context) {
	var req RecordSnapshotsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, invalidInput(err))
			return
		}
	}

	now := h.now()
	month := req.Month
	if month == "" {
		month = calc.MonthKey(now)
	}

	users, err := h.snapshotService.RecordSnapshots(month, now)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"month_key": month, "users": users})
}
