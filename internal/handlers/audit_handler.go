package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fxjournal/internal/pagination"
	"fxjournal/internal/services"
)

// AuditHandler serves the user's audit history.
type AuditHandler struct {
	auditService services.AuditServicer
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService services.AuditServicer) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// AuditListRequest is the query of the audit listing.
type AuditListRequest struct {
	pagination.PageRequest
	Action string `form:"action" binding:"omitempty,max=64"`
}

// ListAuditLogs returns the authenticated user's audit entries, newest first
// @Summary     List audit entries
// @Tags        audit
// @Produce     json
// @Security    BearerAuth
// @Param       action    query string false "Only entries with this action, e.g. CREATE_TRADE"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.AuditLog] "Paginated audit entries"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /audit-logs [get]
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AuditListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	result, err := h.auditService.List(userID, strings.ToUpper(strings.TrimSpace(req.Action)), req.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
