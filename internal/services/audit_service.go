package services

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	apperrors "fxjournal/internal/errors"
	"fxjournal/internal/logger"
	"fxjournal/internal/models"
	"fxjournal/internal/pagination"
)

// auditService records account and journal mutations and lists them back.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// encodeChanges marshals the change set; an unencodable set is stored as {}.
func encodeChanges(action string, changes map[string]any) datatypes.JSON {
	if changes == nil {
		return nil
	}
	data, err := json.Marshal(changes)
	if err != nil {
		logger.Named("audit").Errorw("failed to marshal audit changes", "action", action, "error", err)
		data = []byte("{}")
	}
	return datatypes.JSON(data)
}

// Log records an audit entry. A failed write is logged and swallowed; the
// mutation it describes has already been committed.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      encodeChanges(action, changes),
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Named("audit").Errorw("failed to write audit entry",
			"user_id", userID,
			"action", action,
			"resource_id", resourceID,
			"error", err,
		)
	}
}

// List returns the user's audit entries, newest first. A non-empty action keeps
// only entries with that action.
func (s *auditService) List(userID, action string, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	page.Defaults()

	q := s.db.Model(&models.AuditLog{}).Where("user_id = ?", userID)
	if action != "" {
		q = q.Where("action = ?", action)
	}
	q = q.Session(&gorm.Session{})

	var totalItems int64
	if err := q.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var entries []models.AuditLog
	if err := q.Order("created_at DESC, id DESC").Scopes(pagination.Paginate(page)).Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(entries, page.Page, page.PageSize, totalItems)
	return &result, nil
}
