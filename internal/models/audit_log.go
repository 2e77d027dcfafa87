package models

import "gorm.io/datatypes"

// Audit actions recorded for account and journal mutations.
const (
	AuditActionRegister = "REGISTER"
	AuditActionLogin    = "LOGIN"
	AuditActionCreate   = "CREATE_TRADE"
	AuditActionUpdate   = "UPDATE_TRADE"
	AuditActionDelete   = "DELETE_TRADE"
	AuditActionClear    = "CLEAR_TRADES"
	AuditActionBulk     = "BULK_CREATE_TRADES"
	AuditActionImport   = "IMPORT_TRADES"
	AuditActionSeed     = "SEED_DEMO_TRADES"
)

// Resource types stored on audit entries.
const (
	AuditResourceUser  = "user"
	AuditResourceTrade = "trade"
)

// AuditLog records journal mutations for later review.
type AuditLog struct {
	Base
	UserID       string         `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Action       string         `gorm:"not null" json:"action"`
	ResourceType string         `gorm:"not null" json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	IPAddress    string         `json:"ip_address"`
	Changes      datatypes.JSON `json:"changes,omitempty"`
}
