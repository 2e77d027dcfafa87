package models

import (
	"time"

	"fxjournal/internal/uuid"

	"gorm.io/gorm"
)

// PerformanceSnapshot freezes one user's monthly statistics at a point in time.
// There is at most one row per (user, month); re-recording overwrites it. No Base
// embed, no soft deletes.
type PerformanceSnapshot struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID       string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_snapshots_user_month,priority:1" json:"user_id"`
	MonthKey     string    `gorm:"size:7;not null;uniqueIndex:idx_snapshots_user_month,priority:2" json:"month_key"`
	RecordedAt   time.Time `gorm:"not null" json:"recorded_at"`
	TotalTrades  int       `gorm:"not null" json:"total_trades"`
	Winning      int       `gorm:"not null" json:"winning_trades"`
	Losing       int       `gorm:"not null" json:"losing_trades"`
	WinRate      float64   `gorm:"not null" json:"win_rate"`
	AvgChangePct float64   `gorm:"not null" json:"avg_change_pct"`
	TotalVolume  float64   `gorm:"not null" json:"total_volume"`
	NetPL        float64   `gorm:"column:net_pl;not null" json:"net_pl"`
	GrossProfit  float64   `gorm:"not null" json:"gross_profit"`
	GrossLoss    float64   `gorm:"not null" json:"gross_loss"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (p *PerformanceSnapshot) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New()
	}
	return nil
}
