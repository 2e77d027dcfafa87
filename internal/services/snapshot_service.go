package services

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fxjournal/internal/calc"
	apperrors "fxjournal/internal/errors"
	"fxjournal/internal/logger"
	"fxjournal/internal/models"
	"fxjournal/internal/pagination"
)

// snapshotService records and lists monthly performance snapshots.
type snapshotService struct {
	db *gorm.DB
}

// NewSnapshotService creates a new SnapshotServicer.
func NewSnapshotService(db *gorm.DB) SnapshotServicer {
	return &snapshotService{db: db}
}

// RecordSnapshots computes the statistics of monthKey for every user with trades
// in that month and upserts one snapshot per (user, month). It returns the number
// of snapshots written.
func (s *snapshotService) RecordSnapshots(monthKey string, recordedAt time.Time) (int, error) {
	if !calc.ValidMonthKey(monthKey) {
		return 0, apperrors.ErrInvalidMonth
	}

	var userIDs []string
	if err := s.db.Model(&models.Trade{}).
		Where("month_key = ?", monthKey).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrSnapshotsUnavailable, err)
	}

	count := 0
	for _, userID := range userIDs {
		var trades []models.Trade
		if err := s.db.Where("user_id = ? AND month_key = ?", userID, monthKey).Find(&trades).Error; err != nil {
			return count, apperrors.Wrap(apperrors.ErrSnapshotsUnavailable, err)
		}

		snapshot := buildSnapshot(userID, monthKey, recordedAt, trades)
		if err := s.db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "month_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"recorded_at", "total_trades", "winning", "losing", "win_rate",
				"avg_change_pct", "total_volume", "net_pl", "gross_profit", "gross_loss",
			}),
		}).Create(snapshot).Error; err != nil {
			return count, apperrors.Wrap(apperrors.ErrSnapshotsUnavailable, err)
		}
		count++
	}

	logger.Get().Infow("performance snapshots recorded", "month", monthKey, "count", count)
	return count, nil
}

func buildSnapshot(userID, monthKey string, recordedAt time.Time, trades []models.Trade) *models.PerformanceSnapshot {
	stats := calc.Monthly(trades)
	return &models.PerformanceSnapshot{
		UserID:       userID,
		MonthKey:     monthKey,
		RecordedAt:   recordedAt,
		TotalTrades:  stats.TotalTrades,
		Winning:      stats.WinningTrades,
		Losing:       stats.LosingTrades,
		WinRate:      calc.WinRate(trades),
		AvgChangePct: stats.AvgChangePct,
		TotalVolume:  stats.TotalVolume,
		NetPL:        stats.NetPL,
		GrossProfit:  stats.GrossProfit,
		GrossLoss:    stats.GrossLoss,
	}
}

// ListSnapshots returns the user's snapshots, newest month first.
func (s *snapshotService) ListSnapshots(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.PerformanceSnapshot], error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	page.Defaults()

	var totalItems int64
	base := s.db.Model(&models.PerformanceSnapshot{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var snapshots []models.PerformanceSnapshot
	if err := base.Order("month_key DESC").Scopes(pagination.Paginate(page)).Find(&snapshots).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(snapshots, page.Page, page.PageSize, totalItems)
	return &result, nil
}
