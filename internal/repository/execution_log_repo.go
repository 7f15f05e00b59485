package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"autocheckout/internal/checkout"
	"autocheckout/internal/models"
)

// ExecutionLogRepository is the per-date execution ledger. The unique
// (execution_date, execution_type) index is what serializes scheduled runs.
type ExecutionLogRepository struct {
	db *gorm.DB
}

func NewExecutionLogRepository(db *gorm.DB) *ExecutionLogRepository {
	return &ExecutionLogRepository{db: db}
}

func (r *ExecutionLogRepository) GetToday(ctx context.Context, date string, kind checkout.InvocationKind) (*models.ExecutionLog, bool, error) {
	var entry models.ExecutionLog
	err := r.db.WithContext(ctx).
		Where("execution_date = ? AND execution_type = ?", date, string(kind)).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &entry, true, nil
}

// Claim inserts entry as the day's running row. When the row already exists
// it is taken over only if it is reclaimable: failed, error, or a running
// claim not touched since staleBefore.
func (r *ExecutionLogRepository) Claim(ctx context.Context, entry *models.ExecutionLog, staleBefore time.Time) (bool, error) {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, err
	}

	claimed := false
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ExecutionLog
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("execution_date = ? AND execution_type = ?", entry.ExecutionDate, entry.ExecutionType).
			First(&existing).Error; err != nil {
			return err
		}
		if existing.BlocksScheduledRun() {
			return nil
		}
		if existing.ExecutionStatus == models.ExecutionRunning && existing.UpdatedAt.After(staleBefore) {
			return nil
		}

		if err := tx.Model(&models.ExecutionLog{}).Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"execution_time":      entry.ExecutionTime,
				"run_id":              entry.RunID,
				"execution_status":    models.ExecutionRunning,
				"bookings_found":      0,
				"bookings_processed":  0,
				"bookings_successful": 0,
				"bookings_failed":     0,
				"error_message":       "",
				"server_time":         entry.ServerTime,
			}).Error; err != nil {
			return err
		}
		entry.ID = existing.ID
		claimed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// Upsert writes the final entry for (date, type), replacing any earlier one.
func (r *ExecutionLogRepository) Upsert(ctx context.Context, entry *models.ExecutionLog) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "execution_date"}, {Name: "execution_type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"execution_time",
				"run_id",
				"bookings_found",
				"bookings_processed",
				"bookings_successful",
				"bookings_failed",
				"execution_status",
				"error_message",
				"server_time",
				"updated_at",
			}),
		}).
		Create(entry).Error
}

// FindRecent returns the newest ledger rows.
func (r *ExecutionLogRepository) FindRecent(ctx context.Context, limit int) ([]models.ExecutionLog, error) {
	if limit <= 0 {
		limit = 30
	}
	var items []models.ExecutionLog
	err := r.db.WithContext(ctx).
		Order("execution_date DESC, id DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
