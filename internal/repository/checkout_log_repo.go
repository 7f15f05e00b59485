package repository

import (
	"context"

	"gorm.io/gorm"

	"autocheckout/internal/models"
)

// CheckoutLogRepository is the auto_checkout_logs audit trail.
type CheckoutLogRepository struct {
	db *gorm.DB
}

func NewCheckoutLogRepository(db *gorm.DB) *CheckoutLogRepository {
	return &CheckoutLogRepository{db: db}
}

func (r *CheckoutLogRepository) Append(ctx context.Context, entry *models.CheckoutLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *CheckoutLogRepository) CountByDate(ctx context.Context, date, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CheckoutLog{}).
		Where("checkout_date = ? AND status = ?", date, status).
		Count(&count).Error
	return count, err
}

// HistoryFilter narrows FindAll. Empty fields match everything.
type HistoryFilter struct {
	Date   string
	Status string
	RunID  string
}

// FindAll returns history rows newest first with pagination.
func (r *CheckoutLogRepository) FindAll(ctx context.Context, f HistoryFilter, limit, page int) ([]models.CheckoutLog, int64, error) {
	var items []models.CheckoutLog
	var total int64

	db := r.db.WithContext(ctx).Model(&models.CheckoutLog{})
	if f.Date != "" {
		db = db.Where("checkout_date = ?", f.Date)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.RunID != "" {
		db = db.Where("run_id = ?", f.RunID)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit
	if err := db.Order("id DESC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
