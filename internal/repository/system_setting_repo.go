package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"autocheckout/internal/models"
)

// SystemSettingRepository is the flat system_settings key/value table.
type SystemSettingRepository struct {
	db *gorm.DB
}

func NewSystemSettingRepository(db *gorm.DB) *SystemSettingRepository {
	return &SystemSettingRepository{db: db}
}

// GetAll returns every setting as a key/value map.
func (r *SystemSettingRepository) GetAll(ctx context.Context) (map[string]string, error) {
	var rows []models.SystemSetting
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.SettingKey] = row.SettingValue
	}
	return out, nil
}

// Set inserts or updates one key.
func (r *SystemSettingRepository) Set(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"setting_value", "updated_at"}),
		}).
		Create(&models.SystemSetting{SettingKey: key, SettingValue: value}).Error
}
