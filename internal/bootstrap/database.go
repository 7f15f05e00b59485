package bootstrap

import (
	"fmt"

	"gorm.io/gorm"

	"autocheckout/internal/models"
)

// MigrateAndSeed ensures the checkout engine's own tables exist and inserts
// any missing default settings. It never touches bookings or resources.
func MigrateAndSeed(db *gorm.DB) error {
	if err := db.AutoMigrate(engineModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	if err := seedDefaults(db); err != nil {
		return fmt.Errorf("seed defaults failed: %w", err)
	}
	return nil
}

// MigrateBookingTables creates bookings and resources on an empty database.
// The booking UI owns these tables, so only bootstrap-db calls this.
func MigrateBookingTables(db *gorm.DB) error {
	if err := db.AutoMigrate(bookingModels()...); err != nil {
		return fmt.Errorf("auto migrate booking tables failed: %w", err)
	}
	return nil
}

func engineModels() []interface{} {
	return []interface{}{
		&models.SystemSetting{},
		&models.CheckoutLog{},
		&models.ExecutionLog{},
	}
}

func bookingModels() []interface{} {
	return []interface{}{
		&models.Resource{},
		&models.Booking{},
	}
}

type defaultSetting struct {
	key         string
	value       string
	description string
}

var defaultSettings = []defaultSetting{
	{models.SettingAutoCheckoutEnabled, "1", "Enable daily automatic checkout"},
	{models.SettingAutoCheckoutTime, "10:00", "Daily automatic checkout time (HH:MM, property timezone)"},
	{models.SettingLastAutoCheckoutRun, "", "Timestamp of the last automatic checkout run"},
}

func seedDefaults(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return ensureDefaultSettings(tx)
	})
}

// ensureDefaultSettings never overwrites a key an operator has already set.
func ensureDefaultSettings(tx *gorm.DB) error {
	for _, d := range defaultSettings {
		var count int64
		if err := tx.Model(&models.SystemSetting{}).Where("setting_key = ?", d.key).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		row := models.SystemSetting{SettingKey: d.key, SettingValue: d.value, Description: d.description}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}
