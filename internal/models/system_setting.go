package models

import "time"

// Keys read by the checkout engine.
const (
	SettingAutoCheckoutEnabled = "auto_checkout_enabled"
	SettingAutoCheckoutTime    = "auto_checkout_time"
	SettingLastAutoCheckoutRun = "last_auto_checkout_run"
)

// SystemSetting maps to `system_settings`, a flat key/value table.
type SystemSetting struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SettingKey   string    `gorm:"column:setting_key;size:100;not null;uniqueIndex" json:"setting_key"`
	SettingValue string    `gorm:"column:setting_value;type:text;not null" json:"setting_value"`
	Description  string    `gorm:"column:description;type:text" json:"description"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
