package models

import "time"

const (
	CheckoutLogSuccess = "success"
	CheckoutLogFailed  = "failed"
)

// CheckoutLog maps to `auto_checkout_logs`, the per-booking audit trail.
// Failure rows are written outside the rolled-back booking transaction.
type CheckoutLog struct {
	ID           uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RunID        string    `gorm:"column:run_id;size:36;index" json:"run_id"`
	BookingID    *uint     `gorm:"column:booking_id;index:idx_booking" json:"booking_id"`
	ResourceID   uint      `gorm:"column:resource_id;not null;index:idx_resource" json:"resource_id"`
	ResourceName string    `gorm:"column:resource_name;size:100;not null" json:"resource_name"`
	GuestName    string    `gorm:"column:guest_name;size:100" json:"guest_name"`
	CheckoutDate string    `gorm:"column:checkout_date;size:10;not null;index:idx_checkout_date" json:"checkout_date"`
	CheckoutTime string    `gorm:"column:checkout_time;size:8;not null" json:"checkout_time"`
	Status       string    `gorm:"column:status;type:enum('success','failed');default:success" json:"status"`
	Notes        string    `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (CheckoutLog) TableName() string {
	return "auto_checkout_logs"
}
