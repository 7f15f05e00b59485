package models

import "time"

// Booking statuses as stored in the `bookings.status` column.
const (
	BookingStatusBooked    = "BOOKED"
	BookingStatusPending   = "PENDING"
	BookingStatusCompleted = "COMPLETED"
	BookingStatusCancelled = "CANCELLED"
)

// OpenBookingStatuses are the states the checkout engine may close.
var OpenBookingStatuses = []string{BookingStatusBooked, BookingStatusPending}

// Booking maps to the `bookings` table. Rows are created by the booking UI;
// the checkout engine only flips an open booking to COMPLETED.
type Booking struct {
	ID                    uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ResourceID            uint       `gorm:"column:resource_id;not null;index" json:"resource_id"`
	ClientName            string     `gorm:"column:client_name;size:100" json:"client_name"`
	ClientMobile          string     `gorm:"column:client_mobile;size:20" json:"client_mobile"`
	ClientEmail           string     `gorm:"column:client_email;size:191" json:"client_email"`
	CheckIn               time.Time  `gorm:"column:check_in;index:idx_bookings_auto_checkout,priority:3" json:"check_in"`
	ActualCheckIn         *time.Time `gorm:"column:actual_check_in" json:"actual_check_in"`
	Status                string     `gorm:"column:status;size:20;index:idx_bookings_auto_checkout,priority:1" json:"status"`
	AdminID               uint       `gorm:"column:admin_id" json:"admin_id"`
	AutoCheckoutProcessed bool       `gorm:"column:auto_checkout_processed;default:false;index:idx_bookings_auto_checkout,priority:2" json:"auto_checkout_processed"`
	ActualCheckOut        *time.Time `gorm:"column:actual_check_out" json:"actual_check_out"`
	ActualCheckoutDate    *time.Time `gorm:"column:actual_checkout_date;type:date" json:"actual_checkout_date"`
	ActualCheckoutTime    *string    `gorm:"column:actual_checkout_time;type:time(0)" json:"actual_checkout_time"`
	PaymentNotes          string     `gorm:"column:payment_notes;type:text" json:"payment_notes"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// ResourceName is filled by joined reads only.
	ResourceName string `gorm:"->;-:migration;column:resource_name" json:"resource_name"`
}

func (Booking) TableName() string {
	return "bookings"
}

// Resource maps to the `resources` table (rooms and halls).
type Resource struct {
	ID          uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DisplayName string `gorm:"column:display_name;size:100" json:"display_name"`
	CustomName  string `gorm:"column:custom_name;size:100" json:"custom_name"`
	Type        string `gorm:"column:type;size:20" json:"type"` // "room", "hall"
}

func (Resource) TableName() string {
	return "resources"
}
