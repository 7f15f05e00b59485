package models

import "time"

// Execution types. Only scheduled rows gate the daily run.
const (
	ExecutionScheduled = "scheduled"
	ExecutionManual    = "manual"
	ExecutionForced    = "forced"
)

// Execution statuses stored in `cron_execution_logs.execution_status`.
const (
	ExecutionRunning           = "running"
	ExecutionSuccess           = "success"
	ExecutionPartial           = "partial"
	ExecutionFailed            = "failed"
	ExecutionNoBookings        = "no_bookings"
	ExecutionError             = "error"
	ExecutionSkippedWrongTime  = "skipped_wrong_time"
	ExecutionSkippedAlreadyRun = "skipped_already_run"
)

// ExecutionLog maps to `cron_execution_logs`, one row per date and execution type.
type ExecutionLog struct {
	ID                 uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ExecutionDate      string    `gorm:"column:execution_date;size:10;not null;uniqueIndex:uniq_execution_date_type,priority:1" json:"execution_date"`
	ExecutionType      string    `gorm:"column:execution_type;size:20;not null;uniqueIndex:uniq_execution_date_type,priority:2" json:"execution_type"`
	ExecutionTime      string    `gorm:"column:execution_time;size:8" json:"execution_time"`
	RunID              string    `gorm:"column:run_id;size:36" json:"run_id"`
	BookingsFound      int       `gorm:"column:bookings_found;default:0" json:"bookings_found"`
	BookingsProcessed  int       `gorm:"column:bookings_processed;default:0" json:"bookings_processed"`
	BookingsSuccessful int       `gorm:"column:bookings_successful;default:0" json:"bookings_successful"`
	BookingsFailed     int       `gorm:"column:bookings_failed;default:0" json:"bookings_failed"`
	ExecutionStatus    string    `gorm:"column:execution_status;size:30;not null" json:"execution_status"`
	ErrorMessage       string    `gorm:"column:error_message;type:text" json:"error_message"`
	ServerTime         time.Time `gorm:"column:server_time" json:"server_time"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ExecutionLog) TableName() string {
	return "cron_execution_logs"
}

// BlocksScheduledRun reports whether a scheduled row means the day is done.
func (l ExecutionLog) BlocksScheduledRun() bool {
	if l.ExecutionType != ExecutionScheduled {
		return false
	}
	switch l.ExecutionStatus {
	case ExecutionSuccess, ExecutionPartial, ExecutionNoBookings:
		return true
	}
	return false
}
