package checkout

import (
	"context"
	"errors"
	"time"

	"autocheckout/internal/models"
)

// InvocationKind tells the executor which gates apply.
type InvocationKind string

const (
	KindScheduled InvocationKind = models.ExecutionScheduled
	KindManual    InvocationKind = models.ExecutionManual
	KindForced    InvocationKind = models.ExecutionForced
)

// Valid reports whether k is one of the known kinds.
func (k InvocationKind) Valid() bool {
	switch k {
	case KindScheduled, KindManual, KindForced:
		return true
	}
	return false
}

// Outcome is the result status of one invocation.
type Outcome string

const (
	OutcomeDisabled   Outcome = "disabled"
	OutcomeWrongTime  Outcome = "wrong_time"
	OutcomeAlreadyRun Outcome = "already_run"
	OutcomeNoBookings Outcome = Outcome(models.ExecutionNoBookings)
	OutcomeSuccess    Outcome = Outcome(models.ExecutionSuccess)
	OutcomePartial    Outcome = Outcome(models.ExecutionPartial)
	OutcomeFailed     Outcome = Outcome(models.ExecutionFailed)
	OutcomeError      Outcome = Outcome(models.ExecutionError)
)

// Skipped reports whether the outcome is a gate decision with no ledger write.
func (o Outcome) Skipped() bool {
	return o == OutcomeDisabled || o == OutcomeWrongTime || o == OutcomeAlreadyRun
}

// EligibilityMode selects which open bookings a run may close.
type EligibilityMode int

const (
	// EligibleUnprocessed is every open booking not yet flagged by the engine.
	EligibleUnprocessed EligibilityMode = iota
	// EligibleAllOpen ignores auto_checkout_processed (forced recovery).
	EligibleAllOpen
)

// ErrBookingNotEligible is returned by MarkClosed when the row is no longer
// open, or was already processed by a concurrent run.
var ErrBookingNotEligible = errors.New("booking is no longer eligible for checkout")

// Stamp carries the checkout instant in the engine's time zone.
type Stamp struct {
	At   time.Time
	Date string // 2006-01-02
	Time string // 15:04:05
}

// BookingSummary is the caller-facing view of one booking in a result.
type BookingSummary struct {
	ID           uint      `json:"id"`
	ResourceID   uint      `json:"resource_id"`
	ResourceName string    `json:"resource_name"`
	GuestName    string    `json:"guest_name"`
	CheckIn      time.Time `json:"check_in"`
}

// BookingFailure pairs a booking with the reason its close failed.
type BookingFailure struct {
	Booking BookingSummary `json:"booking"`
	Reason  string         `json:"reason"`
}

// Result is returned by every invocation, whatever its kind.
type Result struct {
	RunID      string           `json:"run_id"`
	Kind       InvocationKind   `json:"kind"`
	Outcome    Outcome          `json:"outcome"`
	Message    string           `json:"message"`
	Date       string           `json:"date,omitempty"`
	Timezone   string           `json:"timezone"`
	Found      int              `json:"found"`
	Processed  int              `json:"processed"`
	Succeeded  int              `json:"succeeded"`
	Failed     int              `json:"failed"`
	Successful []BookingSummary `json:"successful_bookings"`
	Failures   []BookingFailure `json:"failed_bookings"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// ExitCode is 1 for outcome error so external monitors can alert, 0 otherwise.
func (r Result) ExitCode() int {
	if r.Outcome == OutcomeError {
		return 1
	}
	return 0
}

// BookingRepository finds eligible bookings and opens per-booking units of work.
type BookingRepository interface {
	FindEligible(ctx context.Context, mode EligibilityMode) ([]models.Booking, error)
	CountEligible(ctx context.Context, mode EligibilityMode) (int64, error)
	Transaction(ctx context.Context, fn func(tx BookingTx) error) error
}

// BookingTx is the write side of one booking's transaction.
type BookingTx interface {
	MarkClosed(ctx context.Context, bookingID uint, stamp Stamp, mode EligibilityMode) error
	AppendHistory(ctx context.Context, entry *models.CheckoutLog) error
}

// HistorySink receives audit rows written outside a booking transaction.
type HistorySink interface {
	Append(ctx context.Context, entry *models.CheckoutLog) error
	CountByDate(ctx context.Context, date, status string) (int64, error)
}

// Ledger is the per-date execution record.
type Ledger interface {
	GetToday(ctx context.Context, date string, kind InvocationKind) (*models.ExecutionLog, bool, error)
	// Claim inserts a running row for (date, scheduled). It returns false when
	// another invocation holds or has completed the day. Running rows last
	// touched before staleBefore are reclaimable.
	Claim(ctx context.Context, entry *models.ExecutionLog, staleBefore time.Time) (bool, error)
	Upsert(ctx context.Context, entry *models.ExecutionLog) error
}

// SettingsStore is the flat key/value settings table.
type SettingsStore interface {
	GetAll(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

// Notifier tells a guest about their checkout. Failures never fail a close.
type Notifier interface {
	NotifyCheckout(ctx context.Context, booking models.Booking) (bool, error)
}

// RunMarker caches "scheduled run completed" per date in front of the ledger.
type RunMarker interface {
	IsDone(ctx context.Context, date string) (bool, error)
	MarkDone(ctx context.Context, date string) error
}

// Reporter publishes a run summary to operators.
type Reporter interface {
	ReportRun(ctx context.Context, res Result) error
}
