package repository

import (
	"context"

	"gorm.io/gorm"

	"autocheckout/internal/checkout"
	"autocheckout/internal/models"
)

// BookingRepository reads eligible bookings and runs per-booking transactions.
type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) eligible(ctx context.Context, mode checkout.EligibilityMode) *gorm.DB {
	q := r.db.WithContext(ctx).
		Table("bookings AS b").
		Joins("JOIN resources r ON b.resource_id = r.id").
		Where("b.status IN ?", models.OpenBookingStatuses)
	if mode == checkout.EligibleUnprocessed {
		q = q.Where("COALESCE(b.auto_checkout_processed, 0) = 0")
	}
	return q
}

// FindEligible returns open bookings oldest check-in first.
func (r *BookingRepository) FindEligible(ctx context.Context, mode checkout.EligibilityMode) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.eligible(ctx, mode).
		Select("b.*, COALESCE(NULLIF(r.custom_name, ''), r.display_name) AS resource_name").
		Order("b.check_in ASC, b.id ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *BookingRepository) CountEligible(ctx context.Context, mode checkout.EligibilityMode) (int64, error) {
	var count int64
	err := r.eligible(ctx, mode).Count(&count).Error
	return count, err
}

// Transaction runs fn in one database transaction; any error rolls back.
func (r *BookingRepository) Transaction(ctx context.Context, fn func(tx checkout.BookingTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&bookingTx{db: tx})
	})
}

type bookingTx struct {
	db *gorm.DB
}

// MarkClosed is a conditional update: the row must still be open (and
// unprocessed unless forced) when the statement runs, so two overlapping
// runs cannot both close the same booking. A NULL processed flag counts as
// unprocessed.
func (t *bookingTx) MarkClosed(ctx context.Context, bookingID uint, stamp checkout.Stamp, mode checkout.EligibilityMode) error {
	q := t.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status IN ?", bookingID, models.OpenBookingStatuses)
	if mode == checkout.EligibleUnprocessed {
		q = q.Where("COALESCE(auto_checkout_processed, 0) = 0")
	}

	res := q.Updates(map[string]interface{}{
		"status":                  models.BookingStatusCompleted,
		"actual_check_out":        stamp.At,
		"actual_checkout_date":    stamp.Date,
		"actual_checkout_time":    stamp.Time,
		"auto_checkout_processed": true,
		"payment_notes":           gorm.Expr("CONCAT(COALESCE(payment_notes, ''), ?)", " - Auto checkout on "+stamp.Date),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return checkout.ErrBookingNotEligible
	}
	return nil
}

func (t *bookingTx) AppendHistory(ctx context.Context, entry *models.CheckoutLog) error {
	return t.db.WithContext(ctx).Create(entry).Error
}
