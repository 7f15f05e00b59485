package checkout

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"autocheckout/internal/models"
)

const successNote = "Auto checkout completed - payment to be recorded manually by admin"

// closeBooking flips one booking to COMPLETED in its own transaction. On any
// error the transaction is rolled back and a failure row is appended to the
// history outside of it.
func (e *Executor) closeBooking(ctx context.Context, runID string, b models.Booking, mode EligibilityMode, log *zap.Logger) error {
	log = log.With(zap.Uint("booking_id", b.ID), zap.String("resource", b.ResourceName))

	at := e.now()
	stamp := Stamp{At: at, Date: at.Format(dateLayout), Time: at.Format(timeLayout)}

	txCtx, cancel := context.WithTimeout(ctx, e.opts.BookingTimeout)
	defer cancel()

	err := e.bookings.Transaction(txCtx, func(tx BookingTx) error {
		if err := tx.MarkClosed(txCtx, b.ID, stamp, mode); err != nil {
			return fmt.Errorf("mark booking closed: %w", err)
		}
		if err := tx.AppendHistory(txCtx, historyRow(runID, b, stamp, models.CheckoutLogSuccess, successNote)); err != nil {
			return fmt.Errorf("append checkout history: %w", err)
		}
		e.notify(ctx, b, log)
		return nil
	})
	if err == nil {
		log.Info("Booking checked out")
		return nil
	}

	if errors.Is(txCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("booking transaction timed out after %s: %w", e.opts.BookingTimeout, err)
	}
	log.Error("Booking checkout failed", zap.Error(err))

	hctx, hcancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.BookingTimeout)
	defer hcancel()
	if herr := e.history.Append(hctx, historyRow(runID, b, stamp, models.CheckoutLogFailed, "Error: "+err.Error())); herr != nil {
		log.Error("Failed to record checkout failure", zap.Error(herr))
	}
	return err
}

// notify is best effort: errors and panics are logged, never returned. It
// gets a third of the booking timeout on a context detached from the
// transaction, so a slow gateway cannot expire the transaction itself.
func (e *Executor) notify(ctx context.Context, b models.Booking, log *zap.Logger) {
	if e.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Warn("Checkout notification panicked", zap.Any("panic", r))
		}
	}()

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.BookingTimeout/3)
	defer cancel()

	sent, err := e.notifier.NotifyCheckout(nctx, b)
	if err != nil {
		log.Warn("Checkout notification failed", zap.Error(err))
		return
	}
	log.Debug("Checkout notification", zap.Bool("sent", sent))
}

func historyRow(runID string, b models.Booking, stamp Stamp, status, notes string) *models.CheckoutLog {
	id := b.ID
	return &models.CheckoutLog{
		RunID:        runID,
		BookingID:    &id,
		ResourceID:   b.ResourceID,
		ResourceName: b.ResourceName,
		GuestName:    b.ClientName,
		CheckoutDate: stamp.Date,
		CheckoutTime: stamp.Time,
		Status:       status,
		Notes:        notes,
	}
}
