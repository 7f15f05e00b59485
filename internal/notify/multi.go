package notify

import (
	"context"
	"errors"

	"autocheckout/internal/checkout"
	"autocheckout/internal/models"
)

// Multi fans a checkout out to every channel. It reports sent when at least
// one channel delivered, and joins the errors of the rest.
type Multi []checkout.Notifier

func (m Multi) NotifyCheckout(ctx context.Context, b models.Booking) (bool, error) {
	var (
		sent bool
		errs []error
	)
	for _, n := range m {
		ok, err := n.NotifyCheckout(ctx, b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sent = sent || ok
	}
	return sent, errors.Join(errs...)
}
