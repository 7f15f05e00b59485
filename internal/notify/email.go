package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"autocheckout/internal/models"
)

// EmailNotifier sends the checkout confirmation through Resend.
type EmailNotifier struct {
	client *resend.Client
	from   string
	hotel  string
	logger *zap.Logger
}

func NewEmailNotifier(client *resend.Client, from, hotel string, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{client: client, from: from, hotel: hotel, logger: logger.Named("email")}
}

// NotifyCheckout returns false without error when the guest has no email.
func (n *EmailNotifier) NotifyCheckout(ctx context.Context, b models.Booking) (bool, error) {
	to := strings.TrimSpace(b.ClientEmail)
	if to == "" {
		return false, nil
	}

	subject := "Checkout confirmation"
	if n.hotel != "" {
		subject += " - " + n.hotel
	}
	sent, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: subject,
		Html:    "<p>" + html.EscapeString(checkoutText(b, n.hotel)) + "</p>",
		Text:    checkoutText(b, n.hotel),
	})
	if err != nil {
		return false, fmt.Errorf("resend send failed: %w", err)
	}
	n.logger.Debug("Checkout email sent", zap.Uint("booking_id", b.ID), zap.String("message_id", sent.Id))
	return true, nil
}
