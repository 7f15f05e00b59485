package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"autocheckout/internal/models"
	"autocheckout/internal/pkg/httpclient"
)

// SMSConfig configures the HTTP SMS gateway.
type SMSConfig struct {
	GatewayURL string
	APIKey     string
	Sender     string
	HotelName  string
}

// SMSNotifier posts a checkout confirmation to a form-encoded SMS gateway.
type SMSNotifier struct {
	client *httpclient.Client
	cfg    SMSConfig
	logger *zap.Logger
}

func NewSMSNotifier(client *httpclient.Client, cfg SMSConfig, logger *zap.Logger) *SMSNotifier {
	if cfg.APIKey != "" {
		client = client.WithBearerToken(cfg.APIKey)
	}
	return &SMSNotifier{client: client, cfg: cfg, logger: logger.Named("sms")}
}

// NotifyCheckout returns false without error when the guest has no mobile number.
func (n *SMSNotifier) NotifyCheckout(ctx context.Context, b models.Booking) (bool, error) {
	mobile := strings.TrimSpace(b.ClientMobile)
	if mobile == "" {
		return false, nil
	}

	_, err := n.client.PostForm(ctx, n.cfg.GatewayURL, map[string]string{
		"to":      mobile,
		"sender":  n.cfg.Sender,
		"message": checkoutText(b, n.cfg.HotelName),
	})
	if err != nil {
		return false, fmt.Errorf("sms gateway: %w", err)
	}
	n.logger.Debug("Checkout SMS sent", zap.Uint("booking_id", b.ID))
	return true, nil
}

func checkoutText(b models.Booking, hotel string) string {
	name := strings.TrimSpace(b.ClientName)
	if name == "" {
		name = "Guest"
	}
	if hotel == "" {
		hotel = "us"
	}
	return fmt.Sprintf("Dear %s, your checkout from %s has been completed. Thank you for staying with %s.",
		name, b.ResourceName, hotel)
}
