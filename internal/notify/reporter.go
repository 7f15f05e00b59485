package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"autocheckout/internal/checkout"
)

// maxReportedFailures caps the failure lines in one Telegram message.
const maxReportedFailures = 10

// MessageSender is the slice of the Bot API the reporter needs.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID string, text string) error
}

// TelegramReporter posts a run summary to the operators' chat.
type TelegramReporter struct {
	api    MessageSender
	chatID string
	hotel  string
}

func NewTelegramReporter(api MessageSender, chatID, hotel string) *TelegramReporter {
	return &TelegramReporter{api: api, chatID: chatID, hotel: hotel}
}

func (r *TelegramReporter) ReportRun(ctx context.Context, res checkout.Result) error {
	return r.api.SendMessage(ctx, r.chatID, formatReport(res, r.hotel))
}

func formatReport(res checkout.Result, hotel string) string {
	var sb strings.Builder

	title := "Auto checkout"
	if hotel != "" {
		title += " | " + html.EscapeString(hotel)
	}
	fmt.Fprintf(&sb, "<b>%s</b>\n", title)
	fmt.Fprintf(&sb, "Date: %s (%s)\n", res.Date, html.EscapeString(res.Timezone))
	fmt.Fprintf(&sb, "Kind: %s\n", res.Kind)
	fmt.Fprintf(&sb, "Outcome: <b>%s</b>\n", res.Outcome)
	fmt.Fprintf(&sb, "Found %d, checked out %d, failed %d\n", res.Found, res.Succeeded, res.Failed)
	if res.Message != "" {
		fmt.Fprintf(&sb, "%s\n", html.EscapeString(res.Message))
	}

	for i, f := range res.Failures {
		if i == maxReportedFailures {
			fmt.Fprintf(&sb, "... and %d more\n", len(res.Failures)-maxReportedFailures)
			break
		}
		fmt.Fprintf(&sb, "- #%d %s (%s): %s\n",
			f.Booking.ID,
			html.EscapeString(f.Booking.ResourceName),
			html.EscapeString(f.Booking.GuestName),
			html.EscapeString(f.Reason))
	}
	fmt.Fprintf(&sb, "<code>%s</code>", res.RunID)
	return sb.String()
}
