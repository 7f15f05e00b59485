package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"autocheckout/internal/checkout"
	"autocheckout/internal/models"
	"autocheckout/internal/pkg/httpclient"
)

func guest() models.Booking {
	return models.Booking{
		ID:           7,
		ClientName:   "Asha",
		ClientMobile: "+919800000000",
		ClientEmail:  "asha@example.com",
		ResourceName: "Suite 101",
	}
}

func TestSMSNotifierPostsForm(t *testing.T) {
	var form url.Values
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSMSNotifier(httpclient.New().WithRetryCount(0), SMSConfig{
		GatewayURL: srv.URL,
		APIKey:     "secret",
		Sender:     "HOTEL",
		HotelName:  "Lakeview",
	}, zap.NewNop())

	sent, err := n.NotifyCheckout(context.Background(), guest())
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, "+919800000000", form.Get("to"))
	assert.Equal(t, "HOTEL", form.Get("sender"))
	assert.Contains(t, form.Get("message"), "Suite 101")
	assert.Contains(t, form.Get("message"), "Lakeview")
	assert.Equal(t, "Bearer secret", auth)
}

func TestSMSNotifierSkipsMissingMobile(t *testing.T) {
	n := NewSMSNotifier(httpclient.New(), SMSConfig{GatewayURL: "http://127.0.0.1:1"}, zap.NewNop())
	b := guest()
	b.ClientMobile = " "

	sent, err := n.NotifyCheckout(context.Background(), b)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestSMSNotifierGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	n := NewSMSNotifier(httpclient.New().WithRetryCount(0), SMSConfig{GatewayURL: srv.URL}, zap.NewNop())
	sent, err := n.NotifyCheckout(context.Background(), guest())
	assert.False(t, sent)

	var statusErr *httpclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusPaymentRequired, statusErr.Code)
}

func TestSMSNotifierAttemptTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := httpclient.New().WithRetryCount(0).WithTimeout(50 * time.Millisecond)
	n := NewSMSNotifier(client, SMSConfig{GatewayURL: srv.URL}, zap.NewNop())

	start := time.Now()
	sent, err := n.NotifyCheckout(context.Background(), guest())
	assert.False(t, sent)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestEmailNotifierSendsThroughResend(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	client := resend.NewClient("re_test")
	base, err := url.Parse(srv.URL)
	require.NoError(t, err)
	client.BaseURL = base

	n := NewEmailNotifier(client, "frontdesk@example.com", "Lakeview", zap.NewNop())
	sent, err := n.NotifyCheckout(context.Background(), guest())
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, "frontdesk@example.com", body["from"])
	assert.Equal(t, []interface{}{"asha@example.com"}, body["to"])
	assert.Equal(t, "Checkout confirmation - Lakeview", body["subject"])
}

func TestEmailNotifierSkipsMissingEmail(t *testing.T) {
	n := NewEmailNotifier(resend.NewClient("re_test"), "a@b.c", "", zap.NewNop())
	b := guest()
	b.ClientEmail = ""

	sent, err := n.NotifyCheckout(context.Background(), b)
	require.NoError(t, err)
	assert.False(t, sent)
}

type stubNotifier struct {
	sent bool
	err  error
}

func (s stubNotifier) NotifyCheckout(context.Context, models.Booking) (bool, error) {
	return s.sent, s.err
}

func TestMultiSentIfAnyChannelSent(t *testing.T) {
	smsDown := errors.New("sms down")
	m := Multi{stubNotifier{err: smsDown}, stubNotifier{sent: true}}

	sent, err := m.NotifyCheckout(context.Background(), guest())
	assert.True(t, sent)
	assert.ErrorIs(t, err, smsDown)

	sent, err = Multi{stubNotifier{}, stubNotifier{}}.NotifyCheckout(context.Background(), guest())
	assert.False(t, sent)
	assert.NoError(t, err)

	sent, err = Multi(nil).NotifyCheckout(context.Background(), guest())
	assert.False(t, sent)
	assert.NoError(t, err)
}

type captureSender struct {
	chatID string
	text   string
}

func (c *captureSender) SendMessage(_ context.Context, chatID, text string) error {
	c.chatID, c.text = chatID, text
	return nil
}

func TestTelegramReporterFormatsRun(t *testing.T) {
	cs := &captureSender{}
	r := NewTelegramReporter(cs, "-100", "Lake <view>")

	failures := make([]checkout.BookingFailure, 12)
	for i := range failures {
		failures[i] = checkout.BookingFailure{
			Booking: checkout.BookingSummary{ID: uint(i + 1), ResourceName: "Room", GuestName: "G"},
			Reason:  "lock wait timeout",
		}
	}
	err := r.ReportRun(context.Background(), checkout.Result{
		RunID:     "run-9",
		Kind:      checkout.KindScheduled,
		Outcome:   checkout.OutcomePartial,
		Date:      "2024-03-10",
		Timezone:  "Asia/Kolkata",
		Found:     20,
		Succeeded: 8,
		Failed:    12,
		Failures:  failures,
	})
	require.NoError(t, err)

	assert.Equal(t, "-100", cs.chatID)
	assert.Contains(t, cs.text, "Lake &lt;view&gt;")
	assert.Contains(t, cs.text, "Outcome: <b>partial</b>")
	assert.Contains(t, cs.text, "Found 20, checked out 8, failed 12")
	assert.Contains(t, cs.text, "- #10 Room (G): lock wait timeout")
	assert.NotContains(t, cs.text, "- #11 ")
	assert.Contains(t, cs.text, "... and 2 more")
	assert.Contains(t, cs.text, "<code>run-9</code>")
}
