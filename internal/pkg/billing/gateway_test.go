package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

func stripeEvent(id, eventType string, data interface{}) stripe.Event {
	raw, _ := json.Marshal(data)
	return stripe.Event{
		ID:      id,
		Type:    stripe.EventType(eventType),
		Created: 1735689600,
		Data:    &stripe.EventData{Raw: raw},
	}
}

// signStripePayload builds a Stripe-Signature header the way the provider
// does: v1 is the hex HMAC-SHA256 of "<timestamp>.<payload>".
func signStripePayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func webhookPayload(t *testing.T) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":          "evt_signed",
		"type":        "invoice.paid",
		"api_version": stripe.APIVersion,
		"created":     time.Now().Unix(),
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":       "in_9",
				"customer": map[string]interface{}{"id": "cus_9"},
			},
		},
	})
	require.NoError(t, err)
	return payload
}

func TestParseWebhookValidSignature(t *testing.T) {
	g := &Gateway{WebhookSecret: "whsec_test"}
	payload := webhookPayload(t)
	header := signStripePayload(payload, "whsec_test", time.Now())

	out, err := g.ParseWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_signed", out.ID)
	assert.Equal(t, EventInvoicePaid, out.Type)
	assert.Equal(t, "cus_9", out.CustomerRef)
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	g := &Gateway{WebhookSecret: "whsec_test"}
	payload := webhookPayload(t)
	header := signStripePayload(payload, "whsec_wrong", time.Now())

	_, err := g.ParseWebhook(payload, header)
	require.Error(t, err)
	// The endpoint keys its 400 mapping on this distinction: signature
	// failures are not malformed payloads.
	assert.NotErrorIs(t, err, ErrMalformedEvent)
}

func TestParseWebhookRejectsTamperedPayload(t *testing.T) {
	g := &Gateway{WebhookSecret: "whsec_test"}
	payload := webhookPayload(t)
	header := signStripePayload(payload, "whsec_test", time.Now())

	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] ^= 0xff
	_, err := g.ParseWebhook(tampered, header)
	require.Error(t, err)
}

func TestParseWebhookRejectsStaleTimestamp(t *testing.T) {
	g := &Gateway{WebhookSecret: "whsec_test"}
	payload := webhookPayload(t)
	header := signStripePayload(payload, "whsec_test", time.Now().Add(-time.Hour))

	_, err := g.ParseWebhook(payload, header)
	require.Error(t, err)
}

func TestParseWebhookRejectsMissingHeader(t *testing.T) {
	g := &Gateway{WebhookSecret: "whsec_test"}

	_, err := g.ParseWebhook(webhookPayload(t), "")
	require.Error(t, err)
}

func TestNormalizeSubscriptionCreated(t *testing.T) {
	ev := stripeEvent("evt_sub", "customer.subscription.created", map[string]interface{}{
		"id":       "sub_42",
		"customer": map[string]interface{}{"id": "cus_42"},
		"default_payment_method": map[string]interface{}{"id": "pm_1"},
		"items": map[string]interface{}{
			"data": []map[string]interface{}{
				{"price": map[string]interface{}{"id": "price_basic"}},
			},
		},
	})

	out, err := Normalize(ev)
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionCreated, out.Type)
	assert.Equal(t, "cus_42", out.CustomerRef)
	assert.Equal(t, "sub_42", out.SubscriptionRef)
	assert.Equal(t, "price_basic", out.PlanRef)
	assert.True(t, out.HasPaymentMethod)
}

func TestNormalizeSubscriptionCreatedWithoutPaymentMethod(t *testing.T) {
	ev := stripeEvent("evt_sub2", "customer.subscription.created", map[string]interface{}{
		"id":       "sub_43",
		"customer": map[string]interface{}{"id": "cus_43"},
	})

	out, err := Normalize(ev)
	require.NoError(t, err)
	assert.False(t, out.HasPaymentMethod)
}

func TestNormalizeInvoicePaid(t *testing.T) {
	ev := stripeEvent("evt_inv", "invoice.paid", map[string]interface{}{
		"id":             "in_1",
		"customer":       map[string]interface{}{"id": "cus_42"},
		"subscription":   map[string]interface{}{"id": "sub_42"},
		"customer_email": "jane@biotech.example",
		"amount_paid":    9900,
		"currency":       "usd",
		"lines": map[string]interface{}{
			"data": []map[string]interface{}{
				{"price": map[string]interface{}{"id": "price_basic"}},
			},
		},
	})

	out, err := Normalize(ev)
	require.NoError(t, err)
	assert.Equal(t, EventInvoicePaid, out.Type)
	assert.Equal(t, "cus_42", out.CustomerRef)
	assert.Equal(t, "sub_42", out.SubscriptionRef)
	assert.Equal(t, "jane@biotech.example", out.Email)
	assert.Equal(t, int64(9900), out.AmountCents)
	assert.Equal(t, "usd", out.Currency)
	assert.Equal(t, "price_basic", out.PlanRef)
}

func TestNormalizeInvoicePaymentSucceededAliasesInvoicePaid(t *testing.T) {
	ev := stripeEvent("evt_inv2", "invoice.payment_succeeded", map[string]interface{}{
		"id":       "in_2",
		"customer": map[string]interface{}{"id": "cus_42"},
	})

	out, err := Normalize(ev)
	require.NoError(t, err)
	assert.Equal(t, EventInvoicePaid, out.Type)
}

func TestNormalizePaymentFailed(t *testing.T) {
	ev := stripeEvent("evt_fail", "invoice.payment_failed", map[string]interface{}{
		"id":            "in_3",
		"customer":      map[string]interface{}{"id": "cus_42"},
		"amount_due":    9900,
		"attempt_count": 2,
	})

	out, err := Normalize(ev)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentFailed, out.Type)
	assert.Equal(t, int64(9900), out.AmountCents)
	assert.Equal(t, 2, out.AttemptCount)
}

func TestNormalizePaymentIntentSucceeded(t *testing.T) {
	ev := stripeEvent("evt_pi", "payment_intent.succeeded", map[string]interface{}{
		"id":            "pi_1",
		"customer":      map[string]interface{}{"id": "cus_42"},
		"receipt_email": "jane@biotech.example",
		"amount":        100,
		"currency":      "usd",
	})

	out, err := Normalize(ev)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, out.Type)
	assert.Equal(t, "cus_42", out.CustomerRef)
	assert.Equal(t, int64(100), out.AmountCents)
}

func TestNormalizeUnknownTypePassesThrough(t *testing.T) {
	ev := stripeEvent("evt_other", "charge.refunded", map[string]interface{}{"id": "ch_1"})

	out, err := Normalize(ev)
	require.NoError(t, err)
	assert.Equal(t, EventUnknown, out.Type)
	assert.Equal(t, "evt_other", out.ID)
}

func TestNormalizeRejectsMissingIDOrType(t *testing.T) {
	_, err := Normalize(stripe.Event{Type: "invoice.paid", Data: &stripe.EventData{Raw: []byte("{}")}})
	assert.ErrorIs(t, err, ErrMalformedEvent)

	_, err = Normalize(stripe.Event{ID: "evt_x", Data: &stripe.EventData{Raw: []byte("{}")}})
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestNormalizeRejectsBrokenPayload(t *testing.T) {
	ev := stripe.Event{
		ID:   "evt_bad",
		Type: "invoice.paid",
		Data: &stripe.EventData{Raw: []byte("{not json")},
	}
	_, err := Normalize(ev)
	assert.ErrorIs(t, err, ErrMalformedEvent)
}
