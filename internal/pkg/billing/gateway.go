package billing

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/bioping/bioping/internal/pkg/env"
)

// Gateway wraps the Stripe API: inbound webhook payload verification and
// normalization, and outbound off-session renewal charges.
type Gateway struct {
	WebhookSecret string
	ChargeTimeout time.Duration
}

// NewGatewayFromEnv configures the gateway and installs the API key into the
// Stripe SDK.
func NewGatewayFromEnv() *Gateway {
	stripe.Key = strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", ""))
	return &Gateway{
		WebhookSecret: strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		ChargeTimeout: time.Duration(env.GetEnvInt("STRIPE_CHARGE_TIMEOUT_SECONDS", 20)) * time.Second,
	}
}

// ParseWebhook verifies the Stripe-Signature header and normalizes the
// payload. Signature failures are returned as-is so the endpoint can answer
// 400; they are distinct from malformed-but-authentic payloads.
func (g *Gateway) ParseWebhook(payload []byte, sigHeader string) (*Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, sigHeader, g.WebhookSecret)
	if err != nil {
		return nil, err
	}
	return Normalize(stripeEvent)
}

// Normalize translates a verified Stripe event into the internal Event shape.
// Pure transform, no side effects. Unknown event types pass through with
// Type=EventUnknown instead of failing.
func Normalize(ev stripe.Event) (*Event, error) {
	if strings.TrimSpace(ev.ID) == "" || strings.TrimSpace(string(ev.Type)) == "" || ev.Data == nil {
		return nil, ErrMalformedEvent
	}

	out := &Event{
		ID:         ev.ID,
		Type:       EventUnknown,
		OccurredAt: time.Unix(ev.Created, 0).UTC(),
		Raw:        append([]byte(nil), ev.Data.Raw...),
	}

	switch string(ev.Type) {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return nil, ErrMalformedEvent
		}
		switch string(ev.Type) {
		case "customer.subscription.created":
			out.Type = EventSubscriptionCreated
		case "customer.subscription.updated":
			out.Type = EventSubscriptionUpdated
		default:
			out.Type = EventSubscriptionDeleted
		}
		if sub.Customer != nil {
			out.CustomerRef = sub.Customer.ID
		}
		out.SubscriptionRef = sub.ID
		out.HasPaymentMethod = sub.DefaultPaymentMethod != nil && sub.DefaultPaymentMethod.ID != ""
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			out.PlanRef = sub.Items.Data[0].Price.ID
		}

	case "invoice.paid", "invoice.payment_succeeded":
		inv, err := unmarshalInvoice(ev.Data.Raw)
		if err != nil {
			return nil, err
		}
		out.Type = EventInvoicePaid
		fillFromInvoice(out, inv)
		out.AmountCents = inv.AmountPaid

	case "invoice.payment_failed":
		inv, err := unmarshalInvoice(ev.Data.Raw)
		if err != nil {
			return nil, err
		}
		out.Type = EventPaymentFailed
		fillFromInvoice(out, inv)
		out.AmountCents = inv.AmountDue
		out.AttemptCount = int(inv.AttemptCount)

	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
			return nil, ErrMalformedEvent
		}
		out.Type = EventPaymentSucceeded
		if pi.Customer != nil {
			out.CustomerRef = pi.Customer.ID
		}
		out.Email = pi.ReceiptEmail
		out.AmountCents = pi.Amount
		out.Currency = string(pi.Currency)
	}

	return out, nil
}

func unmarshalInvoice(raw []byte) (*stripe.Invoice, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, ErrMalformedEvent
	}
	return &inv, nil
}

func fillFromInvoice(out *Event, inv *stripe.Invoice) {
	if inv.Customer != nil {
		out.CustomerRef = inv.Customer.ID
	}
	if inv.Subscription != nil {
		out.SubscriptionRef = inv.Subscription.ID
	}
	out.Email = inv.CustomerEmail
	out.Currency = string(inv.Currency)
	if inv.Lines != nil && len(inv.Lines.Data) > 0 && inv.Lines.Data[0].Price != nil {
		out.PlanRef = inv.Lines.Data[0].Price.ID
	}
}

// ChargeRenewal requests an off-session charge for a due renewal. It only
// reports whether the charge request was accepted; credits are granted when
// the resulting webhook event flows back through the reconciler, never here.
func (g *Gateway) ChargeRenewal(ctx context.Context, customerRef string, spec PlanSpec) error {
	if strings.TrimSpace(customerRef) == "" {
		return ErrMalformedEvent
	}

	ctx, cancel := context.WithTimeout(ctx, g.ChargeTimeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:     stripe.Int64(spec.AmountCents),
		Currency:   stripe.String(spec.Currency),
		Customer:   stripe.String(customerRef),
		OffSession: stripe.Bool(true),
		Confirm:    stripe.Bool(true),
		Metadata: map[string]string{
			"plan":   spec.ID,
			"reason": "renewal",
		},
	}
	params.Context = ctx

	_, err := paymentintent.New(params)
	if err != nil {
		// A timed-out request may still have succeeded provider-side; treat
		// it as failed-retryable and let webhook delivery settle the truth.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrGatewayTimeout
		}
		return err
	}
	return nil
}
