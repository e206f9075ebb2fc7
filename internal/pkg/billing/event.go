package billing

import "time"

// EventType is the normalized billing event kind the reconciler dispatches on.
type EventType string

const (
	EventSubscriptionCreated EventType = "subscription.created"
	EventSubscriptionUpdated EventType = "subscription.updated"
	EventSubscriptionDeleted EventType = "subscription.deleted"
	EventInvoicePaid         EventType = "invoice.paid"
	EventPaymentFailed       EventType = "invoice.payment_failed"
	EventPaymentSucceeded    EventType = "payment.succeeded"
	EventUnknown             EventType = "unknown"
)

// Event is the provider-agnostic shape of a billing notification. ID doubles
// as the idempotency key: the reconciler applies each distinct ID at most
// once. Unknown provider event types still normalize (Type=EventUnknown) so
// the reconciler can log and skip instead of failing the delivery.
type Event struct {
	ID               string
	Type             EventType
	CustomerRef      string
	SubscriptionRef  string
	PlanRef          string
	Email            string
	AmountCents      int64
	Currency         string
	AttemptCount     int
	HasPaymentMethod bool
	OccurredAt       time.Time
	Raw              []byte
}

// Delta describes the account mutation one applied event produced. It is
// persisted alongside the webhook event row so a redelivered event can return
// the original outcome without re-mutating the account.
type Delta struct {
	AccountID     uint   `json:"account_id"`
	Plan          string `json:"plan,omitempty"`
	CreditsBefore int    `json:"credits_before"`
	CreditsAfter  int    `json:"credits_after"`
	Suspended     bool   `json:"suspended,omitempty"`
	Duplicate     bool   `json:"duplicate,omitempty"`
	Skipped       bool   `json:"skipped,omitempty"`
	Reason        string `json:"reason,omitempty"`
}
