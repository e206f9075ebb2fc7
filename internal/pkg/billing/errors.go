package billing

import "errors"

// Error taxonomy for billing event processing. The webhook endpoint maps
// these onto HTTP statuses: malformed payloads get 400, account-miss and
// duplicate outcomes get 200 so the provider stops redelivering, and only
// unexpected faults surface as 500 to trigger provider retries.
var (
	// ErrMalformedEvent marks a payload missing required fields (id, type).
	ErrMalformedEvent = errors.New("billing: malformed event payload")

	// ErrAccountNotFound marks an event whose customer cannot be resolved to
	// a local account. Logged and dropped, never retried: the customer is
	// most likely test or deleted data.
	ErrAccountNotFound = errors.New("billing: no account for event customer")

	// ErrDuplicateEvent marks a redelivery of an already-settled event id.
	// Not a failure; Apply returns it alongside the originally stored delta
	// and no mutation happens. The endpoint answers 200.
	ErrDuplicateEvent = errors.New("billing: event already applied")

	// ErrGatewayTimeout marks an outbound provider call that timed out.
	// Always retryable and never treated as success.
	ErrGatewayTimeout = errors.New("billing: gateway request timed out")

	// ErrSuspensionThreshold marks the payment failure that crossed the
	// configured threshold and suspended the account. Terminal for the
	// billing cycle; follow-up is human, not automatic retry.
	ErrSuspensionThreshold = errors.New("billing: payment failure threshold exceeded, account suspended")

	// ErrConflict marks a compare-and-swap loss against a concurrent writer.
	ErrConflict = errors.New("billing: concurrent account update conflict")
)
