package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/bioping/bioping/app/models"
	"github.com/bioping/bioping/app/repository"
	"github.com/bioping/bioping/internal/pkg/env"
)

const casRetries = 3

// Reconciler applies normalized billing events to account state exactly once
// per event id. It is the only writer of billing fields; webhook deliveries
// and scheduler sweeps both funnel through Apply, and per-account
// serialization comes from the ledger's compare-and-swap.
type Reconciler struct {
	accounts repository.AccountRepository
	events   repository.WebhookEventRepository
	catalog  *Catalog

	failureThreshold int
	suspensionPeriod time.Duration

	now func() time.Time
}

// NewReconciler wires a reconciler against the given repositories.
func NewReconciler(accounts repository.AccountRepository, events repository.WebhookEventRepository, catalog *Catalog) *Reconciler {
	return &Reconciler{
		accounts:         accounts,
		events:           events,
		catalog:          catalog,
		failureThreshold: env.GetEnvInt("PAYMENT_FAIL_SUSPEND_THRESHOLD", 3),
		suspensionPeriod: time.Duration(env.GetEnvInt("SUSPENSION_DAYS", 7)) * 24 * time.Hour,
		now:              time.Now,
	}
}

// WithClock overrides the time source, mainly for tests.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// WithFailureThreshold overrides the suspension threshold.
func (r *Reconciler) WithFailureThreshold(n int) *Reconciler {
	if n > 0 {
		r.failureThreshold = n
	}
	return r
}

// handler mutates the account in memory and reports the resulting delta.
// Handlers must be pure with respect to everything but the passed account so
// a compare-and-swap retry can re-run them safely.
type handler func(r *Reconciler, ev *Event, account *models.User) (*Delta, error)

var handlers = map[EventType]handler{
	EventSubscriptionCreated: (*Reconciler).applySubscriptionCreated,
	EventSubscriptionUpdated: (*Reconciler).applySubscriptionUpdated,
	EventSubscriptionDeleted: (*Reconciler).applySubscriptionDeleted,
	EventInvoicePaid:         (*Reconciler).applyPaymentConfirmed,
	EventPaymentSucceeded:    (*Reconciler).applyPaymentConfirmed,
	EventPaymentFailed:       (*Reconciler).applyPaymentFailed,
}

// Apply records the event durably, then mutates the matching account at most
// once. The event row tracks outcome, not receipt: it is only marked
// processed once the apply reached a terminal result, so a delivery that
// failed mid-apply (CAS exhaustion, DB fault, timeout) leaves the row
// unprocessed and the provider's redelivery runs the apply again instead of
// being swallowed as a duplicate. Redeliveries of a settled event return the
// originally applied delta without touching the account.
func (r *Reconciler) Apply(ctx context.Context, ev *Event) (*Delta, error) {
	if ev == nil || strings.TrimSpace(ev.ID) == "" {
		return nil, ErrMalformedEvent
	}

	created, stored, err := r.events.CreateIfNotExists(&models.WebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: ev.ID,
		EventType:       string(ev.Type),
		PayloadJSON:     string(ev.Raw),
		SignatureValid:  true,
	})
	if err != nil {
		return nil, err
	}
	if !created && stored.ProcessedAt != nil {
		return r.duplicateDelta(stored), ErrDuplicateEvent
	}

	delta, applyErr := r.applyOnce(ctx, ev)

	if applyErr != nil && !isTerminal(applyErr) {
		// Retryable failure before any account mutation stuck: leave the
		// row unprocessed so the redelivery re-runs the apply.
		log.Warnf("[Billing] event %s left unprocessed after retryable failure: %v", ev.ID, applyErr)
		return delta, applyErr
	}

	deltaJSON := ""
	if delta != nil {
		if b, merr := json.Marshal(delta); merr == nil {
			deltaJSON = string(b)
		}
	}
	errMsg := ""
	if applyErr != nil {
		errMsg = applyErr.Error()
	}
	if merr := r.events.MarkProcessed(stored.ID, deltaJSON, errMsg); merr != nil {
		log.Errorf("[Billing] failed to mark event %s processed: %v", ev.ID, merr)
	}

	return delta, applyErr
}

// isTerminal reports whether an apply outcome settles the event. A nil error,
// a suspension (the mutation was committed), and an unresolvable account (the
// deliberate zero-mutation drop) are terminal; everything else is retryable.
func isTerminal(err error) bool {
	return err == nil ||
		errors.Is(err, ErrSuspensionThreshold) ||
		errors.Is(err, ErrAccountNotFound)
}

func (r *Reconciler) duplicateDelta(stored *models.WebhookEvent) *Delta {
	delta := &Delta{Duplicate: true}
	if stored != nil && stored.AppliedDeltaJSON != "" {
		var prior Delta
		if err := json.Unmarshal([]byte(stored.AppliedDeltaJSON), &prior); err == nil {
			delta = &prior
			delta.Duplicate = true
		}
	}
	return delta
}

func (r *Reconciler) applyOnce(ctx context.Context, ev *Event) (*Delta, error) {
	apply, ok := handlers[ev.Type]
	if !ok {
		// Unknown event types are recorded and skipped, never a failure.
		log.Infof("[Billing] skipping unhandled event type %q (id=%s)", ev.Type, ev.ID)
		return &Delta{Skipped: true, Reason: "unhandled event type"}, nil
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		account, err := r.resolveAccount(ev)
		if err != nil {
			return nil, err
		}

		delta, applyErr := apply(r, ev, account)
		if applyErr != nil && !errors.Is(applyErr, ErrSuspensionThreshold) {
			return delta, applyErr
		}

		swapped, casErr := r.accounts.CompareAndSwap(account)
		if casErr != nil {
			return nil, casErr
		}
		if swapped {
			return delta, applyErr
		}
		log.Warnf("[Billing] CAS conflict applying event %s to account %d (attempt %d)", ev.ID, account.ID, attempt+1)
	}

	return nil, ErrConflict
}

func (r *Reconciler) resolveAccount(ev *Event) (*models.User, error) {
	if ref := strings.TrimSpace(ev.CustomerRef); ref != "" {
		account, err := r.accounts.GetByStripeCustomerID(ref)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if email := models.NormalizeEmail(ev.Email); email != "" {
		account, err := r.accounts.GetByEmail(email)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: customer=%q email=%q", ErrAccountNotFound, ev.CustomerRef, ev.Email)
}

// applySubscriptionCreated links the subscription but grants nothing. An
// unfunded subscription (no payment method attached) must not yield credits
// or a paid plan; the plan stays pending until a payment confirmation event.
func (r *Reconciler) applySubscriptionCreated(ev *Event, account *models.User) (*Delta, error) {
	before := account.Credits

	if account.StripeCustomerID == "" && ev.CustomerRef != "" {
		account.StripeCustomerID = ev.CustomerRef
	}
	account.StripeSubscriptionID = ev.SubscriptionRef
	if !account.PaymentCompleted {
		account.Plan = models.PlanPending
	}

	return &Delta{
		AccountID:     account.ID,
		Plan:          account.Plan,
		CreditsBefore: before,
		CreditsAfter:  account.Credits,
	}, nil
}

// applySubscriptionUpdated refreshes provider references without moving any
// credits or plan entitlements.
func (r *Reconciler) applySubscriptionUpdated(ev *Event, account *models.User) (*Delta, error) {
	before := account.Credits
	if ev.SubscriptionRef != "" {
		account.StripeSubscriptionID = ev.SubscriptionRef
	}
	return &Delta{
		AccountID:     account.ID,
		Plan:          account.Plan,
		CreditsBefore: before,
		CreditsAfter:  account.Credits,
	}, nil
}

// applyPaymentConfirmed is the only path that grants credits. The allotment
// replaces the current balance (a paid basic cycle leaves exactly the plan's
// credits, trial leftovers do not stack), the renewal window advances, and
// any suspension lifts.
func (r *Reconciler) applyPaymentConfirmed(ev *Event, account *models.User) (*Delta, error) {
	spec, ok := r.catalog.ByPriceRef(ev.PlanRef)
	if !ok {
		// Off-session renewal charges carry no price ref; fall back to the
		// account's current plan.
		spec, ok = r.catalog.ByID(account.Plan)
	}
	if !ok {
		log.Warnf("[Billing] payment event %s for account %d has no resolvable plan (ref=%q)", ev.ID, account.ID, ev.PlanRef)
		return &Delta{
			AccountID:     account.ID,
			Plan:          account.Plan,
			CreditsBefore: account.Credits,
			CreditsAfter:  account.Credits,
			Skipped:       true,
			Reason:        "unresolvable plan reference",
		}, nil
	}

	before := account.Credits
	now := r.now().UTC()
	next := now.Add(spec.Period)

	account.Plan = spec.ID
	account.Credits = spec.Credits
	account.PaymentCompleted = true
	account.PaymentFailures = 0
	account.SuspendedUntil = nil
	account.LastRenewalAt = &now
	account.NextRenewalAt = &next
	if account.Status == models.STATUS_SUSPENDED {
		account.Status = models.STATUS_ACTIVE
	}

	return &Delta{
		AccountID:     account.ID,
		Plan:          account.Plan,
		CreditsBefore: before,
		CreditsAfter:  account.Credits,
	}, nil
}

// applyPaymentFailed counts consecutive failures and suspends once the
// threshold is crossed. Below the threshold the account is untouched; the
// provider keeps retrying on its own schedule.
func (r *Reconciler) applyPaymentFailed(ev *Event, account *models.User) (*Delta, error) {
	failures := account.PaymentFailures + 1
	if ev.AttemptCount > failures {
		failures = ev.AttemptCount
	}
	account.PaymentFailures = failures

	before := account.Credits
	delta := &Delta{
		AccountID:     account.ID,
		Plan:          account.Plan,
		CreditsBefore: before,
		CreditsAfter:  account.Credits,
	}

	if failures < r.failureThreshold {
		return delta, nil
	}

	until := r.now().UTC().Add(r.suspensionPeriod)
	account.SuspendedUntil = &until
	account.PaymentCompleted = false
	account.Status = models.STATUS_SUSPENDED
	delta.Suspended = true
	return delta, ErrSuspensionThreshold
}

// applySubscriptionDeleted drops the account back to free. Credits already
// granted are kept; there is no clawback.
func (r *Reconciler) applySubscriptionDeleted(ev *Event, account *models.User) (*Delta, error) {
	before := account.Credits

	account.Plan = models.PlanFree
	account.StripeSubscriptionID = ""
	account.PaymentCompleted = false
	account.NextRenewalAt = nil

	return &Delta{
		AccountID:     account.ID,
		Plan:          account.Plan,
		CreditsBefore: before,
		CreditsAfter:  account.Credits,
	}, nil
}
