package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/bioping/bioping/app/repository"
	"github.com/bioping/bioping/internal/pkg/billing"
	"github.com/bioping/bioping/internal/pkg/mail"
)

// HandleBillingWebhook receives Stripe event deliveries. The signature is
// verified before the payload is trusted; once an event's outcome is durably
// settled the provider gets a 200 even when that outcome is a no-op
// (duplicate, unknown type, unmatched customer), so redeliveries stop.
// Unexpected internal faults answer 500 and leave the event unsettled, so
// provider retries get a fresh apply.
func HandleBillingWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	sigHeader := c.Get("Stripe-Signature")

	gateway := billing.NewGatewayFromEnv()
	event, err := gateway.ParseWebhook(rawBody, sigHeader)
	if err != nil {
		if errors.Is(err, billing.ErrMalformedEvent) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}

	repos := repository.GetGlobalRepositories()
	reconciler := billing.NewReconciler(repos.Account, repos.WebhookEvent, billing.NewCatalogFromEnv())

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	delta, err := reconciler.Apply(ctx, event)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"ok": true})

	case errors.Is(err, billing.ErrDuplicateEvent):
		return c.JSON(fiber.Map{"ok": true, "duplicate": true})

	case errors.Is(err, billing.ErrAccountNotFound):
		// Stale or test customer data; acknowledged and dropped on purpose.
		log.Infof("[Billing] event %s ignored: %v", event.ID, err)
		return c.JSON(fiber.Map{"ok": true, "ignored": true})

	case errors.Is(err, billing.ErrSuspensionThreshold):
		notifySuspension(delta)
		return c.JSON(fiber.Map{"ok": true, "suspended": true})

	case errors.Is(err, billing.ErrMalformedEvent):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})

	default:
		log.Errorf("[Billing] event %s failed: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "reconciliation_failed"})
	}
}

func notifySuspension(delta *billing.Delta) {
	if delta == nil || delta.AccountID == 0 {
		return
	}
	account, err := repository.GetGlobalFactory().GetAccountRepository().GetByID(delta.AccountID)
	if err != nil {
		log.Errorf("[Billing] could not load suspended account %d for notification: %v", delta.AccountID, err)
		return
	}
	if err := mail.SendSuspensionNotice(account.Email, account.Name); err != nil {
		log.Errorf("[Billing] suspension mail to account %d failed: %v", account.ID, err)
	}
}
