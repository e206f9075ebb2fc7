package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/bioping/bioping/app/repository"
	"github.com/bioping/bioping/internal/pkg/usercontext"
)

// HandleGetAccount returns plan, credits and renewal timestamps for an
// account. Pure read path: it never mutates billing state. Users can read
// their own account; admins can read any.
func HandleGetAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	id64, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid account id"})
	}
	id := uint(id64)

	if id != userCtx.UserID && !userCtx.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Not your account"})
	}

	repo := repository.GetGlobalFactory().GetAccountRepository()
	account, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Account not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load account"})
	}

	return c.JSON(fiber.Map{
		"id":                account.ID,
		"name":              account.Name,
		"email":             account.Email,
		"status":            account.Status,
		"plan":              account.Plan,
		"credits":           account.Credits,
		"payment_completed": account.PaymentCompleted,
		"last_renewal_at":   account.LastRenewalAt,
		"next_renewal_at":   account.NextRenewalAt,
		"suspended_until":   account.SuspendedUntil,
	})
}
