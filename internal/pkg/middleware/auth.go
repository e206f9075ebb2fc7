package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/bioping/bioping/app/models"
	"github.com/bioping/bioping/app/repository"
	"github.com/bioping/bioping/internal/pkg/env"
	"github.com/bioping/bioping/internal/pkg/security"
	"github.com/bioping/bioping/internal/pkg/usercontext"
)

// BearerAuthMiddleware authenticates requests carrying a signed bearer token.
// The account is re-read on every request so plan, credits and suspension
// state are always current, not whatever they were at token issue time.
func BearerAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing bearer token"})
		}

		secret := env.GetEnv("AUTH_TOKEN_SECRET", "")
		claims, err := security.VerifyAuthToken(token, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid or expired token"})
		}

		repo := repository.GetGlobalFactory().GetAccountRepository()
		user, err := repo.GetByID(claims.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Unknown account"})
			}
			log.Printf("bearer auth account lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Account lookup failed"})
		}

		if user.Status == models.STATUS_INACTIVE {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Account not verified"})
		}

		userCtx := usercontext.UserContext{
			UserID:     user.ID,
			Email:      user.Email,
			IsLoggedIn: true,
			IsAdmin:    user.Role == models.ROLE_ADMIN,
			Plan:       user.Plan,
		}
		c.Locals(usercontext.KeyUserContext, userCtx)

		return c.Next()
	}
}

// RequireAdmin ensures the authenticated user is an admin; JSON 403 otherwise.
func RequireAdmin(c *fiber.Ctx) error {
	if !usercontext.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "admin access required",
		})
	}
	return c.Next()
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
