package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/bioping/bioping/app/models"
	"github.com/bioping/bioping/app/repository"
	"github.com/bioping/bioping/internal/pkg/cache"
	"github.com/bioping/bioping/internal/pkg/env"
	"github.com/bioping/bioping/internal/pkg/mail"
	"github.com/bioping/bioping/internal/pkg/security"
)

const verificationCodeTTL = 10 * time.Minute

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Company  string `json:"company"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignup creates an inactive account with trial credits and mails a
// verification code. The code lives in Redis with a TTL, not in the database.
func HandleSignup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	repo := repository.GetGlobalFactory().GetAccountRepository()
	if _, err := repo.GetByEmail(req.Email); err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "An account with this email already exists"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Account lookup failed"})
	}

	trialCredits := env.GetEnvInt("FREE_TRIAL_CREDITS", 5)
	user, err := models.CreateUser(req.Name, req.Email, req.Password, trialCredits)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	user.Company = req.Company

	code, err := user.GenerateVerificationCode()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not generate verification code"})
	}

	if err := repo.Create(user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not create account"})
	}

	if err := cache.Set("verify:"+user.Email, code, verificationCodeTTL); err != nil {
		log.Errorf("failed to store verification code for %s: %v", user.Email, err)
	}
	if err := mail.SendVerificationCode(user.Email, user.Name, code); err != nil {
		log.Errorf("failed to send verification code to %s: %v", user.Email, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      user.ID,
		"email":   user.Email,
		"credits": user.Credits,
		"message": "Account created, check your inbox for the verification code",
	})
}

// HandleVerify activates an account when the mailed code matches.
func HandleVerify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	email := models.NormalizeEmail(req.Email)
	stored, err := cache.Get("verify:" + email)
	if err != nil || stored == "" || stored != req.Code {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid or expired verification code"})
	}

	repo := repository.GetGlobalFactory().GetAccountRepository()
	user, err := repo.GetByEmail(email)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Account not found"})
	}

	user.Status = models.STATUS_ACTIVE
	if err := repo.Update(user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not activate account"})
	}
	_ = cache.Delete("verify:" + email)

	return c.JSON(fiber.Map{"message": "Account verified"})
}

// HandleLogin checks credentials and returns a signed bearer token.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	repo := repository.GetGlobalFactory().GetAccountRepository()
	user, err := repo.GetByEmail(req.Email)
	if err != nil || !user.CheckPassword(req.Password) {
		// Same answer for unknown email and wrong password.
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid email or password"})
	}

	if user.Status == models.STATUS_INACTIVE {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Account not verified"})
	}

	ttl := time.Duration(env.GetEnvInt("AUTH_TOKEN_TTL_HOURS", 24)) * time.Hour
	token, err := security.GenerateAuthToken(user.ID, user.Email, user.Role, ttl, env.GetEnv("AUTH_TOKEN_SECRET", ""))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Could not issue token"})
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := repo.Update(user); err != nil {
		log.Errorf("failed to update last login for account %d: %v", user.ID, err)
	}

	resp := fiber.Map{
		"token":   token,
		"plan":    user.Plan,
		"credits": user.Credits,
	}
	// A suspended account can still log in, but the client must show the
	// payment-required state instead of the app.
	if user.IsSuspended(now) {
		resp["payment_required"] = true
		resp["suspended_until"] = user.SuspendedUntil
	}
	return c.JSON(resp)
}
