package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/bioping/bioping/app/models"
	"github.com/bioping/bioping/app/repository"
	"github.com/bioping/bioping/internal/pkg/entitlements"
	"github.com/bioping/bioping/internal/pkg/metrics/counter"
	"github.com/bioping/bioping/internal/pkg/usercontext"
)

const revealRetries = 3

// Seam for tests; search-hit counting must never fail a search response.
var addSearchHit = counter.AddContactSearchHit

// recordSearchHits bumps the per-contact search-hit counters for a result
// page. Best effort: on the first Redis error the rest of the page is skipped
// and the response goes out regardless.
func recordSearchHits(contacts []models.Contact) {
	for _, hit := range contacts {
		if err := addSearchHit(hit.ID); err != nil {
			log.Warnf("search hit counter for contact %d: %v", hit.ID, err)
			break
		}
	}
}

type searchRequest struct {
	Query            string `json:"query"`
	Region           string `json:"region"`
	TierLevel        string `json:"tier_level"`
	DiseaseArea      string `json:"disease_area"`
	DevelopmentStage string `json:"development_stage"`
	Modality         string `json:"modality"`
	ContactFunction  string `json:"contact_function"`
	Page             int    `json:"page"`
	PageSize         int    `json:"page_size"`
}

// HandleSearch runs a filtered contact search. Results hide email addresses;
// revealing a contact is the operation that costs a credit.
func HandleSearch(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	maxPage := entitlements.SearchPageLimit(entitlements.ForPlanName(userCtx.Plan))
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 25
	}
	if req.PageSize > maxPage {
		req.PageSize = maxPage
	}

	filter := repository.ContactFilter{
		Query:            req.Query,
		Region:           req.Region,
		TierLevel:        req.TierLevel,
		DiseaseArea:      req.DiseaseArea,
		DevelopmentStage: req.DevelopmentStage,
		Modality:         req.Modality,
		ContactFunction:  req.ContactFunction,
		Offset:           (req.Page - 1) * req.PageSize,
		Limit:            req.PageSize,
	}

	contacts, total, err := repository.GetGlobalFactory().GetContactRepository().Search(filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Search failed"})
	}

	recordSearchHits(contacts)

	return c.JSON(fiber.Map{
		"results":   contacts,
		"total":     total,
		"page":      req.Page,
		"page_size": req.PageSize,
	})
}

// HandleRevealContact spends one credit and returns the contact's email.
// The credit decrement goes through compare-and-swap so two concurrent
// reveals (or a reveal racing a billing update) cannot double-spend or
// clobber each other; the balance can never go below zero.
func HandleRevealContact(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	id64, err := strconv.ParseUint(c.Params("contactID"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid contact id"})
	}

	contacts := repository.GetGlobalFactory().GetContactRepository()
	contact, err := contacts.GetByID(uint(id64))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Contact not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Contact lookup failed"})
	}

	accounts := repository.GetGlobalFactory().GetAccountRepository()
	now := time.Now()
	for attempt := 0; attempt < revealRetries; attempt++ {
		account, err := accounts.GetByID(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Account lookup failed"})
		}

		if account.IsSuspended(now) {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "payment_required", "message": "Account suspended, update your payment method"})
		}
		if !account.ConsumeCredit() {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "payment_required", "message": "No credits left"})
		}

		swapped, err := accounts.CompareAndSwap(account)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Credit update failed"})
		}
		if swapped {
			if err := counter.AddContactReveal(contact.ID); err != nil {
				log.Warnf("reveal counter for contact %d: %v", contact.ID, err)
			}
			return c.JSON(fiber.Map{
				"contact":           contact.Reveal(),
				"credits_remaining": account.Credits,
			})
		}
		log.Warnf("credit CAS conflict for account %d (attempt %d)", account.ID, attempt+1)
	}

	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Concurrent account update, try again"})
}
