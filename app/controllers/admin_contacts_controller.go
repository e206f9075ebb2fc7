package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/bioping/bioping/app/repository"
	"github.com/bioping/bioping/internal/pkg/contacts"
)

// HandleImportContacts replaces the curated contact dataset from an admin
// Excel upload. The whole upload lands under one batch id, so either the new
// dataset is live or the old one still is; there is no half-imported state.
func HandleImportContacts(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Missing file upload"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Could not open upload"})
	}
	defer file.Close()

	parsed, err := contacts.ParseWorkbook(file)
	if err != nil {
		if errors.Is(err, contacts.ErrNoRows) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "empty_workbook", "message": "No importable rows found"})
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid_workbook", "message": err.Error()})
	}

	batchID := uuid.NewString()
	if err := repository.GetGlobalFactory().GetContactRepository().ReplaceBatch(batchID, parsed); err != nil {
		log.Errorf("contact import batch %s failed: %v", batchID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Import failed"})
	}

	log.Infof("contact import batch %s: %d row(s)", batchID, len(parsed))
	return c.JSON(fiber.Map{
		"batch_id": batchID,
		"imported": len(parsed),
	})
}
