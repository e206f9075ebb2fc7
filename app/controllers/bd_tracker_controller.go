package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/bioping/bioping/app/models"
	"github.com/bioping/bioping/app/repository"
	"github.com/bioping/bioping/internal/pkg/entitlements"
	"github.com/bioping/bioping/internal/pkg/usercontext"
)

// HandleListBDProjects returns one page of the caller's tracker rows.
func HandleListBDProjects(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "25"))
	if page < 1 {
		page = 1
	}

	projects, total, err := repository.GetGlobalFactory().GetBDProjectRepository().ListByUser(userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load tracker"})
	}

	return c.JSON(fiber.Map{
		"projects":  projects,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// HandleCreateBDProject adds a tracker row for the caller.
func HandleCreateBDProject(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var project models.BDProject
	if err := c.BodyParser(&project); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	project.ID = 0
	project.UserID = userCtx.UserID
	if project.Stage == "" {
		project.Stage = models.BDStageIdentified
	}

	if err := project.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	repo := repository.GetGlobalFactory().GetBDProjectRepository()
	if limit := entitlements.MaxBDProjects(entitlements.ForPlanName(userCtx.Plan)); limit > 0 {
		count, err := repo.CountByUser(userCtx.UserID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load tracker"})
		}
		if count >= int64(limit) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "plan_limit_reached", "message": "Tracker is full for your plan"})
		}
	}

	if err := repo.Create(&project); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create entry"})
	}

	return c.Status(fiber.StatusCreated).JSON(project)
}

// HandleUpdateBDProject updates a tracker row owned by the caller.
func HandleUpdateBDProject(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	id64, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid id"})
	}

	repo := repository.GetGlobalFactory().GetBDProjectRepository()
	project, err := repo.GetByID(uint(id64), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Entry not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load entry"})
	}

	var patch models.BDProject
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	project.CompanyName = patch.CompanyName
	project.ContactName = patch.ContactName
	project.ContactEmail = patch.ContactEmail
	if patch.Stage != "" {
		project.Stage = patch.Stage
	}
	project.Notes = patch.Notes
	project.NextFollowUp = patch.NextFollowUp

	if err := project.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	if err := repo.Update(project); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to update entry"})
	}

	return c.JSON(project)
}

// HandleDeleteBDProject removes a tracker row owned by the caller.
func HandleDeleteBDProject(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	id64, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid id"})
	}

	err = repository.GetGlobalFactory().GetBDProjectRepository().Delete(uint(id64), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Entry not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to delete entry"})
	}

	return c.JSON(fiber.Map{"ok": true})
}
