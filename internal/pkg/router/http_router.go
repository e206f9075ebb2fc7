package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bioping/bioping/app/controllers"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Provider webhooks are unauthenticated by design; the payload signature
	// is the credential and is checked inside the handler.
	app.Post("/webhooks/billing", controllers.HandleBillingWebhook)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
