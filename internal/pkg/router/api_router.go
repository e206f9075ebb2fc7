package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/bioping/bioping/app/controllers"
	"github.com/bioping/bioping/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	// API v1 routes
	v1 := api.Group("/v1")

	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth := v1.Group("/auth")
	auth.Post("/signup", controllers.HandleSignup)
	auth.Post("/verify", controllers.HandleVerify)
	auth.Post("/login", controllers.HandleLogin)

	protected := v1.Group("", middleware.BearerAuthMiddleware())
	protected.Get("/accounts/:id", controllers.HandleGetAccount)

	protected.Post("/search", controllers.HandleSearch)
	protected.Post("/search/reveal/:contactID", controllers.HandleRevealContact)

	protected.Get("/bd-projects", controllers.HandleListBDProjects)
	protected.Post("/bd-projects", controllers.HandleCreateBDProject)
	protected.Put("/bd-projects/:id", controllers.HandleUpdateBDProject)
	protected.Delete("/bd-projects/:id", controllers.HandleDeleteBDProject)

	admin := protected.Group("/admin", middleware.RequireAdmin)
	admin.Post("/contacts/import", controllers.HandleImportContacts)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
