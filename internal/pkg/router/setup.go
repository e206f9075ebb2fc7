package router

import (
	"github.com/gofiber/fiber/v2"
)

// Router installs one group of routes onto the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App) {
	// HttpRouter carries the unauthenticated surface (webhooks, health);
	// ApiRouter carries the versioned, mostly token-protected API.
	setup(app, NewHttpRouter(), NewApiRouter())
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
