package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bioping/bioping/app/repository"
	"github.com/bioping/bioping/internal/pkg/billing"
	"github.com/bioping/bioping/internal/pkg/cache"
	"github.com/bioping/bioping/internal/pkg/database"
	"github.com/bioping/bioping/internal/pkg/env"
	"github.com/bioping/bioping/internal/pkg/router"
)

func main() {
	app := NewApplication()

	scheduler := newScheduler()
	scheduler.Start()

	// graceful shutdown: let in-flight webhook deliveries finish before the
	// sweep workers are torn down
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("[App] shutdown signal received")
		if err := app.Shutdown(); err != nil {
			log.Errorf("[App] shutdown: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	scheduler.Stop()
	if err != nil {
		log.Fatal(err)
	}
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())

	app := fiber.New(fiber.Config{
		BodyLimit: 16 * 1024 * 1024, // contact workbooks top out well below this
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}

func newScheduler() *billing.Scheduler {
	repos := repository.GetGlobalRepositories()
	return billing.NewScheduler(
		repos.Account,
		repos.WebhookEvent,
		billing.NewGatewayFromEnv(),
		billing.NewCatalogFromEnv(),
	)
}
