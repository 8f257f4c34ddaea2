package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/andersonlima/payhook/app/repository"
	"github.com/andersonlima/payhook/internal/pkg/cache"
	"github.com/andersonlima/payhook/internal/pkg/catalog"
	"github.com/andersonlima/payhook/internal/pkg/database"
	"github.com/andersonlima/payhook/internal/pkg/env"
	"github.com/andersonlima/payhook/internal/pkg/router"
	"github.com/andersonlima/payhook/internal/pkg/webhook"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()

	registry := catalog.Default()
	database.SetupDatabase(registry)
	repository.InitGlobalFactory(database.GetDB())
	cache.SetupCache()

	// Resolve the project root so the binary works from cmd/payhook too.
	basePaths := []string{
		"./",
		"../../",
		"../../../",
	}
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		panic("Could not find project root directory")
	}

	app := fiber.New(fiber.Config{
		AppName: "payhook",
	})
	app.Use(recover.New(), logger.New())

	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, registry)

	sweeper := &webhook.ExpirySweeper{
		Orders:   repository.GetGlobalFactory().GetOrderRepository(),
		Registry: registry,
		Interval: envDuration("EXPIRY_SWEEP_INTERVAL", webhook.DefaultExpiryInterval),
		MaxAge:   envDuration("ORDER_MAX_PENDING_AGE", webhook.DefaultExpiryMaxAge),
	}
	go sweeper.Run(context.Background())

	return app
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := env.GetEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("invalid duration in %s (%q), using default %s", key, raw, def)
		return def
	}
	return d
}
