package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/andersonlima/payhook/app/controllers"
	"github.com/andersonlima/payhook/internal/pkg/catalog"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App, registry *catalog.Registry) {
	controllers.InitializeWebhookController(registry)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/webhook", controllers.HandleProviderWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
