package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/andersonlima/payhook/app/controllers"
	"github.com/andersonlima/payhook/internal/pkg/catalog"
	"github.com/andersonlima/payhook/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App, registry *catalog.Registry) {
	controllers.InitializeAdminOrderController(registry)

	api := app.Group("/api", limiter.New())

	// Admin repair surface, token-guarded.
	v1 := api.Group("/v1", middleware.AdminTokenMiddleware)
	v1.Get("/orders/:family/:id", controllers.HandleAdminGetOrder)
	v1.Post("/orders/:family/:id/mark-paid", controllers.HandleAdminMarkOrderPaid)
	v1.Post("/orders/:family/:id/resend-email", controllers.HandleAdminResendOrderEmail)
	v1.Get("/webhook-logs", controllers.HandleAdminListWebhookLogs)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
