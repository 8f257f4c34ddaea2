package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/andersonlima/payhook/internal/pkg/catalog"
)

// Router installs a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App, registry *catalog.Registry)
}

// InstallRouter registers every route group. The HTTP router goes first so
// the webhook controller is initialized before the API surface that shares
// its repositories.
func InstallRouter(app *fiber.App, registry *catalog.Registry) {
	setup(app, registry, NewHttpRouter(), NewApiRouter())
}

func setup(app *fiber.App, registry *catalog.Registry, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app, registry)
	}
}
