package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/penny-vault/pv-nav/handler"
)

// SetupRoutes setup router api
func SetupRoutes(app *fiber.App, series *handler.Series) {
	app.Get("/healthz", handler.Ping)

	api := app.Group("/api/v1")
	api.Get("/", handler.Ping)
	api.Get("/status", series.Status)

	// Series
	seriesGroup := api.Group("/series")
	seriesGroup.Get("/", series.ListSeries)
	seriesGroup.Get("/:name", series.GetSeries)
}
