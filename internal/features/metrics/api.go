package metrics

import (
	"go-salesops/internal/config"
	"go-salesops/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type MetricsApi struct {
	Controller *MetricsController
	Config     *config.Config
}

func NewMetricsApi(controller *MetricsController, cfg *config.Config) *MetricsApi {
	return &MetricsApi{Controller: controller, Config: cfg}
}

func (a *MetricsApi) Setup(app *fiber.App) {
	metrics := app.Group("/api/metrics")
	metrics.Use(middleware.AuthMiddleware(a.Config.SkipAuth))

	metrics.Get("/catalog", a.Controller.Catalog)
	metrics.Post("/execute", a.Controller.Execute)
	metrics.Post("/per-user", a.Controller.PerUser)
	metrics.Post("/per-user/export", a.Controller.PerUserExport)
	metrics.Post("/work-timeframes", a.Controller.WorkTimeframes)
}
