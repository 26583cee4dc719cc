package metrics

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type MetricsController struct {
	Engine     *Engine
	Aggregator *PerUserAggregator
	Worktime   *WorkTimeframeDeriver
	Registry   *Registry
}

func NewMetricsController(engine *Engine, aggregator *PerUserAggregator, worktime *WorkTimeframeDeriver, registry *Registry) *MetricsController {
	return &MetricsController{
		Engine:     engine,
		Aggregator: aggregator,
		Worktime:   worktime,
		Registry:   registry,
	}
}

// Execute computes one metric
// @Summary Execute metric
// @Tags metrics
// @Accept json
// @Produce json
// @Param request body MetricRequest true "Metric request"
// @Success 200 {object} MetricResponse
// @Router /api/metrics/execute [post]
func (c *MetricsController) Execute(ctx *fiber.Ctx) error {
	var req MetricRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	resp, err := c.Engine.Execute(ctx.Context(), req)
	if err != nil {
		return validationOrInternal(ctx, err)
	}
	return ctx.JSON(resp)
}

// PerUser computes a table of users x metrics
// @Summary Per-user metric table
// @Tags metrics
// @Accept json
// @Produce json
// @Param request body PerUserRequest true "Per-user request"
// @Success 200 {object} PerUserTable
// @Router /api/metrics/per-user [post]
func (c *MetricsController) PerUser(ctx *fiber.Ctx) error {
	var req PerUserRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	table, err := c.Aggregator.Aggregate(ctx.Context(), req)
	if err != nil {
		return validationOrInternal(ctx, err)
	}
	return ctx.JSON(table)
}

// PerUserExport streams the per-user table as an xlsx download
// @Summary Export per-user metric table
// @Tags metrics
// @Accept json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param request body PerUserRequest true "Per-user request"
// @Success 200 {file} binary
// @Router /api/metrics/per-user/export [post]
func (c *MetricsController) PerUserExport(ctx *fiber.Ctx) error {
	var req PerUserRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	table, err := c.Aggregator.Aggregate(ctx.Context(), req)
	if err != nil {
		return validationOrInternal(ctx, err)
	}

	data, filename, err := ExportPerUserTable(table)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	ctx.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	return ctx.Send(data)
}

// WorkTimeframes derives hours worked and per-hour rates
// @Summary Work timeframe summary
// @Tags metrics
// @Accept json
// @Produce json
// @Param filters body MetricFilters true "Filters"
// @Success 200 {object} WorkTimeframeSummary
// @Router /api/metrics/work-timeframes [post]
func (c *MetricsController) WorkTimeframes(ctx *fiber.Ctx) error {
	var filters MetricFilters
	if err := ctx.BodyParser(&filters); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := ValidateFilters(filters); err != nil {
		return validationOrInternal(ctx, err)
	}

	summary, err := c.Worktime.Derive(ctx.Context(), filters)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(summary)
}

// Catalog lists every registered metric variant
// @Summary Metric catalog
// @Tags metrics
// @Produce json
// @Success 200 {array} MetricDefinition
// @Router /api/metrics/catalog [get]
func (c *MetricsController) Catalog(ctx *fiber.Ctx) error {
	return ctx.JSON(c.Registry.Definitions())
}

func validationOrInternal(ctx *fiber.Ctx, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "validation failed",
			"reasons": verr.Reasons,
		})
	}
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
