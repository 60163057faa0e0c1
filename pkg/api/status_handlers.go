package api

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"gonum.org/v1/gonum/mat"

	customlog "github.com/adcs-fsw/rwnullspace/pkg/log"
	"github.com/adcs-fsw/rwnullspace/pkg/messaging"
	"github.com/adcs-fsw/rwnullspace/pkg/rwnullspace"
	"github.com/adcs-fsw/rwnullspace/pkg/scheduler"
)

// ProjectorSource exposes the geometry state of the null-space module
type ProjectorSource interface {
	Config() rwnullspace.Config
	Projector() *rwnullspace.Projector
}

// MetricsSource exposes scheduler step metrics
type MetricsSource interface {
	Metrics() []scheduler.TaskMetrics
}

// StatusHandler serves read-only diagnostics of the running process
type StatusHandler struct {
	module  ProjectorSource
	bus     *messaging.Bus
	metrics MetricsSource
	logger  customlog.Logger
}

// RegisterStatusRoutes registers health and diagnostics endpoints.
func RegisterStatusRoutes(app *fiber.App, module ProjectorSource, bus *messaging.Bus, metrics MetricsSource, logger customlog.Logger) {
	h := &StatusHandler{
		module:  module,
		bus:     bus,
		metrics: metrics,
		logger:  logger,
	}

	app.Get("/health", h.handleHealth)

	apiGroup := app.Group("/api/v1")
	apiGroup.Get("/nullspace/projector", h.handleGetProjector)
	apiGroup.Get("/channels", h.handleGetChannels)
	apiGroup.Get("/scheduler/metrics", h.handleGetSchedulerMetrics)

	logger.Infof("Registered status API endpoints under /api/v1")
}

func (h *StatusHandler) handleHealth(c *fiber.Ctx) error {
	if h.module.Projector() == nil {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": "initializing"})
	}
	return c.JSON(fiber.Map{"status": "healthy"})
}

func (h *StatusHandler) handleGetProjector(c *fiber.Ctx) error {
	p := h.module.Projector()
	if p == nil {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Projector not computed yet.",
		})
	}

	cfg := h.module.Config()
	return c.JSON(ProjectorResponse{
		NumWheels:     cfg.NumWheels(),
		OmegaGain:     cfg.OmegaGain(),
		Projector:     rows(p.Matrix()),
		PseudoInverse: rows(p.PseudoInverse()),
		Residual:      p.Residual(),
		GramCondition: p.GramCondition(),
	})
}

func (h *StatusHandler) handleGetChannels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "success",
		"channels": h.bus.Channels(),
	})
}

func (h *StatusHandler) handleGetSchedulerMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "success",
		"tasks":  h.metrics.Metrics(),
	})
}

func rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}
