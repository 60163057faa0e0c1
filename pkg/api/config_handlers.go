package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/adcs-fsw/rwnullspace/pkg/config"
	customlog "github.com/adcs-fsw/rwnullspace/pkg/log"
	"github.com/adcs-fsw/rwnullspace/pkg/rwnullspace"
	"github.com/adcs-fsw/rwnullspace/services"
)

// ConfigHandler holds dependencies for configuration API endpoints.
type ConfigHandler struct {
	configService services.NullSpaceConfigService
	logger        customlog.Logger
}

// NewConfigHandler creates a new handler for configuration endpoints.
func NewConfigHandler(configService services.NullSpaceConfigService, logger customlog.Logger) *ConfigHandler {
	// Basic validation
	if configService == nil {
		panic("ConfigService cannot be nil in NewConfigHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewConfigHandler")
	}
	return &ConfigHandler{
		configService: configService,
		logger:        logger,
	}
}

// RegisterConfigRoutes registers the configuration API endpoints with the Fiber app.
func RegisterConfigRoutes(app *fiber.App, configService services.NullSpaceConfigService, logger customlog.Logger) {
	h := NewConfigHandler(configService, logger)

	// Define the API group
	apiGroup := app.Group("/api/v1/config")

	// GET endpoint to retrieve the module configuration as YAML
	apiGroup.Get("/nullspace", h.handleGetNullSpaceConfig)

	// PUT endpoint to stage a new module configuration
	apiGroup.Put("/nullspace", h.handleUpdateNullSpaceConfig)

	logger.Infof("Registered null-space configuration API endpoints under /api/v1/config")
}

// handleGetNullSpaceConfig returns the module config file as YAML.
func (h *ConfigHandler) handleGetNullSpaceConfig(c *fiber.Ctx) error {
	yamlData, err := h.configService.GetCurrentConfigYAML()
	if err != nil {
		h.logger.Errorf("Failed to get null-space config YAML: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to retrieve configuration: %v", err),
		})
	}

	// Set content type to YAML
	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(yamlData)
}

// handleUpdateNullSpaceConfig validates and stages a new module config for the next start.
func (h *ConfigHandler) handleUpdateNullSpaceConfig(c *fiber.Ctx) error {
	// Get the raw body content (byte slice)
	newConfigYAML := c.Body()
	if len(newConfigYAML) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Request body cannot be empty.",
		})
	}

	// Call the service to validate and persist the configuration
	err := h.configService.UpdateConfig(newConfigYAML)
	switch {
	case err == nil:
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, rwnullspace.ErrDegenerateGeometry):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Configuration update failed: %v", err),
		})
	default:
		// Anything else is a file write error
		h.logger.Errorf("Failed to update null-space configuration: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Internal server error during configuration update: %v", err),
		})
	}

	// Accepted, not applied: the running projector is immutable
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"message":         "Null-space configuration staged. Restart to apply.",
		"pending_restart": h.configService.PendingRestart(),
	})
}
