package controllers

import (
	"time"

	"Backend-PollSurvey/src/models"

	"github.com/gofiber/fiber/v2"
)

// Health godoc
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  models.HealthResponse
// @Router       /health [get]
func Health(c *fiber.Ctx) error {
	return c.JSON(models.HealthResponse{Status: "ok", Timestamp: time.Now().UTC().Format(time.RFC3339)})
}
