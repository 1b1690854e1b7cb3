package handlers

import (
	"net/http"

	"github.com/NomadCrew/feedback-hub-backend/types"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	healthService HealthChecker
}

func NewHealthHandler(healthService HealthChecker) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

// LivenessCheck handles kubernetes liveness probe
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}

// ReadinessCheck reports 503 until the storage provider answers.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if !h.healthService.IsReady(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": types.HealthStatusDown})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": types.HealthStatusUp})
}

// DetailedHealth provides detailed health information
func (h *HealthHandler) DetailedHealth(c *gin.Context) {
	health := h.healthService.CheckHealth(c.Request.Context())

	status := http.StatusOK
	if health.Status == types.HealthStatusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}
