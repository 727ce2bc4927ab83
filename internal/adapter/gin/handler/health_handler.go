package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"user-doc-service/internal/usecase/health"
)

// HealthHandler serves dependency status for load balancers and operators.
type HealthHandler struct {
	checker *health.Checker
	service string
	version string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(checker *health.Checker, service, version string) *HealthHandler {
	return &HealthHandler{checker: checker, service: service, version: version}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     health.Status            `json:"status" example:"ok"`
	Service    string                   `json:"service" example:"user-doc-service"`
	Version    string                   `json:"version" example:"1.0.0"`
	Components map[string]health.Status `json:"components"`
}

// Health godoc
// @Summary      Service health
// @Description  200 while every required dependency answers, 503 otherwise.
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	report := h.checker.Check(c.Request.Context())

	code := http.StatusOK
	if !report.Healthy() {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, HealthResponse{
		Status:     report.Status,
		Service:    h.service,
		Version:    h.version,
		Components: report.Components,
	})
}
