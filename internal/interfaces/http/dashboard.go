package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/labstack/echo/v4"
	"security-console/internal/application"
)

type statsService interface {
	Stats(ctx context.Context) (application.DashboardStats, error)
}

type DashboardHandler struct{ service statsService }

func NewDashboardHandler(service statsService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

func (h *DashboardHandler) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, stats)
}

func Health(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
