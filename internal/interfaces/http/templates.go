package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	"security-console/internal/domain"
	"security-console/internal/ports"
)

// TemplatesHandler exposes the capability catalog read-only.
type TemplatesHandler struct {
	catalog ports.CapabilityCatalog
}

func NewTemplatesHandler(catalog ports.CapabilityCatalog) *TemplatesHandler {
	return &TemplatesHandler{catalog: catalog}
}

func (h *TemplatesHandler) List(c echo.Context) error {
	return c.JSON(stdhttp.StatusOK, h.catalog.All())
}

func (h *TemplatesHandler) Get(c echo.Context) error {
	raw := c.Param("type")
	t, err := domain.ParseAppType(raw)
	if err != nil {
		return handleError(c, fmt.Errorf("template %q: %w", raw, domain.ErrNotFound))
	}
	capability, ok := h.catalog.Describe(t)
	if !ok {
		return handleError(c, fmt.Errorf("template %q: %w", raw, domain.ErrNotFound))
	}
	return c.JSON(stdhttp.StatusOK, capability)
}
