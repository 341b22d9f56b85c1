package http

import (
	"context"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	"security-console/internal/domain"
)

type roleService interface {
	Create(ctx context.Context, role domain.Role) (domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
}

type RolesHandler struct{ service roleService }

func NewRolesHandler(service roleService) *RolesHandler {
	return &RolesHandler{service: service}
}

type createRoleRequest struct {
	Name        string   `json:"name" validate:"required,max=128"`
	Description string   `json:"description" validate:"max=1024"`
	Permissions []string `json:"permissions" validate:"dive,required"`
}

func (h *RolesHandler) Create(c echo.Context) error {
	var req createRoleRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}
	role, err := h.service.Create(c.Request().Context(), domain.Role{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusCreated, role)
}

func (h *RolesHandler) List(c echo.Context) error {
	roles, err := h.service.List(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, roles)
}
