package http

import (
	"context"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	"security-console/internal/domain"
)

type defectDojoService interface {
	ListUsers(ctx context.Context) ([]domain.RemoteUser, error)
	ListRoles(ctx context.Context) ([]domain.RemoteRole, error)
}

type DefectDojoHandler struct{ service defectDojoService }

func NewDefectDojoHandler(service defectDojoService) *DefectDojoHandler {
	return &DefectDojoHandler{service: service}
}

func (h *DefectDojoHandler) Users(c echo.Context) error {
	users, err := h.service.ListUsers(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	if users == nil {
		users = []domain.RemoteUser{}
	}
	return c.JSON(stdhttp.StatusOK, users)
}

func (h *DefectDojoHandler) Roles(c echo.Context) error {
	roles, err := h.service.ListRoles(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	if roles == nil {
		roles = []domain.RemoteRole{}
	}
	return c.JSON(stdhttp.StatusOK, roles)
}
