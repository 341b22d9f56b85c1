package http

import (
	"context"
	"errors"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	adaptermiddleware "security-console/internal/adapters/http/middleware"
	"security-console/internal/application"
	"security-console/internal/domain"
)

type authService interface {
	Login(ctx context.Context, username, password string) (application.LoginResult, error)
	Me(ctx context.Context, principal domain.Principal) (domain.User, error)
	ChangePassword(ctx context.Context, principal domain.Principal, current, next string) error
}

type AuthHandler struct{ service authService }

func NewAuthHandler(service authService) *AuthHandler {
	return &AuthHandler{service: service}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}
	result, err := h.service.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, result)
}

// Me returns the caller's local user, or the token identity when the caller
// has no local record.
func (h *AuthHandler) Me(c echo.Context) error {
	principal, ok := adaptermiddleware.PrincipalFrom(c)
	if !ok {
		return handleError(c, domain.ErrUnauthenticated)
	}
	user, err := h.service.Me(c.Request().Context(), principal)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthenticated) {
		return c.JSON(stdhttp.StatusOK, principal)
	}
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, user)
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	principal, ok := adaptermiddleware.PrincipalFrom(c)
	if !ok {
		return handleError(c, domain.ErrUnauthenticated)
	}
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}
	if err := h.service.ChangePassword(c.Request().Context(), principal, req.CurrentPassword, req.NewPassword); err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, map[string]string{"message": "password changed"})
}
