package http

import (
	"context"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	"security-console/internal/application"
	"security-console/internal/domain"
)

type userService interface {
	Create(ctx context.Context, in application.UserInput) (domain.User, error)
	Update(ctx context.Context, userID string, patch application.UserPatch) (domain.User, error)
	GetByID(ctx context.Context, userID string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

type UsersHandler struct{ service userService }

func NewUsersHandler(service userService) *UsersHandler {
	return &UsersHandler{service: service}
}

type createUserRequest struct {
	Username     string   `json:"username" validate:"required,max=64"`
	Email        string   `json:"email" validate:"required,email"`
	Password     string   `json:"password" validate:"required,min=8"`
	FirstName    string   `json:"first_name" validate:"max=64"`
	LastName     string   `json:"last_name" validate:"max=64"`
	Roles        []string `json:"roles"`
	ModuleAccess []string `json:"module_access"`
	IsAdmin      bool     `json:"is_admin"`
}

type updateUserRequest struct {
	Email        *string  `json:"email" validate:"omitempty,email"`
	FirstName    *string  `json:"first_name" validate:"omitempty,max=64"`
	LastName     *string  `json:"last_name" validate:"omitempty,max=64"`
	Roles        []string `json:"roles"`
	ModuleAccess []string `json:"module_access"`
	IsAdmin      *bool    `json:"is_admin"`
	IsActive     *bool    `json:"is_active"`
}

func (h *UsersHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}
	user, err := h.service.Create(c.Request().Context(), application.UserInput{
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Roles:        req.Roles,
		ModuleAccess: req.ModuleAccess,
		IsAdmin:      req.IsAdmin,
	})
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusCreated, user)
}

func (h *UsersHandler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}
	user, err := h.service.Update(c.Request().Context(), c.Param("id"), application.UserPatch{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Roles:        req.Roles,
		ModuleAccess: req.ModuleAccess,
		IsAdmin:      req.IsAdmin,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, user)
}

func (h *UsersHandler) Get(c echo.Context) error {
	user, err := h.service.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, user)
}

func (h *UsersHandler) List(c echo.Context) error {
	users, err := h.service.List(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, users)
}
