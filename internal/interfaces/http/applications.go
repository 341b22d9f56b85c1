package http

import (
	"context"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	"security-console/internal/application"
	"security-console/internal/domain"
)

type applicationService interface {
	List(ctx context.Context) ([]domain.Application, error)
	ListByModule(ctx context.Context, module string) ([]domain.Application, error)
	GetByID(ctx context.Context, appID string) (domain.Application, error)
	Create(ctx context.Context, in application.ApplicationInput) (domain.Application, error)
	Update(ctx context.Context, appID string, patch application.ApplicationPatch) (domain.Application, error)
	Deactivate(ctx context.Context, appID string) error
	View(app domain.Application) application.ApplicationView
}

type roleSyncer interface {
	SyncApplication(ctx context.Context, appID string) (domain.SyncResult, error)
	PreviewRemoteRoles(ctx context.Context, appID string) ([]domain.RemoteRole, error)
}

type ApplicationsHandler struct {
	service applicationService
	sync    roleSyncer
}

func NewApplicationsHandler(service applicationService, sync roleSyncer) *ApplicationsHandler {
	return &ApplicationsHandler{service: service, sync: sync}
}

type createApplicationRequest struct {
	AppName     string `json:"app_name" validate:"max=128"`
	AppType     string `json:"app_type" validate:"required"`
	Module      string `json:"module" validate:"required"`
	RedirectURL string `json:"redirect_url" validate:"omitempty,url"`
	IP          string `json:"ip" validate:"omitempty,hostname_rfc1123|ip"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	APIKey      string `json:"api_key"`
	Description string `json:"description" validate:"max=1024"`
	DefaultPort int    `json:"default_port" validate:"omitempty,min=1,max=65535"`
}

type updateApplicationRequest struct {
	AppName     *string `json:"app_name" validate:"omitempty,min=1,max=128"`
	AppType     *string `json:"app_type"`
	Module      *string `json:"module"`
	RedirectURL *string `json:"redirect_url" validate:"omitempty,url"`
	IP          *string `json:"ip" validate:"omitempty,hostname_rfc1123|ip"`
	Username    *string `json:"username"`
	Password    *string `json:"password"`
	APIKey      *string `json:"api_key"`
	Description *string `json:"description" validate:"omitempty,max=1024"`
	DefaultPort *int    `json:"default_port" validate:"omitempty,min=1,max=65535"`
	IsActive    *bool   `json:"is_active"`
}

func (h *ApplicationsHandler) views(apps []domain.Application) []application.ApplicationView {
	out := make([]application.ApplicationView, 0, len(apps))
	for _, app := range apps {
		out = append(out, h.service.View(app))
	}
	return out
}

func (h *ApplicationsHandler) List(c echo.Context) error {
	apps, err := h.service.List(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, h.views(apps))
}

func (h *ApplicationsHandler) ListByModule(c echo.Context) error {
	apps, err := h.service.ListByModule(c.Request().Context(), c.Param("module"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, h.views(apps))
}

func (h *ApplicationsHandler) Get(c echo.Context) error {
	app, err := h.service.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, h.service.View(app))
}

func (h *ApplicationsHandler) Create(c echo.Context) error {
	var req createApplicationRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}
	app, err := h.service.Create(c.Request().Context(), application.ApplicationInput{
		Name:        req.AppName,
		Type:        req.AppType,
		Module:      req.Module,
		RedirectURL: req.RedirectURL,
		IP:          req.IP,
		Username:    req.Username,
		Password:    req.Password,
		APIKey:      req.APIKey,
		Description: req.Description,
		DefaultPort: req.DefaultPort,
	})
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusCreated, h.service.View(app))
}

func (h *ApplicationsHandler) Update(c echo.Context) error {
	var req updateApplicationRequest
	if err := bind(c, &req); err != nil {
		return handleError(c, err)
	}
	app, err := h.service.Update(c.Request().Context(), c.Param("id"), application.ApplicationPatch{
		Name:        req.AppName,
		Type:        req.AppType,
		Module:      req.Module,
		RedirectURL: req.RedirectURL,
		IP:          req.IP,
		Username:    req.Username,
		Password:    req.Password,
		APIKey:      req.APIKey,
		Description: req.Description,
		DefaultPort: req.DefaultPort,
		Active:      req.IsActive,
	})
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, h.service.View(app))
}

// Delete deactivates; records are never removed.
func (h *ApplicationsHandler) Delete(c echo.Context) error {
	if err := h.service.Deactivate(c.Request().Context(), c.Param("id")); err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, map[string]string{"message": "application deactivated"})
}

// SyncRoles answers 200 for completed runs, including failed fetches that
// carry success=false. Only precondition failures become HTTP errors.
func (h *ApplicationsHandler) SyncRoles(c echo.Context) error {
	result, err := h.sync.SyncApplication(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, result)
}

// RemoteRoles lists what a sync would pull without storing anything.
func (h *ApplicationsHandler) RemoteRoles(c echo.Context) error {
	roles, err := h.sync.PreviewRemoteRoles(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	if roles == nil {
		roles = []domain.RemoteRole{}
	}
	return c.JSON(stdhttp.StatusOK, roles)
}
