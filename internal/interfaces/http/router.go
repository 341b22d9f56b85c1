package http

import (
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	adaptermiddleware "security-console/internal/adapters/http/middleware"
)

type Middleware struct {
	Auth          echo.MiddlewareFunc
	XRay          echo.MiddlewareFunc
	RequestLogger echo.MiddlewareFunc
	Metrics       echo.MiddlewareFunc
}

type Handlers struct {
	Applications *ApplicationsHandler
	Templates    *TemplatesHandler
	Roles        *RolesHandler
	Users        *UsersHandler
	Auth         *AuthHandler
	Dashboard    *DashboardHandler
	DefectDojo   *DefectDojoHandler
	// Metrics serves the scrape endpoint; nil leaves /metrics unrouted.
	Metrics stdhttp.Handler
}

func newEcho(m Middleware) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = newRequestValidator()
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	for _, mw := range []echo.MiddlewareFunc{m.XRay, m.Metrics, m.RequestLogger} {
		if mw != nil {
			e.Use(mw)
		}
	}
	return e
}

// NewMainRouter serves the console API under /api. Login, health and
// metrics are public; everything else passes m.Auth, and writes need an
// admin caller.
func NewMainRouter(h Handlers, m Middleware) *echo.Echo {
	e := newEcho(m)
	e.GET("/api/health", Health)
	e.POST("/api/auth/login", h.Auth.Login)
	if h.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.Metrics))
	}

	var groupMW []echo.MiddlewareFunc
	if m.Auth != nil {
		groupMW = append(groupMW, m.Auth)
	}
	api := e.Group("/api", groupMW...)
	admin := adaptermiddleware.RequireAdmin

	api.GET("/auth/me", h.Auth.Me)
	api.POST("/auth/change-password", h.Auth.ChangePassword)

	api.GET("/applications", h.Applications.List)
	api.GET("/applications/module/:module", h.Applications.ListByModule)
	api.GET("/applications/:id", h.Applications.Get)
	api.POST("/applications", h.Applications.Create, admin)
	api.PUT("/applications/:id", h.Applications.Update, admin)
	api.DELETE("/applications/:id", h.Applications.Delete, admin)
	api.POST("/applications/:id/sync-roles", h.Applications.SyncRoles, admin)
	api.GET("/applications/:id/remote-roles", h.Applications.RemoteRoles, admin)

	api.GET("/app-templates", h.Templates.List)
	api.GET("/app-templates/:type", h.Templates.Get)

	api.GET("/roles", h.Roles.List)
	api.POST("/roles", h.Roles.Create, admin)

	api.GET("/users", h.Users.List)
	api.GET("/users/:id", h.Users.Get)
	api.POST("/users", h.Users.Create, admin)
	api.PUT("/users/:id", h.Users.Update, admin)

	api.GET("/dashboard/stats", h.Dashboard.Stats)

	api.GET("/defectdojo/users", h.DefectDojo.Users, admin)
	api.GET("/defectdojo/roles", h.DefectDojo.Roles, admin)
	return e
}
