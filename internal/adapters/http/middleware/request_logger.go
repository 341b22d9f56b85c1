package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"security-console/internal/ports"
)

// RequestLogger writes one entry per request. Server errors are logged at
// error level.
func RequestLogger(logger ports.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			started := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			duration := time.Since(started)
			ctx := c.Request().Context()
			status := c.Response().Status
			args := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"route_pattern", c.Path(),
				"status", status,
				"duration", duration.String(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			}
			if p, ok := PrincipalFrom(c); ok {
				args = append(args, "username", p.Username)
			}
			if status >= http.StatusInternalServerError {
				if err != nil {
					args = append(args, "error", err.Error())
				}
				logger.Error(ctx, "http request", args...)
				return nil
			}
			logger.Info(ctx, "http request", args...)
			return nil
		}
	}
}
