package middleware

import (
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/labstack/echo/v4"
)

// XRayMiddleware opens a segment per request and records the matched route
// and response status on it.
func XRayMiddleware(segmentName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			ctx, seg := xray.BeginSegment(c.Request().Context(), segmentName)
			req := c.Request().Clone(ctx)
			c.SetRequest(req)
			defer func() {
				_ = seg.AddAnnotation("route", c.Path())
				seg.Lock()
				seg.GetHTTP().GetRequest().Method = req.Method
				seg.GetHTTP().GetRequest().URL = req.URL.Path
				seg.GetHTTP().GetResponse().Status = c.Response().Status
				seg.Unlock()
				seg.Close(err)
			}()
			return next(c)
		}
	}
}
