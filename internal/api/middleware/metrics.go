package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/DA1F/RoAnalyzer/internal/observability/metrics"
)

// NewHTTPMetrics records request counts, latency and response sizes. Paths
// are the route templates so ids do not explode label cardinality.
func NewHTTPMetrics(m *metrics.HTTPMetrics, skipper middleware.Skipper) echo.MiddlewareFunc {
	if skipper == nil {
		skipper = middleware.DefaultSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil || skipper(c) {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = errorStatus(err)
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}

			m.ObserveRequest(c.Request().Method, path, status, time.Since(start), c.Response().Size)
			return err
		}
	}
}

func errorStatus(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return 500
}
