package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/DA1F/RoAnalyzer/internal/observability/metrics"
)

// rateLimitExpiry drops idle per-client limiters.
const rateLimitExpiry = 3 * time.Minute

// RateLimitConfig configures NewRateLimiter.
type RateLimitConfig struct {
	Rate    float64 // requests per second per client
	Burst   int
	Metrics *metrics.HTTPMetrics // optional
}

// NewRateLimiter limits requests per client IP. Rejected requests get 429 and
// are counted in the rate limited metric. A zero rate disables the limiter.
func NewRateLimiter(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Rate <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.Rate),
				Burst:     max(cfg.Burst, 1),
				ExpiresIn: rateLimitExpiry,
			},
		),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "unable to identify client",
			})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			if cfg.Metrics != nil {
				cfg.Metrics.RecordRateLimited(c.Path())
			}
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "too many requests, slow down",
			})
		},
	})
}
