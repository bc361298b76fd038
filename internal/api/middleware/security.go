package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// HeaderTimestamp carries the capture timestamp of an ingested frame or
// chunk, in Unix microseconds. Device capture stamps audio on the same clock.
const HeaderTimestamp = "X-Timestamp-Us"

// NewCORS lets browser dashboards on the listed origins drive the API. An
// empty list allows any origin.
func NewCORS(origins []string) echo.MiddlewareFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			HeaderTimestamp,
		},
		ExposeHeaders: []string{echo.HeaderContentDisposition},
	})
}

// NewSecureHeaders sets the response headers for an API that serves JSON and
// media downloads and never renders HTML.
func NewSecureHeaders() echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
	})
}

// NewBodyLimit rejects request bodies above limit ("8M", "512K").
func NewBodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}

// NewGzip compresses responses except for paths under the given prefixes.
// Raw frame uploads do not shrink and belong there.
func NewGzip(skipPrefixes ...string) echo.MiddlewareFunc {
	return middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			for _, p := range skipPrefixes {
				if strings.HasPrefix(c.Path(), p) {
					return true
				}
			}
			return false
		},
	})
}
