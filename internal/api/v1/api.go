// Package api provides the v1 JSON endpoints: frame and chunk ingest,
// recording requests and catalog reads.
package api

import (
	"context"
	"crypto/rand"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/DA1F/RoAnalyzer/internal/buildinfo"
	"github.com/DA1F/RoAnalyzer/internal/datastore"
	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/media"
	"github.com/DA1F/RoAnalyzer/internal/recorder"
	"github.com/DA1F/RoAnalyzer/internal/streampuffer"
)

// Prefix is where the v1 group is mounted.
const Prefix = "/api/v1"

// Recorder is the part of *recorder.Recorder the endpoints use.
type Recorder interface {
	PushVideo(f media.VideoFrame)
	PushAudio(c media.AudioChunk)
	AudioEnabled() bool
	FrameBytes() int
	AudioFrameBytes() int
	Stats() streampuffer.Stats
	Save(ctx context.Context, req recorder.SaveRequest) (*recorder.Recording, error)
	SaveAsync(req recorder.SaveRequest) (recorder.Job, error)
	Job(id string) (recorder.Job, bool)
}

// Controller manages the v1 routes.
type Controller struct {
	Group     *echo.Group
	recorder  Recorder
	store     datastore.Interface
	build     buildinfo.BuildInfo
	logger    logger.Logger
	ingestMW  []echo.MiddlewareFunc
	startTime time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithStore enables the catalog endpoints.
func WithStore(s datastore.Interface) Option {
	return func(c *Controller) { c.store = s }
}

// WithBuildInfo reports version details on /health.
func WithBuildInfo(b buildinfo.BuildInfo) Option {
	return func(c *Controller) { c.build = b }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithIngestMiddleware adds middleware to the ingest routes only, typically
// a rate limiter.
func WithIngestMiddleware(mw ...echo.MiddlewareFunc) Option {
	return func(c *Controller) { c.ingestMW = append(c.ingestMW, mw...) }
}

// New registers the v1 routes on e.
func New(e *echo.Echo, rec Recorder, opts ...Option) (*Controller, error) {
	if rec == nil {
		return nil, errors.Newf("recorder is required").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Controller{
		Group:     e.Group(Prefix),
		recorder:  rec,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Global().Module("api")
	}

	c.initRoutes()
	return c, nil
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	c.Group.GET("/buffer", c.GetBuffer)

	ingest := c.Group.Group("/ingest", c.ingestMW...)
	ingest.POST("/video", c.IngestVideo)
	ingest.POST("/audio", c.IngestAudio)

	c.Group.POST("/recordings", c.CreateRecording)
	c.Group.GET("/recordings", c.ListRecordings)
	c.Group.GET("/recordings/:id", c.GetRecording)
	c.Group.GET("/jobs/:id", c.GetJob)
}

// HealthCheck reports liveness together with build details.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"build":          buildinfo.Summarize(c.build),
		"audio_enabled":  c.recorder.AudioEnabled(),
		"catalog":        c.store != nil,
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// GetBuffer returns ring lengths, bounds and counters.
func (c *Controller) GetBuffer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.recorder.Stats())
}

// ErrorResponse represents a standard error response across the API.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a short random identifier for matching a
// response to its log line.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs err and writes an ErrorResponse.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.logger.Error("API error", fields...)
	} else {
		c.logger.Debug("API error", fields...)
	}

	return ctx.JSON(code, resp)
}

// statusFor maps an error category to an HTTP status.
func statusFor(err error) int {
	switch errors.CategoryOf(err) {
	case errors.CategoryValidation, errors.CategoryMalformedFrame:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryEmptyBuffer:
		return http.StatusConflict
	case errors.CategoryDiskUsage:
		return http.StatusInsufficientStorage
	case errors.CategoryState:
		return http.StatusServiceUnavailable
	case errors.CategoryTimeout, errors.CategoryCancellation:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
