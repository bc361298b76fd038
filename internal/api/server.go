package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/net/netutil"

	mw "github.com/DA1F/RoAnalyzer/internal/api/middleware"
	v1 "github.com/DA1F/RoAnalyzer/internal/api/v1"
	"github.com/DA1F/RoAnalyzer/internal/buildinfo"
	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/datastore"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/observability"
)

// Server is the HTTP front of the capture service.
type Server struct {
	echo   *echo.Echo
	config *Config
	logger logger.Logger

	recorder  v1.Recorder
	dataStore datastore.Interface
	metrics   *observability.Metrics
	build     buildinfo.BuildInfo

	apiController *v1.Controller

	listener  net.Listener
	wg        sync.WaitGroup
	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithDataStore enables the catalog endpoints.
func WithDataStore(ds datastore.Interface) ServerOption {
	return func(s *Server) {
		s.dataStore = ds
	}
}

// WithMetrics exposes /metrics and records HTTP metrics.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithBuildInfo reports build details on the health endpoints.
func WithBuildInfo(b buildinfo.BuildInfo) ServerOption {
	return func(s *Server) {
		s.build = b
	}
}

// WithConfig overrides the configuration derived from settings.
func WithConfig(cfg *Config) ServerOption {
	return func(s *Server) {
		s.config = cfg
	}
}

// New creates a server serving rec. Call Start to begin listening.
func New(settings *conf.Settings, rec v1.Recorder, opts ...ServerOption) (*Server, error) {
	s := &Server{
		config:    ConfigFromSettings(settings),
		recorder:  rec,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = GetLogger()
	}

	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = s.config.Debug

	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.IdleTimeout

	s.setupMiddleware()

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	s.logger.Info("HTTP server initialized",
		logger.String("address", s.config.Listen),
		logger.String("body_limit", s.config.BodyLimit),
		logger.Int("max_connections", s.config.MaxConnections))

	return s, nil
}

// setupMiddleware configures the middleware stack. Order matters: metrics
// wrap everything so rejected requests are still counted.
func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())

	if s.metrics != nil {
		s.echo.Use(mw.NewHTTPMetrics(s.metrics.HTTP, func(c echo.Context) bool {
			return c.Path() == "/metrics"
		}))
	}

	s.echo.Use(mw.NewRequestLogger(s.logger.Module("requests")))

	s.echo.Use(mw.NewCORS(s.config.AllowedOrigins))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewGzip("/metrics", v1.Prefix+"/ingest"))
	s.echo.Use(mw.NewSecureHeaders())
}

func (s *Server) setupRoutes() error {
	s.echo.GET("/health", s.healthCheck)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	limiter := mw.RateLimitConfig{Rate: s.config.IngestRate, Burst: s.config.IngestBurst}
	if s.metrics != nil {
		limiter.Metrics = s.metrics.HTTP
	}

	opts := []v1.Option{
		v1.WithLogger(s.logger.Module("v1")),
		v1.WithBuildInfo(s.build),
		v1.WithIngestMiddleware(mw.NewRateLimiter(limiter)),
	}
	if s.dataStore != nil {
		opts = append(opts, v1.WithStore(s.dataStore))
	}

	ctrl, err := v1.New(s.echo, s.recorder, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize API v1: %w", err)
	}
	s.apiController = ctrl
	return nil
}

func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"build":          buildinfo.Summarize(s.build),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// Start binds the listen address and serves in the background. Binding
// errors are returned; serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	if s.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConnections)
	}
	s.listener = ln
	s.echo.Listener = ln

	s.wg.Go(func() {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", logger.Error(err))
		}
	})

	s.logger.Info("HTTP server started", logger.String("address", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.wg.Wait()

	s.logger.Info("server shutdown complete")
	return nil
}

// APIController returns the v1 controller.
func (s *Server) APIController() *v1.Controller {
	return s.apiController
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
