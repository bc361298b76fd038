package notification

import (
	"context"
	"sync"
	"time"

	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/observability/metrics"
)

const defaultTimeout = 10 * time.Second

// Service fans notifications out to its providers.
type Service struct {
	providers []Provider
	timeout   time.Duration
	metrics   *metrics.NotificationMetrics
	log       logger.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithMetrics records deliveries and timeouts.
func WithMetrics(m *metrics.NotificationMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// WithTimeout bounds each provider send.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService validates every enabled provider.
func NewService(providers []Provider, opts ...ServiceOption) (*Service, error) {
	s := &Service{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global().Module(componentName)
	}

	for _, p := range providers {
		if !p.IsEnabled() {
			continue
		}
		if err := p.ValidateConfig(); err != nil {
			return nil, err
		}
		s.providers = append(s.providers, p)
	}
	return s, nil
}

// NewServiceFromSettings builds a Service with one shoutrrr provider for
// the configured URLs.
func NewServiceFromSettings(settings *conf.NotifySettings, opts ...ServiceOption) (*Service, error) {
	p := NewShoutrrrProvider("shoutrrr", settings.Enabled, settings.URLs, nil, settings.Timeout)
	return NewService([]Provider{p}, append([]ServiceOption{WithTimeout(settings.Timeout)}, opts...)...)
}

// Providers returns the number of active providers.
func (s *Service) Providers() int { return len(s.providers) }

// Notify sends n to every provider that supports its type, in parallel,
// and waits. Failures are joined.
func (s *Service) Notify(ctx context.Context, n *Notification) error {
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for _, p := range s.providers {
		if !p.SupportsType(n.Type) {
			continue
		}
		wg.Go(func() {
			if err := s.deliver(ctx, p, n); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Dispatch sends n in the background. It is dropped after Close.
func (s *Service) Dispatch(n *Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.log.Debug("notification dropped after close", logger.String("id", n.ID))
		return
	}
	s.wg.Go(func() {
		if err := s.Notify(context.Background(), n); err != nil {
			s.log.Warn("notification delivery failed",
				logger.String("id", n.ID),
				logger.String("type", string(n.Type)),
				logger.Error(err))
		}
	})
}

// Close waits for dispatched notifications.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) deliver(ctx context.Context, p Provider, n *Notification) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	done := make(chan error, 1)
	go func() { done <- p.Send(ctx, n) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	elapsed := time.Since(started)
	if s.metrics != nil {
		s.metrics.ObserveDelivery(p.GetName(), elapsed, err)
	}

	if err == nil {
		s.log.Debug("notification delivered",
			logger.String("provider", p.GetName()),
			logger.String("id", n.ID),
			logger.Duration("elapsed", elapsed))
		return nil
	}

	category := errors.CategoryNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		category = errors.CategoryTimeout
	}
	return errors.New(err).
		Component(componentName).
		Category(category).
		Context("provider", p.GetName()).
		Timing("notify", elapsed).
		Build()
}
