package mqtt

import (
	"context"
	"net"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/DA1F/RoAnalyzer/internal/errors"
	"github.com/DA1F/RoAnalyzer/internal/logger"
	"github.com/DA1F/RoAnalyzer/internal/observability/metrics"
	"github.com/DA1F/RoAnalyzer/internal/privacy"
)

// client implements the Client interface on paho.
type client struct {
	config          Config
	internalClient  paho.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
	metrics         *metrics.MQTTMetrics
	log             logger.Logger
}

// NewClient creates a new MQTT client. m may be nil.
func NewClient(cfg Config, m *metrics.MQTTMetrics, log logger.Logger) (Client, error) {
	if cfg.Broker == "" {
		return nil, errors.Newf("mqtt broker is not configured").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if log == nil {
		log = getLogger()
	}
	return &client{config: cfg, metrics: m, log: log}, nil
}

func (c *client) observe(fn func(m *metrics.MQTTMetrics)) {
	if c.metrics != nil {
		fn(c.metrics)
	}
}

// Connect resolves the broker host and connects. Attempts closer together
// than ReconnectCooldown are refused.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if since := time.Since(c.lastConnAttempt); since < c.config.ReconnectCooldown {
		return errors.Newf("connection attempt too recent, last attempt was %v ago", since.Round(time.Millisecond)).
			Component(componentName).
			Category(errors.CategoryMQTTConnect).
			Build()
	}
	c.lastConnAttempt = time.Now()

	if !brokerIsIP(c.config.Broker) {
		host := brokerHost(c.config.Broker)
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return errors.New(err).
				Component(componentName).
				Category(errors.CategoryNetwork).
				Context("broker_host", host).
				Context("operation", "dns_lookup").
				Build()
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(5 * time.Minute)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.internalClient = paho.NewClient(opts)

	token := c.internalClient.Connect()
	if !waitToken(ctx, token, c.config.ConnectTimeout) {
		return errors.Newf("connection timeout").
			Component(componentName).
			Category(errors.CategoryTimeout).
			Context("broker", privacy.SanitizeURL(c.config.Broker)).
			Build()
	}
	if err := token.Error(); err != nil {
		c.observe(func(m *metrics.MQTTMetrics) { m.RecordError(metrics.MQTTStageConnect) })
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryMQTTConnect).
			Context("broker", privacy.SanitizeURL(c.config.Broker)).
			Build()
	}

	c.observe(func(m *metrics.MQTTMetrics) { m.SetConnected(true) })
	return nil
}

// Publish sends payload with QoS 0.
func (c *client) Publish(ctx context.Context, topic string, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnected() {
		return errors.Newf("not connected to MQTT broker").
			Component(componentName).
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	c.log.Debug("publishing", logger.String("topic", topic), logger.Int("size", len(payload)))

	started := time.Now()
	token := c.internalClient.Publish(topic, 0, c.config.Retain, payload)
	if !waitToken(ctx, token, c.config.PublishTimeout) {
		c.observe(func(m *metrics.MQTTMetrics) { m.RecordError(metrics.MQTTStagePublish) })
		return errors.Newf("publish timeout").
			Component(componentName).
			Category(errors.CategoryTimeout).
			Context("topic", topic).
			Build()
	}
	if err := token.Error(); err != nil {
		c.observe(func(m *metrics.MQTTMetrics) { m.RecordError(metrics.MQTTStagePublish) })
		return errors.New(err).
			Component(componentName).
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	c.observe(func(m *metrics.MQTTMetrics) { m.RecordPublished(len(payload), time.Since(started)) })
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected()
}

func (c *client) isConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internalClient == nil {
		return
	}
	c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
	c.observe(func(m *metrics.MQTTMetrics) { m.SetConnected(false) })
	c.log.Info("disconnected from MQTT broker", logger.String("broker", privacy.SanitizeURL(c.config.Broker)))
}

func (c *client) onConnect(paho.Client) {
	c.log.Info("connected to MQTT broker", logger.String("broker", privacy.SanitizeURL(c.config.Broker)))
	c.observe(func(m *metrics.MQTTMetrics) { m.SetConnected(true) })
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.log.Warn("connection to MQTT broker lost",
		logger.String("broker", privacy.SanitizeURL(c.config.Broker)),
		logger.Error(err))
	c.observe(func(m *metrics.MQTTMetrics) {
		m.SetConnected(false)
		m.RecordError(metrics.MQTTStageConnectionLost)
	})
}

func (c *client) onReconnecting(paho.Client, *paho.ClientOptions) {
	c.observe(func(m *metrics.MQTTMetrics) { m.RecordReconnect() })
}

// waitToken waits for token, the timeout or ctx, whichever is first.
func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
