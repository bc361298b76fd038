// Package mqtt announces finished recordings on an MQTT broker. The client
// wraps paho with a connect cooldown, DNS pre-check and metrics; Publisher
// turns recorder results into JSON events.
package mqtt

import (
	"context"
	"time"

	"github.com/DA1F/RoAnalyzer/internal/conf"
	"github.com/DA1F/RoAnalyzer/internal/logger"
)

const componentName = "mqtt"

// Client is the broker connection used by Publisher.
type Client interface {
	Connect(ctx context.Context) error
	// Publish fails fast when not connected; paho reconnects in the
	// background and later publishes go through.
	Publish(ctx context.Context, topic string, payload string) error
	IsConnected() bool
	Disconnect()
}

// Config configures a Client.
type Config struct {
	Broker   string // tcp://host:1883, ssl://host:8883
	ClientID string
	Username string
	Password string
	Topic    string
	Retain   bool

	// ReconnectCooldown is the minimum gap between manual Connect calls.
	ReconnectCooldown time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns timeouts suited to a LAN broker.
func DefaultConfig() Config {
	return Config{
		Topic:             "streampuffer/recordings",
		ReconnectCooldown: 5 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// ConfigFromSettings overlays the configured broker on DefaultConfig. A
// missing client ID gets a random streampuffer-xxxxxxxx one.
func ConfigFromSettings(s *conf.MQTTSettings) Config {
	c := DefaultConfig()
	c.Broker, c.Username, c.Password = s.Broker, s.Username, s.Password
	if s.Topic != "" {
		c.Topic = s.Topic
	}
	c.ClientID = s.ClientID
	if c.ClientID == "" {
		c.ClientID = generateClientID()
	}
	return c
}

func getLogger() logger.Logger {
	return logger.Global().Module(componentName)
}
