package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultMaxRetries     = 5
	publishTimeout        = 5 * time.Second
	disconnectQuiesce     = 250
)

// ErrNotConnected is returned by Publish when the broker connection is down. Callers should not buffer the
// message since the scheduler will try again on the next occurrence
var ErrNotConnected = errors.New("not connected to MQTT broker")

// Config is used to read the necessary configuration values from a YAML file
type Config struct {
	ClientID       string        `mapstructure:"client_id"`
	Broker         string        `mapstructure:"broker"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	QOS            byte          `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxRetries     uint64        `mapstructure:"max_retries"`
}

// Client is an interface that allows access to MQTT functionality within the garden-app
type Client interface {
	Connect(context.Context) error
	Publish(string, []byte) error
	Disconnect(uint)
}

// TopicHandler is a standing subscription that is restored every time the client connects
type TopicHandler struct {
	Topic   string
	Handler mqtt.MessageHandler
}

// client is a wrapper struct for connecting our config and MQTT Client. It implements the Client interface
type client struct {
	mu sync.Mutex
	mqtt.Client
	config   Config
	handlers []TopicHandler
	logger   *slog.Logger
}

var _ Client = &client{}

// NewClient creates a Client that keeps one connection open. The library reconnects automatically
// and every TopicHandler is subscribed again each time the connection is established
func NewClient(config Config, logger *slog.Logger, defaultHandler mqtt.MessageHandler, handlers ...TopicHandler) (Client, error) {
	if config.Broker == "" {
		return nil, errors.New("missing required field: broker")
	}
	if config.QOS > 2 {
		return nil, fmt.Errorf("invalid qos %d, must be 0, 1, or 2", config.QOS)
	}

	c := &client{
		config:   config,
		handlers: handlers,
		logger:   logger.With("source", "mqtt", "broker", config.Broker),
	}
	c.Client = mqtt.NewClient(c.clientOptions(defaultHandler))
	return c, nil
}

func (c *client) clientOptions(defaultHandler mqtt.MessageHandler) *mqtt.ClientOptions {
	connectTimeout := c.config.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", c.config.Broker, c.config.Port))
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.User)
	opts.SetPassword(c.config.Password)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetCleanSession(true)
	if defaultHandler != nil {
		opts.SetDefaultPublishHandler(defaultHandler)
	}
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.logger.Warn("lost connection to MQTT broker", "error", err)
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		c.logger.Info("reconnecting to MQTT broker")
	})
	return opts
}

// onConnect restores the standing subscriptions since a clean session drops them
func (c *client) onConnect(mc mqtt.Client) {
	c.logger.Info("connected to MQTT broker")
	if len(c.handlers) == 0 {
		return
	}

	filters := map[string]byte{}
	for _, h := range c.handlers {
		filters[h.Topic] = c.config.QOS
	}
	token := mc.SubscribeMultiple(filters, c.route)
	if !token.WaitTimeout(publishTimeout) {
		c.logger.Error("timed out subscribing to topics")
		return
	}
	if err := token.Error(); err != nil {
		c.logger.Error("unable to subscribe to topics", "error", err)
		return
	}
	c.logger.Debug("subscribed to topics", "count", len(filters))
}

// route sends a message to every handler whose topic filter matches
func (c *client) route(mc mqtt.Client, msg mqtt.Message) {
	for _, h := range c.handlers {
		if TopicMatches(h.Topic, msg.Topic()) {
			h.Handler(mc, msg)
		}
	}
}

// Connect makes the first connection to the broker, retrying with exponential backoff. After it succeeds,
// reconnects are handled by the library
func (c *client) Connect(ctx context.Context) error {
	maxRetries := c.config.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	err := backoff.Retry(func() error {
		token := c.Client.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			c.logger.Warn("failed to connect to MQTT broker", "error", err)
			return err
		}
		return nil
	}, bo)
	if err != nil {
		return fmt.Errorf("unable to connect to MQTT broker: %w", err)
	}
	return nil
}

// Publish will send the message to the specified MQTT topic. It fails immediately when the connection is
// down instead of queueing the message
func (c *client) Publish(topic string, message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Client.IsConnectionOpen() {
		return ErrNotConnected
	}

	token := c.Client.Publish(topic, c.config.QOS, false, message)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("unable to publish MQTT message: timed out after %s", publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("unable to publish MQTT message: %w", err)
	}
	return nil
}

// Disconnect closes the connection, waiting up to quiesce milliseconds for in-flight work
func (c *client) Disconnect(quiesce uint) {
	if quiesce == 0 {
		quiesce = disconnectQuiesce
	}
	c.Client.Disconnect(quiesce)
}

// DefaultHandler logs messages that arrive on a topic no TopicHandler is registered for
func DefaultHandler(logger *slog.Logger) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		logger.With(
			"topic", msg.Topic(),
			"message", string(msg.Payload()),
		).Info("default handler called with message")
	}
}
