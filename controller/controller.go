// Package controller is a mock garden-controller. It subscribes to a Garden's command topics, simulates
// watering and lights, and publishes the same data messages a real controller does
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/mqtt"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-co-op/gocron"
)

// SetupCompleteMessage is logged once the controller is connected and configured
const SetupCompleteMessage = "garden-controller setup complete"

// Config holds all the options for the mock controller
type Config struct {
	TopicPrefix                 string        `mapstructure:"topic_prefix"`
	NumZones                    uint          `mapstructure:"num_zones"`
	PublishWaterEvent           bool          `mapstructure:"publish_water_event"`
	PublishHealth               bool          `mapstructure:"publish_health"`
	HealthInterval              time.Duration `mapstructure:"health_interval"`
	PublishTemperatureHumidity  bool          `mapstructure:"publish_temperature_humidity"`
	TemperatureHumidityInterval time.Duration `mapstructure:"temperature_humidity_interval"`
	TemperatureValue            float64       `mapstructure:"temperature_value"`
	HumidityValue               float64       `mapstructure:"humidity_value"`
}

// Validate checks the topic prefix and intervals
func (c Config) Validate() error {
	if c.TopicPrefix == "" {
		return errors.New("missing required field: topic_prefix")
	}
	if c.PublishHealth && c.HealthInterval <= 0 {
		return fmt.Errorf("health_interval must be positive, got %s", c.HealthInterval)
	}
	if c.PublishTemperatureHumidity && c.TemperatureHumidityInterval <= 0 {
		return fmt.Errorf("temperature_humidity_interval must be positive, got %s", c.TemperatureHumidityInterval)
	}
	return nil
}

// Controller struct holds the necessary data for running the mock garden-controller
type Controller struct {
	Config
	mqttClient mqtt.Client
	clock      clock.Clock
	scheduler  *gocron.Scheduler
	logger     *slog.Logger
	subLogger  *slog.Logger

	mu         sync.Mutex
	lightState pkg.LightState
	config     *pkg.ControllerConfigMessage
	valve      *valve

	assertionData assertionData
}

// NewController creates a Controller with an MQTT client subscribed to the command topics for the
// configured topic prefix. The client ID is the topic prefix
func NewController(cfg Config, mqttConfig mqtt.Config, logger *slog.Logger) (*Controller, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	c := newController(cfg, nil, clock.New(), logger)

	handlers, err := c.topicHandlers()
	if err != nil {
		return nil, fmt.Errorf("unable to determine topics: %w", err)
	}
	mqttConfig.ClientID = cfg.TopicPrefix

	c.mqttClient, err = mqtt.NewClient(mqttConfig, c.logger, mqtt.DefaultHandler(c.subLogger), handlers...)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize MQTT client: %w", err)
	}
	return c, nil
}

func newController(cfg Config, mqttClient mqtt.Client, clk clock.Clock, logger *slog.Logger) *Controller {
	logger = logger.With("topic_prefix", cfg.TopicPrefix)
	c := &Controller{
		Config:     cfg,
		mqttClient: mqttClient,
		clock:      clk,
		scheduler:  gocron.NewScheduler(time.UTC),
		logger:     logger,
		subLogger:  logger.With("source", "command"),
		lightState: pkg.LightStateOff,
	}
	c.valve = newValve(c)
	return c
}

// Start connects to the broker, announces setup and starts publishing health and sensor data. It blocks
// until ctx is done
func (c *Controller) Start(ctx context.Context) error {
	c.logger.Info("starting controller", "num_zones", c.NumZones)

	err := c.mqttClient.Connect(ctx)
	if err != nil {
		return fmt.Errorf("unable to connect to MQTT broker: %w", err)
	}

	err = c.scheduleDataPublishing()
	if err != nil {
		return err
	}
	c.scheduler.StartAsync()

	c.publishLog(SetupCompleteMessage)

	<-ctx.Done()
	c.Stop()
	return nil
}

// Stop ends periodic publishing and disconnects
func (c *Controller) Stop() {
	c.logger.Info("stopping controller")
	c.scheduler.Stop()
	c.valve.stopAll()
	c.mqttClient.Disconnect(250)
}

func (c *Controller) scheduleDataPublishing() error {
	if c.PublishHealth {
		c.logger.Info("publishing health data", "interval", c.HealthInterval)
		_, err := c.scheduler.Every(c.HealthInterval).Do(c.publishHealth)
		if err != nil {
			return fmt.Errorf("unable to schedule health publishing: %w", err)
		}
	}
	if c.PublishTemperatureHumidity {
		c.logger.Info("publishing temperature and humidity data", "interval", c.TemperatureHumidityInterval)
		_, err := c.scheduler.Every(c.TemperatureHumidityInterval).Do(c.publishTemperatureHumidity)
		if err != nil {
			return fmt.Errorf("unable to schedule temperature and humidity publishing: %w", err)
		}
	}
	return nil
}

// topicHandlers subscribes each command topic to its handler
func (c *Controller) topicHandlers() ([]mqtt.TopicHandler, error) {
	topics := []struct {
		topicFunc func(string) (string, error)
		handler   func(string) paho.MessageHandler
	}{
		{mqtt.WaterTopic, c.waterHandler},
		{mqtt.StopTopic, c.stopHandler},
		{mqtt.StopAllTopic, c.stopAllHandler},
		{mqtt.LightTopic, c.lightHandler},
		{mqtt.UpdateConfigTopic, c.updateConfigHandler},
	}

	handlers := make([]mqtt.TopicHandler, 0, len(topics))
	for _, t := range topics {
		topic, err := t.topicFunc(c.TopicPrefix)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("subscribing on topic", "topic", topic)
		handlers = append(handlers, mqtt.TopicHandler{Topic: topic, Handler: t.handler(topic)})
	}
	return handlers, nil
}

func (c *Controller) dataTopic(kind string) string {
	return fmt.Sprintf("%s/data/%s", c.TopicPrefix, kind)
}

func (c *Controller) publish(kind, message string) {
	topic := c.dataTopic(kind)
	c.logger.Debug("publishing data", "topic", topic, "message", message)
	err := c.mqttClient.Publish(topic, []byte(message))
	if err != nil {
		c.logger.Error("encountered error publishing", "topic", topic, "error", err)
	}
}

// publishHealth records that the controller is alive and active
func (c *Controller) publishHealth() {
	c.publish("health", fmt.Sprintf("health garden=%q", c.TopicPrefix))
}

func (c *Controller) publishTemperatureHumidity() {
	c.publish("temperature", fmt.Sprintf("temperature value=%.2f", addNoise(c.TemperatureValue, 1)))
	c.publish("humidity", fmt.Sprintf("humidity value=%.2f", addNoise(c.HumidityValue, 1)))
}

func (c *Controller) publishLog(message string) {
	c.publish("logs", fmt.Sprintf("logs message=%q", message))
}

func (c *Controller) publishLightState(state pkg.LightState) {
	c.publish("light", fmt.Sprintf(`{"state":%q}`, state.String()))
}

// addNoise returns base plus or minus a random amount up to percentRange percent of base
func addNoise(base, percentRange float64) float64 {
	maxNoise := base * percentRange / 100
	return base + (rand.Float64()*2-1)*maxNoise //nolint:gosec
}

// LightState is the current state of the simulated light
func (c *Controller) LightState() pkg.LightState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lightState
}

// ControllerConfig is the last configuration received, or nil
func (c *Controller) ControllerConfig() *pkg.ControllerConfigMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}
