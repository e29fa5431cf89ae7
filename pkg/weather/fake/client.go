// Package fake is a weather client that returns configured readings. It is used for testing
// and for running without a real weather station
package fake

import (
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Config holds the fake readings. RainMM falls every RainInterval. When Error is set every call fails with it
type Config struct {
	RainMM                 float32 `mapstructure:"rain_mm"`
	RainInterval           string  `mapstructure:"rain_interval"`
	AverageHighTemperature float32 `mapstructure:"avg_high_temperature"`
	Error                  string  `mapstructure:"error"`
}

// Client returns readings derived from its Config
type Client struct {
	config       Config
	rainInterval time.Duration
}

// NewClient creates a new client that will return fake data based on configuration
func NewClient(options map[string]any) (*Client, error) {
	client := &Client{}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &client.config,
	})
	if err != nil {
		return nil, err
	}
	err = decoder.Decode(options)
	if err != nil {
		return nil, err
	}

	if client.config.RainInterval != "" {
		client.rainInterval, err = time.ParseDuration(client.config.RainInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid rain_interval: %w", err)
		}
	}

	return client, nil
}

// GetTotalRain returns the configured amount of rain for each RainInterval in the period
func (c *Client) GetTotalRain(since time.Duration) (float32, error) {
	if c.config.Error != "" {
		return 0, errors.New(c.config.Error)
	}
	if c.rainInterval == 0 {
		return 0, nil
	}

	numIntervals := float32(since.Hours() / c.rainInterval.Hours())
	return numIntervals * c.config.RainMM, nil
}

// GetAverageHighTemperature returns the configured temperature regardless of the period
func (c *Client) GetAverageHighTemperature(time.Duration) (float32, error) {
	if c.config.Error != "" {
		return 0, errors.New(c.config.Error)
	}
	return c.config.AverageHighTemperature, nil
}
