package server

import (
	"errors"
	"fmt"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/influxdb"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/mqtt"
	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/storage"
	"github.com/calvinmclean/automated-garden/garden-scheduler/worker"
	"github.com/mitchellh/mapstructure"
)

// Config holds all the options and sub-configs for the server
type Config struct {
	InfluxDBConfig  influxdb.Config `mapstructure:"influxdb" yaml:"influxdb"`
	MQTTConfig      mqtt.Config     `mapstructure:"mqtt" yaml:"mqtt"`
	StorageConfig   storage.Config  `mapstructure:"storage" yaml:"storage"`
	LogConfig       LogConfig       `mapstructure:"log" yaml:"log"`
	SchedulerConfig worker.Config   `mapstructure:"scheduler" yaml:"scheduler"`
	MetricsConfig   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Address disables it
type MetricsConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
}

// Validate checks the sections that can be checked without connecting to anything
func (c Config) Validate() error {
	if c.MQTTConfig.Broker == "" {
		return errors.New("missing required field: mqtt.broker")
	}
	if c.StorageConfig.Driver == "" {
		return errors.New("missing required field: storage.driver")
	}
	err := c.LogConfig.Validate()
	if err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}
	err = c.SchedulerConfig.Validate()
	if err != nil {
		return fmt.Errorf("invalid scheduler config: %w", err)
	}
	return nil
}

// DecodeHook reads durations like "1m" and "cron:*/5 * * * *" from config files and environment variables
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
