package server

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleConfig = `
mqtt:
  broker: localhost
  port: 1883
  connect_timeout: 2s
  max_retries: 5
influxdb:
  address: http://localhost:8086
  org: garden
  bucket: garden
storage:
  driver: hashmap
log:
  level: debug
  format: json
scheduler:
  tick: %s
  location: America/Phoenix
metrics:
  address: ":9090"
`

func readConfig(t *testing.T, input string) (Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(input)))

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(DecodeHook()))
	return cfg, err
}

func TestConfigDecode(t *testing.T) {
	tests := []struct {
		name         string
		tick         string
		expectedTick time.Duration
		expectedCron string
	}{
		{"Duration", "30s", 30 * time.Second, ""},
		{"Minutes", "1m", time.Minute, ""},
		{"Milliseconds", `"500"`, 500 * time.Millisecond, ""},
		{"Cron", `"cron:*/5 * * * *"`, 0, "*/5 * * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := readConfig(t, strings.Replace(exampleConfig, "%s", tt.tick, 1))
			require.NoError(t, err)

			require.NotNil(t, cfg.SchedulerConfig.Tick)
			assert.Equal(t, tt.expectedTick, cfg.SchedulerConfig.Tick.Duration)
			assert.Equal(t, tt.expectedCron, cfg.SchedulerConfig.Tick.Cron)

			assert.Equal(t, "localhost", cfg.MQTTConfig.Broker)
			assert.Equal(t, 1883, cfg.MQTTConfig.Port)
			assert.Equal(t, 2*time.Second, cfg.MQTTConfig.ConnectTimeout)
			assert.Equal(t, uint64(5), cfg.MQTTConfig.MaxRetries)
			assert.Equal(t, "garden", cfg.InfluxDBConfig.Bucket)
			assert.Equal(t, "hashmap", cfg.StorageConfig.Driver)
			assert.Equal(t, "json", cfg.LogConfig.Format)
			assert.Equal(t, "America/Phoenix", cfg.SchedulerConfig.Location)
			assert.Equal(t, ":9090", cfg.MetricsConfig.Address)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestConfigDecodeInvalidTick(t *testing.T) {
	_, err := readConfig(t, strings.Replace(exampleConfig, "%s", "soon", 1))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{}
		cfg.MQTTConfig.Broker = "localhost"
		cfg.StorageConfig.Driver = "hashmap"
		return cfg
	}

	tests := []struct {
		name          string
		modify        func(*Config)
		expectedError string
	}{
		{"Valid", func(*Config) {}, ""},
		{"MissingBroker", func(c *Config) { c.MQTTConfig.Broker = "" }, "missing required field: mqtt.broker"},
		{"MissingDriver", func(c *Config) { c.StorageConfig.Driver = "" }, "missing required field: storage.driver"},
		{"InvalidLogLevel", func(c *Config) { c.LogConfig.Level = "loud" }, `invalid log config: invalid log level "loud"`},
		{"InvalidLocation", func(c *Config) { c.SchedulerConfig.Location = "Mars/Olympus" }, "invalid scheduler config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

func TestLogConfig(t *testing.T) {
	tests := []struct {
		level    string
		expected string
	}{
		{"debug", "DEBUG"},
		{"DEBUG", "DEBUG"},
		{"info", "INFO"},
		{"", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, LogConfig{Level: tt.level}.GetLogLevel().String())
		})
	}

	t.Run("Validate", func(t *testing.T) {
		assert.NoError(t, LogConfig{Level: "warn", Format: "text"}.Validate())
		assert.EqualError(t, LogConfig{Format: "xml"}.Validate(), `invalid log format "xml"`)
	})

	t.Run("JSONFormat", func(t *testing.T) {
		var buf bytes.Buffer
		logger := LogConfig{Level: "warn", Format: "json"}.NewLoggerWithWriter(&buf)
		logger.Info("hidden")
		logger.Warn("shown", "key", "value")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), `"msg":"shown"`)
		assert.Contains(t, buf.String(), `"key":"value"`)
	})
}
