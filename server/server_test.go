package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := Config{}
	cfg.MQTTConfig.Broker = "localhost"
	cfg.MQTTConfig.Port = 1883
	cfg.StorageConfig.Driver = "hashmap"
	cfg.InfluxDBConfig.Address = "http://localhost:8086"
	cfg.LogConfig.Level = "error"
	cfg.SchedulerConfig.Location = "UTC"
	return cfg
}

func TestNewServer(t *testing.T) {
	s, err := NewServer(testConfig(), true)
	require.NoError(t, err)
	t.Cleanup(s.Stop)

	assert.NotNil(t, s.Worker())
	assert.Nil(t, s.metricsServer)
}

func TestNewServerMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsConfig.Address = "localhost:0"

	s, err := NewServer(cfg, false)
	require.NoError(t, err)
	t.Cleanup(s.Stop)

	require.NotNil(t, s.metricsServer)
	assert.Equal(t, "localhost:0", s.metricsServer.Addr)

	w := httptest.NewRecorder()
	s.metricsServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestNewServerErrors(t *testing.T) {
	tests := []struct {
		name          string
		modify        func(*Config)
		expectedError string
	}{
		{"MissingBroker", func(c *Config) { c.MQTTConfig.Broker = "" }, "missing required field: mqtt.broker"},
		{"InvalidDriver", func(c *Config) { c.StorageConfig.Driver = "DNE" }, "unable to initialize storage client: invalid storage driver 'DNE'"},
		{"InvalidQOS", func(c *Config) { c.MQTTConfig.QOS = 3 }, "unable to initialize MQTT client: invalid qos 3, must be 0, 1, or 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)

			_, err := NewServer(cfg, false)
			assert.EqualError(t, err, tt.expectedError)
		})
	}
}

func TestSeedResources(t *testing.T) {
	s, err := NewServer(testConfig(), false)
	require.NoError(t, err)
	t.Cleanup(s.Stop)

	count, err := s.SeedResources(context.Background(), openResources(t))
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	require.NoError(t, s.Worker().Initialize(context.Background()))
	assert.Equal(t, 3, s.Worker().Registry().Len())

	_, err = s.SeedResources(context.Background(), strings.NewReader("gardens: [{id: c5cvhpcbcv45e8bp16dg}]"))
	assert.ErrorContains(t, err, "missing required field: topic_prefix")
}

func TestRunSeedError(t *testing.T) {
	err := Run(testConfig(), RunOptions{ResourcesFile: "testdata/missing.yaml"})
	assert.ErrorContains(t, err, "unable to open resources file")
}
