package weather

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/xid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigPatch(t *testing.T) {
	c := &Config{Type: "fake", Options: map[string]any{"rain_mm": 1}}
	c.Patch(&Config{Options: map[string]any{"rain_interval": "24h"}})
	assert.Equal(t, "fake", c.Type)
	assert.Equal(t, map[string]any{"rain_mm": 1, "rain_interval": "24h"}, c.Options)

	c.Patch(&Config{Type: "netatmo"})
	assert.Equal(t, "netatmo", c.Type)
}

func TestNewWeatherClientInvalidType(t *testing.T) {
	_, err := NewClient(&Config{Type: "DNE"}, nil, nil)
	assert.EqualError(t, err, "invalid type 'DNE'")
}

func TestEndDated(t *testing.T) {
	assert.False(t, (&Config{}).EndDated())

	c := &Config{}
	c.SetEndDate(time.Now().Add(-time.Minute))
	assert.True(t, c.EndDated())
}

// countingClient counts upstream calls
type countingClient struct {
	rain, temp float32
	err        error
	calls      int
}

func (c *countingClient) GetTotalRain(time.Duration) (float32, error) {
	c.calls++
	return c.rain, c.err
}

func (c *countingClient) GetAverageHighTemperature(time.Duration) (float32, error) {
	c.calls++
	return c.temp, c.err
}

func TestCachedWeatherClient(t *testing.T) {
	cache := NewCache(clock.NewMock(), CacheTTL)
	client, err := NewClient(&Config{
		ID:   xid.New(),
		Type: "fake",
		Options: map[string]any{
			"rain_mm":              25.4,
			"rain_interval":        "24h",
			"avg_high_temperature": 40,
		},
	}, cache, nil)
	require.NoError(t, err)

	rain, err := client.GetTotalRain(24 * time.Hour)
	assert.NoError(t, err)
	assert.InDelta(t, 25.4, rain, 0.001)

	temp, err := client.GetAverageHighTemperature(24 * time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, float32(40), temp)

	assert.Equal(t, 2, cache.Len())
}

func TestCacheTTL(t *testing.T) {
	mock := clock.NewMock()
	cache := NewCache(mock, CacheTTL)
	upstream := &countingClient{rain: 10}
	client := &cachedClient{id: xid.New(), client: upstream, cache: cache}

	for i := 0; i < 3; i++ {
		rain, err := client.GetTotalRain(72 * time.Hour)
		require.NoError(t, err)
		assert.Equal(t, float32(10), rain)
	}
	assert.Equal(t, 1, upstream.calls)

	// different horizon is a different key
	_, err := client.GetTotalRain(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)

	mock.Add(CacheTTL - time.Second)
	_, err = client.GetTotalRain(72 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls)

	mock.Add(time.Second)
	_, err = client.GetTotalRain(72 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, upstream.calls)
}

func TestCacheSharedAcrossClients(t *testing.T) {
	cache := NewCache(clock.NewMock(), CacheTTL)
	id := xid.New()
	first := &countingClient{temp: 30}
	second := &countingClient{temp: 99}

	v1, err := (&cachedClient{id: id, client: first, cache: cache}).GetAverageHighTemperature(time.Hour)
	require.NoError(t, err)
	v2, err := (&cachedClient{id: id, client: second, cache: cache}).GetAverageHighTemperature(time.Hour)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 0, second.calls)
}

func TestCacheClearByIDAndPurge(t *testing.T) {
	mock := clock.NewMock()
	cache := NewCache(mock, CacheTTL)
	a, b := xid.New(), xid.New()

	cache.Set(MetricTotalRain, a, time.Hour, 1)
	cache.Set(MetricAverageHighTemperature, a, time.Hour, 2)
	cache.Set(MetricTotalRain, b, time.Hour, 3)

	cache.ClearByID(a)
	_, ok := cache.Get(MetricTotalRain, a, time.Hour)
	assert.False(t, ok)
	v, ok := cache.Get(MetricTotalRain, b, time.Hour)
	assert.True(t, ok)
	assert.Equal(t, float32(3), v)

	mock.Add(CacheTTL)
	cache.Set(MetricTotalRain, a, time.Hour, 4)
	assert.Equal(t, 1, cache.PurgeExpired())
	assert.Equal(t, 1, cache.Len())
}

func TestCacheErrorsAreNotCachedAndTripBreaker(t *testing.T) {
	cache := NewCache(clock.NewMock(), CacheTTL)
	upstream := &countingClient{err: errors.New("upstream down")}
	client := &cachedClient{id: xid.New(), client: upstream, cache: cache}

	for i := 0; i < breakerFailures; i++ {
		_, err := client.GetTotalRain(time.Hour)
		assert.EqualError(t, err, "upstream down")
	}
	assert.Equal(t, breakerFailures, upstream.calls)

	_, err := client.GetTotalRain(time.Hour)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, breakerFailures, upstream.calls)
	assert.Equal(t, 0, cache.Len())
}

type staticClients map[xid.ID]Client

func (s staticClients) GetWeatherClient(id xid.ID) (Client, error) {
	c, ok := s[id]
	if !ok {
		return nil, errors.New("weather client not found")
	}
	return c, nil
}

func TestResolveDuration(t *testing.T) {
	rainID, tempID, missingID := xid.New(), xid.New(), xid.New()
	clients := staticClients{
		rainID: &countingClient{rain: 60},
		tempID: &countingClient{temp: 100},
	}

	rainControl := &ScaleControl{
		BaselineValue: float32Pointer(50),
		Factor:        float32Pointer(0.5),
		Range:         float32Pointer(20),
		ClientID:      rainID,
	}
	tempControl := &ScaleControl{
		BaselineValue: float32Pointer(90),
		Factor:        float32Pointer(0.5),
		Range:         float32Pointer(30),
		ClientID:      tempID,
	}

	tests := []struct {
		name     string
		control  *Control
		expected time.Duration
	}{
		{"NoControl", nil, 30 * time.Second},
		{"RainOnly", &Control{Rain: rainControl}, 22500 * time.Millisecond},
		{"TemperatureOnly", &Control{Temperature: tempControl}, 35 * time.Second},
		{"Both", &Control{Rain: rainControl, Temperature: tempControl}, 26250 * time.Millisecond},
		{
			"FailedControlIsNeutral",
			&Control{Rain: rainControl, Temperature: &ScaleControl{
				BaselineValue: float32Pointer(90),
				Factor:        float32Pointer(0.5),
				Range:         float32Pointer(30),
				ClientID:      missingID,
			}},
			22500 * time.Millisecond,
		},
	}

	var logs bytes.Buffer
	scaler := NewScaler(clients, slog.New(slog.NewTextHandler(&logs, nil)))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := scaler.ResolveDuration(30*time.Second, 72*time.Hour, tt.control)
			assert.InDelta(t, tt.expected.Milliseconds(), result.Milliseconds(), 1)
		})
	}
	assert.Contains(t, logs.String(), "unable to get weather client, using neutral scale")
}

func TestResolveDurationUpstreamError(t *testing.T) {
	id := xid.New()
	scaler := NewScaler(staticClients{id: &countingClient{err: errors.New("boom")}}, slog.Default())

	result := scaler.ResolveDuration(time.Minute, 24*time.Hour, &Control{Rain: &ScaleControl{
		BaselineValue: float32Pointer(0),
		Factor:        float32Pointer(0),
		Range:         float32Pointer(10),
		ClientID:      id,
	}})
	assert.Equal(t, time.Minute, result)
}
