package netatmo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/calvinmclean/automated-garden/garden-scheduler/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNetatmo struct {
	*httptest.Server
	tokenRequests   atomic.Int32
	lastMeasureType atomic.Value
}

func newFakeNetatmo(t *testing.T) *fakeNetatmo {
	f := &fakeNetatmo{}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenRequests.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "REFRESH_TOKEN", r.Form.Get("refresh_token"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "NEW_ACCESS_TOKEN",
			"refresh_token": "NEW_REFRESH_TOKEN",
			"expires_in":    10800,
		})
	})
	mux.HandleFunc("/api/getstationsdata", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"body": {"devices": [{
			"_id": "STATION_ID",
			"module_name": "Weather Station",
			"modules": [
				{"_id": "OUTDOOR_MODULE_ID", "module_name": "Outdoor Module"},
				{"_id": "RAIN_MODULE_ID", "module_name": "Smart Rain Gauge"}
			]
		}]}}`))
	})
	mux.HandleFunc("/api/getmeasure", func(w http.ResponseWriter, r *http.Request) {
		measureType := r.URL.Query().Get("type")
		f.lastMeasureType.Store(measureType)
		switch measureType {
		case "sum_rain":
			assert.Equal(t, "RAIN_MODULE_ID", r.URL.Query().Get("module_id"))
			_, _ = w.Write([]byte(`{"body": {"1662058800": [7.9], "1662145200": [2.5], "1662231600": [0]}}`))
		case "max_temp":
			assert.Equal(t, "OUTDOOR_MODULE_ID", r.URL.Query().Get("module_id"))
			assert.NotEmpty(t, r.URL.Query().Get("date_end"))
			_, _ = w.Write([]byte(`{"body": {"1662058800": [30], "1662145200": [33], "1662231600": [36]}}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": "bad type"}`))
		}
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeNetatmo) options(expiration time.Time) map[string]any {
	return map[string]any{
		"authentication": map[string]any{
			"access_token":    "ACCESS_TOKEN",
			"refresh_token":   "REFRESH_TOKEN",
			"expiration_date": expiration.Format(time.RFC3339Nano),
		},
		"client_id":           "CLIENT_ID",
		"client_secret":       "CLIENT_SECRET",
		"outdoor_module_name": "Outdoor Module",
		"rain_module_name":    "Smart Rain Gauge",
		"station_name":        "Weather Station",
		"base_url":            f.URL,
	}
}

func TestNewClientUsingDeviceName(t *testing.T) {
	f := newFakeNetatmo(t)

	client, err := NewClient(f.options(clock.Now().Add(time.Minute)), nil)
	require.NoError(t, err)
	assert.Equal(t, "STATION_ID", client.StationID)
	assert.Equal(t, "OUTDOOR_MODULE_ID", client.OutdoorModuleID)
	assert.Equal(t, "RAIN_MODULE_ID", client.RainModuleID)
	assert.Equal(t, int32(0), f.tokenRequests.Load())
}

func TestNewClientErrors(t *testing.T) {
	f := newFakeNetatmo(t)

	t.Run("MissingAuthentication", func(t *testing.T) {
		_, err := NewClient(map[string]any{"station_id": "S"}, nil)
		assert.EqualError(t, err, "missing required field: authentication")
	})

	t.Run("UnknownStation", func(t *testing.T) {
		opts := f.options(clock.Now().Add(time.Minute))
		opts["station_name"] = "Other"
		_, err := NewClient(opts, nil)
		assert.EqualError(t, err, `no station found with name "Other"`)
	})

	t.Run("MissingModuleName", func(t *testing.T) {
		opts := f.options(clock.Now().Add(time.Minute))
		delete(opts, "rain_module_name")
		_, err := NewClient(opts, nil)
		assert.EqualError(t, err, "rain_module_id or rain_module_name must be provided")
	})
}

func TestGetTotalRain(t *testing.T) {
	f := newFakeNetatmo(t)

	client, err := NewClient(f.options(clock.Now().Add(time.Minute)), nil)
	require.NoError(t, err)

	rain, err := client.GetTotalRain(time.Hour)
	require.NoError(t, err)
	assert.InDelta(t, 10.4, rain, 0.001)
	assert.Equal(t, "sum_rain", f.lastMeasureType.Load())
}

func TestGetAverageHighTemperature(t *testing.T) {
	f := newFakeNetatmo(t)

	client, err := NewClient(f.options(clock.Now().Add(time.Minute)), nil)
	require.NoError(t, err)

	temp, err := client.GetAverageHighTemperature(24 * time.Hour)
	require.NoError(t, err)
	assert.InDelta(t, 33, temp, 0.001)
}

func TestRefreshTokenWhenExpired(t *testing.T) {
	f := newFakeNetatmo(t)

	var stored map[string]any
	client, err := NewClient(f.options(clock.Now().Add(-time.Minute)), func(opts map[string]any) error {
		stored = opts
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.tokenRequests.Load())
	assert.Equal(t, "NEW_REFRESH_TOKEN", client.Authentication.RefreshToken)

	require.NotNil(t, stored)
	auth := stored["authentication"].(map[string]any)
	assert.Equal(t, "NEW_ACCESS_TOKEN", auth["access_token"])
	assert.Equal(t, "STATION_ID", stored["station_id"])

	// token is now valid so later calls do not refresh again
	_, err = client.GetTotalRain(48 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.tokenRequests.Load())

	// stored options decode into an equivalent client without new lookups
	again, err := NewClient(stored, nil)
	require.NoError(t, err)
	assert.Equal(t, client.RainModuleID, again.RainModuleID)
	assert.Equal(t, client.OutdoorModuleID, again.OutdoorModuleID)
	assert.Equal(t, "NEW_REFRESH_TOKEN", again.Authentication.RefreshToken)
	assert.WithinDuration(t, client.Authentication.ExpirationDate, again.Authentication.ExpirationDate, time.Second)
}

func TestUnexpectedStatus(t *testing.T) {
	f := newFakeNetatmo(t)

	client, err := NewClient(f.options(clock.Now().Add(time.Minute)), nil)
	require.NoError(t, err)

	_, err = client.getMeasure("unknown", "X", clock.Now(), nil)
	assert.ErrorContains(t, err, "received unexpected status 400")
}
