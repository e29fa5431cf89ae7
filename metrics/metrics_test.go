package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "garden_app",
		Name:      "test_total",
		Help:      "test counter",
	})
	counter.Inc()

	m := New(counter)
	require.NoError(t, m.Register())
	// registering twice is allowed
	require.NoError(t, m.Register())

	names, err := m.Gather()
	require.NoError(t, err)
	assert.Contains(t, names, "garden_app_test_total")
	assert.Contains(t, names, "go_goroutines")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(w.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "garden_app_test_total 1")

	m.Unregister()
	names, err = m.Gather()
	require.NoError(t, err)
	assert.NotContains(t, names, "garden_app_test_total")
}

func TestSeparateRegistries(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "shared_total", Help: "shared"})
	first := New(counter)
	second := New(counter)

	assert.NoError(t, first.Register())
	assert.NoError(t, second.Register())
}

func TestRegisterConflict(t *testing.T) {
	m := New(
		prometheus.NewCounter(prometheus.CounterOpts{Name: "conflict", Help: "a"}),
		prometheus.NewGauge(prometheus.GaugeOpts{Name: "conflict", Help: "b"}),
	)
	assert.Error(t, m.Register())
}
