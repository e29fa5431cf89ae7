// Package metrics gathers the Prometheus collectors of every component into one registry
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a registry of collectors. Each Metrics has its own registry so separate servers in one
// process do not conflict
type Metrics struct {
	registry   *prometheus.Registry
	collectors []prometheus.Collector
}

// New creates Metrics with the Go runtime and process collectors in addition to collectors
func New(cs ...prometheus.Collector) *Metrics {
	return &Metrics{
		registry: prometheus.NewRegistry(),
		collectors: append([]prometheus.Collector{
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		}, cs...),
	}
}

func (m *Metrics) AddCollector(cs ...prometheus.Collector) {
	m.collectors = append(m.collectors, cs...)
}

// Register adds every collector to the registry. A collector that is already registered is not an error
func (m *Metrics) Register() error {
	for _, c := range m.collectors {
		err := m.registry.Register(c)
		if err != nil {
			var alreadyRegistered prometheus.AlreadyRegisteredError
			if errors.As(err, &alreadyRegistered) {
				continue
			}
			return err
		}
	}
	return nil
}

func (m *Metrics) Unregister() {
	for _, c := range m.collectors {
		m.registry.Unregister(c)
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather returns the names of the metric families that currently have values
func (m *Metrics) Gather() ([]string, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	return names, nil
}
