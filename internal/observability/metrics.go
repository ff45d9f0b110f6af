// Package observability wires the Prometheus collectors of the visit organizer into one registry.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/visitprep/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Organizer *metrics.OrganizerMetrics
}

// NewMetrics creates a private registry and the organizer collectors registered on it.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	organizer, err := metrics.NewOrganizerMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create organizer metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Organizer: organizer,
	}, nil
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current values in the Prometheus text format,
// suitable for the node_exporter textfile collector. The CLI is short-lived, so
// this replaces a scrape endpoint.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
