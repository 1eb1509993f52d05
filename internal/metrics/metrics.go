package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the domain-level Prometheus collectors. It is constructed
// against an injected Registerer so tests can use isolated registries.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	tenantOps     *prometheus.CounterVec
	cachedHandles prometheus.Gauge
}

// New creates and registers the domain metrics.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		tenantOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenant_operations_total",
				Help: "Total number of tenant lifecycle operations.",
			},
			[]string{"operation", "outcome"},
		),
		cachedHandles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tenant_connection_handles",
				Help: "Number of cached per-tenant connection handles.",
			},
		),
	}

	if err := reg.Register(m.tenantOps); err != nil {
		return nil, err
	}
	if err := reg.Register(m.cachedHandles); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordTenantOp counts one lifecycle operation outcome
// (e.g. operation="create", outcome="success").
func (m *Metrics) RecordTenantOp(operation, outcome string) {
	if m == nil {
		return
	}
	m.tenantOps.WithLabelValues(operation, outcome).Inc()
}

// SetCachedHandles reports the current size of the connection registry.
func (m *Metrics) SetCachedHandles(n int) {
	if m == nil {
		return
	}
	m.cachedHandles.Set(float64(n))
}
