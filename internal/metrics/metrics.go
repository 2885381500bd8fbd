// Package metrics instruments brokers, backends and resource pools with
// Prometheus counters/gauges, registered against a caller-supplied
// Registerer via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector this module registers. Callers inject a
// *prometheus.Registry (or prometheus.DefaultRegisterer) at construction so
// multiple Client instances in one process don't collide on metric names
// unless they choose to share a registry.
type Metrics struct {
	PublishTotal    *prometheus.CounterVec
	BackendGetTotal *prometheus.CounterVec
	BackendPutTotal *prometheus.CounterVec
	PoolInUse       *prometheus.GaugeVec
	PoolUnused      *prometheus.GaugeVec
}

// New registers every collector against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PublishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "celery_go_broker_publish_total",
			Help: "Task publish attempts by broker and outcome.",
		}, []string{"broker", "outcome"}),
		BackendGetTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "celery_go_backend_get_total",
			Help: "Result backend get attempts by backend and outcome.",
		}, []string{"backend", "outcome"}),
		BackendPutTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "celery_go_backend_put_total",
			Help: "Result backend put attempts by backend and outcome.",
		}, []string{"backend", "outcome"}),
		PoolInUse: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "celery_go_resource_pool_in_use",
			Help: "Resources currently borrowed from a pool.",
		}, []string{"pool"}),
		PoolUnused: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "celery_go_resource_pool_unused",
			Help: "Resources currently idle in a pool.",
		}, []string{"pool"}),
	}
}

// ObservePublish records a broker publish outcome ("success" or "failure").
func (m *Metrics) ObservePublish(broker, outcome string) {
	if m == nil {
		return
	}
	m.PublishTotal.WithLabelValues(broker, outcome).Inc()
}

// ObserveBackendGet records a result backend get outcome.
func (m *Metrics) ObserveBackendGet(backend, outcome string) {
	if m == nil {
		return
	}
	m.BackendGetTotal.WithLabelValues(backend, outcome).Inc()
}

// ObserveBackendPut records a result backend put outcome.
func (m *Metrics) ObserveBackendPut(backend, outcome string) {
	if m == nil {
		return
	}
	m.BackendPutTotal.WithLabelValues(backend, outcome).Inc()
}

// SetPoolOccupancy reports a resource pool's current in-use/unused counts.
func (m *Metrics) SetPoolOccupancy(pool string, inUse, unused int) {
	if m == nil {
		return
	}
	m.PoolInUse.WithLabelValues(pool).Set(float64(inUse))
	m.PoolUnused.WithLabelValues(pool).Set(float64(unused))
}
