// Package metrics exposes attendance counters in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	marks        *prometheus.CounterVec
	registers    *prometheus.CounterVec
	deletes      prometheus.Counter
	indexEntries prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		marks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_mark_total",
			Help: "Mark requests by outcome status.",
		}, []string{"status"}),
		registers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_register_total",
			Help: "Register requests by result.",
		}, []string{"result"}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_delete_total",
			Help: "Completed student deletions.",
		}),
		indexEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "attendance_index_entries",
			Help: "Embeddings currently held by the identity index.",
		}),
	}
	m.registry.MustRegister(
		m.marks,
		m.registers,
		m.deletes,
		m.indexEntries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Mark(status string) {
	if m == nil {
		return
	}
	m.marks.WithLabelValues(status).Inc()
}

func (m *Metrics) Register(result string) {
	if m == nil {
		return
	}
	m.registers.WithLabelValues(result).Inc()
}

func (m *Metrics) Delete() {
	if m == nil {
		return
	}
	m.deletes.Inc()
}

func (m *Metrics) SetIndexEntries(n int) {
	if m == nil {
		return
	}
	m.indexEntries.Set(float64(n))
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
