package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tdh8316/profilescan/internal/model"
)

// Metrics holds the scanner's Prometheus collectors on a private registry,
// so several scanners (and tests) never collide on registration.
type Metrics struct {
	Registry *prometheus.Registry

	ProbesTotal   *prometheus.CounterVec
	ProbeDuration prometheus.Histogram
	CacheLookups  *prometheus.CounterVec
	ScansTotal    prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		ProbesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profilescan_probes_total",
			Help: "Probes completed, by verdict.",
		}, []string{"verdict"}),
		ProbeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "profilescan_probe_duration_seconds",
			Help:    "Wall time of probes that reached the network.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profilescan_cache_lookups_total",
			Help: "Cache lookups, by result (hit or miss).",
		}, []string{"result"}),
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "profilescan_scans_total",
			Help: "Scans completed.",
		}),
	}
	reg.MustRegister(
		m.ProbesTotal,
		m.ProbeDuration,
		m.CacheLookups,
		m.ScansTotal,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) ObserveProbe(r model.Result) {
	m.ProbesTotal.WithLabelValues(string(r.Status)).Inc()
	if r.ResponseTime > 0 {
		m.ProbeDuration.Observe(r.ResponseTime)
	}
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) IncScans() {
	m.ScansTotal.Inc()
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
