package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "coffeebreak"

// Metrics holds the schedule plugin collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	passes       *prometheus.CounterVec
	groups       prometheus.Counter
	activities   *prometheus.CounterVec
	cache        *prometheus.CounterVec
	passDuration prometheus.Histogram
	components   prometheus.Gauge
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "grouping_passes_total",
			Help:      "Grouping passes by outcome.",
		}, []string{"result"}),
		groups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "groups_formed_total",
			Help:      "Activity groups committed by grouping passes.",
		}),
		activities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "activities_total",
			Help:      "Activities seen by grouping passes, by placement.",
		}, []string{"placement"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "cache_requests_total",
			Help:      "Schedule payload cache lookups by result.",
		}, []string{"result"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "grouping_pass_duration_seconds",
			Help:      "Wall time of uncached grouping passes.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		components: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "components",
			Help:      "Components currently registered by this process.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.passes, m.groups, m.activities, m.cache, m.passDuration, m.components)
	}
	return m
}

// NewRegistry returns a prometheus registry with the process and Go collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// PassResult labels.
const (
	PassOK          = "ok"
	PassConfigError = "config_error"
	PassCanceled    = "canceled"
)

// RecordPass records one uncached grouping pass.
func (m *Metrics) RecordPass(result string, groups, grouped, standalone, invalid int, took time.Duration) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(result).Inc()
	if result != PassOK {
		return
	}
	m.groups.Add(float64(groups))
	m.activities.WithLabelValues("grouped").Add(float64(grouped))
	m.activities.WithLabelValues("standalone").Add(float64(standalone))
	m.activities.WithLabelValues("invalid").Add(float64(invalid))
	m.passDuration.Observe(took.Seconds())
}

// RecordCache records a payload cache lookup.
func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cache.WithLabelValues("hit").Inc()
		return
	}
	m.cache.WithLabelValues("miss").Inc()
}

// ComponentRegistered adjusts the registered components gauge.
func (m *Metrics) ComponentRegistered(registered bool) {
	if m == nil {
		return
	}
	if registered {
		m.components.Inc()
		return
	}
	m.components.Dec()
}
