package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the directory. A nil *Metrics
// records nothing.
type Metrics struct {
	Loads        *prometheus.CounterVec
	Fetches      *prometheus.CounterVec
	LoadDuration prometheus.Histogram
	Entities     prometheus.Gauge
	Searches     *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Loads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_loads_total",
			Help: "Dataset loads by result (success, failure).",
		}, []string{"result"}),
		Fetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_fetches_total",
			Help: "Source fetches by resource and result.",
		}, []string{"resource", "result"}),
		LoadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rollcall_load_duration_seconds",
			Help:    "Time to fetch, index and merge both sources.",
			Buckets: prometheus.DefBuckets,
		}),
		Entities: f.NewGauge(prometheus.GaugeOpts{
			Name: "rollcall_entities",
			Help: "Entities in the committed dataset.",
		}),
		Searches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_searches_total",
			Help: "Directory searches by cache outcome (hit, miss).",
		}, []string{"cache"}),
	}
}

// ObserveLoad records the outcome of one load.
func (m *Metrics) ObserveLoad(err error, took time.Duration, entities int) {
	if m == nil {
		return
	}
	if err != nil {
		m.Loads.WithLabelValues("failure").Inc()
		return
	}
	m.Loads.WithLabelValues("success").Inc()
	m.LoadDuration.Observe(took.Seconds())
	m.Entities.Set(float64(entities))
}

// ObserveFetch records one source fetch.
func (m *Metrics) ObserveFetch(resource string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.Fetches.WithLabelValues(resource, result).Inc()
}

// ObserveSearch records whether a search was answered from cache.
func (m *Metrics) ObserveSearch(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.Searches.WithLabelValues(outcome).Inc()
}

// ResetEntities zeroes the entity gauge after the dataset is discarded.
func (m *Metrics) ResetEntities() {
	if m == nil {
		return
	}
	m.Entities.Set(0)
}
