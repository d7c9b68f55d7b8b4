package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports cache activity to Prometheus. One Metrics value may be shared by
// many caches; each cache labels its series with its own name.
type Metrics struct {
	lookups      *prometheus.CounterVec
	fillErrors   *prometheus.CounterVec
	fillDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dnxdeps_cache_lookups_total",
				Help: "Number of cache lookups by cache and result.",
			},
			[]string{"cache", "result"},
		),
		fillErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dnxdeps_cache_fill_errors_total",
				Help: "Number of cache fills that returned an error.",
			},
			[]string{"cache"},
		),
		fillDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dnxdeps_cache_fill_duration_seconds",
				Help:    "Time taken to compute a missing cache entry.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"cache"},
		),
	}
	for _, c := range []prometheus.Collector{m.lookups, m.fillErrors, m.fillDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) lookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) observeFill(cache string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.fillDuration.WithLabelValues(cache).Observe(d.Seconds())
	if err != nil {
		m.fillErrors.WithLabelValues(cache).Inc()
	}
}
