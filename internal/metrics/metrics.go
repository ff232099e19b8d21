// Package metrics provides Prometheus metrics for the product component store
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup outcomes
const (
	OutcomeLocal      = "local"
	OutcomeReferenced = "referenced"
	OutcomeMiss       = "miss"
)

// Metrics holds all Prometheus metrics of the store. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// Cache metrics
	CacheRequestsTotal *prometheus.CounterVec

	// Object factory metrics
	MaterializationsTotal   *prometheus.CounterVec
	MaterializationDuration *prometheus.HistogramVec

	// Lookup metrics
	LookupsTotal *prometheus.CounterVec

	// Manager metrics
	RepositoryRebuildsTotal *prometheus.CounterVec
	TocEntries              *prometheus.GaugeVec

	// Server metrics
	ServerUptimeSeconds prometheus.Gauge
	ServerStartTime     time.Time
}

// NewMetrics creates all metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	m.CacheRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcstore_cache_requests_total",
			Help: "Total number of cache requests by result",
		},
		[]string{"repository", "category", "result"},
	)

	m.MaterializationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcstore_materializations_total",
			Help: "Total number of object factory calls",
		},
		[]string{"repository", "category", "status"},
	)

	m.MaterializationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pcstore_materialization_duration_seconds",
			Help:    "Duration of object factory calls in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"category"},
	)

	m.LookupsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcstore_lookups_total",
			Help: "Total number of public lookups by where they were resolved",
		},
		[]string{"repository", "category", "outcome"},
	)

	m.RepositoryRebuildsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pcstore_repository_rebuilds_total",
			Help: "Total number of repository rebuilds by manager",
		},
		[]string{"manager", "status"},
	)

	m.TocEntries = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pcstore_toc_entries",
			Help: "Number of table of contents entries per category",
		},
		[]string{"repository", "category"},
	)

	m.ServerUptimeSeconds = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "pcstore_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
	)

	return m
}

// RecordCacheRequest records a cache hit or miss
func (m *Metrics) RecordCacheRequest(repository, category string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequestsTotal.WithLabelValues(repository, category, result).Inc()
}

// RecordMaterialization records one object factory call
func (m *Metrics) RecordMaterialization(repository, category string, duration time.Duration, found bool, err error) {
	if m == nil {
		return
	}
	status := "success"
	switch {
	case err != nil:
		status = "error"
	case !found:
		status = "absent"
	}
	m.MaterializationsTotal.WithLabelValues(repository, category, status).Inc()
	m.MaterializationDuration.WithLabelValues(category).Observe(duration.Seconds())
}

// RecordLookup records where a public lookup was resolved
func (m *Metrics) RecordLookup(repository, category, outcome string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(repository, category, outcome).Inc()
}

// RecordRebuild records a repository rebuild
func (m *Metrics) RecordRebuild(manager string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RepositoryRebuildsTotal.WithLabelValues(manager, status).Inc()
}

// SetTocEntries records entry counts of a repository's table of contents
func (m *Metrics) SetTocEntries(repository string, counts map[string]int) {
	if m == nil {
		return
	}
	for category, n := range counts {
		m.TocEntries.WithLabelValues(repository, category).Set(float64(n))
	}
}

// UpdateUptime refreshes the uptime gauge every interval until done is closed
func (m *Metrics) UpdateUptime(done <-chan struct{}, interval time.Duration) {
	if m == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.ServerUptimeSeconds.Set(time.Since(m.ServerStartTime).Seconds())
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}
