package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the dataset cache and the
// screening endpoints.
type Metrics struct {
	// Refresh cycle outcomes: "success", "fetch_error", "parse_error".
	RefreshTotal *prometheus.CounterVec

	// Duration of full refresh cycles (fetch + parse + swap).
	RefreshDuration prometheus.Histogram

	// Rows in the currently served snapshot.
	SnapshotRows prometheus.Gauge

	// Rows skipped during the last successful parse.
	SkippedRows prometheus.Gauge

	// Search latencies against the in-memory snapshot.
	SearchDuration prometheus.Histogram

	// Total matches per search before truncation.
	SearchMatches prometheus.Histogram

	// Requests rejected by the rate limiter.
	RateLimited prometheus.Counter
}

// New creates a Metrics instance with all collectors registered on the
// default registry.
func New() *Metrics {
	return &Metrics{
		RefreshTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sdnscreen_refresh_total",
			Help: "Total dataset refresh attempts by outcome",
		}, []string{"outcome"}),

		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sdnscreen_refresh_duration_seconds",
			Help:    "Duration of dataset refresh cycles",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		SnapshotRows: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sdnscreen_snapshot_rows",
			Help: "Rows in the currently served dataset snapshot",
		}),

		SkippedRows: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sdnscreen_snapshot_skipped_rows",
			Help: "Rows skipped during the last successful parse",
		}),

		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sdnscreen_search_duration_seconds",
			Help:    "Duration of substring searches",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),

		SearchMatches: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sdnscreen_search_matches",
			Help:    "Total matches per search before the result cap",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),

		RateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdnscreen_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
}

// ObserveRefresh records one refresh attempt.
func (m *Metrics) ObserveRefresh(outcome string, d time.Duration) {
	if m != nil {
		m.RefreshTotal.WithLabelValues(outcome).Inc()
		m.RefreshDuration.Observe(d.Seconds())
	}
}

// SetSnapshot records the shape of the snapshot now being served.
func (m *Metrics) SetSnapshot(rows, skipped int) {
	if m != nil {
		m.SnapshotRows.Set(float64(rows))
		m.SkippedRows.Set(float64(skipped))
	}
}

// ObserveSearch records one search execution.
func (m *Metrics) ObserveSearch(matches int, d time.Duration) {
	if m != nil {
		m.SearchDuration.Observe(d.Seconds())
		m.SearchMatches.Observe(float64(matches))
	}
}

// IncrementRateLimited records a rejected request.
func (m *Metrics) IncrementRateLimited() {
	if m != nil {
		m.RateLimited.Inc()
	}
}
