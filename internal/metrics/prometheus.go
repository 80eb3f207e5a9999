package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for ingestion and rating runs

var (
	// API Call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smashrank_api_calls_total",
			Help: "Total number of start.gg API calls",
		},
		[]string{"status"},
	)

	APICallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "smashrank_api_call_duration_seconds",
			Help:    "Duration of API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smashrank_api_retries_total",
			Help: "Total number of API call retries after a transient failure",
		},
		[]string{"reason"},
	)

	RateLimitWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "smashrank_rate_limit_wait_seconds",
			Help:    "Time callers spent blocked on the rate-limit window",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60},
		},
	)

	// Pagination metrics
	PagesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smashrank_pages_fetched_total",
			Help: "Total number of result pages fetched",
		},
		[]string{"connection"},
	)

	// Ingestion metrics
	TournamentsIngested = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smashrank_tournaments_ingested",
			Help: "Number of tournaments in the last snapshot",
		},
	)

	SetsIngested = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smashrank_sets_ingested",
			Help: "Number of sets in the last snapshot",
		},
	)

	// Rating metrics
	SetsRatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "smashrank_sets_rated_total",
			Help: "Total number of sets folded into player ratings",
		},
	)

	SetsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smashrank_sets_skipped_total",
			Help: "Total number of sets left out of rating, by reason",
		},
		[]string{"reason"},
	)

	PlayersRated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smashrank_players_rated",
			Help: "Number of players with at least one rated set",
		},
	)

	// Sync metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smashrank_sync_operations_total",
			Help: "Total number of sync operations",
		},
		[]string{"type", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smashrank_sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"type"},
	)

	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smashrank_last_successful_sync_timestamp",
			Help: "Timestamp of last successful sync operation",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smashrank_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "smashrank_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)
)

// RecordAPICall records an API call metric
func RecordAPICall(status string, duration float64) {
	APICallsTotal.WithLabelValues(status).Inc()
	APICallDuration.Observe(duration)
}

// RecordRetry records a retried API call
func RecordRetry(reason string) {
	APIRetriesTotal.WithLabelValues(reason).Inc()
}

// RecordRateLimitWait records time spent waiting for window capacity
func RecordRateLimitWait(seconds float64) {
	RateLimitWaitDuration.Observe(seconds)
}

// RecordPage records a fetched page of a paginated connection
func RecordPage(connection string) {
	PagesFetchedTotal.WithLabelValues(connection).Inc()
}

// RecordSnapshot records the size of a freshly built snapshot
func RecordSnapshot(tournaments, sets int) {
	TournamentsIngested.Set(float64(tournaments))
	SetsIngested.Set(float64(sets))
}

// RecordSetRated records a set that updated ratings
func RecordSetRated() {
	SetsRatedTotal.Inc()
}

// RecordSetSkipped records a set excluded from rating
func RecordSetSkipped(reason string) {
	SetsSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordSync records a sync operation
func RecordSync(syncType, status string, duration float64) {
	SyncOperationsTotal.WithLabelValues(syncType, status).Inc()
	SyncDuration.WithLabelValues(syncType).Observe(duration)

	if status == "success" {
		LastSuccessfulSync.SetToCurrentTime()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
