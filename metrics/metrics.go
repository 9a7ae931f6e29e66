package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogLoads counts playlist loads by outcome
	// (success, fetch_error, decode_error, superseded)
	CatalogLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_catalog_loads_total",
		Help: "Total number of playlist loads by result",
	}, []string{"result"})

	// CatalogLoadDuration tracks how long the fetch, parse and group pipeline takes
	CatalogLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "iptv_catalog_load_duration_seconds",
		Help:    "Duration of playlist loads",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	// CatalogChannels tracks the number of published channels
	CatalogChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_catalog_channels",
		Help: "Number of channels in the published catalog",
	})

	// CatalogCategories tracks the number of published categories
	CatalogCategories = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_catalog_categories",
		Help: "Number of categories in the published catalog",
	})

	// CatalogGroups tracks the number of group nodes across all grouped trees
	CatalogGroups = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_catalog_groups",
		Help: "Number of discovered channel groups in the published catalog",
	})

	// BlockedStreams tracks the number of blocked stream keys
	BlockedStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_blocked_streams",
		Help: "Number of blocked stream urls",
	})

	// CircuitBreakerState tracks the current state of circuit breakers
	// 0=closed, 1=open, 2=half-open
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iptv_circuit_breaker_state",
		Help: "Current state of circuit breaker (0=closed, 1=open, 2=half-open)",
	}, []string{"breaker"})

	// CircuitBreakerTrips tracks how many times a circuit breaker transitioned to OPEN
	CircuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_circuit_breaker_trips_total",
		Help: "Total number of times circuit breaker transitioned to OPEN state",
	}, []string{"breaker"})

	// HealthCheckFailures tracks health check failures
	HealthCheckFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptv_health_check_failures_total",
		Help: "Total number of health check failures",
	})
)

// Load results recorded by RecordCatalogLoad.
const (
	LoadSuccess     = "success"
	LoadFetchError  = "fetch_error"
	LoadDecodeError = "decode_error"
	LoadSuperseded  = "superseded"
)

// RecordCatalogLoad records the outcome and duration of a playlist load
func RecordCatalogLoad(result string, d time.Duration) {
	CatalogLoads.WithLabelValues(result).Inc()
	CatalogLoadDuration.Observe(d.Seconds())
}

// SetCatalogSize updates the published catalog gauges
func SetCatalogSize(channels, categories, groups int) {
	CatalogChannels.Set(float64(channels))
	CatalogCategories.Set(float64(categories))
	CatalogGroups.Set(float64(groups))
}

// SetBlockedStreams sets the number of blocked stream keys
func SetBlockedStreams(count int) {
	BlockedStreams.Set(float64(count))
}

// SetCircuitBreakerState updates the circuit breaker state metric
// state should be one of: "CLOSED" (0), "OPEN" (1), "HALF-OPEN" (2)
func SetCircuitBreakerState(name, state string) {
	var value float64
	switch state {
	case "CLOSED":
		value = 0
	case "OPEN":
		value = 1
	case "HALF-OPEN":
		value = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(value)
}

// RecordCircuitBreakerTrip increments the circuit breaker trip counter
func RecordCircuitBreakerTrip(name string) {
	CircuitBreakerTrips.WithLabelValues(name).Inc()
}

// RecordHealthCheckFailure increments the health check failure counter
func RecordHealthCheckFailure() {
	HealthCheckFailures.Inc()
}
