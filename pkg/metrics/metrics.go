// Package metrics provides Prometheus metrics for the price security engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FeedReadingsTotal counts adapter readings by outcome.
	FeedReadingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_readings_total",
			Help: "Total number of feed readings by outcome (accepted, invalid, deviation)",
		},
		[]string{"asset", "feed", "status"},
	)

	// SuspiciousEventsTotal counts recorded suspicious events.
	SuspiciousEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suspicious_events_total",
			Help: "Total number of suspicious events recorded",
		},
		[]string{"asset", "reason"},
	)

	// PriceRejectionsTotal counts secure price requests that ended in an error.
	PriceRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_rejections_total",
			Help: "Total number of secure price requests rejected",
		},
		[]string{"asset", "reason"},
	)

	// AcceptedPrice is the last committed price per asset, in whole units.
	AcceptedPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "accepted_price",
			Help: "Last accepted aggregated price in whole units",
		},
		[]string{"asset"},
	)

	// PriceConfidence is the confidence of the last committed price in basis points.
	PriceConfidence = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "price_confidence_bps",
			Help: "Confidence of the last accepted price (0-10000 bps)",
		},
		[]string{"asset"},
	)

	// CircuitBreakerTripped reports the stored breaker flag.
	CircuitBreakerTripped = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_tripped",
			Help: "Circuit breaker stored flag (1=tripped, 0=clear)",
		},
	)

	// CircuitBreakerTripsTotal counts breaker trips.
	CircuitBreakerTripsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
	)

	// PriceAggregationDuration is a histogram of price aggregation duration.
	PriceAggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "price_aggregation_duration_seconds",
			Help:    "Duration of price aggregation operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)
)

// Init registers all metrics with the default Prometheus registry.
func Init() {
	prometheus.MustRegister(
		FeedReadingsTotal,
		SuspiciousEventsTotal,
		PriceRejectionsTotal,
		AcceptedPrice,
		PriceConfidence,
		CircuitBreakerTripped,
		CircuitBreakerTripsTotal,
		PriceAggregationDuration,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ServeHTTP serves Prometheus metrics on the specified address and path.
func ServeHTTP(addr, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordFeedReading records the outcome of one adapter reading.
func RecordFeedReading(asset, feed, status string) {
	FeedReadingsTotal.WithLabelValues(asset, feed, status).Inc()
}

// RecordSuspicious records a suspicious event.
func RecordSuspicious(asset, reason string) {
	SuspiciousEventsTotal.WithLabelValues(asset, reason).Inc()
}

// RecordRejection records a failed secure price request.
func RecordRejection(asset, reason string) {
	PriceRejectionsTotal.WithLabelValues(asset, reason).Inc()
}

// RecordAcceptedPrice records a committed price and its confidence.
func RecordAcceptedPrice(asset string, price float64, confidence uint32) {
	AcceptedPrice.WithLabelValues(asset).Set(price)
	PriceConfidence.WithLabelValues(asset).Set(float64(confidence))
}

// RecordBreaker records the breaker flag; tripped=true with trip=true also counts a trip.
func RecordBreaker(tripped, trip bool) {
	val := 0.0
	if tripped {
		val = 1.0
	}
	CircuitBreakerTripped.Set(val)
	if trip {
		CircuitBreakerTripsTotal.Inc()
	}
}

// RecordAggregation records a price aggregation operation.
func RecordAggregation(method string, duration time.Duration) {
	PriceAggregationDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
