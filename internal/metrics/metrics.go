// Casefinder - Similar Question Recommendation for Pro Bono Legal Answers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/casefinder

// Package metrics defines the Prometheus collectors exported on /metrics.
//
// Collectors are registered on the default registry at package init through
// promauto. Callers use the Record* helpers rather than touching collectors
// directly so label sets stay consistent.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// Dataset Metrics
	DataRecordsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "data_records_loaded",
			Help: "Number of question records held by the record store",
		},
	)

	DataEmbeddingDimension = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "data_embedding_dimension",
			Help: "Length of the precomputed embedding vectors",
		},
	)

	DataLoadDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "data_load_duration_seconds",
			Help: "Time taken to load the record and embedding tables at startup",
		},
	)

	// Embedding Worker Metrics
	WorkerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_requests_total",
			Help: "Text recommendation requests processed by the embedding worker",
		},
		[]string{"outcome"}, // "success", "error", "panic"
	)

	WorkerQueueWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "worker_queue_wait_seconds",
			Help:    "Time a request waited for the single worker slot",
			Buckets: []float64{0.0005, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	WorkerProcessDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "worker_process_duration_seconds",
			Help:    "Time spent encoding and searching for one request",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	WorkerBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_busy",
			Help: "1 while the embedding worker is processing a request",
		},
	)

	// Encoder Metrics
	EncoderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "encoder_duration_seconds",
			Help:    "Duration of text encoding calls",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"backend"},
	)

	EncoderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "encoder_errors_total",
			Help: "Total number of failed encoding calls",
		},
		[]string{"backend"},
	)

	EncoderCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "encoder_cache_hits_total",
			Help: "Encodings served from the cache",
		},
	)

	EncoderCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "encoder_cache_misses_total",
			Help: "Encodings computed because the cache had no entry",
		},
	)

	EncoderRestarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "encoder_process_restarts_total",
			Help: "Times the encoder subprocess was (re)started",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests passing through a circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current run of consecutive failures seen by a circuit breaker",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Query Metrics
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Recommendation queries by path and outcome",
		},
		[]string{"path", "outcome"}, // path: "text", "existing"
	)

	CategoricalQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "categorical_queries_total",
			Help: "Categorical filter queries by outcome",
		},
		[]string{"outcome"}, // "match", "no_match"
	)
)

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDataLoad records the size of the loaded dataset.
func RecordDataLoad(records, dimension int, duration time.Duration) {
	DataRecordsLoaded.Set(float64(records))
	DataEmbeddingDimension.Set(float64(dimension))
	DataLoadDuration.Set(duration.Seconds())
}

// RecordWorkerRequest records one worker turn.
func RecordWorkerRequest(outcome string, wait, process time.Duration) {
	WorkerRequestsTotal.WithLabelValues(outcome).Inc()
	WorkerQueueWait.Observe(wait.Seconds())
	WorkerProcessDuration.Observe(process.Seconds())
}

// SetWorkerBusy flips the busy gauge.
func SetWorkerBusy(busy bool) {
	if busy {
		WorkerBusy.Set(1)
	} else {
		WorkerBusy.Set(0)
	}
}

// RecordEncode records one encoder call.
func RecordEncode(backend string, duration time.Duration, err error) {
	EncoderDuration.WithLabelValues(backend).Observe(duration.Seconds())
	if err != nil {
		EncoderErrors.WithLabelValues(backend).Inc()
	}
}

// RecordEncoderCache records a cache lookup.
func RecordEncoderCache(hit bool) {
	if hit {
		EncoderCacheHits.Inc()
	} else {
		EncoderCacheMisses.Inc()
	}
}

// RecordRecommendation records a recommendation query outcome.
func RecordRecommendation(path, outcome string) {
	RecommendationsTotal.WithLabelValues(path, outcome).Inc()
}

// RecordCategoricalQuery records whether a categorical query found a row.
func RecordCategoricalQuery(matched bool) {
	outcome := "no_match"
	if matched {
		outcome = "match"
	}
	CategoricalQueriesTotal.WithLabelValues(outcome).Inc()
}
