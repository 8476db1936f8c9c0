// Copyright (C) 2026 ChatMate Labs (oss@chatmate.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the gateway.
//
// # Description
//
// Metrics cover the streaming relay path: request counters by endpoint and
// status, relayed-chunk counters, time-to-first-chunk and stream-duration
// histograms, and an active-stream gauge. Exposed via GET /metrics.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "chatmate"

const streamingSubsystem = "streaming"

// StreamingMetrics holds all Prometheus metrics for the relay path.
//
// Initialize once at startup via InitMetrics(); handlers read the
// DefaultMetrics package variable and tolerate it being nil in tests.
type StreamingMetrics struct {
	RequestsTotal           *prometheus.CounterVec
	ChunksRelayedTotal      *prometheus.CounterVec
	TimeToFirstChunkSeconds *prometheus.HistogramVec
	StreamDurationSeconds   *prometheus.HistogramVec
	ActiveStreams           *prometheus.GaugeVec
	ErrorsTotal             *prometheus.CounterVec
	ClientDisconnectsTotal  *prometheus.CounterVec
}

// DefaultMetrics is the process-wide metrics instance, nil until InitMetrics.
var DefaultMetrics *StreamingMetrics

// InitMetrics registers all metrics with the default registry and installs
// the result as DefaultMetrics. Call once from main; calling twice panics
// on duplicate registration.
func InitMetrics() *StreamingMetrics {
	DefaultMetrics = &StreamingMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "requests_total",
				Help:      "Total number of relay requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		ChunksRelayedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "chunks_relayed_total",
				Help:      "Total text chunks relayed downstream by model",
			},
			[]string{"model"},
		),

		TimeToFirstChunkSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "time_to_first_chunk_seconds",
				Help:      "Time from request to first relayed chunk in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"endpoint"},
		),

		StreamDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "stream_duration_seconds",
				Help:      "Total stream duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"endpoint", "status"},
		),

		ActiveStreams: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "active_streams",
				Help:      "Number of currently active streaming connections",
			},
			[]string{"endpoint"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "errors_total",
				Help:      "Total relay errors by type and endpoint",
			},
			[]string{"endpoint", "error_code"},
		),

		ClientDisconnectsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: streamingSubsystem,
				Name:      "client_disconnects_total",
				Help:      "Total client disconnections during streaming",
			},
			[]string{"endpoint"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode categorizes relay failures for metrics labeling.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeUpstreamSetup indicates the upstream stream could not be
	// opened (failure before the first delta).
	ErrorCodeUpstreamSetup ErrorCode = "upstream_setup"

	// ErrorCodeUpstreamStream indicates the upstream stream failed after
	// relaying started (reported in-band via the sentinel).
	ErrorCodeUpstreamStream ErrorCode = "upstream_stream"

	// ErrorCodeClientDisconnect indicates the downstream client went away.
	ErrorCodeClientDisconnect ErrorCode = "client_disconnect"

	// ErrorCodeExtraction indicates attachment text extraction failure.
	ErrorCodeExtraction ErrorCode = "extraction"

	// ErrorCodeInternal indicates internal server error.
	ErrorCodeInternal ErrorCode = "internal"
)

// =============================================================================
// Endpoint Names
// =============================================================================

// Endpoint labels metrics by gateway endpoint.
type Endpoint string

const (
	// EndpointChatStream is the chat relay endpoint.
	EndpointChatStream Endpoint = "chat_stream"

	// EndpointPDFText is the PDF text extraction endpoint.
	EndpointPDFText Endpoint = "pdf_text"

	// EndpointUpload is the upload echo endpoint.
	EndpointUpload Endpoint = "upload"
)

// =============================================================================
// Recording Helpers
// =============================================================================

// RecordRequest increments the request counter with a success/error status.
func (m *StreamingMetrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordError increments the error counter for the given category.
func (m *StreamingMetrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// RecordChunks adds relayed chunk counts for a model.
func (m *StreamingMetrics) RecordChunks(model string, count int) {
	if count > 0 {
		m.ChunksRelayedTotal.WithLabelValues(model).Add(float64(count))
	}
}

// StreamStarted increments the active stream gauge.
func (m *StreamingMetrics) StreamStarted(endpoint Endpoint) {
	m.ActiveStreams.WithLabelValues(string(endpoint)).Inc()
}

// StreamEnded decrements the active stream gauge.
func (m *StreamingMetrics) StreamEnded(endpoint Endpoint) {
	m.ActiveStreams.WithLabelValues(string(endpoint)).Dec()
}

// RecordTimeToFirstChunk observes first-chunk latency.
func (m *StreamingMetrics) RecordTimeToFirstChunk(endpoint Endpoint, seconds float64) {
	m.TimeToFirstChunkSeconds.WithLabelValues(string(endpoint)).Observe(seconds)
}

// RecordStreamDuration observes total stream duration.
func (m *StreamingMetrics) RecordStreamDuration(endpoint Endpoint, seconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.StreamDurationSeconds.WithLabelValues(string(endpoint), status).Observe(seconds)
}

// RecordClientDisconnect increments the disconnect counter.
func (m *StreamingMetrics) RecordClientDisconnect(endpoint Endpoint) {
	m.ClientDisconnectsTotal.WithLabelValues(string(endpoint)).Inc()
}
