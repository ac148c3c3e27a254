// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meeting_transcription"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Recording metrics
	RecordingsTotal    prometheus.Counter
	RecordingsActive   prometheus.Gauge
	RecordingsSuccess  prometheus.Counter
	RecordingsFailed   prometheus.Counter
	RecordingsDegraded *prometheus.CounterVec
	RecordingDuration  prometheus.Histogram

	// Chunk metrics
	ChunksPlanned   prometheus.Histogram
	ChunkCallsTotal prometheus.Counter
	ChunkCallErrors prometheus.Counter

	// Fusion metrics
	SpeakersDetected  prometheus.Histogram
	SentencesEmitted  prometheus.Counter
	RecordsDropped    *prometheus.CounterVec
	IdentitiesMatched prometheus.Counter

	// Backend call metrics
	BackendLatency *prometheus.HistogramVec
	BackendErrors  *prometheus.CounterVec
	BackendRetries *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RecordingsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_total",
			Help:      "Total number of recordings processed",
		}),
		RecordingsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recordings_active",
			Help:      "Number of recordings currently being processed",
		}),
		RecordingsSuccess: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_success_total",
			Help:      "Total number of recordings that produced a transcript",
		}),
		RecordingsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_failed_total",
			Help:      "Total number of recordings that produced no transcript",
		}),
		RecordingsDegraded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_degraded_total",
			Help:      "Total number of recordings processed in a degraded mode",
		}, []string{"mode"}),
		RecordingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recording_processing_seconds",
			Help:      "Wall time spent processing one recording",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
		}),

		ChunksPlanned: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunks_planned",
			Help:      "Number of chunks planned per recording",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		ChunkCallsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_calls_total",
			Help:      "Total number of per-chunk diarization calls",
		}),
		ChunkCallErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_call_errors_total",
			Help:      "Total number of failed per-chunk diarization calls",
		}),

		SpeakersDetected: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "speakers_detected",
			Help:      "Number of distinct speakers per recording after calibration",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 12, 20},
		}),
		SentencesEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentences_emitted_total",
			Help:      "Total number of sentences emitted",
		}),
		RecordsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Total number of malformed records dropped",
		}, []string{"kind"}),
		IdentitiesMatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identities_matched_total",
			Help:      "Total number of speakers resolved against the enrolled directory",
		}),

		BackendLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_latency_seconds",
			Help:      "External backend call latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		}, []string{"backend"}),
		BackendErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Total number of external backend call errors",
		}, []string{"backend", "error_type"}),
		BackendRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_retries_total",
			Help:      "Total number of external backend call retries",
		}, []string{"backend"}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordRecordingStart records a recording entering the pipeline.
func (m *Metrics) RecordRecordingStart() {
	m.RecordingsTotal.Inc()
	m.RecordingsActive.Inc()
}

// RecordRecordingEnd records a recording leaving the pipeline.
func (m *Metrics) RecordRecordingEnd(success bool, durationSeconds float64) {
	m.RecordingsActive.Dec()
	m.RecordingDuration.Observe(durationSeconds)
	if success {
		m.RecordingsSuccess.Inc()
	} else {
		m.RecordingsFailed.Inc()
	}
}

// RecordDegraded records a recording processed via a fallback mode.
func (m *Metrics) RecordDegraded(mode string) {
	m.RecordingsDegraded.WithLabelValues(mode).Inc()
}

// RecordChunkPlan records the planner's output size for one recording.
func (m *Metrics) RecordChunkPlan(chunks int) {
	m.ChunksPlanned.Observe(float64(chunks))
}

// RecordChunkCall records one per-chunk diarization call.
func (m *Metrics) RecordChunkCall(err error) {
	m.ChunkCallsTotal.Inc()
	if err != nil {
		m.ChunkCallErrors.Inc()
	}
}

// RecordFusionResult records speaker and sentence counts for one recording.
func (m *Metrics) RecordFusionResult(speakers, sentences int) {
	m.SpeakersDetected.Observe(float64(speakers))
	m.SentencesEmitted.Add(float64(sentences))
}

// RecordDropped records a malformed record being dropped.
func (m *Metrics) RecordDropped(kind string) {
	m.RecordsDropped.WithLabelValues(kind).Inc()
}

// RecordIdentityMatch records a speaker resolved to an enrolled identity.
func (m *Metrics) RecordIdentityMatch() {
	m.IdentitiesMatched.Inc()
}

// RecordBackendCall records one external backend call attempt.
func (m *Metrics) RecordBackendCall(backend string, err error, latencySeconds float64) {
	m.BackendLatency.WithLabelValues(backend).Observe(latencySeconds)
	if err != nil {
		m.BackendErrors.WithLabelValues(backend, "call").Inc()
	}
}

// RecordBackendRetry records a retry of an external backend call.
func (m *Metrics) RecordBackendRetry(backend string) {
	m.BackendRetries.WithLabelValues(backend).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
