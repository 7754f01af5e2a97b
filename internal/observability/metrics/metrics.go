// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_clinical_scribe"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Transcription job metrics
	JobsCreated    prometheus.Counter
	JobsDispatched *prometheus.CounterVec // mode: sync|long_running
	JobsCompleted  prometheus.Counter
	JobsFailed     prometheus.Counter
	JobRetries     prometheus.Counter
	JobsActive     prometheus.Gauge

	// Recognition metrics
	RecognitionLatency      *prometheus.HistogramVec // mode: sync|long_running
	TranscriptionConfidence prometheus.Histogram

	// Note generation metrics
	GenerationRequests  prometheus.Counter
	GenerationFailures  prometheus.Counter
	GenerationFallbacks prometheus.Counter
	GenerationLatency   prometheus.Histogram
	GenerationTokens    prometheus.Histogram

	// Scoring and review metrics
	NoteConfidence    prometheus.Histogram
	ReviewTransitions *prometheus.CounterVec // from, to
	NoteEdits         prometheus.Counter
	ComplianceFlags   *prometheus.CounterVec // type

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
		JobsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_jobs_created_total",
			Help:      "Total number of transcription jobs created",
		}),
		JobsDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_jobs_dispatched_total",
			Help:      "Total number of transcription jobs dispatched, by recognition mode",
		}, []string{"mode"}),
		JobsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_jobs_completed_total",
			Help:      "Total number of transcription jobs completed successfully",
		}),
		JobsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_jobs_failed_total",
			Help:      "Total number of transcription jobs that failed",
		}),
		JobRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_job_retries_total",
			Help:      "Total number of explicit transcription retries",
		}),
		JobsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transcription_jobs_active",
			Help:      "Number of transcription jobs currently processing",
		}),

		RecognitionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recognition_latency_seconds",
			Help:      "Latency of speech recognition calls, by mode",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"mode"}),
		TranscriptionConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_confidence",
			Help:      "Overall confidence of completed transcriptions",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),

		GenerationRequests: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of note generation requests",
		}),
		GenerationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Total number of note generation engine failures",
		}),
		GenerationFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_parse_fallbacks_total",
			Help:      "Total number of responses parsed via the regex fallback",
		}),
		GenerationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_seconds",
			Help:      "Latency of LLM generation calls",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		GenerationTokens: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_tokens_estimated",
			Help:      "Estimated total tokens per generation (chars/4 heuristic)",
			Buckets:   prometheus.ExponentialBuckets(256, 2, 8),
		}),

		NoteConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "note_confidence_score",
			Help:      "Confidence score of generated clinical notes",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ReviewTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_transitions_total",
			Help:      "Total number of review workflow transitions",
		}, []string{"from", "to"}),
		NoteEdits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "note_edits_total",
			Help:      "Total number of manual note edits",
		}),
		ComplianceFlags: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compliance_flags_total",
			Help:      "Total number of compliance flags raised",
		}, []string{"type"}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka publish attempts",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of failed Kafka publishes",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Latency of Kafka publishes",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"topic", "event_type"}),
	}
}

// RecordKafkaPublish records the outcome of one Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, seconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
	m.KafkaPublishLatency.WithLabelValues(topic, eventType).Observe(seconds)
}

// RecordRecognition records the latency of one recognition call.
func (m *Metrics) RecordRecognition(mode string, d time.Duration) {
	m.RecognitionLatency.WithLabelValues(mode).Observe(d.Seconds())
}
