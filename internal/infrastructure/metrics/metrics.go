package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the connector service
type Metrics struct {
	// Connection metrics
	ConnectAttempts *prometheus.CounterVec
	ConnectRetries  prometheus.Counter
	ConnectDuration prometheus.Histogram
	Verifications   *prometheus.CounterVec
	ActiveClients   prometheus.Gauge
	FloodWaits      prometheus.Counter
	SessionWrites   prometheus.Counter
	SessionClears   *prometheus.CounterVec

	// Listener metrics
	ActiveListeners    prometheus.Gauge
	PollTicks          prometheus.Counter
	PollSkipped        prometheus.Counter
	PollErrors         *prometheus.CounterVec
	PollDuration       prometheus.Histogram
	MessagesForwarded  prometheus.Counter
	DuplicatesFiltered prometheus.Counter

	// Transformer metrics
	CompetitorMentions prometheus.Counter
	MessagesProcessed  prometheus.Counter

	// Sink metrics
	KafkaMessagesProduced prometheus.Counter
	KafkaProduceErrors    *prometheus.CounterVec
	ArchiveUploads        prometheus.Counter
	ArchiveErrors         prometheus.Counter

	// Diagnostics metrics
	ProbeResults  *prometheus.CounterVec
	ProbeDuration *prometheus.HistogramVec
}

var (
	// DefaultMetrics is the default metrics instance
	DefaultMetrics *Metrics
	once           sync.Once
)

// GetDefaultMetrics returns the singleton metrics instance
func GetDefaultMetrics() *Metrics {
	once.Do(func() {
		DefaultMetrics = NewMetrics()
	})
	return DefaultMetrics
}

func init() {
	GetDefaultMetrics()
}

// NewMetrics creates a new Metrics instance registered on the default registry
func NewMetrics() *Metrics {
	return &Metrics{
		ConnectAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connector_connect_attempts_total",
				Help: "Total number of connect operations by outcome",
			},
			[]string{"outcome"},
		),
		ConnectRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connector_connect_retries_total",
			Help: "Total number of retried transport calls",
		}),
		ConnectDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "connector_connect_duration_seconds",
			Help:    "Duration of connect operations in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		Verifications: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connector_verifications_total",
				Help: "Total number of code verifications by outcome",
			},
			[]string{"outcome"},
		),
		ActiveClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "connector_active_clients",
			Help: "Current number of registered protocol clients",
		}),
		FloodWaits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connector_flood_waits_total",
			Help: "Total number of FLOOD_WAIT responses from Telegram",
		}),
		SessionWrites: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connector_session_writes_total",
			Help: "Total number of persisted sessions",
		}),
		SessionClears: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connector_session_clears_total",
				Help: "Total number of cleared sessions by reason",
			},
			[]string{"reason"},
		),

		ActiveListeners: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "connector_active_listeners",
			Help: "Current number of running realtime listeners",
		}),
		PollTicks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connector_poll_ticks_total",
			Help: "Total number of executed poll ticks",
		}),
		PollSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connector_poll_skipped_total",
			Help: "Total number of poll ticks skipped because the previous one was in flight",
		}),
		PollErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connector_poll_errors_total",
				Help: "Total number of poll fetch errors by kind",
			},
			[]string{"kind"},
		),
		PollDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "connector_poll_duration_seconds",
			Help:    "Duration of poll ticks in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		MessagesForwarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connector_messages_forwarded_total",
			Help: "Total number of fresh messages forwarded by listeners",
		}),
		DuplicatesFiltered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connector_duplicates_filtered_total",
			Help: "Total number of duplicate messages dropped by listeners",
		}),

		CompetitorMentions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connector_competitor_mentions_total",
			Help: "Total number of competitor handles replaced",
		}),
		MessagesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connector_messages_processed_total",
			Help: "Total number of messages run through the transformer",
		}),

		KafkaMessagesProduced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connector_kafka_messages_produced_total",
			Help: "Total number of messages produced to Kafka",
		}),
		KafkaProduceErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connector_kafka_produce_errors_total",
				Help: "Total number of Kafka produce errors",
			},
			[]string{"error_type"},
		),
		ArchiveUploads: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connector_archive_uploads_total",
			Help: "Total number of messages archived to object storage",
		}),
		ArchiveErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connector_archive_errors_total",
			Help: "Total number of failed archive uploads",
		}),

		ProbeResults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "connector_diagnostics_probes_total",
				Help: "Total number of diagnostics probes by name and result",
			},
			[]string{"probe", "result"},
		),
		ProbeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "connector_diagnostics_probe_duration_seconds",
				Help:    "Duration of diagnostics probes in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"probe"},
		),
	}
}

// RecordConnect records a connect outcome and its duration
func (m *Metrics) RecordConnect(outcome string, duration float64) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.ConnectAttempts.WithLabelValues(outcome).Inc()
	m.ConnectDuration.Observe(duration)
}

// RecordRetry records a retried transport call
func (m *Metrics) RecordRetry() {
	m.ConnectRetries.Inc()
}

// RecordVerification records a verification outcome
func (m *Metrics) RecordVerification(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

// UpdateActiveClients sets the registered clients gauge
func (m *Metrics) UpdateActiveClients(count int) {
	m.ActiveClients.Set(float64(count))
}

// RecordFloodWait records a FLOOD_WAIT response
func (m *Metrics) RecordFloodWait() {
	m.FloodWaits.Inc()
}

// RecordSessionWrite records a persisted session
func (m *Metrics) RecordSessionWrite() {
	m.SessionWrites.Inc()
}

// RecordSessionClear records a cleared session with its reason
func (m *Metrics) RecordSessionClear(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.SessionClears.WithLabelValues(reason).Inc()
}

// UpdateActiveListeners sets the running listeners gauge
func (m *Metrics) UpdateActiveListeners(count int) {
	m.ActiveListeners.Set(float64(count))
}

// RecordPoll records an executed poll tick
func (m *Metrics) RecordPoll(duration float64) {
	m.PollTicks.Inc()
	m.PollDuration.Observe(duration)
}

// RecordPollSkipped records a skipped overlapping poll tick
func (m *Metrics) RecordPollSkipped() {
	m.PollSkipped.Inc()
}

// RecordPollError records a failed poll fetch
func (m *Metrics) RecordPollError(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.PollErrors.WithLabelValues(kind).Inc()
}

// RecordForwarded records fresh and duplicate message counts of one delivery
func (m *Metrics) RecordForwarded(fresh, duplicates int) {
	if fresh > 0 {
		m.MessagesForwarded.Add(float64(fresh))
	}
	if duplicates > 0 {
		m.DuplicatesFiltered.Add(float64(duplicates))
	}
}

// RecordTransform records a processed message and its replaced competitor count
func (m *Metrics) RecordTransform(competitors int) {
	m.MessagesProcessed.Inc()
	if competitors > 0 {
		m.CompetitorMentions.Add(float64(competitors))
	}
}

// RecordKafkaMessage records a Kafka message production
func (m *Metrics) RecordKafkaMessage() {
	m.KafkaMessagesProduced.Inc()
}

// RecordKafkaError records a Kafka production error with error type
func (m *Metrics) RecordKafkaError(errorType string) {
	if errorType == "" {
		errorType = "unknown"
	}
	m.KafkaProduceErrors.WithLabelValues(errorType).Inc()
}

// RecordArchive records an archive upload result
func (m *Metrics) RecordArchive(err error) {
	if err != nil {
		m.ArchiveErrors.Inc()
		return
	}
	m.ArchiveUploads.Inc()
}

// RecordProbe records a diagnostics probe result and duration
func (m *Metrics) RecordProbe(probe string, success bool, duration float64) {
	result := "failure"
	if success {
		result = "success"
	}
	m.ProbeResults.WithLabelValues(probe, result).Inc()
	m.ProbeDuration.WithLabelValues(probe).Observe(duration)
}
