package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks the webhook fulfillment pipeline end to end:
// events in, terminal outcomes, notification sends, and ledger mirroring.
type PipelineMetrics struct {
	eventsReceived *prometheus.CounterVec
	eventOutcomes  *prometheus.CounterVec
	handleDuration *prometheus.HistogramVec
	notifications  *prometheus.CounterVec
	ledgerSyncs    *prometheus.CounterVec
	assetCacheHits *prometheus.CounterVec
}

// Outcome labels for processed events.
const (
	OutcomeFulfilled = "fulfilled"
	OutcomeRecovered = "recovered"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeRejected  = "rejected"
)

// NewPipelineMetrics registers the pipeline metrics on the provided
// registerer. A nil registerer yields a no-op recorder.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	m := &PipelineMetrics{
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Webhook events received after signature verification, by kind.",
		}, []string{"kind"}),
		eventOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_outcomes_total",
			Help:      "Terminal outcomes of event handling, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		handleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_handle_duration_seconds",
			Help:      "Time spent handling a verified event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts, by channel, transport, and outcome.",
		}, []string{"channel", "transport", "outcome"}),
		ledgerSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_ledger_syncs_total",
			Help:      "External ledger mirror attempts, by result.",
		}, []string{"result"}),
		assetCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_resolutions_total",
			Help:      "Asset resolution attempts, by source (cache, remote, miss).",
		}, []string{"source"}),
	}
	reg.MustRegister(
		m.eventsReceived,
		m.eventOutcomes,
		m.handleDuration,
		m.notifications,
		m.ledgerSyncs,
		m.assetCacheHits,
	)
	return m
}

// IncEventReceived counts a verified inbound event.
func (m *PipelineMetrics) IncEventReceived(kind string) {
	if m == nil || m.eventsReceived == nil {
		return
	}
	m.eventsReceived.WithLabelValues(kind).Inc()
}

// ObserveEventHandled records the terminal outcome and duration for an event.
func (m *PipelineMetrics) ObserveEventHandled(kind, outcome string, duration time.Duration) {
	if m == nil || m.eventOutcomes == nil {
		return
	}
	m.eventOutcomes.WithLabelValues(kind, outcome).Inc()
	m.handleDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// IncNotification counts one notification attempt.
func (m *PipelineMetrics) IncNotification(channel, transport, outcome string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(channel, transport, outcome).Inc()
}

// IncLedgerSync counts one external ledger mirror attempt.
func (m *PipelineMetrics) IncLedgerSync(result string) {
	if m == nil || m.ledgerSyncs == nil {
		return
	}
	m.ledgerSyncs.WithLabelValues(result).Inc()
}

// IncAssetResolution counts one asset lookup by where it was satisfied.
func (m *PipelineMetrics) IncAssetResolution(source string) {
	if m == nil || m.assetCacheHits == nil {
		return
	}
	m.assetCacheHits.WithLabelValues(source).Inc()
}
