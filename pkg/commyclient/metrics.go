package commyclient

import "github.com/prometheus/client_golang/prometheus"

// Metrics provides Prometheus metrics for the client façade.
//
// Follows the nil receiver pattern: every method handles a nil receiver,
// so a Client built without WithMetrics pays no instrumentation cost.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RepliesTotal       *prometheus.CounterVec
	ReconnectsTotal    prometheus.Counter
	DiffRangesObserved prometheus.Histogram
}

// NewMetrics creates and, if reg is non-nil, registers façade metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commy_client_requests_total",
				Help: "Total requests sent by message type",
			},
			[]string{"message_type"},
		),
		RepliesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commy_client_replies_total",
				Help: "Total replies received by message type",
			},
			[]string{"message_type"},
		),
		ReconnectsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "commy_client_reconnects_total",
				Help: "Total successful reconnections",
			},
		),
		DiffRangesObserved: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "commy_client_diff_ranges_observed",
				Help:    "Number of changed variables per watcher change event",
				Buckets: prometheus.ExponentialBuckets(1, 2, 8),
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.RequestsTotal,
			m.RepliesTotal,
			m.ReconnectsTotal,
			m.DiffRangesObserved,
		)
	}

	return m
}

func (m *Metrics) recordRequest(messageType string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(messageType).Inc()
}

func (m *Metrics) recordReply(messageType string) {
	if m == nil {
		return
	}
	m.RepliesTotal.WithLabelValues(messageType).Inc()
}

func (m *Metrics) recordReconnect() {
	if m == nil {
		return
	}
	m.ReconnectsTotal.Inc()
}

func (m *Metrics) observeDiffRanges(count int) {
	if m == nil {
		return
	}
	m.DiffRangesObserved.Observe(float64(count))
}

// NullMetrics returns nil, which acts as a no-op metrics collector.
func NullMetrics() *Metrics {
	return nil
}
