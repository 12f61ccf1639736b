package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	EmailsSent      prometheus.Counter
	EmailsFailed    *prometheus.CounterVec
	GateDenials     *prometheus.CounterVec
	EmailsScheduled prometheus.Counter
	RepliesDetected prometheus.Counter
	Batches         prometheus.Counter
	BatchDuration   prometheus.Histogram
	SentToday       prometheus.Gauge
}

// NewMetrics registers the outreach metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EmailsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "smart_outreach_emails_sent_total",
			Help: "Total number of emails delivered to the transport",
		}),
		EmailsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smart_outreach_emails_failed_total",
			Help: "Total number of emails marked failed",
		}, []string{"reason"}),
		GateDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smart_outreach_gate_denials_total",
			Help: "Total number of sends or schedules refused by policy",
		}, []string{"reason"}),
		EmailsScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "smart_outreach_emails_scheduled_total",
			Help: "Total number of emails scheduled",
		}),
		RepliesDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "smart_outreach_replies_detected_total",
			Help: "Total number of contact replies detected",
		}),
		Batches: factory.NewCounter(prometheus.CounterOpts{
			Name: "smart_outreach_batches_total",
			Help: "Total number of dispatch batches run",
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "smart_outreach_batch_duration_seconds",
			Help:    "Time spent dispatching a batch",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800, 3600},
		}),
		SentToday: factory.NewGauge(prometheus.GaugeOpts{
			Name: "smart_outreach_sent_today",
			Help: "Emails sent since local midnight as of the last batch",
		}),
	}
}

// The helpers below accept a nil receiver so callers can run without metrics.

func (m *Metrics) Sent() {
	if m != nil {
		m.EmailsSent.Inc()
	}
}

func (m *Metrics) Failed(reason string) {
	if m != nil {
		m.EmailsFailed.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Denied(reason string) {
	if m != nil {
		m.GateDenials.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Scheduled() {
	if m != nil {
		m.EmailsScheduled.Inc()
	}
}

func (m *Metrics) Replied() {
	if m != nil {
		m.RepliesDetected.Inc()
	}
}

func (m *Metrics) Batch(d time.Duration, sentToday int64) {
	if m != nil {
		m.Batches.Inc()
		m.BatchDuration.Observe(d.Seconds())
		m.SentToday.Set(float64(sentToday))
	}
}
