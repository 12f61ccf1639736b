package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsOnSeparateRegistries(t *testing.T) {
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())

	a.Sent()
	a.Failed("blacklisted")
	a.Denied("daily_limit")
	a.Batch(2*time.Second, 7)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.EmailsSent))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.EmailsSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.EmailsFailed.WithLabelValues("blacklisted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.GateDenials.WithLabelValues("daily_limit")))
	assert.Equal(t, 7.0, testutil.ToFloat64(a.SentToday))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Sent()
		m.Failed("x")
		m.Denied("x")
		m.Scheduled()
		m.Replied()
		m.Batch(time.Second, 1)
	})
}
