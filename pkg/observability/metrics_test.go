package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryMetrics_Counter(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Counter(MetricPurchases, 1)
	m.Counter(MetricPurchases, 2)
	assert.Equal(t, int64(3), m.GetCounter(MetricPurchases))

	m.Counter(MetricPurchases, 1, T("offering", "default"))
	assert.Equal(t, int64(1), m.GetCounter(MetricPurchases, T("offering", "default")))
	assert.Equal(t, int64(3), m.GetCounter(MetricPurchases))
}

func TestInMemoryMetrics_Gauge(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Gauge("subscriptions.offerings.count", 2)
	m.Gauge("subscriptions.offerings.count", 5)
	assert.Equal(t, float64(5), m.GetGauge("subscriptions.offerings.count"))
}

func TestInMemoryMetrics_Timing(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Timing("subscriptions.offerings.duration", 10*time.Millisecond)
	m.Timing("subscriptions.offerings.duration", 20*time.Millisecond)

	timings := m.GetTimings("subscriptions.offerings.duration")
	assert.Len(t, timings, 2)
}

func TestInMemoryMetrics_Reset(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Counter(MetricPurchases, 1)
	m.Reset()
	assert.Equal(t, int64(0), m.GetCounter(MetricPurchases))
}

func TestNoopMetricsImplementsInterface(t *testing.T) {
	var _ Metrics = NoopMetrics{}
	var _ Metrics = (*InMemoryMetrics)(nil)
}
