package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Counters(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("chat_messages_created", map[string]string{"role": "customer"}, "Messages created")
	r.IncrementCounter("chat_messages_created", map[string]string{"role": "customer"}, "Messages created")
	r.AddToCounter("chat_messages_created", 3, map[string]string{"role": "staff"}, "Messages created")

	all := r.GetAllMetrics()
	counters := all["counters"].(map[string]*Metric)

	customer := counters["chat_messages_created_role:customer"]
	require.NotNil(t, customer)
	assert.Equal(t, float64(2), customer.Value)

	staff := counters["chat_messages_created_role:staff"]
	require.NotNil(t, staff)
	assert.Equal(t, float64(3), staff.Value)
}

func TestRegistry_Timers(t *testing.T) {
	r := NewRegistry()

	for i := 1; i <= 20; i++ {
		r.RecordTimer("request_duration", time.Duration(i)*time.Millisecond, nil, "Request duration")
	}

	all := r.GetAllMetrics()
	timers := all["timers"].(map[string]*TimerMetric)

	timer := timers["request_duration"]
	require.NotNil(t, timer)
	assert.Equal(t, int64(20), timer.Count)
	assert.Equal(t, float64(1), timer.Min)
	assert.Equal(t, float64(20), timer.Max)
	assert.InDelta(t, 10.5, timer.Average, 0.01)
	assert.Greater(t, timer.P95, timer.Average)
}

func TestRegistry_Gauges(t *testing.T) {
	r := NewRegistry()

	r.SetGauge("active_watchers", 3, nil, "Running watchers")
	r.SetGauge("active_watchers", 5, nil, "Running watchers")

	all := r.GetAllMetrics()
	gauges := all["gauges"].(map[string]*Metric)

	gauge := gauges["active_watchers"]
	require.NotNil(t, gauge)
	assert.Equal(t, float64(5), gauge.Value)
}

func TestMetricKey_LabelOrderStable(t *testing.T) {
	a := metricKey("m", map[string]string{"x": "1", "y": "2"})
	b := metricKey("m", map[string]string{"y": "2", "x": "1"})
	assert.Equal(t, a, b)
}

func TestPercentile(t *testing.T) {
	samples := []float64{5, 1, 4, 2, 3}
	assert.Equal(t, float64(5), percentile(samples, 0.95))
	assert.Equal(t, float64(0), percentile(nil, 0.95))
}

func TestGlobalRegistry(t *testing.T) {
	IncrementCounter("global_test_counter", nil, "test")
	all := GetAllMetrics()
	counters := all["counters"].(map[string]*Metric)
	assert.NotNil(t, counters["global_test_counter"])
}
