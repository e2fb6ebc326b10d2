package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordAnalysis("AAPL", "BUY")
	r.RecordAnalysis("AAPL", "BUY")
	r.RecordError("bar_source")
	r.RecordLastPrice("AAPL", 187.5)
	r.RecordLatency("analyze", 0.02)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.analyses.WithLabelValues("AAPL", "BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errors.WithLabelValues("bar_source")))
	assert.Equal(t, 187.5, testutil.ToFloat64(r.lastPrice.WithLabelValues("AAPL")))

	n, err := testutil.GatherAndCount(reg, "finscope_operation_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
