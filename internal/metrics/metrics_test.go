package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters_Increment(t *testing.T) {
	before := testutil.ToFloat64(SearchCalls.WithLabelValues("empty"))
	SearchCalls.WithLabelValues("empty").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SearchCalls.WithLabelValues("empty")))

	JobRuns.WithLabelValues("success").Add(2)
	assert.GreaterOrEqual(t, testutil.ToFloat64(JobRuns.WithLabelValues("success")), 2.0)
}

func TestCircuitState_Gauge(t *testing.T) {
	CircuitState.WithLabelValues("anthropic").Set(1)
	assert.Equal(t, 1.0, testutil.ToFloat64(CircuitState.WithLabelValues("anthropic")))
}
