package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"ProbesTotal", ProbesTotal},
		{"ProbeDuration", ProbeDuration},
		{"StaleGenerationsTotal", StaleGenerationsTotal},
		{"SettlementsTotal", SettlementsTotal},
		{"ActiveSchedulers", ActiveSchedulers},
		{"StreamClients", StreamClients},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.metric)
		})
	}
}

func TestProbesTotalOutcomes(t *testing.T) {
	for _, outcome := range []string{ProbeOutcomeSuccess, ProbeOutcomeFallback, ProbeOutcomeCached} {
		counter := ProbesTotal.WithLabelValues(outcome)
		before := testutil.ToFloat64(counter)
		counter.Inc()
		assert.Equal(t, before+1, testutil.ToFloat64(counter), outcome)
	}
}
