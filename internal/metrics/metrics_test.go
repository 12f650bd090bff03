package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistry(t *testing.T) {
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
}

func TestRecordOpportunity(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordOpportunity("ARBITRAGE", 0.015)
		RecordOpportunity("VALUE", 0.06)
	})
}

func TestRecordCancellation(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordCancellation("stale")
		RecordCancellation("odds_shifted")
		RecordCancellation("unavailable")
	})
}

func TestRecordScanCycle(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name          string
		duration      float64
		opportunities int
	}{
		{"fast empty scan", 0.2, 0},
		{"busy scan", 4.7, 12},
		{"slow scan", 45.0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				RecordScanCycle(tt.duration, tt.opportunities)
			})
		})
	}
}

func TestHandler(t *testing.T) {
	InitRegistry()
	assert.NotNil(t, Handler())
}
