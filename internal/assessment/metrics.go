package assessment

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_assessment_calls_total",
			Help: "Assessment operations by outcome (success, fallback, quota, skipped)",
		},
		[]string{"operation", "outcome"},
	)

	callDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "interview_assessment_call_duration_seconds",
			Help:    "Duration of external assessment calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"operation"},
	)

	availableGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "interview_assessment_available",
			Help: "1 when the external assessment service is considered available",
		},
	)
)

func observeCall(op Operation, outcome string, elapsed time.Duration) {
	callsTotal.WithLabelValues(string(op), outcome).Inc()
	if outcome != outcomeSkipped && elapsed > 0 {
		callDuration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
	}
}

func setAvailableGauge(up bool) {
	if up {
		availableGauge.Set(1)
		return
	}
	availableGauge.Set(0)
}
