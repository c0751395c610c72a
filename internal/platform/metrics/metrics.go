// Package metrics exposes the intake counters and the /metrics handler.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Name:      "submissions_total",
			Help:      "Submit attempts by outcome.",
		},
		[]string{"outcome"},
	)

	handoffReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Name:      "handoff_reads_total",
			Help:      "Handoff slot reads by result.",
		},
		[]string{"result"},
	)

	sessionsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "intake",
			Name:      "sessions_started_total",
			Help:      "Intake sessions opened.",
		},
	)
)

// Recorder receives intake events. The zero value of Prometheus records to
// the default registry.
type Recorder interface {
	Submission(outcome string)
	HandoffRead(found bool)
	SessionStarted()
}

// Prometheus is the Recorder backed by the package counters.
type Prometheus struct{}

func (Prometheus) Submission(outcome string) {
	submissionsTotal.WithLabelValues(outcome).Inc()
}

func (Prometheus) HandoffRead(found bool) {
	result := "empty"
	if found {
		result = "found"
	}
	handoffReadsTotal.WithLabelValues(result).Inc()
}

func (Prometheus) SessionStarted() {
	sessionsStartedTotal.Inc()
}

// Nop discards every event.
type Nop struct{}

func (Nop) Submission(string) {}
func (Nop) HandoffRead(bool)  {}
func (Nop) SessionStarted()   {}

// Handler serves the default registry in the Prometheus text format.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
