package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	DashboardLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trendpulse",
			Subsystem: "dashboard",
			Name:      "latency_seconds",
			Help:      "Latency of dashboard endpoints",
			Buckets:   []float64{0.05, 0.25, 1, 5, 30, 60, 300},
		},
		[]string{"endpoint"},
	)

	DashboardErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendpulse",
			Subsystem: "dashboard",
			Name:      "errors_total",
			Help:      "Errors by dashboard endpoint and reason",
		},
		[]string{"endpoint", "reason"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(DashboardLatency, DashboardErrors)
	})
}
