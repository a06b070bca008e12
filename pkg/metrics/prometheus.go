package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"TrendPulse/internal/domain/models"
	"TrendPulse/internal/domain/repository"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	attempts      *prometheus.CounterVec
	backoff       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	growth        *prometheus.GaugeVec
	volume        *prometheus.GaugeVec
	errorsTotal   *prometheus.CounterVec
}

var _ repository.Metrics = (*Recorder)(nil)

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		attempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpulse_fetch_attempts_total",
				Help: "Requests made to the trends source by outcome",
			},
			[]string{"keyword", "outcome"},
		),
		backoff: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpulse_backoff_seconds_total",
				Help: "Time spent waiting out throttling and transient failures",
			},
			[]string{"keyword"},
		),
		fetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trendpulse_fetch_duration_seconds",
				Help:    "Duration of a window fetch including retries",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"keyword", "result"},
		),
		growth: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trendpulse_growth_percent",
				Help: "Last computed growth of the current window over the previous one",
			},
			[]string{"keyword"},
		),
		volume: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trendpulse_current_mean",
				Help: "Last computed mean interest of the current window",
			},
			[]string{"keyword"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

// RecordAttempt counts one source request.
func (r *Recorder) RecordAttempt(keyword, outcome string) {
	r.attempts.WithLabelValues(keyword, outcome).Inc()
}

// RecordBackoff adds a completed wait.
func (r *Recorder) RecordBackoff(keyword string, d time.Duration) {
	r.backoff.WithLabelValues(keyword).Add(d.Seconds())
}

// RecordFetch records a finished fetch.
func (r *Recorder) RecordFetch(keyword, result string, seconds float64) {
	r.fetchDuration.WithLabelValues(keyword, result).Observe(seconds)
}

// RecordGrowth records the latest comparison. The infinite case is exported as +Inf.
func (r *Recorder) RecordGrowth(keyword string, g models.GrowthResult) {
	r.growth.WithLabelValues(keyword).Set(g.GrowthPercent)
	r.volume.WithLabelValues(keyword).Set(g.CurrentMean)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
