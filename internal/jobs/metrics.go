// Package jobmetrics instruments background task runs.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the task collectors.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
}

var defaultMetrics = sync.OnceValue(func() *Metrics {
	return register(prometheus.DefaultRegisterer)
})

// NewMetrics registers the collectors with reg, or returns the process-wide set on
// the default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return defaultMetrics()
	}
	return register(reg)
}

func register(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_jobs_total",
			Help: "Task runs by job and status.",
		}, []string{"job", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_job_duration_seconds",
			Help:    "Task run duration.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"job"}),
		inFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backoffice_jobs_in_flight",
			Help: "Task runs currently executing.",
		}, []string{"job"}),
		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "backoffice_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}, []string{"job"}),
	}
}

// Tracker measures one run. A Tracker from a nil *Metrics records nothing.
type Tracker struct {
	m     *Metrics
	job   string
	start time.Time
}

// Track marks job as running.
func (m *Metrics) Track(job string) *Tracker {
	if m != nil {
		m.inFlight.WithLabelValues(job).Inc()
	}
	return &Tracker{m: m, job: job, start: time.Now()}
}

// End records the outcome of the run and returns err unchanged.
func (t *Tracker) End(err error) error {
	if t == nil || t.m == nil {
		return err
	}
	t.m.inFlight.WithLabelValues(t.job).Dec()
	t.m.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	if err != nil {
		t.m.runs.WithLabelValues(t.job, "failure").Inc()
		return err
	}
	t.m.runs.WithLabelValues(t.job, "success").Inc()
	t.m.lastSuccess.WithLabelValues(t.job).SetToCurrentTime()
	return nil
}
