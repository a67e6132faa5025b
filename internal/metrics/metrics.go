// Package metrics holds process-wide observability counters for the job
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsSucceeded prometheus.Counter
	JobsFailed    prometheus.Counter
	ActiveJobs    prometheus.Gauge

	StageDuration *prometheus.HistogramVec
	StageFailures *prometheus.CounterVec

	LogPolls        prometheus.Counter
	LogPollFailures prometheus.Counter
	UploadAttempts  prometheus.Counter
	PendingResumed  prometheus.Counter
}

// New registers the metric set against reg. Tests pass a fresh registry;
// main passes prometheus.DefaultRegisterer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		JobsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Total number of jobs submitted to the orchestrator",
		}),
		JobsSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_succeeded_total",
			Help:      "Total number of jobs that reached verified upload",
		}),
		JobsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Total number of jobs that terminated in failure",
		}),
		ActiveJobs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_jobs",
			Help:      "Number of jobs currently being driven",
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"stage"}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Stage failures after retry exhaustion",
		}, []string{"stage"}),
		LogPolls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_polls_total",
			Help:      "Remote log transcript reads",
		}),
		LogPollFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_poll_failures_total",
			Help:      "Transient remote log read failures",
		}),
		UploadAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_attempts_total",
			Help:      "Artifact upload attempts, including retries",
		}),
		PendingResumed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_resumed_total",
			Help:      "Pending uploads re-driven at startup",
		}),
	}
}

// TrackStage times f and records its outcome under the stage label.
func (m *Metrics) TrackStage(stage string, f func() error) error {
	start := time.Now()
	err := f()
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
	return err
}

// TrackJob brackets a whole job execution.
func (m *Metrics) TrackJob(f func() error) error {
	m.JobsSubmitted.Inc()
	m.ActiveJobs.Inc()
	defer m.ActiveJobs.Dec()

	err := f()
	if err != nil {
		m.JobsFailed.Inc()
		return err
	}
	m.JobsSucceeded.Inc()
	return nil
}

// Handler serves the default registry over HTTP.
func Handler() http.Handler {
	return promhttp.Handler()
}
