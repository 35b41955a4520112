package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slabbiller_requests_total",
			Help: "Total number of API requests per route",
		},
		[]string{"route"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slabbiller_request_duration_seconds",
			Help:    "Request duration in seconds per route and method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slabbiller_request_errors_total",
			Help: "Total number of error responses per route and status code",
		},
		[]string{"route", "code"},
	)
)

var (
	EstimatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slabbiller_estimates_total",
			Help: "Total number of bills computed per tariff and outcome",
		},
		[]string{"tariff", "outcome"},
	)

	EstimatedUnits = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slabbiller_estimated_units",
			Help:    "Monthly units billed per tariff",
			Buckets: []float64{50, 100, 150, 200, 300, 500, 800, 1200},
		},
		[]string{"tariff"},
	)

	PublishFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slabbiller_publish_failures_total",
			Help: "Total number of failed estimate publications",
		},
	)

	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slabbiller_alerts_total",
			Help: "Total number of high usage alerts per channel and outcome",
		},
		[]string{"channel", "outcome"},
	)
)

// ObserveRequest records one API request.
func ObserveRequest(route, method string, startedAt time.Time) {
	RequestsTotal.WithLabelValues(route).Inc()
	RequestDurationSeconds.WithLabelValues(route, method).Observe(time.Since(startedAt).Seconds())
}

// ObserveEstimate records the outcome of one bill computation.
func ObserveEstimate(tariff string, units float64, err error) {
	if err != nil {
		EstimatesTotal.WithLabelValues(tariff, "error").Inc()
		return
	}
	EstimatesTotal.WithLabelValues(tariff, "ok").Inc()
	EstimatedUnits.WithLabelValues(tariff).Observe(units)
}

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slabbiller_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slabbiller_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slabbiller_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
