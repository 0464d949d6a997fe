// Package metrics holds the Prometheus collectors of the scheduler server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SchedulerRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redditscheduler_runs_total",
		Help: "Total batch submission runs",
	})
	SchedulerPosts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redditscheduler_posts_total",
		Help: "Posts processed by the batch job, by outcome",
	}, []string{"result"})
	SchedulerRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "redditscheduler_run_duration_seconds",
		Help:    "Batch submission run duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	ProviderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redditscheduler_provider_requests_total",
		Help: "Requests sent to the provider API",
	}, []string{"endpoint", "code"})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redditscheduler_http_requests_total",
		Help: "Handled API requests",
	}, []string{"method", "route", "code"})
)

func init() {
	prometheus.MustRegister(SchedulerRuns, SchedulerPosts, SchedulerRunDuration, ProviderRequests, HTTPRequests)
}

// ObserveRun records one finished batch run.
func ObserveRun(start time.Time, succeeded, failed int) {
	SchedulerRuns.Inc()
	SchedulerRunDuration.Observe(time.Since(start).Seconds())
	SchedulerPosts.WithLabelValues("sent").Add(float64(succeeded))
	SchedulerPosts.WithLabelValues("failed").Add(float64(failed))
}

// ObserveProviderRequest counts a provider call; code 0 means transport error.
func ObserveProviderRequest(endpoint string, code int) {
	ProviderRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

func ObserveHTTPRequest(method, route string, code int) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}
