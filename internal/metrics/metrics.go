// Package metrics exposes Prometheus instruments for the generation pipeline.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the pipeline instruments.
type Collector struct {
	registry *prometheus.Registry

	jobsSubmitted     prometheus.Counter
	quotaRejected     prometheus.Counter
	dispatchPublished prometheus.Counter
	dispatchErrors    *prometheus.CounterVec
	jobsRedispatched  prometheus.Counter
	jobsFinished      *prometheus.CounterVec
	jobsPublished     prometheus.Counter
	generationLatency prometheus.Histogram
	jobsStuck         prometheus.Gauge
	streamsOpen       prometheus.Gauge
}

// NewCollector creates a collector on its own registry, including Go and
// process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "genvid_jobs_submitted_total",
			Help: "Generation jobs accepted and stored as QUEUED.",
		}),
		quotaRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "genvid_quota_rejected_total",
			Help: "Submissions rejected by the daily quota.",
		}),
		dispatchPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "genvid_dispatch_published_total",
			Help: "Dispatch messages emitted.",
		}),
		dispatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genvid_dispatch_errors_total",
			Help: "Dispatch failures by stage (publish, trigger).",
		}, []string{"stage"}),
		jobsRedispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "genvid_jobs_redispatched_total",
			Help: "QUEUED jobs re-published by the reconciler.",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genvid_jobs_finished_total",
			Help: "Jobs reaching a terminal status.",
		}, []string{"status"}),
		jobsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "genvid_jobs_published_total",
			Help: "Jobs promoted to published videos.",
		}),
		generationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "genvid_generation_seconds",
			Help:    "Wall time of one worker execution from claim to terminal status.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		jobsStuck: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "genvid_jobs_stuck_running",
			Help: "Jobs RUNNING longer than the configured bound at the last sweep.",
		}),
		streamsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "genvid_status_streams_open",
			Help: "Connected status stream clients.",
		}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.jobsSubmitted,
		c.quotaRejected,
		c.dispatchPublished,
		c.dispatchErrors,
		c.jobsRedispatched,
		c.jobsFinished,
		c.jobsPublished,
		c.generationLatency,
		c.jobsStuck,
		c.streamsOpen,
	)
	return c
}

// Handler serves the registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) JobSubmitted() {
	if c != nil {
		c.jobsSubmitted.Inc()
	}
}

func (c *Collector) QuotaRejected() {
	if c != nil {
		c.quotaRejected.Inc()
	}
}

func (c *Collector) DispatchPublished() {
	if c != nil {
		c.dispatchPublished.Inc()
	}
}

// DispatchError counts a failure at stage "publish" or "trigger".
func (c *Collector) DispatchError(stage string) {
	if c != nil {
		c.dispatchErrors.WithLabelValues(stage).Inc()
	}
}

func (c *Collector) JobRedispatched() {
	if c != nil {
		c.jobsRedispatched.Inc()
	}
}

// JobFinished records a terminal status and, when positive, the execution time.
func (c *Collector) JobFinished(status string, seconds float64) {
	if c == nil {
		return
	}
	c.jobsFinished.WithLabelValues(status).Inc()
	if seconds > 0 {
		c.generationLatency.Observe(seconds)
	}
}

func (c *Collector) JobPublished() {
	if c != nil {
		c.jobsPublished.Inc()
	}
}

func (c *Collector) SetStuckRunning(n int) {
	if c != nil {
		c.jobsStuck.Set(float64(n))
	}
}

// StreamOpened increments the open stream gauge and returns its decrement.
func (c *Collector) StreamOpened() func() {
	if c == nil {
		return func() {}
	}
	c.streamsOpen.Inc()
	return c.streamsOpen.Dec
}
