package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers its metrics on a private registry.
type Collector struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rateLimited prometheus.Counter
	statements  *prometheus.CounterVec
	netPay      *prometheus.CounterVec
	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

func New() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truckbooks_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "truckbooks_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "truckbooks_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
		statements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truckbooks_statements_generated_total",
			Help: "Pay statements generated by driver payment type.",
		}, []string{"payment_type"}),
		netPay: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truckbooks_statements_net_pay_dollars_total",
			Help: "Sum of positive net pay on generated statements.",
		}, []string{"payment_type"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truckbooks_job_runs_total",
			Help: "Background job runs by type and outcome.",
		}, []string{"job", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "truckbooks_job_duration_seconds",
			Help:    "Background job latency by type.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"job"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.requests, c.duration, c.rateLimited, c.statements, c.netPay, c.jobRuns, c.jobDuration,
	)
	return c
}

func (c *Collector) Record(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.duration.WithLabelValues(route).Observe(duration.Seconds())
	if status == http.StatusTooManyRequests {
		c.rateLimited.Inc()
	}
}

func (c *Collector) StatementGenerated(paymentType string, netPay float64) {
	if paymentType == "" {
		paymentType = "unknown"
	}
	c.statements.WithLabelValues(paymentType).Inc()
	if netPay > 0 {
		c.netPay.WithLabelValues(paymentType).Add(netPay)
	}
}

func (c *Collector) JobFinished(jobType, status string, duration time.Duration) {
	c.jobRuns.WithLabelValues(jobType, status).Inc()
	c.jobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// Handler exposes the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
