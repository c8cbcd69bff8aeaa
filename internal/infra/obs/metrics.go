package obs

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. It implements the bus Observer.
type Metrics struct {
	gatherer        prometheus.Gatherer
	messages        *prometheus.CounterVec
	messageDuration *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	jobRuns         *prometheus.CounterVec
	outboxPublished *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

func NewMetricsWithRegistry(registerer prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	return &Metrics{
		gatherer: gatherer,
		messages: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shortlet_bus_messages_total",
			Help: "Commands and queries dispatched, by outcome",
		}, []string{"kind", "key", "outcome"}),
		messageDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "shortlet_bus_message_duration_seconds",
			Help:    "Time spent handling commands and queries",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "key"}),
		httpRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shortlet_http_requests_total",
			Help: "HTTP requests served",
		}, []string{"method", "route", "status"}),
		httpDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "shortlet_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		jobRuns: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shortlet_job_runs_total",
			Help: "Scheduled job runs, by outcome",
		}, []string{"job", "outcome"}),
		outboxPublished: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shortlet_outbox_events_total",
			Help: "Outbox events handed to the broker, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) Observe(kind, key string, elapsed time.Duration, err error) {
	m.messages.WithLabelValues(kind, key, outcome(err)).Inc()
	m.messageDuration.WithLabelValues(kind, key).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveJob(job string, err error) {
	m.jobRuns.WithLabelValues(job, outcome(err)).Inc()
}

func (m *Metrics) ObserveOutbox(err error) {
	m.outboxPublished.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			existing, ok := already.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
