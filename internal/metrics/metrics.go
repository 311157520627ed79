// Package metrics exposes Prometheus collectors for the forecasting service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vyaparsaathi"

// Recorder owns a private registry. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry        *prometheus.Registry
	forecasts       *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	skuFailures     *prometheus.CounterVec
	alerts          *prometheus.CounterVec
	batchDuration   prometheus.Histogram
	requestDuration *prometheus.HistogramVec
}

// New constructs the recorder and registers every collector.
func New() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		forecasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "forecasts_total",
			Help:      "Forecasts produced, by methodology.",
		}, []string{"methodology"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "fallbacks_total",
			Help:      "Degraded paths taken because a collaborator failed.",
		}, []string{"collaborator"}),
		skuFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "sku_failures_total",
			Help:      "SKUs that produced no result, by error kind.",
		}, []string{"kind"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "alerts_total",
			Help:      "Risk alerts raised, by type and severity.",
		}, []string{"type", "severity"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of forecast batches.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for inbound HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	for _, c := range []prometheus.Collector{
		r.forecasts, r.fallbacks, r.skuFailures, r.alerts, r.batchDuration, r.requestDuration,
	} {
		if err := r.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Forecast(methodology string) {
	if r == nil {
		return
	}
	r.forecasts.WithLabelValues(methodology).Inc()
}

func (r *Recorder) Fallback(collaborator string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(collaborator).Inc()
}

func (r *Recorder) SKUFailure(kind string) {
	if r == nil {
		return
	}
	r.skuFailures.WithLabelValues(kind).Inc()
}

func (r *Recorder) Alert(alertType, severity string) {
	if r == nil {
		return
	}
	r.alerts.WithLabelValues(alertType, severity).Inc()
}

func (r *Recorder) BatchDuration(d time.Duration) {
	if r == nil {
		return
	}
	r.batchDuration.Observe(d.Seconds())
}

func (r *Recorder) Request(method, route, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.requestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
