// Package monitoring collects Prometheus metrics for the dashboard.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Login session metrics
	LoginSessionsActive prometheus.Gauge
	LoginSessionsTotal  *prometheus.CounterVec

	// Quota metrics
	QuotaRefreshes *prometheus.CounterVec

	// Proxy service control metrics
	ServiceActions *prometheus.CounterVec

	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates and registers the metric collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		LoginSessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dashboard_login_sessions_active",
				Help: "Number of in-flight interactive login sessions",
			},
		),
		LoginSessionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_login_sessions_total",
				Help: "Login sessions by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		QuotaRefreshes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_quota_refreshes_total",
				Help: "Quota refresh attempts by result",
			},
			[]string{"result"},
		),
		ServiceActions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_service_actions_total",
				Help: "Proxy service control actions",
			},
			[]string{"action"},
		),
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dashboard_uptime_seconds",
				Help: "Dashboard uptime in seconds",
			},
		),
	}

	go m.trackUptime()
	return m
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordLoginStarted records a new login session.
func (m *Metrics) RecordLoginStarted(provider string) {
	m.LoginSessionsActive.Inc()
	m.LoginSessionsTotal.WithLabelValues(provider, "started").Inc()
}

// RecordLoginFinished records a login session reaching a terminal state.
func (m *Metrics) RecordLoginFinished(provider, outcome string) {
	m.LoginSessionsActive.Dec()
	m.LoginSessionsTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordQuotaRefresh records one quota refresh attempt.
func (m *Metrics) RecordQuotaRefresh(result string) {
	m.QuotaRefreshes.WithLabelValues(result).Inc()
}

// RecordServiceAction records a proxy start/stop/restart.
func (m *Metrics) RecordServiceAction(action string) {
	m.ServiceActions.WithLabelValues(action).Inc()
}

func (m *Metrics) trackUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}
