// Package metrics holds the Prometheus collectors of the service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	purchases       *prometheus.CounterVec
	milesDebited    prometheus.Counter
	accrualBookings *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"path", "method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		purchases: f.NewCounterVec(prometheus.CounterOpts{
			Name: "purchases_total",
			Help: "Purchase attempts by outcome",
		}, []string{"outcome"}),
		milesDebited: f.NewCounter(prometheus.CounterOpts{
			Name: "miles_debited_total",
			Help: "Miles spent on purchases",
		}),
		accrualBookings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "accrual_bookings_total",
			Help: "Bookings processed by the accrual job by result",
		}, []string{"result"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notifications handed to the transport",
		}, []string{"type", "result"}),
	}
}

func (m *Metrics) ObserveHTTP(path, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, status).Inc()
	m.httpDuration.WithLabelValues(path, method).Observe(seconds)
}

func (m *Metrics) Purchase(outcome string, milesSpent int64) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(outcome).Inc()
	if milesSpent > 0 {
		m.milesDebited.Add(float64(milesSpent))
	}
}

func (m *Metrics) AccrualBooking(result string) {
	if m == nil {
		return
	}
	m.accrualBookings.WithLabelValues(result).Inc()
}

func (m *Metrics) Notification(typ, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(typ, result).Inc()
}
