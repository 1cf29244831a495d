// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "gophid"

// Result label values.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

type Metrics struct {
	Registry *prometheus.Registry

	Registrations *prometheus.CounterVec
	Verifications *prometheus.CounterVec
	Logins        *prometheus.CounterVec
	AvatarUploads *prometheus.CounterVec
	MailDelivery  *prometheus.CounterVec
	MailQueued    prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Account registration attempts by result.",
		}, []string{"result"}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Email verification attempts by result.",
		}, []string{"result"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		AvatarUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "avatar_uploads_total",
			Help:      "Avatar uploads by result.",
		}, []string{"result"}),
		MailDelivery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_delivery_total",
			Help:      "Outgoing mail delivery attempts by result.",
		}, []string{"result"}),
		MailQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mail_queue_length",
			Help:      "Messages waiting in the outbox.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Registrations,
		m.Verifications,
		m.Logins,
		m.AvatarUploads,
		m.MailDelivery,
		m.MailQueued,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

// Result returns the result label for err.
func Result(err error) string {
	if err != nil {
		return ResultFailed
	}
	return ResultOK
}

// The Observe helpers are no-ops on a nil *Metrics.

func (m *Metrics) ObserveRegistration(err error) {
	if m != nil {
		m.Registrations.WithLabelValues(Result(err)).Inc()
	}
}

func (m *Metrics) ObserveVerification(err error) {
	if m != nil {
		m.Verifications.WithLabelValues(Result(err)).Inc()
	}
}

func (m *Metrics) ObserveLogin(err error) {
	if m != nil {
		m.Logins.WithLabelValues(Result(err)).Inc()
	}
}

func (m *Metrics) ObserveAvatarUpload(err error) {
	if m != nil {
		m.AvatarUploads.WithLabelValues(Result(err)).Inc()
	}
}
