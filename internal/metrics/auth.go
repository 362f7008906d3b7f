// Package metrics defines the Prometheus metrics for the authentication
// flows. Standalone so the HTTP and auth packages can both record without
// import cycles.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authgate_login_attempts_total",
		Help: "Login attempts by strategy and outcome",
	}, []string{"strategy", "outcome"})

	Registrations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authgate_registrations_total",
		Help: "Registration attempts by outcome",
	}, []string{"outcome"})

	RefreshRotations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authgate_refresh_rotations_total",
		Help: "Refresh token rotations by outcome (rotated or rejected)",
	}, []string{"outcome"})

	Logouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authgate_logouts_total",
		Help: "Logout calls by strategy",
	}, []string{"strategy"})

	SessionCollisions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authgate_session_id_collisions_total",
		Help: "Session id collisions detected at insert time",
	})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "authgate_http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"method", "path", "status"})
)

// Register registers the auth metrics on the given registry (or default if
// nil). Re-registration is tolerated so tests can wire repeatedly.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		LoginAttempts,
		Registrations,
		RefreshRotations,
		Logouts,
		SessionCollisions,
		RequestDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
