package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the auth counters exported at /metrics.
type Metrics struct {
	Logins        *prometheus.CounterVec
	Refreshes     *prometheus.CounterVec
	Failures      *prometheus.CounterVec
	Locks         *prometheus.CounterVec
	SweptTokens   prometheus.Counter
	SweptCaptchas prometheus.Counter
	SweepErrors   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_auth_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_auth_refreshes_total",
			Help: "Access token refreshes by outcome.",
		}, []string{"outcome"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_auth_lockout_failures_total",
			Help: "Failures recorded by the lockout engine.",
		}, []string{"namespace"}),
		Locks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "blog_auth_lockouts_total",
			Help: "Identifiers locked by the lockout engine.",
		}, []string{"namespace"}),
		SweptTokens: f.NewCounter(prometheus.CounterOpts{
			Name: "blog_auth_swept_refresh_tokens_total",
			Help: "Expired refresh tokens removed by the sweeper.",
		}),
		SweptCaptchas: f.NewCounter(prometheus.CounterOpts{
			Name: "blog_auth_swept_captchas_total",
			Help: "Expired captcha challenges removed by the sweeper.",
		}),
		SweepErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "blog_auth_sweep_errors_total",
			Help: "Sweeper ticks that failed or panicked.",
		}),
	}
}
