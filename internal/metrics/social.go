package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Social-login Prometheus metrics. Defined in a standalone package to avoid
// import cycles between the orchestrator and HTTP packages.

var (
	SocialLoginStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_login_started_total",
		Help: "Flujos de social login iniciados, por provider",
	}, []string{"provider"})

	SocialLoginCallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "social_login_callbacks_total",
		Help: "Callbacks procesados, por provider y resultado (existing|new|linking_required|error)",
	}, []string{"provider", "outcome"})

	SocialStateFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "social_state_failures_total",
		Help: "Validaciones de state CSRF fallidas (posible ataque o expiración)",
	})
)

// RegisterSocial registers the social-login metrics on the given registry
// (or default if nil).
func RegisterSocial(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{SocialLoginStarted, SocialLoginCallbacks, SocialStateFailures} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
