package metrics

import "github.com/prometheus/client_golang/prometheus"

// ClientMetrics counts GitHub API client activity for one run.
type ClientMetrics struct {
	requests          *prometheus.CounterVec
	rateLimitWaits    prometheus.Counter
	statsPollAttempts prometheus.Counter
}

// NewClientMetrics creates client instruments and registers them on the
// given registry when one is supplied.
func NewClientMetrics(registry *prometheus.Registry) *ClientMetrics {
	m := &ClientMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ghreport_api_requests_total",
			Help: "GitHub API requests performed, by outcome.",
		}, []string{"outcome"}),
		rateLimitWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghreport_rate_limit_waits_total",
			Help: "Pauses taken because the GitHub API reported a rate limit.",
		}),
		statsPollAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghreport_stats_poll_attempts_total",
			Help: "Requests made against the contributor statistics endpoint.",
		}),
	}
	if registry != nil {
		registry.MustRegister(m.requests, m.rateLimitWaits, m.statsPollAttempts)
	}
	return m
}

// ObserveRequest records one completed API request. Safe on a nil receiver.
func (m *ClientMetrics) ObserveRequest(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

// ObserveRateLimitWait records one rate-limit pause. Safe on a nil receiver.
func (m *ClientMetrics) ObserveRateLimitWait() {
	if m == nil {
		return
	}
	m.rateLimitWaits.Inc()
}

// ObserveStatsPoll records one statistics poll request. Safe on a nil receiver.
func (m *ClientMetrics) ObserveStatsPoll() {
	if m == nil {
		return
	}
	m.statsPollAttempts.Inc()
}
