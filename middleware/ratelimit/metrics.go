package ratelimit

import (
	"admin-gateway/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics conta as decisões do rate limit por categoria e resultado
// (allowed|denied|bypassed|error).
type Metrics struct {
	decisions *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Rate limit decisions. Label \"outcome\" = allowed|denied|bypassed|error.",
		}, []string{"category", "outcome"}),
	}
}

func (m *Metrics) Observe(dec domain.Decision, err error) {
	m.decisions.WithLabelValues(string(dec.Category), outcome(dec, err)).Inc()
}

func outcome(dec domain.Decision, err error) string {
	switch {
	case err != nil:
		return "error"
	case dec.Bypassed:
		return "bypassed"
	case dec.Allowed:
		return "allowed"
	}
	return "denied"
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) { m.decisions.Describe(ch) }

func (m *Metrics) Collect(ch chan<- prometheus.Metric) { m.decisions.Collect(ch) }

var _ prometheus.Collector = &Metrics{}
