package avatar

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts fallback chain steps and upload outcomes.
type Metrics struct {
	fetchSteps *prometheus.CounterVec
	uploads    *prometheus.CounterVec
}

// NewMetrics registers avatar metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetchSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "avatar_fetch_steps_total",
			Help: "Avatar fetch attempts by fallback step and result.",
		}, []string{"step", "result"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "avatar_uploads_total",
			Help: "Avatar uploads by backend and outcome.",
		}, []string{"backend", "outcome"}),
	}
	reg.MustRegister(m.fetchSteps, m.uploads)
	return m
}

func (m *Metrics) step(step, result string) {
	if m == nil {
		return
	}
	m.fetchSteps.WithLabelValues(step, result).Inc()
}

func (m *Metrics) upload(backend, outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(backend, outcome).Inc()
}
