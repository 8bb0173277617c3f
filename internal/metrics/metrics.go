package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Observer = &Metrics{
	prometheus: NewPrometheusMetrics(),
}

func init() {
	prometheus.MustRegister(
		Observer.prometheus.Outcomes,
		Observer.prometheus.Evaluation,
		Observer.prometheus.Signals,
	)
}

type Metrics struct {
	prometheus Prometheus
}

// Outcome counts a terminal evaluation status for the ticker.
func (m *Metrics) Outcome(ticker, status string) {
	m.prometheus.Outcomes.WithLabelValues(ticker, status).Inc()
}

// Evaluation observes the duration of an evaluation since the given start.
func (m *Metrics) Evaluation(action string, start time.Time) {
	m.prometheus.Evaluation.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

// Signal counts an ingress request.
func (m *Metrics) Signal(action string, code string) {
	m.prometheus.Signals.WithLabelValues(action, code).Inc()
}

// Handler exposes the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
