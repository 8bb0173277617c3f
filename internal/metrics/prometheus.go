package metrics

import "github.com/prometheus/client_golang/prometheus"

type Prometheus struct {
	Outcomes   *prometheus.CounterVec
	Evaluation *prometheus.HistogramVec
	Signals    *prometheus.CounterVec
}

func NewPrometheusMetrics() Prometheus {
	return Prometheus{
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_router",
				Name:      "outcomes_total",
				Help:      "evaluated signals by terminal status",
			}, []string{"ticker", "status"}),
		Evaluation: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_router",
				Name:      "evaluation_seconds",
				Help:      "duration of a signal evaluation including broker calls",
				Buckets:   prometheus.DefBuckets,
			}, []string{"action"}),
		Signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_router",
				Name:      "signals_total",
				Help:      "signals received by the ingress",
			}, []string{"action", "code"}),
	}
}
