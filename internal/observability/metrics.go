package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics держит счетчики и gauge для тракта приема и трансляции.
type Metrics struct {
	SubmissionsTotal    *prometheus.CounterVec // label: outcome
	SubmissionErrors    prometheus.Counter
	BroadcastsTotal     prometheus.Counter
	BroadcastDrops      prometheus.Counter
	ConnectedDashboards prometheus.Gauge
}

// NewMetrics создает и регистрирует метрики в реестре Prometheus по умолчанию
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SubmissionsTotal,
		m.SubmissionErrors,
		m.BroadcastsTotal,
		m.BroadcastDrops,
		m.ConnectedDashboards,
	)
	return m
}

// NewMetricsForTesting создает метрики без регистрации, чтобы избежать
// паники "already registered" при параллельных тестах
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_backend",
			Name:      "submissions_total",
			Help:      "Total report submissions by verification outcome.",
		}, []string{"outcome"}),
		SubmissionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_backend",
			Name:      "submission_errors_total",
			Help:      "Total submissions aborted by infrastructure failures.",
		}),
		BroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_backend",
			Name:      "broadcasts_total",
			Help:      "Total events fanned out to dashboard connections.",
		}),
		BroadcastDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_backend",
			Name:      "broadcast_drops_total",
			Help:      "Connections dropped during fan-out (slow consumer or write failure).",
		}),
		ConnectedDashboards: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_backend",
			Name:      "connected_dashboards",
			Help:      "Number of live dashboard connections.",
		}),
	}
}
