package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the scanner and action paths
type Metrics struct {
	ScansTotal      prometheus.Counter
	DispatchSent    prometheus.Counter
	DispatchFailed  prometheus.Counter
	DispatchSkipped prometheus.Counter
	ActionsTotal    *prometheus.CounterVec
}

// New registers and returns the application collectors
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ScansTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "studyremind",
			Name:      "scans_total",
			Help:      "Number of completed scanner passes.",
		}),
		DispatchSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "studyremind",
			Name:      "dispatch_sent_total",
			Help:      "Number of reminder notifications successfully sent.",
		}),
		DispatchFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "studyremind",
			Name:      "dispatch_failed_total",
			Help:      "Number of dispatch attempts that failed at the transport.",
		}),
		DispatchSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "studyremind",
			Name:      "dispatch_skipped_total",
			Help:      "Number of dispatch candidates skipped because the occurrence was already sent.",
		}),
		ActionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyremind",
			Name:      "actions_total",
			Help:      "Number of processed user actions by type.",
		}, []string{"action"}),
	}
}
