package pool

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "scorepool"

// failure kinds used as the "kind" label of request failures.
const (
	failureTerminated   = "terminated"
	failureUnitFault    = "unit_fault"
	failureRequestError = "request_error"
	failureNoLiveUnits  = "no_live_units"
	failureDispatch     = "dispatch"
)

type metrics struct {
	requests   *prometheus.CounterVec
	chunks     *prometheus.CounterVec
	failures   *prometheus.CounterVec
	unitFaults prometheus.Counter
	respawns   prometheus.Counter
	pending    prometheus.Gauge
	readyUnits prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Batch requests dispatched, by operation and dispatch mode.",
		}, []string{"op", "mode"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "chunks_dispatched_total",
			Help:      "Messages posted to worker units, by operation.",
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "request_failures_total",
			Help:      "Requests rejected, by failure kind.",
		}, []string{"kind"}),
		unitFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "unit_faults_total",
			Help:      "Worker units that became unusable.",
		}),
		respawns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "unit_respawns_total",
			Help:      "Replacement worker units spawned after a fault.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "pending_requests",
			Help:      "Requests awaiting their final response.",
		}),
		readyUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "ready_units",
			Help:      "Worker units currently accepting work.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.requests,
			m.chunks,
			m.failures,
			m.unitFaults,
			m.respawns,
			m.pending,
			m.readyUnits,
		)
	}

	return m
}
