package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures lifecycle events emitted by the application.
//
// Implementations should be inexpensive to call because hooks are executed
// inline with the run and connect paths.
type Collector interface {
	IncRun(name string)
	IncConnectAttempt(outcome string)
	IncHeartbeat()
}

// Outcome labels for connect attempts.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncRun(string)            {}
func (noopCollector) IncConnectAttempt(string) {}
func (noopCollector) IncHeartbeat()            {}

// PrometheusCollector exposes lifecycle counters via Prometheus.
type PrometheusCollector struct {
	runs            *prometheus.CounterVec
	connectAttempts *prometheus.CounterVec
	heartbeats      prometheus.Counter
}

// NewPrometheusCollector registers the required metrics with the provided registerer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "myapp_runs_total",
		Help: "Number of times the application run entry point was invoked.",
	}, []string{"name"})
	if err := reg.Register(runs); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		runs = existing
	}

	connectAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "myapp_database_connect_attempts_total",
		Help: "Number of database connection attempts by outcome.",
	}, []string{"outcome"})
	if err := reg.Register(connectAttempts); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		connectAttempts = existing
	}

	heartbeats := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "myapp_registry_heartbeats_total",
		Help: "Number of instance registry lease keepalives sent.",
	})
	if err := reg.Register(heartbeats); err != nil {
		already, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(prometheus.Counter)
		if !ok {
			return nil, err
		}
		heartbeats = existing
	}

	return &PrometheusCollector{
		runs:            runs,
		connectAttempts: connectAttempts,
		heartbeats:      heartbeats,
	}, nil
}

func (c *PrometheusCollector) IncRun(name string) {
	c.runs.WithLabelValues(name).Inc()
}

func (c *PrometheusCollector) IncConnectAttempt(outcome string) {
	c.connectAttempts.WithLabelValues(outcome).Inc()
}

func (c *PrometheusCollector) IncHeartbeat() {
	c.heartbeats.Inc()
}
