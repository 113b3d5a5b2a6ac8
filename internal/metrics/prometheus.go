// Package metrics exposes Prometheus instrumentation for ip/tc commands and
// shaping operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tcshaper"

// Registry holds all tcshaper metrics.
type Registry struct {
	CommandsTotal     *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ShapedInterfaces  *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New registers the metrics on a fresh registry together with the Go and
// process collectors.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWith(reg, reg)
}

// NewWith registers the metrics on reg and serves them from gatherer.
func NewWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "External ip/tc commands executed, by tool and result.",
		}, []string{"tool", "result"}),
		CommandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Wall time of external commands.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"tool"}),
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Shaping operations (reset, apply, clear, status), by result.",
		}, []string{"operation", "result"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Wall time of shaping operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ShapedInterfaces: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "interface_shaped",
			Help:      "1 when tcshaper applied shaping to the interface, 0 after reset or clear.",
		}, []string{"interface"}),
		gatherer: gatherer,
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveCommand records one external command execution.
func (r *Registry) ObserveCommand(tool string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.CommandsTotal.WithLabelValues(tool, result(err)).Inc()
	r.CommandDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// ObserveOperation records one shaping operation.
func (r *Registry) ObserveOperation(operation string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.OperationsTotal.WithLabelValues(operation, result(err)).Inc()
	r.OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// SetShaped flips the shaped gauge of iface.
func (r *Registry) SetShaped(iface string, shaped bool) {
	if r == nil {
		return
	}
	v := 0.0
	if shaped {
		v = 1
	}
	r.ShapedInterfaces.WithLabelValues(iface).Set(v)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
