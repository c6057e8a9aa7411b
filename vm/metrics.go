package vm

import (
	"deskvm.dev/deskvm/gen"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	messageDelivered = "delivered"
	messageDropped   = "dropped"
)

type metrics struct {
	reductions *prometheus.CounterVec
	effects    *prometheus.CounterVec
	messages   *prometheus.CounterVec
	spawned    prometheus.Counter
	processes  prometheus.Gauge
}

// createMetrics registers the VM collectors. A nil registerer gets a
// private registry, so several VMs can live in one binary.
func createMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &metrics{
		// reductions counts Reduce calls by output kind
		reductions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deskvm_reductions_total",
			Help: "Total Reduce calls by process output",
		}, []string{"output"}),

		effects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deskvm_effects_total",
			Help: "Total resolved effects by handler kind",
		}, []string{"handler"}),

		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deskvm_messages_total",
			Help: "Total mailbox messages by result",
		}, []string{"result"}),

		spawned: factory.NewCounter(prometheus.CounterOpts{
			Name: "deskvm_processes_spawned_total",
			Help: "Total spawned processes",
		}),

		processes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "deskvm_processes",
			Help: "Processes in the process table",
		}),
	}
}

func (m *metrics) reduction(kind gen.ProcessOutputKind) {
	m.reductions.WithLabelValues(kind.String()).Inc()
}

func (m *metrics) effect(kind string) {
	m.effects.WithLabelValues(kind).Inc()
}

func (m *metrics) message(result string) {
	m.messages.WithLabelValues(result).Inc()
}
