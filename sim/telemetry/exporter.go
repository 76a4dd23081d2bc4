// Package telemetry publishes engine tick reports: Prometheus metrics for
// scraping and a WebSocket feed for the live dashboard.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/phasesim/phasesim/sim"
)

// Exporter mirrors every tick report into Prometheus collectors.
type Exporter struct {
	ticks    prometheus.Counter
	arrivals prometheus.Counter
	outcomes *prometheus.CounterVec

	latency  prometheus.Gauge
	memory   prometheus.Gauge
	cpuLoad  prometheus.Gauge
	overhead prometheus.Gauge

	cpuBudget   prometheus.Gauge
	ceiling     prometheus.Gauge
	concurrency prometheus.Gauge

	phase     *prometheus.GaugeVec
	recording prometheus.Gauge
	replaying prometheus.Gauge
}

var _ sim.Observer = (*Exporter)(nil)

// NewExporter registers the phasesim collectors with reg.
func NewExporter(reg prometheus.Registerer) *Exporter {
	f := promauto.With(reg)
	return &Exporter{
		// ticks tracks the number of completed ticks
		ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "phasesim_ticks_total",
			Help: "Total number of engine ticks",
		}),
		arrivals: f.NewCounter(prometheus.CounterOpts{
			Name: "phasesim_arrivals_total",
			Help: "Total number of arriving tasks, synthetic or replayed",
		}),
		// outcomes counts task transitions by outcome: admitted, completed, refused, failed
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "phasesim_task_outcomes_total",
			Help: "Total number of task transitions by outcome",
		}, []string{"outcome"}),

		latency: f.NewGauge(prometheus.GaugeOpts{
			Name: "phasesim_queue_latency_ms",
			Help: "Age of the oldest pending task in milliseconds",
		}),
		memory: f.NewGauge(prometheus.GaugeOpts{
			Name: "phasesim_memory_usage",
			Help: "Synthetic memory usage in memory units",
		}),
		cpuLoad: f.NewGauge(prometheus.GaugeOpts{
			Name: "phasesim_cpu_load_percent",
			Help: "Executing tasks as a percentage of the concurrency limit",
		}),
		overhead: f.NewGauge(prometheus.GaugeOpts{
			Name: "phasesim_routing_overhead",
			Help: "Routing cost charged in the last tick",
		}),

		cpuBudget: f.NewGauge(prometheus.GaugeOpts{
			Name: "phasesim_cpu_budget_percent",
			Help: "Configured cpu budget",
		}),
		ceiling: f.NewGauge(prometheus.GaugeOpts{
			Name: "phasesim_latency_hard_ceiling_ms",
			Help: "Configured end-to-end latency ceiling",
		}),
		concurrency: f.NewGauge(prometheus.GaugeOpts{
			Name: "phasesim_concurrency_limit",
			Help: "Configured concurrency limit",
		}),

		phase: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "phasesim_phase",
			Help: "1 for the active stress phase, 0 otherwise",
		}, []string{"phase"}),
		recording: f.NewGauge(prometheus.GaugeOpts{
			Name: "phasesim_recording",
			Help: "1 while a trace is being recorded",
		}),
		replaying: f.NewGauge(prometheus.GaugeOpts{
			Name: "phasesim_replaying",
			Help: "1 while a trace is being replayed",
		}),
	}
}

// Observe implements sim.Observer.
func (x *Exporter) Observe(r sim.TickReport) {
	x.ticks.Inc()
	x.arrivals.Add(float64(r.Arrivals))
	x.outcomes.WithLabelValues("admitted").Add(float64(r.Admission.Admitted))
	x.outcomes.WithLabelValues("completed").Add(float64(r.Execution.Completed))
	x.outcomes.WithLabelValues("refused").Add(float64(r.Metrics.RefusalCount))
	x.outcomes.WithLabelValues("failed").Add(float64(r.Metrics.ErrorCount))

	x.latency.Set(r.Metrics.LatencyMs)
	x.memory.Set(r.Metrics.MemoryUsage)
	x.cpuLoad.Set(r.Metrics.CPULoad)
	x.overhead.Set(r.Metrics.RoutingOverhead)

	x.cpuBudget.Set(r.Config.CPUBudget)
	x.ceiling.Set(r.Config.LatencyHardCeilingMs)
	x.concurrency.Set(float64(r.Config.ConcurrencyLimit))

	active := r.Transition.To.String()
	for _, p := range sim.Phases() {
		v := 0.0
		if p.String() == active {
			v = 1
		}
		x.phase.WithLabelValues(p.String()).Set(v)
	}
	x.recording.Set(boolGauge(r.Config.IsRecording))
	x.replaying.Set(boolGauge(r.Config.IsReplaying))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
