// Package sim provides the tick engine of the phasesim routing and
// admission-control simulator.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - task.go: Task lifecycle (PENDING → EXECUTING → COMPLETED / REFUSED / FAILED)
//   - phase.go: the ordered stress phases and their configuration deltas
//   - engine.go: the tick pass (arrivals, routing, admission, execution, metrics)
//
// # Architecture
//
// The sim package defines interfaces and value types; implementations live in
// sub-packages:
//   - sim/workload/: synthetic arrival generation
//   - sim/trace/: arrival recording, replay and the trace store
//   - sim/advisory/: HTTP client for the external advisor
//   - sim/telemetry/: Prometheus exporter and WebSocket broadcast
//
// sim/workload registers its generator via init() by setting
// NewSyntheticSourceFunc.
//
// # Key Interfaces
//
//   - ArrivalSource: arrivals for one tick
//   - RoutingPolicy: place arrivals on the primary or edge node
//   - AdmissionPolicy: admit, defer or refuse a PENDING task
//   - Advisor: audit, autopilot and stress-payload requests
//   - Observer: per-tick report consumers
package sim
