package sim

import (
	"fmt"
	"time"

	"github.com/phasesim/phasesim/sim/trace"
)

const (
	// ComplexityThreshold splits arrivals: strictly above goes to the primary node.
	ComplexityThreshold = trace.NodeComplexityThreshold

	// RoutingCostPerDecision is the fixed cost charged per routed arrival.
	RoutingCostPerDecision = 2.5
)

// RoutingDecision summarizes how one tick's arrivals were placed.
type RoutingDecision struct {
	Overhead     float64 // len(arrivals) × RoutingCostPerDecision
	PrimaryCount int
	EdgeCount    int
	Reason       string
}

// RoutingPolicy turns a tick's arrivals into routed PENDING tasks.
type RoutingPolicy interface {
	Route(arrivals []trace.Arrival, now time.Time) ([]Task, RoutingDecision)
}

// NodeFor is the routing rule: a pure function of complexity.
func NodeFor(complexity float64) NodeID {
	if complexity > ComplexityThreshold {
		return NodePrimary
	}
	return NodeEdge
}

// ComplexityRouter routes by complexity threshold.
type ComplexityRouter struct{}

// Route implements RoutingPolicy for ComplexityRouter.
func (ComplexityRouter) Route(arrivals []trace.Arrival, now time.Time) ([]Task, RoutingDecision) {
	tasks := make([]Task, 0, len(arrivals))
	var d RoutingDecision
	for _, a := range arrivals {
		node := NodeFor(a.Complexity)
		if node == NodePrimary {
			d.PrimaryCount++
		} else {
			d.EdgeCount++
		}
		tasks = append(tasks, NewTask(a.ID, a.Complexity, node, now))
	}
	d.Overhead = float64(len(arrivals)) * RoutingCostPerDecision
	d.Reason = fmt.Sprintf("complexity-threshold (primary=%d, edge=%d)", d.PrimaryCount, d.EdgeCount)
	return tasks, d
}

// AlwaysPrimary pins every arrival to the primary node.
// Used for synthetic stress injection, which targets the high-fidelity path
// and bypasses the complexity rule. Charges no routing overhead.
type AlwaysPrimary struct{}

// Route implements RoutingPolicy for AlwaysPrimary.
func (AlwaysPrimary) Route(arrivals []trace.Arrival, now time.Time) ([]Task, RoutingDecision) {
	tasks := make([]Task, 0, len(arrivals))
	for _, a := range arrivals {
		tasks = append(tasks, NewTask(a.ID, a.Complexity, NodePrimary, now))
	}
	return tasks, RoutingDecision{PrimaryCount: len(tasks), Reason: "always-primary"}
}

// NewRoutingPolicy creates a routing policy by name.
// Empty string defaults to complexity. Panics on unrecognized names.
func NewRoutingPolicy(name string) RoutingPolicy {
	switch name {
	case "", "complexity":
		return ComplexityRouter{}
	case "always-primary":
		return AlwaysPrimary{}
	default:
		panic(fmt.Sprintf("unknown routing policy %q", name))
	}
}
