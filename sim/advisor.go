package sim

import "context"

// AdvisoryRequest is what the external advisor sees: a metrics window, the
// full configuration and the current phase.
type AdvisoryRequest struct {
	Metrics []SystemMetrics  `json:"metrics"`
	Config  SimulationConfig `json:"config"`
	Phase   string           `json:"phase"`
}

// AuditResult is the advisor's integrity audit.
type AuditResult struct {
	IntegrityScore         float64      `json:"integrityScore"`
	Summary                string       `json:"summary"`
	InvalidTransitionRisks []string     `json:"invalidTransitionRisks"`
	Recommendation         string       `json:"recommendation"`
	SuggestedConfig        *ConfigPatch `json:"suggestedConfig,omitempty"`
}

// AutopilotPolicy is the advisor's configuration adjustment.
type AutopilotPolicy struct {
	CPUBudget          float64 `json:"cpuBudget"`
	LatencyHardCeiling float64 `json:"latencyHardCeiling"`
	ConcurrencyLimit   int     `json:"concurrencyLimit"`
	ActionSummary      string  `json:"actionSummary"`
	Reasoning          string  `json:"reasoning"`
	ShouldAdvancePhase bool    `json:"shouldAdvancePhase"`
}

// Patch converts the policy into an atomic configuration merge.
func (p AutopilotPolicy) Patch() ConfigPatch {
	return ConfigPatch{
		CPUBudget:            Float64Ptr(p.CPUBudget),
		LatencyHardCeilingMs: Float64Ptr(p.LatencyHardCeiling),
		ConcurrencyLimit:     IntPtr(p.ConcurrencyLimit),
	}
}

// PathologicalTask is a synthetic stress payload. ArrivalSkew (ms) backdates
// the task's queue entry so it arrives already aged.
type PathologicalTask struct {
	ID          string  `json:"id"`
	Complexity  float64 `json:"complexity"`
	ArrivalSkew float64 `json:"arrivalSkew,omitempty"`
}

// Advisor is the external advisory collaborator. Every call may block on
// I/O; the engine only ever invokes it from its own goroutines. A returned
// error is treated as "no result".
type Advisor interface {
	Audit(ctx context.Context, req AdvisoryRequest) (*AuditResult, error)
	Autopilot(ctx context.Context, req AdvisoryRequest) (*AutopilotPolicy, error)
	Pathological(ctx context.Context, cfg SimulationConfig) ([]PathologicalTask, error)
}
