// sim/engine.go
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/phasesim/phasesim/sim/trace"
)

var (
	// ErrRecordingActive is returned when an operation needs recording to be off.
	ErrRecordingActive = errors.New("recording is active")
	// ErrReplayActive is returned when an operation needs replay to be off.
	ErrReplayActive = errors.New("replay is active")
	// ErrNotRecording is returned by StopRecording without a session.
	ErrNotRecording = errors.New("not recording")
)

// Observer receives every tick report while telemetry is enabled.
// Called outside the engine lock; must not block for long.
type Observer interface {
	Observe(report TickReport)
}

// TickReport is everything one tick produced.
type TickReport struct {
	Metrics     SystemMetrics
	Config      SimulationConfig
	Transition  PhaseTransition
	Arrivals    int
	Admission   AdmissionResult
	Execution   ExecutionResult
	ReplayEnded bool
}

// EngineConfig groups the engine's construction parameters.
type EngineConfig struct {
	Config      SimulationConfig
	Phases      PhaseTable    // nil = DefaultPhaseTable with BASE restoring Config
	Seed        int64         // seeds the synthetic source when Source is nil
	Source      ArrivalSource // nil = NewSyntheticSourceFunc
	HistorySize int           // 0 = DefaultHistorySize
	Traces      *trace.Store  // nil = fresh in-memory store

	Advisor           Advisor       // nil disables all advisory traffic
	AdvisoryTimeout   time.Duration // per-call deadline; 0 = 10s
	AutopilotEvery    int           // ticks between autopilot requests; 0 = 10
	PathologicalEvery int           // ticks between stress injections; 0 = never
}

// Engine is the tick engine: the single owner of the task queue, the
// configuration and the phase machine. Every mutation happens under mu,
// either inside Tick or inside one of the operator methods.
type Engine struct {
	mu sync.Mutex

	cfg       SimulationConfig
	phases    *PhaseMachine
	queue     *TaskQueue
	history   *MetricsHistory
	decisions DecisionLog

	router    RoutingPolicy
	admission AdmissionPolicy
	execution ExecutionModel
	source    ArrivalSource

	traces        *trace.Store
	recorder      *trace.Recorder
	replayer      *trace.Replayer
	tick          int64
	sessionErrors int

	advisor           Advisor
	advisoryTimeout   time.Duration
	autopilotEvery    int
	pathologicalEvery int
	generation        uint64
	inflight          map[advisoryKind]bool
	inbox             chan advisoryMessage
	lastAudit         *AuditResult

	observers []Observer
}

// NewEngine creates an engine in BASE running ec.Config as given.
// Panics on an invalid configuration or when no arrival source is available.
func NewEngine(ec EngineConfig) *Engine {
	if err := ec.Config.Validate(); err != nil {
		panic(fmt.Sprintf("NewEngine: %v", err))
	}
	source := ec.Source
	if source == nil {
		if NewSyntheticSourceFunc == nil {
			panic("NewEngine: no Source given and NewSyntheticSourceFunc not registered (import sim/workload)")
		}
		source = NewSyntheticSourceFunc(NewPartitionedRNG(ec.Seed))
	}
	phases := ec.Phases
	if phases == nil {
		phases = DefaultPhaseTable()
		phases[PhaseBase] = BaselineDelta(ec.Config)
	}
	historySize := ec.HistorySize
	if historySize == 0 {
		historySize = DefaultHistorySize
	}
	traces := ec.Traces
	if traces == nil {
		traces = trace.NewStore()
	}
	timeout := ec.AdvisoryTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	autopilotEvery := ec.AutopilotEvery
	if autopilotEvery == 0 {
		autopilotEvery = 10
	}

	e := &Engine{
		cfg:               ec.Config,
		phases:            NewPhaseMachine(phases),
		queue:             NewTaskQueue(),
		history:           NewMetricsHistory(historySize),
		router:            ComplexityRouter{},
		admission:         ConcurrencyGate{},
		execution:         DefaultExecutionModel(),
		source:            source,
		traces:            traces,
		advisor:           ec.Advisor,
		advisoryTimeout:   timeout,
		autopilotEvery:    autopilotEvery,
		pathologicalEvery: ec.PathologicalEvery,
		inflight:          make(map[advisoryKind]bool),
		inbox:             make(chan advisoryMessage, 16),
	}
	return e
}

// AddObserver registers o for tick reports.
func (e *Engine) AddObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// Tick runs one state transition at wall-clock instant now.
// ctx bounds the advisory calls this tick dispatches.
func (e *Engine) Tick(ctx context.Context, now time.Time) TickReport {
	e.mu.Lock()

	e.drainInbox(now)

	e.tick++
	phase := e.phases.Current()
	arrivals, replayEnded := e.nextArrivals(phase)

	tasks, routing := e.router.Route(arrivals, now)
	accepted := make([]trace.Arrival, 0, len(arrivals))
	for i, t := range tasks {
		if err := e.queue.Enqueue(t); err != nil {
			logrus.Warnf("[tick %07d] dropping arrival: %v", e.tick, err)
			continue
		}
		accepted = append(accepted, arrivals[i])
	}
	if e.cfg.IsRecording {
		e.recorder.Append(e.tick, accepted)
	}

	adm := RunAdmission(e.queue, e.admission, &e.cfg)
	exec := e.execution.Run(e.queue, now, &e.cfg, phase)
	removed := e.queue.RemoveTerminal()

	metrics := SystemMetrics{
		Timestamp:       e.tick,
		Throughput:      len(removed),
		LatencyMs:       e.queue.OldestPendingAgeMs(now),
		MemoryUsage:     MemoryUsage(e.queue, e.cfg.MemoryCap),
		CPULoad:         CPULoad(e.queue.Count(StatusExecuting), e.cfg.ConcurrencyLimit),
		RefusalCount:    adm.Refused + exec.Refused,
		ErrorCount:      exec.Failed,
		RoutingOverhead: routing.Overhead,
		Phase:           phase.String(),
	}
	e.history.Append(metrics)
	if e.cfg.IsRecording {
		e.sessionErrors += metrics.ErrorCount
	}

	transition := e.phases.OnTick(&e.cfg)
	if transition.Advanced {
		logrus.Infof("[tick %07d] auto-advance %s -> %s", e.tick, transition.From, transition.To)
		e.decisions.Append(DecisionLogEntry{
			Timestamp: now,
			Action:    fmt.Sprintf("advance to %s", transition.To),
			Reason:    fmt.Sprintf("%d ticks elapsed in %s", PhaseAdvanceThreshold, transition.From),
		})
	}
	if transition.Stopped {
		logrus.Infof("[tick %07d] auto-advance stopped at terminal phase %s", e.tick, transition.From)
	}

	e.dispatchAdvisory(ctx, metrics)

	logrus.Debugf("[tick %07d] arrivals=%d admitted=%d refused=%d failed=%d completed=%d queue=%d",
		e.tick, len(arrivals), adm.Admitted, metrics.RefusalCount, exec.Failed, exec.Completed, e.queue.Len())

	report := TickReport{
		Metrics:     metrics,
		Config:      e.cfg,
		Transition:  transition,
		Arrivals:    len(arrivals),
		Admission:   adm,
		Execution:   exec,
		ReplayEnded: replayEnded,
	}
	var observers []Observer
	if e.cfg.TelemetryEnabled {
		observers = append(observers, e.observers...)
	}
	e.mu.Unlock()

	for _, o := range observers {
		o.Observe(report)
	}
	return report
}

// nextArrivals sources this tick's arrivals from the replayer or the
// synthetic generator. Recording happens after enqueue in Tick so a trace
// only holds arrivals the live session actually ran. Reaching the end of a replay clears replay mode and
// falls through to synthetic generation in the same tick.
func (e *Engine) nextArrivals(phase Phase) (arrivals []trace.Arrival, replayEnded bool) {
	if e.cfg.IsReplaying {
		if got, ok := e.replayer.Arrivals(e.tick); ok {
			return got, false
		}
		logrus.Infof("[tick %07d] replay of trace %s finished", e.tick, e.cfg.ActiveTraceID)
		e.cfg.IsReplaying = false
		e.cfg.ActiveTraceID = ""
		e.replayer = nil
		replayEnded = true
	}
	return e.source.Arrivals(e.tick, phase, e.cfg.IsAccelerated), replayEnded
}

// Config returns a copy of the current configuration.
func (e *Engine) Config() SimulationConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phases.Current()
}

// TickIndex returns the index of the last completed tick.
func (e *Engine) TickIndex() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Interval returns the clock interval for the next firing.
func (e *Engine) Interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.EffectiveInterval()
}

// History returns a copy of the metrics history, oldest first.
func (e *Engine) History() []SystemMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Window(0)
}

// Tasks returns a copy of the live queue.
func (e *Engine) Tasks() []Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Items()
}

// Decisions returns the decision log, oldest first.
func (e *Engine) Decisions() []DecisionLogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.decisions.Entries()
}

// Traces returns the trace store.
func (e *Engine) Traces() *trace.Store {
	return e.traces
}

// UpdateConfig merges patch atomically. The merged result must validate.
func (e *Engine) UpdateConfig(patch ConfigPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyPatchLocked(patch)
}

func (e *Engine) applyPatchLocked(patch ConfigPatch) error {
	next := patch.Apply(e.cfg)
	if err := next.Validate(); err != nil {
		return fmt.Errorf("update config: %w", err)
	}
	// Auto-advance counts from the moment it is switched on.
	if next.IsAutoAdvancing && !e.cfg.IsAutoAdvancing {
		next.PhaseTickCounter = 0
	}
	e.cfg = next
	if patch.ChangesMode() {
		e.generation++
	}
	return nil
}

// SelectPhase is a manual phase jump; it applies the phase's entry delta
// (unless replaying). Returns ErrPhaseLocked under auto-advance or autopilot.
func (e *Engine) SelectPhase(p Phase) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.phases.Select(p, &e.cfg); err != nil {
		return err
	}
	e.generation++
	logrus.Infof("phase selected: %s", p)
	return nil
}

// StartRecording begins a session: empty buffer, tick counter reset to 0.
func (e *Engine) StartRecording() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cfg.IsReplaying {
		return fmt.Errorf("start recording: %w", ErrReplayActive)
	}
	if e.cfg.IsRecording {
		return fmt.Errorf("start recording: %w", ErrRecordingActive)
	}
	e.recorder = trace.NewRecorder()
	e.tick = 0
	e.sessionErrors = 0
	e.cfg.IsRecording = true
	e.generation++
	logrus.Infof("recording started in phase %s", e.phases.Current())
	return nil
}

// StopRecording freezes the session into a TraceRecord, scores it and
// prepends it to the trace store.
func (e *Engine) StopRecording(now time.Time) (*trace.TraceRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.cfg.IsRecording {
		return nil, fmt.Errorf("stop recording: %w", ErrNotRecording)
	}
	integrity := trace.IntegrityScore(e.sessionErrors)
	rec := e.recorder.Freeze(e.phases.Current().String(), integrity, now)
	e.recorder = nil
	e.cfg.IsRecording = false
	e.traces.Add(rec)
	logrus.Infof("recording %s saved: %d ticks, integrity %.1f", rec.ID, len(rec.Ticks), integrity)
	return rec, nil
}

// SelectTrace starts replaying the stored trace id: tick counter 0, empty
// queue and history, phase set to the recorded phase without its delta.
func (e *Engine) SelectTrace(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cfg.IsRecording {
		return fmt.Errorf("select trace: %w", ErrRecordingActive)
	}
	rec, err := e.traces.Get(id)
	if err != nil {
		return fmt.Errorf("select trace: %w", err)
	}
	phase, err := ParsePhase(rec.Phase)
	if err != nil {
		return fmt.Errorf("select trace %s: %w", id, err)
	}
	e.replayer = trace.NewReplayer(rec)
	e.tick = 0
	e.queue.Reset()
	e.history.Reset()
	e.cfg.IsReplaying = true
	e.cfg.ActiveTraceID = rec.ID
	e.phases.Enter(phase, &e.cfg)
	e.generation++
	logrus.Infof("replaying trace %s (%d ticks) in phase %s", rec.ID, len(rec.Ticks), phase)
	return nil
}
