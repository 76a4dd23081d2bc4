package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/phasesim/phasesim/sim/trace"
)

// advisoryWindow is the number of recent snapshots sent to the advisor.
const advisoryWindow = 20

type advisoryKind int

const (
	kindAudit advisoryKind = iota
	kindAutopilot
	kindPathological
)

func (k advisoryKind) String() string {
	switch k {
	case kindAudit:
		return "audit"
	case kindAutopilot:
		return "autopilot"
	case kindPathological:
		return "pathological"
	default:
		return fmt.Sprintf("advisoryKind(%d)", int(k))
	}
}

// advisoryMessage carries one advisory result back to the tick loop.
// generation tags the engine state the request was made under.
type advisoryMessage struct {
	kind       advisoryKind
	generation uint64
	auto       bool // requested by self-healing rather than an operator
	audit      *AuditResult
	policy     *AutopilotPolicy
	tasks      []PathologicalTask
}

// RequestAudit asks the advisor for an audit. The result is applied at the
// start of a later tick. No-op without an advisor or with one in flight.
func (e *Engine) RequestAudit(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requestLocked(ctx, kindAudit, false)
}

// RequestPathological asks the advisor for stress payloads.
func (e *Engine) RequestPathological(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requestLocked(ctx, kindPathological, false)
}

// LastAudit returns the most recently applied audit, or nil.
func (e *Engine) LastAudit() *AuditResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAudit
}

// dispatchAdvisory fires the per-tick advisory rules: periodic autopilot,
// self-healing audit on defects and periodic stress injection.
func (e *Engine) dispatchAdvisory(ctx context.Context, m SystemMetrics) {
	if e.advisor == nil {
		return
	}
	if e.cfg.IsAutopilot && e.tick%int64(e.autopilotEvery) == 0 {
		e.requestLocked(ctx, kindAutopilot, true)
	}
	if e.cfg.IsSelfHealing && m.ErrorCount > 0 {
		e.requestLocked(ctx, kindAudit, true)
	}
	if e.pathologicalEvery > 0 && !e.cfg.IsReplaying && e.tick%int64(e.pathologicalEvery) == 0 {
		e.requestLocked(ctx, kindPathological, true)
	}
}

// requestLocked snapshots the request under the lock and runs the advisor
// call in its own goroutine. The tick loop never waits on it.
func (e *Engine) requestLocked(ctx context.Context, kind advisoryKind, auto bool) {
	if e.advisor == nil || e.inflight[kind] {
		return
	}
	e.inflight[kind] = true
	req := AdvisoryRequest{
		Metrics: e.history.Window(advisoryWindow),
		Config:  e.cfg,
		Phase:   e.phases.Current().String(),
	}
	msg := advisoryMessage{kind: kind, generation: e.generation, auto: auto}
	advisor := e.advisor
	timeout := e.advisoryTimeout

	go func() {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var err error
		switch kind {
		case kindAudit:
			msg.audit, err = advisor.Audit(callCtx, req)
		case kindAutopilot:
			msg.policy, err = advisor.Autopilot(callCtx, req)
		case kindPathological:
			msg.tasks, err = advisor.Pathological(callCtx, req.Config)
		}
		if err != nil {
			logrus.Warnf("advisory %s failed, ignoring: %v", kind, err)
		}
		// Always post, even empty, so the in-flight flag is cleared. At most
		// one request per kind is in flight, so the send never blocks.
		e.inbox <- msg
	}()
}

// drainInbox applies every advisory result that arrived since the last tick.
func (e *Engine) drainInbox(now time.Time) {
	for {
		select {
		case msg := <-e.inbox:
			e.applyAdvisory(msg, now)
		default:
			return
		}
	}
}

func (e *Engine) applyAdvisory(msg advisoryMessage, now time.Time) {
	e.inflight[msg.kind] = false
	if msg.generation != e.generation {
		logrus.Infof("dropping stale %s result (generation %d, now %d)", msg.kind, msg.generation, e.generation)
		return
	}
	switch msg.kind {
	case kindAudit:
		e.applyAudit(msg.audit, msg.auto, now)
	case kindAutopilot:
		e.applyAutopilot(msg.policy, now)
	case kindPathological:
		e.injectPathological(msg.tasks, now)
	}
}

func (e *Engine) applyAudit(res *AuditResult, auto bool, now time.Time) {
	if res == nil {
		return
	}
	e.lastAudit = res
	entry := DecisionLogEntry{
		Timestamp: now,
		Action:    fmt.Sprintf("audit (integrity %.1f)", res.IntegrityScore),
		Reason:    res.Recommendation,
		AutoAudit: auto,
	}
	if auto && e.cfg.IsSelfHealing && res.SuggestedConfig != nil {
		if err := e.applyPatchLocked(*res.SuggestedConfig); err != nil {
			logrus.Warnf("self-healing suggestion rejected: %v", err)
			entry.Reason = fmt.Sprintf("%s (suggestion rejected: %v)", res.Recommendation, err)
		} else {
			entry.Action = "self-heal: applied suggested config"
		}
	}
	e.decisions.Append(entry)
}

// applyAutopilot merges the policy as one patch. Under autopilot the
// policy's ShouldAdvancePhase is the only phase-advance source.
func (e *Engine) applyAutopilot(p *AutopilotPolicy, now time.Time) {
	if p == nil || !e.cfg.IsAutopilot {
		return
	}
	if err := e.applyPatchLocked(p.Patch()); err != nil {
		logrus.Warnf("autopilot policy rejected: %v", err)
		return
	}
	e.decisions.Append(DecisionLogEntry{Timestamp: now, Action: p.ActionSummary, Reason: p.Reasoning})
	if p.ShouldAdvancePhase {
		tr := e.phases.Advance(&e.cfg)
		if tr.Advanced {
			logrus.Infof("autopilot advanced %s -> %s", tr.From, tr.To)
			e.decisions.Append(DecisionLogEntry{
				Timestamp: now,
				Action:    fmt.Sprintf("advance to %s", tr.To),
				Reason:    "autopilot",
			})
		}
	}
}

// injectPathological enqueues stress payloads as PENDING on the primary
// node, bypassing the complexity router.
func (e *Engine) injectPathological(payloads []PathologicalTask, now time.Time) {
	if len(payloads) == 0 {
		return
	}
	injected := 0
	for _, p := range payloads {
		if p.Complexity <= 0 {
			logrus.Warnf("skipping pathological task %q: non-positive complexity %f", p.ID, p.Complexity)
			continue
		}
		arrival := trace.Arrival{ID: p.ID, Complexity: p.Complexity}
		skew := time.Duration(p.ArrivalSkew * float64(time.Millisecond))
		tasks, _ := AlwaysPrimary{}.Route([]trace.Arrival{arrival}, now.Add(-skew))
		if err := e.queue.Enqueue(tasks[0]); err != nil {
			logrus.Warnf("skipping pathological task: %v", err)
			continue
		}
		injected++
	}
	e.decisions.Append(DecisionLogEntry{
		Timestamp: now,
		Action:    fmt.Sprintf("inject %d pathological tasks", injected),
		Reason:    "synthetic stress on primary node",
	})
}
