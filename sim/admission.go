package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// AdmissionVerdict is the outcome of one admission decision.
type AdmissionVerdict int

const (
	VerdictAdmit  AdmissionVerdict = iota // PENDING -> EXECUTING
	VerdictDefer                          // stays PENDING, retried next tick
	VerdictRefuse                         // PENDING -> REFUSED
)

// AdmissionPolicy decides whether a PENDING task may begin executing.
// occupancy is the number of EXECUTING tasks including those already
// admitted earlier in the same pass.
type AdmissionPolicy interface {
	Admit(task Task, occupancy int, cfg *SimulationConfig) (AdmissionVerdict, string)
}

// ConcurrencyGate enforces ConcurrencyLimit as a hard occupancy ceiling.
// At the ceiling it refuses when retries are disabled and defers otherwise
// (implicit backpressure).
type ConcurrencyGate struct{}

// Admit implements AdmissionPolicy for ConcurrencyGate.
func (ConcurrencyGate) Admit(_ Task, occupancy int, cfg *SimulationConfig) (AdmissionVerdict, string) {
	if occupancy < cfg.ConcurrencyLimit {
		return VerdictAdmit, ""
	}
	if cfg.RetriesEnabled {
		return VerdictDefer, fmt.Sprintf("at concurrency limit %d, retrying", cfg.ConcurrencyLimit)
	}
	return VerdictRefuse, fmt.Sprintf("at concurrency limit %d, retries disabled", cfg.ConcurrencyLimit)
}

// AdmissionResult counts one pass's decisions.
type AdmissionResult struct {
	Admitted int
	Deferred int
	Refused  int
}

// RunAdmission applies policy to every PENDING task in queue order.
// Occupancy starts at the EXECUTING count before the pass and grows with
// each admission, so EXECUTING never exceeds ConcurrencyLimit.
func RunAdmission(q *TaskQueue, policy AdmissionPolicy, cfg *SimulationConfig) AdmissionResult {
	var res AdmissionResult
	occupancy := q.Count(StatusExecuting)
	for _, i := range q.Indices(StatusPending) {
		task := q.At(i)
		verdict, reason := policy.Admit(task, occupancy, cfg)
		switch verdict {
		case VerdictAdmit:
			q.Replace(i, task.Admit())
			occupancy++
			res.Admitted++
		case VerdictDefer:
			res.Deferred++
		case VerdictRefuse:
			q.Replace(i, task.Refuse())
			res.Refused++
			logrus.Debugf("admission refused %s: %s", task.ID, reason)
		default:
			panic(fmt.Sprintf("RunAdmission: unknown verdict %d", verdict))
		}
	}
	if occupancy > cfg.ConcurrencyLimit && res.Admitted > 0 {
		panic(fmt.Sprintf("RunAdmission: occupancy %d exceeds limit %d", occupancy, cfg.ConcurrencyLimit))
	}
	return res
}
