package executor

import (
	"github.com/lockstep-db/lockstep/internal/planner"
	"github.com/lockstep-db/lockstep/internal/unit"
)

// State is the per-plan execution state machine.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Report is the outcome of one execution run. Partial progress is
// visible: Succeeded lists exactly the units whose operation and
// ledger write both completed, in plan order.
type Report struct {
	RunID     string
	Direction planner.Direction
	Target    unit.ID
	State     State

	// Succeeded lists the units completed before any failure.
	Succeeded []unit.ID

	// FailedAt names the failed unit when State is StateFailed.
	FailedAt *unit.ID

	// FailedPos is the zero-based plan position of the failure, or -1.
	FailedPos int

	// Err is the failure, always an *OperationError when non-nil.
	Err error
}

// Failed reports whether the run stopped on a failure.
func (r *Report) Failed() bool {
	return r.State == StateFailed
}

func (r *Report) fail(id unit.ID, pos int, err error) {
	failed := id
	r.FailedAt = &failed
	r.FailedPos = pos
	r.Err = err
	r.State = StateFailed
}
