package executor

import (
	"context"

	"github.com/google/uuid"

	"github.com/lockstep-db/lockstep/internal/graph"
	"github.com/lockstep-db/lockstep/internal/ledger"
	"github.com/lockstep-db/lockstep/internal/planner"
	"github.com/lockstep-db/lockstep/internal/unit"
)

// Observer receives per-unit progress callbacks. Implementations must
// not block for long; the executor calls them synchronously.
type Observer interface {
	UnitStarted(u *unit.Unit, pos, total int, d planner.Direction)
	UnitFinished(u *unit.Unit, pos, total int, d planner.Direction, err error)
}

// Option configures an Executor.
type Option func(*Executor)

// WithObserver attaches a progress observer.
func WithObserver(obs Observer) Option {
	return func(e *Executor) { e.obs = obs }
}

// WithRunID pins the run identifier instead of generating a UUID.
// Used by tests that assert on ledger contents.
func WithRunID(runID string) Option {
	return func(e *Executor) { e.runID = runID }
}

// Executor runs plans against a ledger and a storage environment.
//
// At most one Executor may run against a given ledger at a time.
// Serializing invocations, typically with an external advisory lock,
// is the caller's responsibility.
type Executor struct {
	graph  *graph.Graph
	ledger ledger.Ledger
	env    unit.Env
	obs    Observer
	runID  string
}

// New returns an executor over the given graph, ledger and storage
// environment.
func New(g *graph.Graph, led ledger.Ledger, env unit.Env, opts ...Option) *Executor {
	e := &Executor{graph: g, ledger: led, env: env}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the plan strictly in order and returns a report.
//
// After each successful operation the ledger is updated (marked for
// forward plans, unmarked for backward plans) before the next unit
// starts, so a crash or failure leaves the ledger consistent with
// exactly the units that completed. The first failure stops the run;
// the report names the failed unit and its position. ctx cancellation
// is checked between units only: an in-flight operation always runs to
// completion or failure.
func (e *Executor) Execute(ctx context.Context, p *planner.Plan) *Report {
	runID := e.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	report := &Report{
		RunID:     runID,
		Direction: p.Direction,
		Target:    p.Target,
		State:     StatePending,
		FailedPos: -1,
	}
	if p.Empty() {
		report.State = StateSucceeded
		return report
	}

	report.State = StateRunning
	total := len(p.Units)
	for i, u := range p.Units {
		if err := ctx.Err(); err != nil {
			report.fail(u.ID, i, &OperationError{
				Code:      ErrCodeCancelled,
				Unit:      u.ID,
				Direction: p.Direction,
				Position:  i,
				Cause:     err,
			})
			return report
		}

		if e.obs != nil {
			e.obs.UnitStarted(u, i, total, p.Direction)
		}

		err := e.runUnit(ctx, u, i, p.Direction, runID)

		if e.obs != nil {
			e.obs.UnitFinished(u, i, total, p.Direction, err)
		}
		if err != nil {
			report.fail(u.ID, i, err)
			return report
		}
		report.Succeeded = append(report.Succeeded, u.ID)
	}

	report.State = StateSucceeded
	return report
}

func (e *Executor) runUnit(ctx context.Context, u *unit.Unit, pos int, d planner.Direction, runID string) error {
	op := u.Forward
	if d == planner.Backward {
		op = u.Reverse
	}
	if err := op(ctx, e.env); err != nil {
		return &OperationError{
			Code:      ErrCodeOperationFailed,
			Unit:      u.ID,
			Direction: d,
			Position:  pos,
			Cause:     err,
		}
	}

	// Ledger write is the last step of a successful unit application.
	var err error
	if d == planner.Forward {
		err = e.ledger.MarkApplied(ctx, u.ID, e.graph.Dependencies(u.ID), runID)
	} else {
		err = e.ledger.UnmarkApplied(ctx, u.ID, e.graph.Dependents(u.ID))
	}
	if err != nil {
		return &OperationError{
			Code:      ErrCodeLedgerFailed,
			Unit:      u.ID,
			Direction: d,
			Position:  pos,
			Cause:     err,
		}
	}
	return nil
}
