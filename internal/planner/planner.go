package planner

import (
	"context"

	"github.com/lockstep-db/lockstep/internal/graph"
	"github.com/lockstep-db/lockstep/internal/ledger"
	"github.com/lockstep-db/lockstep/internal/unit"
)

// Direction selects which operation of each unit a plan invokes.
type Direction int

const (
	// Forward applies units (invokes Forward operations).
	Forward Direction = iota + 1
	// Backward reverts units (invokes Reverse operations).
	Backward
)

// String renders the direction for reports and rendered plans.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return "unknown"
	}
}

// Plan is a linear, dependency-respecting sequence of units to apply
// or revert. An empty Units slice means the target is already
// satisfied; executing it is a no-op.
type Plan struct {
	Direction Direction
	Target    unit.ID
	Units     []*unit.Unit
}

// Empty reports whether the plan has nothing to do.
func (p *Plan) Empty() bool {
	return len(p.Units) == 0
}

// ForwardTo plans forward execution through target: every unapplied
// transitive dependency of target plus target itself, in topological
// order. The plan is empty if target is already applied.
func ForwardTo(ctx context.Context, g *graph.Graph, led ledger.Ledger, target unit.ID) (*Plan, error) {
	if !g.Contains(target) {
		return nil, &Error{Code: ErrCodeTargetNotFound, Target: target}
	}
	applied, err := appliedSet(ctx, led)
	if err != nil {
		return nil, err
	}
	return forwardPlan(g, applied, target, map[unit.ID]bool{target: true}), nil
}

// ForwardAll plans forward execution of the entire graph: every
// unapplied unit, in topological order. This is the common migrate-up
// case when no explicit target is given.
func ForwardAll(ctx context.Context, g *graph.Graph, led ledger.Ledger) (*Plan, error) {
	applied, err := appliedSet(ctx, led)
	if err != nil {
		return nil, err
	}
	wanted := make(map[unit.ID]bool, g.Len())
	for _, id := range g.TopoOrder() {
		wanted[id] = true
	}
	// Zero target renders as "all" in plan listings.
	return forwardPlan(g, applied, unit.ID{}, wanted), nil
}

// BackwardThrough plans backward execution through target: every
// applied transitive dependent of target plus target itself, in
// reverse topological order. The plan is empty if target is not
// applied.
func BackwardThrough(ctx context.Context, g *graph.Graph, led ledger.Ledger, target unit.ID) (*Plan, error) {
	if !g.Contains(target) {
		return nil, &Error{Code: ErrCodeTargetNotFound, Target: target}
	}
	applied, err := appliedSet(ctx, led)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Direction: Backward, Target: target}
	if !applied[target] {
		return plan, nil
	}

	wanted := map[unit.ID]bool{target: true}
	for _, id := range g.Descendants(target) {
		wanted[id] = true
	}

	order := g.TopoOrder()
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		if wanted[id] && applied[id] {
			u, _ := g.Unit(id)
			plan.Units = append(plan.Units, u)
		}
	}
	return plan, nil
}

// forwardPlan walks the shared topological order and keeps the wanted,
// unapplied units together with their unapplied ancestors. Filtering a
// single global order keeps plan output reproducible and dependency-
// respecting by construction.
func forwardPlan(g *graph.Graph, applied map[unit.ID]bool, target unit.ID, wanted map[unit.ID]bool) *Plan {
	needed := make(map[unit.ID]bool, len(wanted))
	for id := range wanted {
		needed[id] = true
		for _, anc := range g.Ancestors(id) {
			needed[anc] = true
		}
	}

	plan := &Plan{Direction: Forward, Target: target}
	for _, id := range g.TopoOrder() {
		if needed[id] && !applied[id] {
			u, _ := g.Unit(id)
			plan.Units = append(plan.Units, u)
		}
	}
	return plan
}

func appliedSet(ctx context.Context, led ledger.Ledger) (map[unit.ID]bool, error) {
	entries, err := led.AppliedInOrder(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[unit.ID]bool, len(entries))
	for _, e := range entries {
		applied[e.ID] = true
	}
	return applied, nil
}
