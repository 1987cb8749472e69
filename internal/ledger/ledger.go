package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lockstep-db/lockstep/internal/unit"
)

// Entry is one applied unit, in application order.
type Entry struct {
	ID        unit.ID
	Position  int64
	RunID     string
	AppliedAt time.Time
}

// Ledger is the durable applied-state record. Each mutation must be
// committed durably before it returns; the executor treats a returned
// nil as permission to start the next unit.
type Ledger interface {
	// IsApplied reports whether id is in the applied set.
	IsApplied(ctx context.Context, id unit.ID) (bool, error)

	// MarkApplied appends id to the applied set. deps are the unit's
	// direct dependencies; the call fails with ErrCodeDependencyNotApplied
	// unless all of them are already applied, and with
	// ErrCodeAlreadyApplied if id is.
	MarkApplied(ctx context.Context, id unit.ID, deps []unit.ID, runID string) error

	// UnmarkApplied removes id from the applied set. dependents are
	// the units that directly depend on id; the call fails with
	// ErrCodeDependentStillApplied while any of them is applied, and
	// with ErrCodeNotApplied if id is not.
	UnmarkApplied(ctx context.Context, id unit.ID, dependents []unit.ID) error

	// AppliedInOrder returns every applied unit in application order.
	AppliedInOrder(ctx context.Context) ([]Entry, error)

	// Close releases underlying resources.
	Close() error
}

// ErrorCode categorizes ledger mutation failures.
type ErrorCode string

const (
	// ErrCodeDependencyNotApplied rejects a mark whose dependencies
	// are not all applied (downward-closed invariant).
	ErrCodeDependencyNotApplied ErrorCode = "DEPENDENCY_NOT_APPLIED"

	// ErrCodeDependentStillApplied rejects an unmark while an applied
	// unit still depends on the target.
	ErrCodeDependentStillApplied ErrorCode = "DEPENDENT_STILL_APPLIED"

	// ErrCodeAlreadyApplied rejects marking a unit twice.
	ErrCodeAlreadyApplied ErrorCode = "ALREADY_APPLIED"

	// ErrCodeNotApplied rejects unmarking a unit that is not applied.
	ErrCodeNotApplied ErrorCode = "NOT_APPLIED"
)

// Error is a ledger invariant violation.
type Error struct {
	Code ErrorCode
	Unit unit.ID
	Dep  unit.ID // offending dependency or dependent, when relevant
}

func (e *Error) Error() string {
	if !e.Dep.IsZero() {
		return fmt.Sprintf("%s: unit %s (blocked by %s)", e.Code, e.Unit, e.Dep)
	}
	return fmt.Sprintf("%s: unit %s", e.Code, e.Unit)
}

// IsInvariantError reports whether err is a ledger invariant
// violation, as opposed to a storage failure.
func IsInvariantError(err error) bool {
	var le *Error
	return errors.As(err, &le)
}
