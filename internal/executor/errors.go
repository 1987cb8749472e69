package executor

import (
	"errors"
	"fmt"

	"github.com/lockstep-db/lockstep/internal/planner"
	"github.com/lockstep-db/lockstep/internal/unit"
)

// ErrorCode categorizes execution failures.
type ErrorCode string

const (
	// ErrCodeOperationFailed indicates a unit's forward or reverse
	// call reported failure. Storage may hold partial effects; the
	// remedy is an authored compensating step, never automatic
	// rollback.
	ErrCodeOperationFailed ErrorCode = "OPERATION_FAILED"

	// ErrCodeLedgerFailed indicates the operation succeeded but the
	// ledger write did not. The operator must reconcile before
	// re-running.
	ErrCodeLedgerFailed ErrorCode = "LEDGER_WRITE_FAILED"

	// ErrCodeCancelled indicates the run stopped between units
	// because the context was cancelled.
	ErrCodeCancelled ErrorCode = "RUN_CANCELLED"
)

// OperationError identifies exactly which unit failed, in which
// direction, at which plan position, and why.
type OperationError struct {
	Code      ErrorCode
	Unit      unit.ID
	Direction planner.Direction
	Position  int
	Cause     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: unit %s (%s, plan position %d): %v",
		e.Code, e.Unit, e.Direction, e.Position+1, e.Cause)
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// IsOperationFailure reports whether err is a failed unit operation.
// Uses errors.As to handle wrapped errors.
func IsOperationFailure(err error) bool {
	var oe *OperationError
	return errors.As(err, &oe) && oe.Code == ErrCodeOperationFailed
}

// IsCancelled reports whether err is a between-unit cancellation.
func IsCancelled(err error) bool {
	var oe *OperationError
	return errors.As(err, &oe) && oe.Code == ErrCodeCancelled
}
