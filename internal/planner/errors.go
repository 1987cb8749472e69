package planner

import (
	"errors"
	"fmt"

	"github.com/lockstep-db/lockstep/internal/unit"
)

// ErrorCode categorizes planning failures.
type ErrorCode string

const (
	// ErrCodeTargetNotFound indicates the target unit does not exist
	// in the graph. Planning fails before any ledger access.
	ErrCodeTargetNotFound ErrorCode = "TARGET_NOT_FOUND"
)

// Error is a fatal planning failure. Planning never mutates the
// ledger, so an Error leaves the system untouched.
type Error struct {
	Code   ErrorCode
	Target unit.ID
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: unit %s is not in the graph", e.Code, e.Target)
}

// IsNotFound reports whether err is a target-not-found planning error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Code == ErrCodeTargetNotFound
}
