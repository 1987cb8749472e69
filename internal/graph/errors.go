package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lockstep-db/lockstep/internal/unit"
)

// BuildErrorCode categorizes graph construction failures.
type BuildErrorCode string

const (
	// ErrCodeDuplicateUnit indicates the same unit ID was declared twice.
	ErrCodeDuplicateUnit BuildErrorCode = "DUPLICATE_UNIT"

	// ErrCodeDanglingDependency indicates a declared dependency that
	// does not exist in any change set.
	ErrCodeDanglingDependency BuildErrorCode = "DANGLING_DEPENDENCY"

	// ErrCodeCycle indicates the combined chain and explicit edges
	// form a cycle.
	ErrCodeCycle BuildErrorCode = "CYCLE_DETECTED"

	// ErrCodeInvalidSet indicates a change set violating the chain
	// invariant (non-contiguous sequences, missing operations).
	ErrCodeInvalidSet BuildErrorCode = "INVALID_CHANGE_SET"
)

// BuildError is a fatal graph construction failure. It names the
// offending unit (and, for cycles, the full cycle path) so the author
// can fix the declaration.
type BuildError struct {
	Code    BuildErrorCode
	Message string
	Unit    unit.ID
	Cycle   []unit.ID
}

func (e *BuildError) Error() string {
	switch {
	case len(e.Cycle) > 0:
		parts := make([]string, len(e.Cycle))
		for i, id := range e.Cycle {
			parts[i] = id.String()
		}
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, strings.Join(parts, " -> "))
	case !e.Unit.IsZero():
		return fmt.Sprintf("%s: %s (unit=%s)", e.Code, e.Message, e.Unit)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsCycleError reports whether err is a cycle build failure.
// Uses errors.As to handle wrapped errors.
func IsCycleError(err error) bool {
	var be *BuildError
	return errors.As(err, &be) && be.Code == ErrCodeCycle
}

// IsDanglingError reports whether err is a dangling-reference failure.
func IsDanglingError(err error) bool {
	var be *BuildError
	return errors.As(err, &be) && be.Code == ErrCodeDanglingDependency
}

// IsDuplicateError reports whether err is a duplicate-unit failure.
func IsDuplicateError(err error) bool {
	var be *BuildError
	return errors.As(err, &be) && be.Code == ErrCodeDuplicateUnit
}
