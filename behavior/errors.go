// Package behavior implements the four transition behavior strategies
// (spec.md 4.3) over a model.Net: Immediate, Timed, Stochastic and
// Continuous. Each behavior holds only a transition id and a reference
// to the net, re-reading pre/post arcs lazily so runtime edits between
// runs are tolerated (spec.md 4.4).
package behavior

import "errors"

// Error kinds of the behavior package (spec.md 4.3.5). ErrRateBelowThreshold
// and ErrEvaluator are not returned by any behavior here: Continuous turns
// an evaluator failure or a pre-place at its token threshold into a zero
// rate without an error.
var (
	ErrInsufficientInput  = errors.New("behavior: insufficient input")
	ErrInhibited          = errors.New("behavior: inhibited by inhibitor arc")
	ErrTooEarly           = errors.New("behavior: too early")
	ErrTooLate            = errors.New("behavior: too late")
	ErrRateBelowThreshold = errors.New("behavior: rate below threshold")
	ErrClampedByAvailability = errors.New("behavior: flow clamped by token availability")
	ErrEvaluator          = errors.New("behavior: evaluator error")
	ErrNotFireable        = errors.New("behavior: transition is not fireable")
	ErrUnknownKind        = errors.New("behavior: unknown transition kind")
	ErrGuardFalse         = errors.New("behavior: guard expression evaluated false")
)
