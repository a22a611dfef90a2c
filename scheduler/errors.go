// Package scheduler implements the Step Scheduler / Controller (spec.md
// 4.5): the state machine and per-tick algorithm that drives every
// transition's behavior forward and records the result into a
// collector. Built around a mutex-guarded
// state, context-based Run/Stop, condition/action rules generalized
// into step/complete listeners).
package scheduler

import "errors"

// Error kinds returned by Controller operations (spec.md 4.5, 7).
var (
	ErrNotIdle       = errors.New("scheduler: controller is not idle")
	ErrNotRunning    = errors.New("scheduler: controller is not running")
	ErrNotPaused     = errors.New("scheduler: controller is not paused")
	ErrNotStopped    = errors.New("scheduler: controller is not stopped")
	ErrInvalidConfig = errors.New("scheduler: invalid run configuration")
)

// FatalError carries the invariant name surfaced to on_run_complete when
// a run aborts (spec.md 7, "fatal"). The Controller leaves IDs empty; the
// offending place id appears only in Err's message.
type FatalError struct {
	Invariant string
	IDs       []any
	Err       error
}

func (e *FatalError) Error() string {
	return "scheduler: fatal: " + e.Invariant + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error { return e.Err }
