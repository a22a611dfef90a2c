package behavior

import "github.com/pflow-xyz/hybridnet/model"

// Behavior is the polymorphic capability set every transition kind
// implements (spec.md 4.3).
type Behavior interface {
	Kind() model.TransitionKind
	// CanFire reports whether the transition may act at logical time now.
	// A non-nil error names the blocking reason; it is never fatal on its
	// own (spec.md 4.3.5).
	CanFire(now float64) (bool, error)
	// Fire executes a discrete transition (Immediate, Timed, Stochastic).
	// Continuous transitions return ErrNotFireable.
	Fire(now float64) (bool, error)
	// Integrate advances a Continuous transition's flow by dt. Discrete
	// kinds return ErrNotFireable.
	Integrate(now, dt float64) (bool, error)
	// OnEnabled notifies a transition that just became structurally
	// enabled at logical time now, arming timed/stochastic timers.
	OnEnabled(now float64)
	// OnDisabled notifies a transition that just became structurally
	// disabled, discarding any armed timer.
	OnDisabled()
	// NextEventTime returns the transition's next scheduled event time,
	// if it has one. Immediate is urgent whenever structurally enabled,
	// so it returns (now, true) in that case; timed/stochastic return
	// their own armed deadline, Timed first using now to move from
	// Waiting to Fireable once its earliest time has passed (spec.md 4.3).
	NextEventTime(now float64) (float64, bool)
	// IsUrgent reports whether the transition is unconditionally eligible
	// to fire this tick, independent of the next_event_time <= now test:
	// Immediate whenever structurally enabled, Timed whenever armed into
	// its Fireable window, Stochastic once its sampled delay has elapsed,
	// Continuous never (spec.md 4.5 step 2).
	IsUrgent(now float64) bool
}
