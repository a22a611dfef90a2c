package scheduler

import (
	"math"
	"time"

	"github.com/pflow-xyz/hybridnet/solver"
)

// ConflictPolicy selects how the controller resolves locality conflicts
// among multiple urgent discrete candidates within one maximal
// non-conflicting subset (spec.md 4.5 step 3b).
type ConflictPolicy int

const (
	// WeightedRandom samples proportionally to each candidate's weight.
	// Default, per spec.md 4.5 "Run config".
	WeightedRandom ConflictPolicy = iota
	// Priority picks the highest ImmediateProps.Priority, ties broken by id.
	Priority
	// FirstEnabled picks the lowest id among those enabled longest.
	FirstEnabled
)

func (p ConflictPolicy) String() string {
	switch p {
	case Priority:
		return "priority"
	case FirstEnabled:
		return "first_enabled"
	default:
		return "weighted_random"
	}
}

// RunConfig is the persisted run configuration blob (spec.md 4.5, 6).
type RunConfig struct {
	// TimeStep is the controller tick length dt > 0.
	TimeStep float64
	// MaxSteps bounds the run by tick count; 0 means unbounded.
	MaxSteps int
	// MaxTime bounds the run by logical time; +Inf means unbounded.
	MaxTime float64
	// ConflictPolicy selects discrete-conflict resolution.
	ConflictPolicy ConflictPolicy
	// Seed seeds every stochastic transition's rng stream.
	Seed int64
	// MicroStepBudget bounds oscillation within one tick (spec.md 4.5
	// step 3, "budget default = |transitions|+1"); 0 selects the default.
	MicroStepBudget int
	// TickBudget is the optional per-tick wall-clock budget (spec.md 4.5
	// "Cancellation and timeouts"); 0 disables the timeout.
	TickBudget time.Duration
	// QuiescenceSteps is the number of consecutive ticks with zero fired
	// transitions and zero continuous flow after which the run is
	// considered quiescent and stops (spec.md 4.5 step 7); 0 disables
	// quiescence-based termination.
	QuiescenceSteps int
	// Integrator selects the Runge-Kutta method continuous transitions
	// use each tick; nil defaults to RK4 (spec.md 4.3.4).
	Integrator *solver.Solver
	// StiffDetection enables per-tick stiffness detection (solver.
	// DetectStiffness) on every Continuous transition's flux: when the
	// ratio between its largest and smallest derivative magnitude exceeds
	// the detector's threshold, that tick's sub-step uses the fixed-step
	// implicit TR-BDF2 method (solver.StepImplicit) instead of Integrator,
	// trading tableau generality for stability on a stiff flux. Off by
	// default, since most continuous transitions in practice are smooth
	// enough for the configured Runge-Kutta tableau alone.
	StiffDetection bool
}

// DefaultRunConfig returns the documented defaults (spec.md 6):
// dt = 0.1, max_time = infinity, max_steps = infinity,
// conflict_policy = weighted_random, seed = platform-default entropy
// captured once.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		TimeStep:       0.1,
		MaxSteps:       0,
		MaxTime:        math.Inf(1),
		ConflictPolicy: WeightedRandom,
		Seed:           time.Now().UnixNano(),
	}
}

func (c RunConfig) validate() error {
	if c.TimeStep <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

func (c RunConfig) microStepBudget(transitionCount int) int {
	if c.MicroStepBudget > 0 {
		return c.MicroStepBudget
	}
	return transitionCount + 1
}
