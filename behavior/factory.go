package behavior

import (
	"fmt"

	"github.com/pflow-xyz/hybridnet/model"
	"github.com/pflow-xyz/hybridnet/solver"
)

// Factory dispatches create_behavior by transition kind (spec.md 4.4),
// grounded on a lazy-capture constructor pattern and
// the metamodel Model/State separation: a Factory holds only the net
// handle and a run seed, never a snapshot of the marking.
type Factory struct {
	net            *model.Net
	runSeed        int64
	integrator     *solver.Solver
	stiffDetection bool
}

// NewFactory builds a Factory bound to net. runSeed seeds every
// Stochastic transition's rng stream (spec.md 4.3.3); integrator selects
// the Runge-Kutta method Continuous behaviors use each tick (nil
// defaults to RK4, spec.md 4.3.4); stiffDetection enables per-tick
// stiffness detection and implicit fallback on every Continuous behavior
// this factory creates (spec.md 4.3.4 extension, see SPEC_FULL.md).
func NewFactory(net *model.Net, runSeed int64, integrator *solver.Solver, stiffDetection bool) *Factory {
	return &Factory{net: net, runSeed: runSeed, integrator: integrator, stiffDetection: stiffDetection}
}

// Create builds the Behavior for transition id, dispatching on its kind
// and validating/compiling kind-specific properties.
func (f *Factory) Create(id model.TransitionID) (Behavior, error) {
	t, ok := f.net.Transition(id)
	if !ok {
		return nil, model.ErrNotFound
	}
	switch t.Kind {
	case model.Immediate:
		props, ok := t.Properties.(model.ImmediateProps)
		if !ok {
			return nil, model.ErrInvalidProperties
		}
		return NewImmediate(f.net, id, props), nil
	case model.Timed:
		props, ok := t.Properties.(model.TimedProps)
		if !ok {
			return nil, model.ErrInvalidProperties
		}
		return NewTimed(f.net, id, props)
	case model.Stochastic:
		props, ok := t.Properties.(model.StochasticProps)
		if !ok {
			return nil, model.ErrInvalidProperties
		}
		return NewStochastic(f.net, id, props, f.runSeed), nil
	case model.Continuous:
		props, ok := t.Properties.(model.ContinuousProps)
		if !ok {
			return nil, model.ErrInvalidProperties
		}
		return NewContinuous(f.net, id, props, f.integrator, f.stiffDetection)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownKind, t.Kind)
	}
}

// CreateAll builds a Behavior for every transition currently in the net,
// keyed by transition id.
func (f *Factory) CreateAll() (map[model.TransitionID]Behavior, error) {
	out := make(map[model.TransitionID]Behavior)
	for _, id := range f.net.Transitions() {
		b, err := f.Create(id)
		if err != nil {
			return nil, fmt.Errorf("transition %d: %w", id, err)
		}
		out[id] = b
	}
	return out, nil
}
