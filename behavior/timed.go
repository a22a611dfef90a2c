package behavior

import (
	"github.com/pflow-xyz/hybridnet/model"
	"github.com/pflow-xyz/hybridnet/rateexpr"
)

type timedState int

const (
	timedDisabled timedState = iota
	timedWaiting
	timedFireable
)

// Timed arms a window [t_e+earliest, t_e+latest] on structural enablement
// and must fire somewhere within it, urgently at the upper bound
// (spec.md 4.3.2). An optional guard further restricts which instants
// inside that window are actually fireable (4.3.2 guard extension).
type Timed struct {
	net   *model.Net
	id    model.TransitionID
	props model.TimedProps
	guard *rateexpr.Evaluator

	state timedState
	tE    float64
}

// NewTimed builds the Timed behavior for transition id, compiling props's
// optional guard expression once against every place identifier in net.
func NewTimed(net *model.Net, id model.TransitionID, props model.TimedProps) (*Timed, error) {
	t := &Timed{net: net, id: id, props: props, state: timedDisabled}
	if props.Guard != "" {
		ev, err := rateexpr.Compile(props.Guard, placeIdentifiers(net))
		if err != nil {
			return nil, err
		}
		t.guard = ev
	}
	return t, nil
}

func (b *Timed) Kind() model.TransitionKind { return model.Timed }

// arm promotes Waiting -> Fireable once now has crossed t_e+earliest.
func (b *Timed) arm(now float64) {
	if b.state == timedWaiting && now >= b.tE+b.props.Earliest {
		b.state = timedFireable
	}
}

func (b *Timed) CanFire(now float64) (bool, error) {
	if ok, err := structurallyEnabled(b.net, b.id); !ok {
		return false, err
	}
	b.arm(now)
	switch b.state {
	case timedDisabled:
		return false, ErrTooEarly
	case timedWaiting:
		return false, ErrTooEarly
	case timedFireable:
		if now > b.tE+b.props.Latest {
			return false, ErrTooLate
		}
		if b.guard != nil {
			ok, err := b.evaluateGuard(now)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, ErrGuardFalse
			}
		}
		return true, nil
	}
	return false, ErrTooEarly
}

// evaluateGuard runs the compiled guard against a snapshot of every
// place's current marking plus t, the same environment shape Continuous
// uses for its rate expression.
func (b *Timed) evaluateGuard(now float64) (bool, error) {
	ids := b.net.Places()
	env := make(map[string]float64, len(ids)*2+1)
	for _, pid := range ids {
		p, ok := b.net.Place(pid)
		if !ok {
			continue
		}
		env[placeLabel(p)] = p.Tokens
		env[placeLabel2(p)] = p.Tokens
	}
	env["t"] = now
	return b.guard.EvaluateGuard(env)
}

// IsUrgent reports whether this transition is armed into its Fireable
// window, unconditionally eligible to be offered as a firing candidate
// this tick regardless of whether now has reached the forced upper-bound
// deadline (spec.md 4.5 step 2, "timed in Fireable").
func (b *Timed) IsUrgent(now float64) bool {
	b.arm(now)
	return b.state == timedFireable
}

func (b *Timed) Fire(now float64) (bool, error) {
	ok, err := b.CanFire(now)
	if !ok {
		return false, err
	}
	if err := fireDiscrete(b.net, b.id, 1); err != nil {
		return false, err
	}
	t, found := b.net.Transition(b.id)
	if found {
		t.FiringCount++
	}
	b.state = timedDisabled
	return true, nil
}

func (b *Timed) Integrate(now, dt float64) (bool, error) {
	return false, ErrNotFireable
}

func (b *Timed) OnEnabled(now float64) {
	if b.state == timedDisabled {
		b.tE = now
		b.state = timedWaiting
		b.arm(now)
	}
}

func (b *Timed) OnDisabled() {
	b.state = timedDisabled
}

// NextEventTime returns the nearest of t_e+earliest (Waiting) or
// t_e+latest (Fireable, the forced-fire deadline).
func (b *Timed) NextEventTime(now float64) (float64, bool) {
	b.arm(now)
	switch b.state {
	case timedWaiting:
		return b.tE + b.props.Earliest, true
	case timedFireable:
		return b.tE + b.props.Latest, true
	}
	return 0, false
}
