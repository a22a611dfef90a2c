package behavior

import "github.com/pflow-xyz/hybridnet/model"

// Immediate fires with zero time advance whenever structurally enabled
// (spec.md 4.3.1). It carries no timing state of its own.
type Immediate struct {
	net   *model.Net
	id    model.TransitionID
	props model.ImmediateProps
}

// NewImmediate builds the Immediate behavior for transition id.
func NewImmediate(net *model.Net, id model.TransitionID, props model.ImmediateProps) *Immediate {
	return &Immediate{net: net, id: id, props: props}
}

func (b *Immediate) Kind() model.TransitionKind { return model.Immediate }

func (b *Immediate) CanFire(now float64) (bool, error) {
	return structurallyEnabled(b.net, b.id)
}

func (b *Immediate) Fire(now float64) (bool, error) {
	ok, err := structurallyEnabled(b.net, b.id)
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
	return true, nil
}

func (b *Immediate) Integrate(now, dt float64) (bool, error) {
	return false, ErrNotFireable
}

func (b *Immediate) OnEnabled(now float64) {}
func (b *Immediate) OnDisabled()           {}

// NextEventTime is urgent (now) whenever enabled; Immediate never waits.
func (b *Immediate) NextEventTime(now float64) (float64, bool) {
	ok, _ := structurallyEnabled(b.net, b.id)
	if !ok {
		return 0, false
	}
	return now, true
}

func (b *Immediate) IsUrgent(now float64) bool {
	ok, _ := structurallyEnabled(b.net, b.id)
	return ok
}
