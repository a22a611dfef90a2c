package behavior

import (
	"math"
	"math/rand"

	"github.com/pflow-xyz/hybridnet/model"
)

// Stochastic samples an exponential inter-firing delay and a burst size
// on every fresh enablement episode; it must disable and re-enable to
// resample (spec.md 4.3.3).
type Stochastic struct {
	net   *model.Net
	id    model.TransitionID
	props model.StochasticProps
	rng   *rand.Rand

	armed    bool
	used     bool // set once Fire has consumed this episode's sample
	tFire    float64
	burst    int
}

// NewStochastic builds the Stochastic behavior for transition id, with
// its own rng stream derived from (runSeed, id).
func NewStochastic(net *model.Net, id model.TransitionID, props model.StochasticProps, runSeed int64) *Stochastic {
	return &Stochastic{net: net, id: id, props: props, rng: newTransitionRNG(runSeed, id)}
}

func (b *Stochastic) Kind() model.TransitionKind { return model.Stochastic }

func (b *Stochastic) sample(now float64) {
	u := b.rng.Float64()
	for u <= 0 {
		u = b.rng.Float64()
	}
	delta := -math.Log(u) / b.props.Rate
	b.tFire = now + delta
	b.burst = 1 + b.rng.Intn(b.props.MaxBurst)
	b.armed = true
	b.used = false
}

func (b *Stochastic) CanFire(now float64) (bool, error) {
	if ok, err := structurallyEnabled(b.net, b.id); !ok {
		return false, err
	}
	if !b.armed || b.used {
		return false, ErrTooEarly
	}
	if now < b.tFire {
		return false, ErrTooEarly
	}
	if feasibleBurst(b.net, b.id, b.burst) < 1 {
		return false, ErrInsufficientInput
	}
	return true, nil
}

func (b *Stochastic) Fire(now float64) (bool, error) {
	ok, err := b.CanFire(now)
	if !ok {
		return false, err
	}
	k := feasibleBurst(b.net, b.id, b.burst)
	if k < 1 {
		return false, ErrInsufficientInput
	}
	if err := fireDiscrete(b.net, b.id, float64(k)); err != nil {
		return false, err
	}
	t, found := b.net.Transition(b.id)
	if found {
		t.FiringCount += float64(k)
	}
	b.used = true
	return true, nil
}

func (b *Stochastic) Integrate(now, dt float64) (bool, error) {
	return false, ErrNotFireable
}

func (b *Stochastic) OnEnabled(now float64) {
	if !b.armed {
		b.sample(now)
	}
}

func (b *Stochastic) OnDisabled() {
	b.armed = false
	b.used = false
}

func (b *Stochastic) NextEventTime(now float64) (float64, bool) {
	if !b.armed || b.used {
		return 0, false
	}
	return b.tFire, true
}

func (b *Stochastic) IsUrgent(now float64) bool {
	return b.armed && !b.used && now >= b.tFire
}
