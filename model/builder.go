package model

// Builder provides a fluent API for constructing a Net, grounded on the
// a fluent Petri net builder. Errors are accumulated and surfaced by Done,
// rather than panicking, so a Builder is safe to use in tests with
// require.NoError(t, err) at the end of the chain.
type Builder struct {
	net  *Net
	err  error
	ids  map[string]PlaceID
	tids map[string]TransitionID
}

// Build starts a new fluent Net construction.
func Build() *Builder {
	return &Builder{net: New(), ids: map[string]PlaceID{}, tids: map[string]TransitionID{}}
}

// Place adds a place with the given initial marking.
func (b *Builder) Place(name string, initial float64) *Builder {
	return b.PlaceWithCapacity(name, initial, 0)
}

// PlaceWithCapacity adds a place with an initial marking and a capacity
// bound (0 = unlimited).
func (b *Builder) PlaceWithCapacity(name string, initial, capacity float64) *Builder {
	if b.err != nil {
		return b
	}
	id, err := b.net.AddPlace(name, initial, capacity, nil)
	if err != nil {
		b.err = err
		return b
	}
	b.ids[name] = id
	return b
}

// Immediate adds an immediate transition.
func (b *Builder) Immediate(name string, priority int, weight float64) *Builder {
	if b.err != nil {
		return b
	}
	id, err := b.net.AddTransition(name, Immediate, ImmediateProps{Priority: priority, Weight: weight})
	if err != nil {
		b.err = err
		return b
	}
	b.tids[name] = id
	return b
}

// Timed adds a timed transition with an [earliest, latest] firing window.
func (b *Builder) Timed(name string, earliest, latest float64) *Builder {
	return b.TimedGuarded(name, earliest, latest, "")
}

// TimedGuarded adds a timed transition with an [earliest, latest] firing
// window and a guard expression that must hold for the transition to
// actually fire within that window (spec.md 4.3.2 guard extension).
func (b *Builder) TimedGuarded(name string, earliest, latest float64, guard string) *Builder {
	if b.err != nil {
		return b
	}
	id, err := b.net.AddTransition(name, Timed, TimedProps{Earliest: earliest, Latest: latest, Guard: guard})
	if err != nil {
		b.err = err
		return b
	}
	b.tids[name] = id
	return b
}

// StochasticT adds a stochastic transition with rate lambda and a max burst.
func (b *Builder) StochasticT(name string, rate float64, maxBurst int) *Builder {
	if b.err != nil {
		return b
	}
	id, err := b.net.AddTransition(name, Stochastic, StochasticProps{Rate: rate, MaxBurst: maxBurst})
	if err != nil {
		b.err = err
		return b
	}
	b.tids[name] = id
	return b
}

// ContinuousT adds a continuous transition governed by a rate expression.
func (b *Builder) ContinuousT(name, rateExpr string, minRate, maxRate, minTokenThreshold float64) *Builder {
	if b.err != nil {
		return b
	}
	id, err := b.net.AddTransition(name, Continuous, ContinuousProps{
		RateExpr:          rateExpr,
		MinRate:           minRate,
		MaxRate:           maxRate,
		MinTokenThreshold: minTokenThreshold,
	})
	if err != nil {
		b.err = err
		return b
	}
	b.tids[name] = id
	return b
}

// Arc adds a normal arc between a previously-named place and transition,
// in either direction.
func (b *Builder) Arc(source, target string, weight float64) *Builder {
	return b.arc(source, target, Normal, weight)
}

// InhibitorArc adds a place->transition inhibitor arc.
func (b *Builder) InhibitorArc(place, transition string, weight float64) *Builder {
	return b.arc(place, transition, Inhibitor, weight)
}

// ReadArc adds a place->transition read/test arc.
func (b *Builder) ReadArc(place, transition string, weight float64) *Builder {
	return b.arc(place, transition, Read, weight)
}

func (b *Builder) arc(source, target string, kind ArcKind, weight float64) *Builder {
	if b.err != nil {
		return b
	}
	s, err := b.endpoint(source)
	if err != nil {
		b.err = err
		return b
	}
	t, err := b.endpoint(target)
	if err != nil {
		b.err = err
		return b
	}
	if _, err := b.net.AddArc(s, t, kind, weight); err != nil {
		b.err = err
	}
	return b
}

func (b *Builder) endpoint(name string) (any, error) {
	if id, ok := b.ids[name]; ok {
		return id, nil
	}
	if id, ok := b.tids[name]; ok {
		return id, nil
	}
	return nil, ErrNotFound
}

// Done finalizes construction, returning the built net or the first error
// encountered during the chain.
func (b *Builder) Done() (*Net, error) {
	return b.net, b.err
}
