package behavior

import (
	"math"
	"strconv"

	"github.com/pflow-xyz/hybridnet/model"
	"github.com/pflow-xyz/hybridnet/rateexpr"
	"github.com/pflow-xyz/hybridnet/solver"
)

// Continuous never fires discretely; the scheduler drives it through
// Integrate once per tick (spec.md 4.3.4).
type Continuous struct {
	net            *model.Net
	id             model.TransitionID
	props          model.ContinuousProps
	evaluator      *rateexpr.Evaluator
	rk             *solver.Solver
	stiffDetection bool
}

// NewContinuous compiles props.RateExpr once against every place
// identifier in net (spec.md 4.4 "compiles rate expressions once") and
// builds the Continuous behavior for transition id. rk selects the
// Runge-Kutta method used for each tick's sub-step; nil defaults to the
// fixed-step RK4 spec.md 4.3.4 mandates. stiffDetection, when true, has
// Integrate check the flux for stiffness each tick (solver.DetectStiffness)
// and fall back to the fixed-step implicit TR-BDF2 method (solver.
// StepImplicit) instead of rk whenever the flux is stiff.
func NewContinuous(net *model.Net, id model.TransitionID, props model.ContinuousProps, rk *solver.Solver, stiffDetection bool) (*Continuous, error) {
	ev, err := rateexpr.Compile(props.RateExpr, placeIdentifiers(net))
	if err != nil {
		return nil, err
	}
	if rk == nil {
		rk = solver.RK4()
	}
	return &Continuous{net: net, id: id, props: props, evaluator: ev, rk: rk, stiffDetection: stiffDetection}, nil
}

func placeIdentifiers(net *model.Net) []string {
	ids := net.Places()
	out := make([]string, 0, len(ids)*2)
	for _, pid := range ids {
		p, ok := net.Place(pid)
		if !ok {
			continue
		}
		out = append(out, placeLabel(p), placeLabel2(p))
	}
	return out
}

func placeLabel(p *model.Place) string {
	return "P" + strconv.Itoa(int(p.ID))
}

func placeLabel2(p *model.Place) string {
	return p.Name
}

func (b *Continuous) Kind() model.TransitionKind { return model.Continuous }

// CanFire reports structural enablement only; Continuous never fires
// discretely, but the scheduler still needs to know whether it is
// eligible for integration this tick.
func (b *Continuous) CanFire(now float64) (bool, error) {
	return structurallyEnabled(b.net, b.id)
}

func (b *Continuous) Fire(now float64) (bool, error) {
	return false, ErrNotFireable
}

type incidence struct {
	label  string
	weight float64
	sign   float64 // -1 consumption (pre), +1 production (post)
	place  *model.Place
}

// flux builds this transition's incidence list, ODE function, initial
// state and state labels as of now: the shared construction Integrate and
// PredictEquilibrium both drive through a solver.ODEFunc.
func (b *Continuous) flux(now float64) ([]incidence, solver.ODEFunc, map[string]float64, []string) {
	pre := b.net.PreArcs(b.id)
	post := b.net.PostArcs(b.id)

	incidences := make([]incidence, 0, len(pre)+len(post))
	u0 := make(map[string]float64)
	labels := make([]string, 0, len(pre)+len(post))

	addIncidence := func(p *model.Place, weight, sign float64) {
		label := placeLabel(p)
		if _, seen := u0[label]; !seen {
			u0[label] = p.Tokens
			labels = append(labels, label)
		}
		incidences = append(incidences, incidence{label: label, weight: weight, sign: sign, place: p})
	}
	for _, a := range pre {
		if a.Kind != model.Normal {
			continue
		}
		p, ok := b.net.Place(a.Source.(model.PlaceID))
		if !ok {
			continue
		}
		addIncidence(p, a.Weight, -1)
	}
	for _, a := range post {
		p, ok := b.net.Place(a.Target.(model.PlaceID))
		if !ok {
			continue
		}
		addIncidence(p, a.Weight, +1)
	}
	if len(labels) == 0 {
		return incidences, nil, u0, labels
	}

	snapshot := b.snapshotEnv(now)

	f := func(t float64, u map[string]float64) map[string]float64 {
		env := make(map[string]float64, len(snapshot)+1)
		for k, v := range snapshot {
			env[k] = v
		}
		for _, inc := range incidences {
			env[inc.label] = u[inc.label]
			env[placeLabel2(inc.place)] = u[inc.label]
		}
		env["t"] = t

		r, err := b.evaluator.Evaluate(env)
		if err != nil {
			r = 0
		} else {
			r = clampRate(r, b.props.MinRate, b.props.MaxRate)
			for _, inc := range incidences {
				if inc.sign < 0 && u[inc.label] <= b.props.MinTokenThreshold {
					r = 0
					break
				}
			}
		}

		du := make(map[string]float64, len(labels))
		for _, inc := range incidences {
			du[inc.label] += inc.sign * inc.weight * r
		}
		return du
	}

	return incidences, f, u0, labels
}

// PredictEquilibrium fast-forwards this transition's flux in isolation
// (marking elsewhere held at the now snapshot) toward steady state using
// solver.SolveUntilEquilibrium, without mutating the net. horizon bounds
// how far past now the search may run; eqOpts selects the detection
// tolerance (nil defaults to solver.DefaultEquilibriumOptions).
func (b *Continuous) PredictEquilibrium(now, horizon float64, eqOpts *solver.EquilibriumOptions) (*solver.EquilibriumResult, error) {
	_, f, u0, labels := b.flux(now)
	if f == nil {
		return &solver.EquilibriumResult{Reached: true, Time: now, State: u0, Reason: "no_incident_places"}, nil
	}
	prob := solver.NewProblem(u0, [2]float64{now, now + horizon}, f, labels)
	_, result := solver.SolveUntilEquilibrium(prob, b.rk, nil, eqOpts)
	return result, nil
}

// Integrate advances this transition's flow by dt (spec.md 4.3.4): it
// evaluates rate_expr against a joint snapshot of every place (frozen
// except the places incident to this transition, which move under a
// single RK sub-step), clamps the resulting flow Φ to what every pre-arc
// place can actually supply, and applies the clamped deltas atomically.
func (b *Continuous) Integrate(now, dt float64) (bool, error) {
	incidences, f, u0, labels := b.flux(now)
	if len(labels) == 0 {
		return true, nil
	}

	netWeight := make(map[string]float64, len(labels))
	for _, inc := range incidences {
		netWeight[inc.label] += inc.sign * inc.weight
	}

	var u1 map[string]float64
	if b.stiffDetection && solver.DetectStiffness(f, now, u0) {
		u1 = solver.StepImplicit(solver.TRBDF2Method, f, now, dt, u0, labels, nil)
	} else {
		u1 = solver.Step(b.rk, f, now, dt, u0, labels)
	}

	var phi float64
	for _, label := range labels {
		if nw := netWeight[label]; nw != 0 {
			phi = (u1[label] - u0[label]) / nw
			break
		}
	}

	maxPhi := math.Inf(1)
	for _, inc := range incidences {
		if inc.sign < 0 {
			available := inc.place.Tokens / inc.weight
			if available < maxPhi {
				maxPhi = available
			}
		}
	}

	clamped := false
	if phi < 0 {
		phi = 0
	}
	if phi > maxPhi {
		phi = maxPhi
		clamped = true
	}

	placeByLabel := make(map[string]*model.Place, len(labels))
	for _, inc := range incidences {
		placeByLabel[inc.label] = inc.place
	}
	for _, label := range labels {
		nw := netWeight[label]
		if nw == 0 {
			continue
		}
		p := placeByLabel[label]
		p.Tokens += nw * phi
		if p.Tokens < 0 {
			p.Tokens = 0
		}
	}

	t, found := b.net.Transition(b.id)
	if found {
		t.FiringCount += phi
	}

	if clamped {
		return true, ErrClampedByAvailability
	}
	return true, nil
}

func (b *Continuous) snapshotEnv(now float64) map[string]float64 {
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
	return env
}

func (b *Continuous) OnEnabled(now float64) {}
func (b *Continuous) OnDisabled()           {}

func (b *Continuous) NextEventTime(now float64) (float64, bool) {
	return 0, false
}

// IsUrgent is always false: Continuous never fires discretely, it only
// integrates (spec.md 4.5 step 2 excludes Continuous from the urgent set).
func (b *Continuous) IsUrgent(now float64) bool {
	return false
}
