// Package solver implements fixed- and adaptive-step Runge-Kutta
// integrators for the continuous-transition flux of a hybrid Petri net
// (spec.md 4.3.4). It knows nothing about places or transitions: callers
// hand it a derivative function keyed by whatever state labels they
// choose (the behavior package uses place identifiers) and get back a
// trajectory or a single advanced state.
package solver

import (
	"math"
)

// ODEFunc computes du/dt at time t given the current state u, keyed by
// state label (a place identifier in this module's usage).
type ODEFunc func(t float64, u map[string]float64) map[string]float64

// Problem is an ODE initial value problem: integrate F from U0 over
// Tspan.
type Problem struct {
	U0          map[string]float64
	Tspan       [2]float64
	F           ODEFunc
	stateLabels []string
}

// NewProblem builds a Problem over the given initial state and
// derivative function. stateLabels fixes iteration order; if nil it is
// derived from initialState's keys.
func NewProblem(initialState map[string]float64, tspan [2]float64, f ODEFunc, stateLabels []string) *Problem {
	if stateLabels == nil {
		stateLabels = make([]string, 0, len(initialState))
		for k := range initialState {
			stateLabels = append(stateLabels, k)
		}
	}
	return &Problem{
		U0:          initialState,
		Tspan:       tspan,
		F:           f,
		stateLabels: stateLabels,
	}
}

// Solution is the trajectory produced by Solve or SolveUntilEquilibrium.
type Solution struct {
	T           []float64
	U           []map[string]float64
	StateLabels []string
}

// GetVariable extracts the time series for a state variable, addressed
// either by index into StateLabels or by label.
func (s *Solution) GetVariable(index interface{}) []float64 {
	var label string
	switch t := index.(type) {
	case int:
		if t < 0 || t >= len(s.StateLabels) {
			return nil
		}
		label = s.StateLabels[t]
	case string:
		label = t
	default:
		return nil
	}
	out := make([]float64, 0, len(s.U))
	for _, st := range s.U {
		out = append(out, st[label])
	}
	return out
}

// GetFinalState returns the last recorded state.
func (s *Solution) GetFinalState() map[string]float64 {
	if len(s.U) == 0 {
		return nil
	}
	return s.U[len(s.U)-1]
}

// GetState returns the state at time-point index i.
func (s *Solution) GetState(i int) map[string]float64 {
	if i < 0 || i >= len(s.U) {
		return nil
	}
	return s.U[i]
}

// Options configures a Solve call.
type Options struct {
	Dt       float64
	Dtmin    float64
	Dtmax    float64
	Abstol   float64
	Reltol   float64
	Maxiters int
	Adaptive bool
}

// DefaultOptions is tuned for smooth biochemical/population dynamics.
func DefaultOptions() *Options {
	return &Options{
		Dt:       0.01,
		Dtmin:    1e-6,
		Dtmax:    0.1,
		Abstol:   1e-6,
		Reltol:   1e-3,
		Maxiters: 100000,
		Adaptive: true,
	}
}

// StiffOptions favors the fixed-step implicit methods (ImplicitEuler,
// TRBDF2) over adaptive explicit stepping.
func StiffOptions() *Options {
	return &Options{
		Dt:       0.01,
		Dtmin:    1e-8,
		Dtmax:    0.01,
		Abstol:   1e-8,
		Reltol:   1e-4,
		Maxiters: 100000,
		Adaptive: false,
	}
}

// Solver is a Butcher tableau: nodes, matrix, solution weights and an
// optional embedded error estimator.
type Solver struct {
	Name  string
	Order int
	C     []float64
	A     [][]float64
	B     []float64
	Bhat  []float64
}

// Solve integrates prob over its full Tspan using solver (default
// Tsit5) and opts (default DefaultOptions), returning the full
// trajectory.
func Solve(prob *Problem, solver *Solver, opts *Options) *Solution {
	if solver == nil {
		solver = Tsit5()
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	dt := opts.Dt
	dtmin := opts.Dtmin
	dtmax := opts.Dtmax
	abstol := opts.Abstol
	reltol := opts.Reltol
	maxiters := opts.Maxiters
	adaptive := opts.Adaptive

	t0 := prob.Tspan[0]
	tf := prob.Tspan[1]
	u0 := prob.U0
	f := prob.F
	stateLabels := prob.stateLabels

	t := []float64{t0}
	u := []map[string]float64{CopyState(u0)}
	tcur := t0
	ucur := CopyState(u0)
	dtcur := dt
	nsteps := 0

	for tcur < tf && nsteps < maxiters {
		if tcur+dtcur > tf {
			dtcur = tf - tcur
		}

		unext, errRatio := rkStep(solver, f, tcur, dtcur, ucur, stateLabels, abstol, reltol, adaptive)

		if !adaptive || errRatio <= 1.0 || dtcur <= dtmin {
			tcur += dtcur
			ucur = unext
			t = append(t, tcur)
			u = append(u, CopyState(ucur))
			nsteps++

			if adaptive && errRatio > 0 {
				factor := 0.9 * math.Pow(1.0/errRatio, 1.0/float64(solver.Order+1))
				factor = math.Min(factor, 5.0)
				dtcur = math.Min(dtmax, math.Max(dtmin, dtcur*factor))
			}
		} else {
			factor := 0.9 * math.Pow(1.0/errRatio, 1.0/float64(solver.Order+1))
			factor = math.Max(factor, 0.1)
			dtcur = math.Max(dtmin, dtcur*factor)
		}
	}

	return &Solution{T: t, U: u, StateLabels: stateLabels}
}

// Step advances state u by exactly dt using solver's Butcher tableau, a
// single non-adaptive Runge-Kutta step. This is what the scheduler calls
// once per tick (spec.md 4.5 step 4): one fixed sub-step of whatever
// integrator RunConfig selects, composing every continuous transition's
// flux through f.
func Step(solver *Solver, f ODEFunc, t, dt float64, u map[string]float64, stateLabels []string) map[string]float64 {
	if solver == nil {
		solver = RK4()
	}
	unext, _ := rkStep(solver, f, t, dt, u, stateLabels, 0, 0, false)
	return unext
}

func rkStep(solver *Solver, f ODEFunc, tcur, dtcur float64, ucur map[string]float64, stateLabels []string, abstol, reltol float64, adaptive bool) (map[string]float64, float64) {
	K := make([]map[string]float64, len(solver.C))
	K[0] = f(tcur, ucur)

	for stage := 1; stage < len(solver.C); stage++ {
		tstage := tcur + solver.C[stage]*dtcur
		ustage := CopyState(ucur)
		for _, key := range stateLabels {
			for j := 0; j < stage; j++ {
				aj := 0.0
				if len(solver.A) > stage && len(solver.A[stage]) > j {
					aj = solver.A[stage][j]
				}
				ustage[key] += dtcur * aj * K[j][key]
			}
		}
		K[stage] = f(tstage, ustage)
	}

	unext := CopyState(ucur)
	for _, key := range stateLabels {
		for j := 0; j < len(solver.B); j++ {
			unext[key] += dtcur * solver.B[j] * K[j][key]
		}
	}

	if !adaptive {
		return unext, 0
	}

	errRatio := 0.0
	for _, key := range stateLabels {
		errest := 0.0
		for j := 0; j < len(solver.Bhat); j++ {
			errest += dtcur * solver.Bhat[j] * K[j][key]
		}
		scale := abstol + reltol*math.Max(math.Abs(ucur[key]), math.Abs(unext[key]))
		if scale == 0 {
			scale = abstol
		}
		val := math.Abs(errest) / scale
		if val > errRatio {
			errRatio = val
		}
	}
	return unext, errRatio
}

// CopyState returns a shallow copy of a state map.
func CopyState(s map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
