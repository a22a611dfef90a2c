package solver

import (
	"math"
)

// ImplicitMethod selects which fixed-step implicit integrator StepImplicit
// uses for a single sub-step.
type ImplicitMethod int

const (
	// BackwardEuler is first-order, A-stable, cheapest per step.
	BackwardEuler ImplicitMethod = iota
	// TRBDF2Method is the two-stage trapezoidal/BDF2 combination
	// implemented by the TRBDF2 function: second-order and still
	// A-stable, at roughly twice the per-step cost.
	TRBDF2Method
)

// StepImplicit advances u by exactly dt using method, the single-step
// analogue of Step for systems too stiff for a fixed-step Runge-Kutta
// tableau to resolve without an impractically small dt. opts supplies the
// fixed-point iteration tolerance and cap; nil defaults to StiffOptions.
func StepImplicit(method ImplicitMethod, f ODEFunc, t, dt float64, u map[string]float64, stateLabels []string, opts *Options) map[string]float64 {
	if opts == nil {
		opts = StiffOptions()
	}
	maxFixedPoint := 50
	fixedPointTol := opts.Abstol * 10
	if method == TRBDF2Method {
		return trbdf2Step(f, t, dt, u, stateLabels, fixedPointTol, maxFixedPoint)
	}
	return backwardEulerStep(f, t, dt, u, stateLabels, fixedPointTol, maxFixedPoint)
}

// backwardEulerStep solves u_{n+1} = u_n + dt*f(t_{n+1}, u_{n+1}) by fixed-
// point iteration u^{k+1} = u_n + dt*f(t_{n+1}, u^k), seeded with an
// explicit Euler guess.
func backwardEulerStep(f ODEFunc, tcur, dtcur float64, ucur map[string]float64, stateLabels []string, fixedPointTol float64, maxFixedPoint int) map[string]float64 {
	tnext := tcur + dtcur

	unext := CopyState(ucur)
	du := f(tcur, ucur)
	for _, key := range stateLabels {
		unext[key] += dtcur * du[key]
	}

	for iter := 0; iter < maxFixedPoint; iter++ {
		unew := CopyState(ucur)
		dunext := f(tnext, unext)
		for _, key := range stateLabels {
			unew[key] += dtcur * dunext[key]
		}

		maxDiff := 0.0
		for _, key := range stateLabels {
			diff := math.Abs(unew[key] - unext[key])
			if diff > maxDiff {
				maxDiff = diff
			}
		}

		unext = unew
		if maxDiff < fixedPointTol {
			break
		}
	}

	return unext
}

// ImplicitEuler solves using the backward Euler method.
// This is an A-stable implicit method suitable for stiff ODEs.
// It uses fixed-point iteration to solve the implicit equation.
//
// For stiff problems where explicit methods (Tsit5, RK45) require
// extremely small time steps, implicit methods can be much more efficient.
func ImplicitEuler(prob *Problem, opts *Options) *Solution {
	if opts == nil {
		opts = StiffOptions()
	}

	dt := opts.Dt
	maxiters := opts.Maxiters
	abstol := opts.Abstol

	t0 := prob.Tspan[0]
	tf := prob.Tspan[1]
	u0 := prob.U0
	f := prob.F
	stateLabels := prob.stateLabels

	t := []float64{t0}
	u := []map[string]float64{CopyState(u0)}
	tcur := t0
	ucur := CopyState(u0)
	nsteps := 0

	maxFixedPoint := 50
	fixedPointTol := abstol * 10

	for tcur < tf && nsteps < maxiters {
		dtcur := dt
		if tcur+dtcur > tf {
			dtcur = tf - tcur
		}

		ucur = backwardEulerStep(f, tcur, dtcur, ucur, stateLabels, fixedPointTol, maxFixedPoint)
		tcur += dtcur
		t = append(t, tcur)
		u = append(u, CopyState(ucur))
		nsteps++
	}

	return &Solution{
		T:           t,
		U:           u,
		StateLabels: stateLabels,
	}
}

// SolveImplicit is a convenience function that chooses between explicit
// and implicit methods based on problem characteristics.
// It uses stiffness detection to automatically select the best method.
func SolveImplicit(prob *Problem, opts *Options) *Solution {
	if opts == nil {
		opts = DefaultOptions()
	}

	stiff := DetectStiffness(prob.F, prob.Tspan[0], prob.U0)

	if stiff {
		implicitOpts := &Options{
			Dt:       opts.Dt,
			Dtmin:    opts.Dtmin,
			Dtmax:    opts.Dtmax,
			Abstol:   opts.Abstol,
			Reltol:   opts.Reltol,
			Maxiters: opts.Maxiters,
			Adaptive: false, // Implicit Euler uses fixed steps
		}
		return ImplicitEuler(prob, implicitOpts)
	}

	// Use explicit method
	return Solve(prob, Tsit5(), opts)
}

// DetectStiffness performs a quick test to detect if the system f is
// stiff at (t, u): the ratio of its largest to smallest non-negligible
// derivative magnitude. A ratio above 1000 favors a fixed-step implicit
// method (StepImplicit) over adaptive explicit stepping.
func DetectStiffness(f ODEFunc, t float64, u map[string]float64) bool {
	du := f(t, u)

	maxDu := 0.0
	minDu := math.MaxFloat64
	for _, v := range du {
		absV := math.Abs(v)
		if absV > 1e-10 {
			if absV > maxDu {
				maxDu = absV
			}
			if absV < minDu {
				minDu = absV
			}
		}
	}

	if minDu < 1e-10 || maxDu < 1e-10 {
		return false
	}

	ratio := maxDu / minDu
	return ratio > 1000
}

// trbdf2Gamma is the TR-BDF2 stage split, 2 - sqrt(2) (~0.586).
var trbdf2Gamma = 2.0 - math.Sqrt(2.0)

// trbdf2Step advances u by exactly dt via the two-stage TR-BDF2 method:
// a trapezoidal sub-step to t+gamma*dt, then a BDF2 sub-step to t+dt.
func trbdf2Step(f ODEFunc, tcur, dtcur float64, ucur map[string]float64, stateLabels []string, fixedPointTol float64, maxFixedPoint int) map[string]float64 {
	gamma := trbdf2Gamma

	// Stage 1: Trapezoidal rule from t to t + gamma*dt
	tgamma := tcur + gamma*dtcur
	ugamma := CopyState(ucur)

	du0 := f(tcur, ucur)

	// Initial guess using forward Euler
	for _, key := range stateLabels {
		ugamma[key] += gamma * dtcur * du0[key]
	}

	// Fixed-point iteration for trapezoidal step
	for iter := 0; iter < maxFixedPoint; iter++ {
		dugamma := f(tgamma, ugamma)
		unew := CopyState(ucur)
		for _, key := range stateLabels {
			// Trapezoidal: u_gamma = u_n + (gamma*dt/2) * (f_n + f_gamma)
			unew[key] += 0.5 * gamma * dtcur * (du0[key] + dugamma[key])
		}

		maxDiff := 0.0
		for _, key := range stateLabels {
			diff := math.Abs(unew[key] - ugamma[key])
			if diff > maxDiff {
				maxDiff = diff
			}
		}

		ugamma = unew
		if maxDiff < fixedPointTol {
			break
		}
	}

	// Stage 2: BDF2-like step from t + gamma*dt to t + dt
	unext := CopyState(ugamma)

	// Initial guess
	dugamma := f(tgamma, ugamma)
	for _, key := range stateLabels {
		unext[key] += (1 - gamma) * dtcur * dugamma[key]
	}

	// BDF2 coefficients for the second stage
	// The formula is: u_{n+1} = (1/gamma(2-gamma)) * u_gamma - ((1-gamma)^2/(gamma(2-gamma))) * u_n
	//                          + ((1-gamma)/(2-gamma)) * dt * f_{n+1}
	w1 := 1.0 / (gamma * (2 - gamma))
	w0 := -((1 - gamma) * (1 - gamma)) / (gamma * (2 - gamma))
	wf := (1 - gamma) / (2 - gamma)
	tnext := tcur + dtcur

	// Fixed-point iteration for BDF2 step
	for iter := 0; iter < maxFixedPoint; iter++ {
		dunext := f(tnext, unext)
		unew := make(map[string]float64)
		for _, key := range stateLabels {
			unew[key] = w1*ugamma[key] + w0*ucur[key] + wf*dtcur*dunext[key]
		}

		maxDiff := 0.0
		for _, key := range stateLabels {
			diff := math.Abs(unew[key] - unext[key])
			if diff > maxDiff {
				maxDiff = diff
			}
		}

		unext = unew
		if maxDiff < fixedPointTol {
			break
		}
	}

	return unext
}

// TRBDF2 implements the TR-BDF2 method, a two-stage implicit method.
// It combines the trapezoidal rule with BDF2 for better stability
// on stiff problems while maintaining 2nd order accuracy.
//
// This is more sophisticated than backward Euler but still relatively simple.
func TRBDF2(prob *Problem, opts *Options) *Solution {
	if opts == nil {
		opts = StiffOptions()
	}

	dt := opts.Dt
	maxiters := opts.Maxiters
	abstol := opts.Abstol

	t0 := prob.Tspan[0]
	tf := prob.Tspan[1]
	u0 := prob.U0
	f := prob.F
	stateLabels := prob.stateLabels

	t := []float64{t0}
	u := []map[string]float64{CopyState(u0)}
	tcur := t0
	ucur := CopyState(u0)
	nsteps := 0

	maxFixedPoint := 50
	fixedPointTol := abstol * 10

	for tcur < tf && nsteps < maxiters {
		dtcur := dt
		if tcur+dtcur > tf {
			dtcur = tf - tcur
		}

		ucur = trbdf2Step(f, tcur, dtcur, ucur, stateLabels, fixedPointTol, maxFixedPoint)
		tcur += dtcur
		t = append(t, tcur)
		u = append(u, CopyState(ucur))
		nsteps++
	}

	return &Solution{
		T:           t,
		U:           u,
		StateLabels: stateLabels,
	}
}
