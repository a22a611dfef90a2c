// Package rateexpr compiles and evaluates the rate/guard expression
// grammar used by timed (guards) and continuous (rates) transitions (spec.md 4.2):
// arithmetic, comparison and boolean operators plus a fixed, whitelisted
// function set, over the current marking and simulation time "t". Any
// other name, call, or control construct is rejected before expr-lang
// ever parses it.
package rateexpr

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Env binds every name a compiled expression may reference during a
// single evaluation: the current value of each declared identifier plus
// the whitelisted functions.
type Env map[string]any

func newEnv(values map[string]float64) Env {
	env := make(Env, len(values)+len(whitelistedFuncs))
	for name, v := range values {
		env[name] = v
	}
	for name, fn := range whitelistedFuncs {
		env[name] = fn
	}
	return env
}

// Evaluator is a compiled, whitelist-checked rate expression ready for
// repeated evaluation against different markings.
type Evaluator struct {
	source  string
	program *vm.Program
}

// Compile parses source into an Evaluator. identifiers lists every name
// (place identifiers and display names) the expression may reference in
// addition to the reserved "t"; any other identifier, and any function
// call outside the whitelist in functions.go, fails before compilation.
func Compile(source string, identifiers []string) (*Evaluator, error) {
	allowed := make(map[string]bool, len(identifiers))
	for _, id := range identifiers {
		allowed[id] = true
	}
	if err := scanWhitelist(source, allowed); err != nil {
		return nil, err
	}

	env := newEnv(zeroValues(identifiers))
	program, err := expr.Compile(source, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &Evaluator{source: source, program: program}, nil
}

func zeroValues(identifiers []string) map[string]float64 {
	values := make(map[string]float64, len(identifiers)+1)
	for _, id := range identifiers {
		values[id] = 0
	}
	values["t"] = 0
	return values
}

// Evaluate runs the compiled expression against values, a mapping from
// each declared identifier (and "t") to its current value. The result
// must be a finite scalar: NaN surfaces as *domain-error*, an infinite
// result as *division-by-zero*.
func (e *Evaluator) Evaluate(values map[string]float64) (float64, error) {
	env := newEnv(values)
	out, err := expr.Run(e.program, env)
	if err != nil {
		return 0, wrapRuntimeError(err)
	}

	var result float64
	switch v := out.(type) {
	case float64:
		result = v
	case int:
		result = float64(v)
	case bool:
		return 0, fmt.Errorf("%w: %q evaluated to a boolean, not a rate", ErrNotScalar, e.source)
	default:
		return 0, fmt.Errorf("%w: %q evaluated to %T", ErrNotScalar, e.source, out)
	}

	if math.IsNaN(result) {
		return 0, fmt.Errorf("%w: %q evaluated to NaN", ErrDomain, e.source)
	}
	if math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: %q evaluated to an infinite value", ErrDivisionByZero, e.source)
	}
	return result, nil
}

// EvaluateGuard runs the compiled expression and requires a boolean
// result, for the comparison/boolean grammar used by timed guard
// conditions rather than rate magnitudes.
func (e *Evaluator) EvaluateGuard(values map[string]float64) (bool, error) {
	env := newEnv(values)
	out, err := expr.Run(e.program, env)
	if err != nil {
		return false, wrapRuntimeError(err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q did not evaluate to a boolean", ErrNotScalar, e.source)
	}
	return b, nil
}

// Source returns the original expression text.
func (e *Evaluator) Source() string { return e.source }

func wrapRuntimeError(err error) error {
	switch {
	case errors.Is(err, ErrDomain), errors.Is(err, ErrDivisionByZero), errors.Is(err, ErrName), errors.Is(err, ErrNotScalar):
		return err
	case strings.Contains(err.Error(), "divide by zero"), strings.Contains(err.Error(), "division by zero"):
		return fmt.Errorf("%w: %v", ErrDivisionByZero, err)
	default:
		return fmt.Errorf("%w: %v", ErrDomain, err)
	}
}
