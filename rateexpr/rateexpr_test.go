package rateexpr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileRejectsUnknownIdentifier(t *testing.T) {
	_, err := Compile("Prey * rogue", []string{"Prey"})
	require.ErrorIs(t, err, ErrName)
}

func TestCompileRejectsUnknownFunction(t *testing.T) {
	_, err := Compile("system(\"rm -rf /\")", []string{})
	require.ErrorIs(t, err, ErrParse)
}

func TestCompileRejectsMemberAccess(t *testing.T) {
	_, err := Compile("Prey.Tokens", []string{"Prey"})
	require.Error(t, err)
}

func TestEvaluateLinearRate(t *testing.T) {
	ev, err := Compile("k * Prey", []string{"k", "Prey"})
	require.NoError(t, err)

	out, err := ev.Evaluate(map[string]float64{"k": 0.1, "Prey": 50})
	require.NoError(t, err)
	require.InDelta(t, 5.0, out, 1e-9)
}

func TestEvaluateWhitelistedFunctions(t *testing.T) {
	cases := []struct {
		expr string
		vars map[string]float64
		want float64
	}{
		{"exp(0)", nil, 1},
		{"sqrt(16)", nil, 4},
		{"pow(2, 10)", nil, 1024},
		{"min(3, 5)", nil, 3},
		{"max(3, 5)", nil, 5},
		{"hill(S, K, 2)", map[string]float64{"S": 2, "K": 2}, 0.5},
		{"michaelis_menten(S, Vmax, Km)", map[string]float64{"S": 0, "Vmax": 10, "Km": 1}, 0},
	}
	for _, c := range cases {
		ids := make([]string, 0, len(c.vars))
		for name := range c.vars {
			ids = append(ids, name)
		}
		ev, err := Compile(c.expr, ids)
		require.NoError(t, err, c.expr)
		out, err := ev.Evaluate(c.vars)
		require.NoError(t, err, c.expr)
		require.InDelta(t, c.want, out, 1e-9, c.expr)
	}
}

func TestEvaluateLogDomainError(t *testing.T) {
	ev, err := Compile("log(Prey)", []string{"Prey"})
	require.NoError(t, err)

	_, err = ev.Evaluate(map[string]float64{"Prey": -1})
	require.ErrorIs(t, err, ErrDomain)
}

func TestEvaluateSqrtDomainError(t *testing.T) {
	ev, err := Compile("sqrt(Prey)", []string{"Prey"})
	require.NoError(t, err)

	_, err = ev.Evaluate(map[string]float64{"Prey": -4})
	require.ErrorIs(t, err, ErrDomain)
}

func TestEvaluateDivisionByZero(t *testing.T) {
	ev, err := Compile("1.0 / Prey", []string{"Prey"})
	require.NoError(t, err)

	_, err = ev.Evaluate(map[string]float64{"Prey": 0})
	require.ErrorIs(t, err, ErrDivisionByZero)
}

func TestEvaluateGuardComparison(t *testing.T) {
	ev, err := Compile("Prey > 10 and Predator < 5", []string{"Prey", "Predator"})
	require.NoError(t, err)

	ok, err := ev.EvaluateGuard(map[string]float64{"Prey": 20, "Predator": 1})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = ev.EvaluateGuard(map[string]float64{"Prey": 5, "Predator": 1})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEvaluateUsesSimulationTime(t *testing.T) {
	ev, err := Compile("t * 2", nil)
	require.NoError(t, err)

	out, err := ev.Evaluate(map[string]float64{"t": 3})
	require.NoError(t, err)
	require.InDelta(t, 6.0, out, 1e-9)
}

func TestEvaluateNonScalarResult(t *testing.T) {
	ev, err := Compile("Prey > 0", []string{"Prey"})
	require.NoError(t, err)

	_, err = ev.Evaluate(map[string]float64{"Prey": 1})
	require.ErrorIs(t, err, ErrNotScalar)
}
