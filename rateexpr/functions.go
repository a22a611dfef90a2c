package rateexpr

import (
	"fmt"
	"math"
)

// whitelistedFuncs are the only callable names a rate expression may use
// (spec.md 4.2). log, ln and sqrt wrap their math primitive with a domain
// check so out-of-domain arguments surface as *domain-error*; the others
// call the primitive directly, and a NaN they produce is reported as
// *domain-error* by Evaluate.
var whitelistedFuncs = map[string]any{
	"exp":  func(x float64) float64 { return math.Exp(x) },
	"log":  safeLog,
	"ln":   safeLog,
	"sqrt": safeSqrt,
	"pow":  func(x, y float64) float64 { return math.Pow(x, y) },
	"min":  func(a, b float64) float64 { return math.Min(a, b) },
	"max":  func(a, b float64) float64 { return math.Max(a, b) },
	"tanh": func(x float64) float64 { return math.Tanh(x) },
	"sigmoid": func(x, k float64) float64 {
		return 1.0 / (1.0 + math.Exp(-k*x))
	},
	"hill": func(x, k, n float64) float64 {
		xn := math.Pow(x, n)
		return xn / (math.Pow(k, n) + xn)
	},
	"michaelis_menten": func(s, vmax, km float64) float64 {
		return vmax * s / (km + s)
	},
}

func safeLog(x float64) (float64, error) {
	if x <= 0 {
		return 0, fmt.Errorf("%w: log(%v)", ErrDomain, x)
	}
	return math.Log(x), nil
}

func safeSqrt(x float64) (float64, error) {
	if x < 0 {
		return 0, fmt.Errorf("%w: sqrt(%v)", ErrDomain, x)
	}
	return math.Sqrt(x), nil
}

// functionNames returns the whitelisted function name set for the
// identifier scan in whitelist.go.
func functionNames() map[string]bool {
	out := make(map[string]bool, len(whitelistedFuncs))
	for name := range whitelistedFuncs {
		out[name] = true
	}
	return out
}
