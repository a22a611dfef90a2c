package rateexpr

import "errors"

// Error kinds returned by Compile/Evaluate (spec.md 4.2, 7).
var (
	ErrParse          = errors.New("rateexpr: parse error")
	ErrName           = errors.New("rateexpr: name error")
	ErrDomain         = errors.New("rateexpr: domain error")
	ErrDivisionByZero = errors.New("rateexpr: division by zero")
	ErrNotScalar      = errors.New("rateexpr: expression did not evaluate to a scalar")
)
