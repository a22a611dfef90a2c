package model

import "errors"

// Sentinel errors returned by Net mutation and lookup operations.
var (
	ErrDuplicateName        = errors.New("model: duplicate display name")
	ErrInvalidProperties    = errors.New("model: invalid transition properties")
	ErrBipartiteViolation   = errors.New("model: arc must connect a place and a transition")
	ErrInvalidWeight        = errors.New("model: arc weight must be positive")
	ErrNegativeMarking      = errors.New("model: initial marking cannot be negative")
	ErrNotFound             = errors.New("model: object not found")
	ErrCapacityExceeded     = errors.New("model: place capacity exceeded")
	ErrRunActive            = errors.New("model: structural mutation rejected, a run is active")
	ErrUnknownTransitionKind = errors.New("model: unknown transition kind")
)
