package scheduler

import (
	"reflect"
	"sync"
)

// StepListener is notified at the end of every tick (spec.md 5,
// "on_step_executed"). snapshot is a lightweight view; listeners must
// not retain it beyond the callback.
type StepListener func(snapshot StepSnapshot)

// CompleteListener is notified exactly once when the controller
// transitions to Stopped, whether by normal termination, cancellation,
// or a fatal error (spec.md 5, "on_run_complete").
type CompleteListener func(summary RunSummary)

// listenerSet registers listeners idempotently by identity: registering
// the same function value twice is a no-op (spec.md 5, "Listener
// registration is idempotent by identity").
type listenerSet[T any] struct {
	mu      sync.Mutex
	byToken map[uintptr]T
	order   []uintptr
}

func newListenerSet[T any]() *listenerSet[T] {
	return &listenerSet[T]{byToken: make(map[uintptr]T)}
}

func (s *listenerSet[T]) add(fn T) {
	token := reflect.ValueOf(fn).Pointer()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byToken[token]; ok {
		return
	}
	s.byToken[token] = fn
	s.order = append(s.order, token)
}

// remove deregisters fn. Safe to call from within a callback; the
// removal takes effect on the snapshot taken by the next dispatch call,
// never mutating the slice a concurrent dispatch is iterating.
func (s *listenerSet[T]) remove(fn T) {
	token := reflect.ValueOf(fn).Pointer()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byToken, token)
	for i, t := range s.order {
		if t == token {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// snapshot returns the currently registered listeners in registration
// order, safe to range over after the lock is released.
func (s *listenerSet[T]) snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0, len(s.order))
	for _, token := range s.order {
		out = append(out, s.byToken[token])
	}
	return out
}
