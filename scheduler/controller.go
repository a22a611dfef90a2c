package scheduler

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pflow-xyz/hybridnet/behavior"
	"github.com/pflow-xyz/hybridnet/collector"
	"github.com/pflow-xyz/hybridnet/model"
)

// State is the controller's run lifecycle state (spec.md 4.5).
type State int

const (
	Idle State = iota
	Running
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "idle"
	}
}

// StepSnapshot is the lightweight view passed to on_step_executed
// listeners (spec.md 5). Consumers must not retain it beyond the
// callback.
type StepSnapshot struct {
	RunID    string
	Now      float64
	Step     int
	Fired    []model.TransitionID
	Warnings map[model.TransitionID]error
}

// RunSummary is passed to on_run_complete exactly once per run (spec.md
// 4.5, 5).
type RunSummary struct {
	RunID     string
	FinalTime float64
	Steps     int
	Cancelled bool
	Fatal     error
}

// Controller drives a model.Net through ticks per spec.md 4.5, grounded
// a mutex-guarded run state plus a
// context-cancellable loop, generalized from a single mass-action ODE
// step to the four-behavior-kind tick algorithm.
type Controller struct {
	mu    sync.Mutex
	net   *model.Net
	state State
	cfg   RunConfig
	log   zerolog.Logger

	behaviors map[model.TransitionID]behavior.Behavior
	enabled   map[model.TransitionID]bool

	col *collector.Collector
	rng *rand.Rand

	runID     string
	now       float64
	steps     int
	quiescent int

	cancel context.CancelFunc

	stepListeners     *listenerSet[StepListener]
	completeListeners *listenerSet[CompleteListener]
}

// NewController builds an Idle controller over net, recording into col
// (col may be nil, in which case recording is skipped).
func NewController(net *model.Net, col *collector.Collector) *Controller {
	return &Controller{
		net:               net,
		state:             Idle,
		col:               col,
		log:               zerolog.Nop(),
		stepListeners:     newListenerSet[StepListener](),
		completeListeners: newListenerSet[CompleteListener](),
	}
}

// SetLogger overrides the default no-op logger (spec.md "AMBIENT STACK").
func (c *Controller) SetLogger(log zerolog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = log
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Now returns the controller's current logical time.
func (c *Controller) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// SubscribeStep registers fn to be called at the end of every tick
// (spec.md 5, idempotent by identity).
func (c *Controller) SubscribeStep(fn StepListener) { c.stepListeners.add(fn) }

// UnsubscribeStep deregisters fn.
func (c *Controller) UnsubscribeStep(fn StepListener) { c.stepListeners.remove(fn) }

// SubscribeComplete registers fn to be called once when the run stops
// (spec.md 5, idempotent by identity).
func (c *Controller) SubscribeComplete(fn CompleteListener) { c.completeListeners.add(fn) }

// UnsubscribeComplete deregisters fn.
func (c *Controller) UnsubscribeComplete(fn CompleteListener) { c.completeListeners.remove(fn) }

// Start transitions Idle -> Running: captures the initial marking
// (already held by net.Reset), seeds rngs, builds behaviors, and opens
// the collector (spec.md 4.5).
func (c *Controller) Start(cfg RunConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return ErrNotIdle
	}

	c.net.Reset()
	c.net.SetRunActive(true)

	factory := behavior.NewFactory(c.net, cfg.Seed, cfg.Integrator, cfg.StiffDetection)
	behaviors, err := factory.CreateAll()
	if err != nil {
		c.net.SetRunActive(false)
		return fmt.Errorf("scheduler: building behaviors: %w", err)
	}

	c.cfg = cfg
	c.behaviors = behaviors
	c.enabled = make(map[model.TransitionID]bool, len(behaviors))
	c.rng = rand.New(rand.NewSource(cfg.Seed))
	c.runID = uuid.NewString()
	c.now = 0
	c.steps = 0
	c.quiescent = 0
	c.state = Running

	if c.col != nil {
		if err := c.col.StartCollection(c.runID, c.net); err != nil {
			c.net.SetRunActive(false)
			c.state = Idle
			return fmt.Errorf("scheduler: starting collector: %w", err)
		}
	}
	return nil
}

// Pause transitions Running -> Paused without discarding state.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		return ErrNotRunning
	}
	c.state = Paused
	return nil
}

// Resume transitions Paused -> Running.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Paused {
		return ErrNotPaused
	}
	c.state = Running
	return nil
}

// Stop transitions any active state to Stopped: closes the collector and
// invokes on_run_complete listeners (spec.md 4.5). Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state == Idle || c.state == Stopped {
		c.mu.Unlock()
		return
	}
	c.state = Stopped
	c.net.SetRunActive(false)
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	summary := RunSummary{RunID: c.runID, FinalTime: c.now, Steps: c.steps}
	if c.col != nil {
		c.col.StopCollection()
	}
	c.mu.Unlock()

	for _, fn := range c.completeListeners.snapshot() {
		fn(summary)
	}
}

// Reset transitions Stopped -> Idle: restores the initial marking, zeros
// firing counts, and clears the collector (spec.md 4.5).
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Stopped {
		return ErrNotStopped
	}
	c.net.Reset()
	if c.col != nil {
		c.col.Clear()
	}
	c.state = Idle
	c.behaviors = nil
	c.enabled = nil
	return nil
}

// RunToCompletion ticks the controller until it stops (max_steps,
// max_time, quiescence, a fatal error, or ctx cancellation), blocking the
// calling goroutine (spec.md 5, "single-threaded cooperative kernel").
func (c *Controller) RunToCompletion(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			c.finishCancelled()
			return ctx.Err()
		default:
		}

		c.mu.Lock()
		state := c.state
		c.mu.Unlock()
		switch state {
		case Stopped, Idle:
			return nil
		case Paused:
			select {
			case <-ctx.Done():
				c.finishCancelled()
				return ctx.Err()
			case <-time.After(time.Millisecond):
			}
			continue
		}

		done, err := c.Step(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (c *Controller) finishCancelled() {
	c.mu.Lock()
	if c.state == Idle || c.state == Stopped {
		c.mu.Unlock()
		return
	}
	c.state = Stopped
	c.net.SetRunActive(false)
	summary := RunSummary{RunID: c.runID, FinalTime: c.now, Steps: c.steps, Cancelled: true}
	if c.col != nil {
		c.col.StopCollection()
	}
	c.mu.Unlock()
	for _, fn := range c.completeListeners.snapshot() {
		fn(summary)
	}
}

// Step executes exactly one controller tick (spec.md 4.5 steps 1-7) and
// reports whether the run terminated as a result. It respects the
// configured per-tick wall-clock budget and the provided context's
// cancellation.
func (c *Controller) Step(ctx context.Context) (terminated bool, err error) {
	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		return false, ErrNotRunning
	}
	cfg := c.cfg
	c.mu.Unlock()

	tickCtx := ctx
	var tickCancel context.CancelFunc
	if cfg.TickBudget > 0 {
		tickCtx, tickCancel = context.WithTimeout(ctx, cfg.TickBudget)
		defer tickCancel()
	}

	ids := c.net.Transitions()
	warnings := make(map[model.TransitionID]error)

	// Step 1: notify enable/disable edges.
	for _, id := range ids {
		wasEnabled, tracked := c.enabled[id]
		nowEnabled := c.structurallyEnabled(id)
		if !tracked || nowEnabled != wasEnabled {
			tr, _ := c.net.Transition(id)
			if nowEnabled {
				c.behaviors[id].OnEnabled(c.now)
				tr.MarkEnabled(c.now)
			} else {
				c.behaviors[id].OnDisabled()
				tr.MarkDisabled()
			}
			c.enabled[id] = nowEnabled
		}
	}

	// Step 2: gather urgent discrete candidates and compute dt_c. A
	// transition is urgent either because its own state machine reports
	// it unconditionally urgent (IsUrgent — e.g. a Timed transition armed
	// into its Fireable window, regardless of whether its forced deadline
	// has been reached) or because its next scheduled event has arrived
	// (spec.md 4.5 step 2).
	nowTarget := c.now + cfg.TimeStep
	var urgent []model.TransitionID
	for _, id := range ids {
		t, _ := c.net.Transition(id)
		if t.Kind == model.Continuous {
			continue
		}
		if c.behaviors[id].IsUrgent(c.now) {
			urgent = append(urgent, id)
			continue
		}
		next, ok := c.behaviors[id].NextEventTime(c.now)
		if !ok {
			continue
		}
		if next <= c.now+1e-12 {
			urgent = append(urgent, id)
		} else if next < nowTarget {
			nowTarget = next
		}
	}

	fired := make([]model.TransitionID, 0)
	budget := cfg.microStepBudget(len(ids))

	// Step 3: fire one discrete event per micro-step.
	for step := 0; step < budget; step++ {
		if tickCtx.Err() != nil {
			c.log.Warn().Str("run_id", c.runID).Msg("tick wall-clock budget exceeded, finalizing with partial progress")
			break
		}

		candidates := c.gatherFireable(urgent)
		if len(candidates) == 0 {
			break
		}
		groups := localityGroups(c.net, idsOf(candidates))
		winners := make([]model.TransitionID, 0, len(groups))
		for _, group := range groups {
			cands := make([]candidate, 0, len(group))
			for _, id := range group {
				cands = append(cands, candidates[id])
			}
			winners = append(winners, resolve(cfg.ConflictPolicy, cands, c.rng).id)
		}

		anyFired := false
		for _, id := range winners {
			ok, fireErr := c.behaviors[id].Fire(c.now)
			if fireErr != nil {
				warnings[id] = fireErr
				c.log.Warn().Str("run_id", c.runID).Int("transition", int(id)).Err(fireErr).Msg("firing error")
			}
			if ok {
				fired = append(fired, id)
				anyFired = true
			}
		}
		if !anyFired {
			break
		}
		if err := c.checkInvariants(); err != nil {
			return true, c.abortFatal("marking", err)
		}
		// Re-notify transitions sharing locality with whatever fired, so
		// their state machines observe the new marking this micro-step.
		for _, id := range ids {
			nowEnabled := c.structurallyEnabled(id)
			if wasEnabled := c.enabled[id]; nowEnabled != wasEnabled {
				tr, _ := c.net.Transition(id)
				if nowEnabled {
					c.behaviors[id].OnEnabled(c.now)
					tr.MarkEnabled(c.now)
				} else {
					c.behaviors[id].OnDisabled()
					tr.MarkDisabled()
				}
				c.enabled[id] = nowEnabled
			}
		}
		// Urgent set may have shrunk (e.g. a stochastic transition used
		// its sample); recompute for the next micro-step.
		urgent = urgent[:0]
		for _, id := range ids {
			t, _ := c.net.Transition(id)
			if t.Kind == model.Continuous {
				continue
			}
			if c.behaviors[id].IsUrgent(c.now) {
				urgent = append(urgent, id)
				continue
			}
			next, ok := c.behaviors[id].NextEventTime(c.now)
			if ok && next <= c.now+1e-12 {
				urgent = append(urgent, id)
			}
		}
	}

	// Step 4: integrate continuous transitions over the remaining step.
	dtC := nowTarget - c.now
	totalFlow := 0.0
	if dtC > 0 {
		for _, id := range ids {
			t, _ := c.net.Transition(id)
			if t.Kind != model.Continuous {
				continue
			}
			if !c.structurallyEnabled(id) {
				continue
			}
			before := t.FiringCount
			_, integErr := c.behaviors[id].Integrate(c.now, dtC)
			totalFlow += math.Abs(t.FiringCount - before)
			if integErr != nil {
				warnings[id] = integErr
				c.log.Warn().Str("run_id", c.runID).Int("transition", int(id)).Err(integErr).Msg("integration warning")
			}
		}
		if err := c.checkInvariants(); err != nil {
			return true, c.abortFatal("marking", err)
		}
	}

	// Step 5: advance time.
	c.mu.Lock()
	c.now = nowTarget
	c.steps++
	stepNum := c.steps
	runID := c.runID
	now := c.now
	c.mu.Unlock()

	if len(fired) == 0 && totalFlow < 1e-12 {
		c.quiescent++
	} else {
		c.quiescent = 0
	}

	// Step 6: record.
	if c.col != nil {
		if recErr := c.col.Record(now, c.net); recErr != nil {
			return true, c.abortFatal("topology", recErr)
		}
	}

	snapshot := StepSnapshot{RunID: runID, Now: now, Step: stepNum, Fired: fired, Warnings: warnings}
	for _, fn := range c.stepListeners.snapshot() {
		fn(snapshot)
	}

	// Step 7: terminate?
	if c.shouldTerminate(cfg) {
		c.Stop()
		return true, nil
	}
	return false, nil
}

func (c *Controller) shouldTerminate(cfg RunConfig) bool {
	if cfg.MaxTime > 0 && !math.IsInf(cfg.MaxTime, 1) && c.now >= cfg.MaxTime {
		return true
	}
	if cfg.MaxSteps > 0 && c.steps >= cfg.MaxSteps {
		return true
	}
	if cfg.QuiescenceSteps > 0 && c.quiescent >= cfg.QuiescenceSteps {
		return true
	}
	return false
}

// structurallyEnabled checks token availability only, independent of a
// behavior's own timing/sampling state (CanFire conflates the two for
// Timed/Stochastic), since step 1's enable/disable edges are purely
// structural (spec.md 4.5 step 1).
func (c *Controller) structurallyEnabled(id model.TransitionID) bool {
	for _, a := range c.net.PreArcs(id) {
		p, found := c.net.Place(a.Source.(model.PlaceID))
		if !found {
			return false
		}
		switch a.Kind {
		case model.Normal, model.Read:
			if p.Tokens < a.Weight {
				return false
			}
		case model.Inhibitor:
			if p.Tokens >= a.Weight {
				return false
			}
		}
	}
	return true
}

func (c *Controller) gatherFireable(urgent []model.TransitionID) map[model.TransitionID]candidate {
	out := make(map[model.TransitionID]candidate, len(urgent))
	for _, id := range urgent {
		t, ok := c.net.Transition(id)
		if !ok {
			continue
		}
		canFire, _ := c.behaviors[id].CanFire(c.now)
		if !canFire {
			continue
		}
		cand := candidate{id: id, weight: 1, lastEnabled: t.LastEnabled}
		if props, ok := t.Properties.(model.ImmediateProps); ok {
			cand.priority = props.Priority
			if props.Weight > 0 {
				cand.weight = props.Weight
			}
		}
		out[id] = cand
	}
	return out
}

func idsOf(candidates map[model.TransitionID]candidate) []model.TransitionID {
	out := make([]model.TransitionID, 0, len(candidates))
	for id := range candidates {
		out = append(out, id)
	}
	return out
}

// checkInvariants enforces P1 (non-negativity) and guards against
// NaN/Inf markings (spec.md 7, "fatal").
func (c *Controller) checkInvariants() error {
	for _, id := range c.net.Places() {
		p, ok := c.net.Place(id)
		if !ok {
			continue
		}
		if p.Tokens < 0 {
			return fmt.Errorf("place %d: negative marking %g", id, p.Tokens)
		}
		if math.IsNaN(p.Tokens) || math.IsInf(p.Tokens, 0) {
			return fmt.Errorf("place %d: non-finite marking %g", id, p.Tokens)
		}
	}
	return nil
}

func (c *Controller) abortFatal(invariant string, cause error) error {
	c.mu.Lock()
	fatal := &FatalError{Invariant: invariant, Err: cause}
	c.state = Stopped
	c.net.SetRunActive(false)
	summary := RunSummary{RunID: c.runID, FinalTime: c.now, Steps: c.steps, Fatal: fatal}
	if c.col != nil {
		c.col.StopCollection()
	}
	c.mu.Unlock()
	c.log.Error().Str("run_id", c.runID).Str("invariant", invariant).Err(cause).Msg("fatal invariant violation, aborting run")
	for _, fn := range c.completeListeners.snapshot() {
		fn(summary)
	}
	return fatal
}
