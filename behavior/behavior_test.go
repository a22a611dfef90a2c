package behavior

import (
	"testing"

	"github.com/pflow-xyz/hybridnet/model"
	"github.com/pflow-xyz/hybridnet/solver"
	"github.com/stretchr/testify/require"
)

func producerConsumer(t *testing.T) (*model.Net, model.PlaceID, model.PlaceID, model.TransitionID) {
	t.Helper()
	n := model.New()
	p1, err := n.AddPlace("P1", 3, 0, nil)
	require.NoError(t, err)
	p2, err := n.AddPlace("P2", 0, 0, nil)
	require.NoError(t, err)
	tid, err := n.AddTransition("T1", model.Immediate, model.ImmediateProps{Weight: 1})
	require.NoError(t, err)
	_, err = n.AddArc(p1, tid, model.Normal, 1)
	require.NoError(t, err)
	_, err = n.AddArc(tid, p2, model.Normal, 1)
	require.NoError(t, err)
	return n, p1, p2, tid
}

func TestImmediateFire(t *testing.T) {
	n, p1, p2, tid := producerConsumer(t)
	b := NewImmediate(n, tid, model.ImmediateProps{Weight: 1})

	ok, err := b.CanFire(0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.Fire(0)
	require.NoError(t, err)
	require.True(t, ok)

	place1, _ := n.Place(p1)
	place2, _ := n.Place(p2)
	require.Equal(t, 2.0, place1.Tokens)
	require.Equal(t, 1.0, place2.Tokens)
}

func TestImmediateInsufficientInput(t *testing.T) {
	n := model.New()
	p1, _ := n.AddPlace("P1", 0, 0, nil)
	tid, _ := n.AddTransition("T1", model.Immediate, model.ImmediateProps{Weight: 1})
	_, _ = n.AddArc(p1, tid, model.Normal, 1)

	b := NewImmediate(n, tid, model.ImmediateProps{Weight: 1})
	ok, err := b.CanFire(0)
	require.False(t, ok)
	require.ErrorIs(t, err, ErrInsufficientInput)
}

func TestImmediateInhibitorBlocks(t *testing.T) {
	n := model.New()
	p1, _ := n.AddPlace("P1", 5, 0, nil)
	inhibit, _ := n.AddPlace("Guard", 1, 0, nil)
	tid, _ := n.AddTransition("T1", model.Immediate, model.ImmediateProps{Weight: 1})
	_, _ = n.AddArc(p1, tid, model.Normal, 1)
	_, _ = n.AddArc(inhibit, tid, model.Inhibitor, 1)

	b := NewImmediate(n, tid, model.ImmediateProps{Weight: 1})
	ok, err := b.CanFire(0)
	require.False(t, ok)
	require.ErrorIs(t, err, ErrInhibited)
}

func TestTimedStateMachine(t *testing.T) {
	n := model.New()
	p1, _ := n.AddPlace("P1", 1, 0, nil)
	tid, _ := n.AddTransition("T1", model.Timed, model.TimedProps{Earliest: 2, Latest: 5})
	_, _ = n.AddArc(p1, tid, model.Normal, 1)

	b, err := NewTimed(n, tid, model.TimedProps{Earliest: 2, Latest: 5})
	require.NoError(t, err)
	b.OnEnabled(0)

	ok, err := b.CanFire(1)
	require.False(t, ok)
	require.ErrorIs(t, err, ErrTooEarly)

	ok, err = b.CanFire(3)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.Fire(3)
	require.NoError(t, err)
	require.True(t, ok)

	place, _ := n.Place(p1)
	require.Equal(t, 0.0, place.Tokens)
}

func TestTimedTooLate(t *testing.T) {
	n := model.New()
	p1, _ := n.AddPlace("P1", 1, 0, nil)
	tid, _ := n.AddTransition("T1", model.Timed, model.TimedProps{Earliest: 1, Latest: 2})
	_, _ = n.AddArc(p1, tid, model.Normal, 1)

	b, err := NewTimed(n, tid, model.TimedProps{Earliest: 1, Latest: 2})
	require.NoError(t, err)
	b.OnEnabled(0)

	ok, err := b.CanFire(10)
	require.False(t, ok)
	require.ErrorIs(t, err, ErrTooLate)
}

func TestTimedDisableDiscardsTimer(t *testing.T) {
	n := model.New()
	p1, _ := n.AddPlace("P1", 1, 0, nil)
	tid, _ := n.AddTransition("T1", model.Timed, model.TimedProps{Earliest: 1, Latest: 2})
	_, _ = n.AddArc(p1, tid, model.Normal, 1)

	b, err := NewTimed(n, tid, model.TimedProps{Earliest: 1, Latest: 2})
	require.NoError(t, err)
	b.OnEnabled(0)
	b.OnDisabled()
	b.OnEnabled(5)

	_, ok := b.NextEventTime(5)
	require.True(t, ok)
	next, _ := b.NextEventTime(5)
	require.Equal(t, 6.0, next)
}

func TestStochasticDeterministicAcrossSameSeed(t *testing.T) {
	n1 := model.New()
	p1, _ := n1.AddPlace("P1", 100, 0, nil)
	tid1, _ := n1.AddTransition("T1", model.Stochastic, model.StochasticProps{Rate: 1, MaxBurst: 3})
	_, _ = n1.AddArc(p1, tid1, model.Normal, 1)

	n2 := model.New()
	p2, _ := n2.AddPlace("P1", 100, 0, nil)
	tid2, _ := n2.AddTransition("T1", model.Stochastic, model.StochasticProps{Rate: 1, MaxBurst: 3})
	_, _ = n2.AddArc(p2, tid2, model.Normal, 1)

	b1 := NewStochastic(n1, tid1, model.StochasticProps{Rate: 1, MaxBurst: 3}, 42)
	b2 := NewStochastic(n2, tid2, model.StochasticProps{Rate: 1, MaxBurst: 3}, 42)

	b1.OnEnabled(0)
	b2.OnEnabled(0)

	t1, ok1 := b1.NextEventTime(0)
	t2, ok2 := b2.NextEventTime(0)
	require.True(t, ok1)
	require.True(t, ok2)
	require.Equal(t, t1, t2)
	require.Equal(t, b1.burst, b2.burst)
}

func TestStochasticRearmRequiresDisableEnable(t *testing.T) {
	n := model.New()
	p1, _ := n.AddPlace("P1", 100, 0, nil)
	tid, _ := n.AddTransition("T1", model.Stochastic, model.StochasticProps{Rate: 1000, MaxBurst: 1})
	_, _ = n.AddArc(p1, tid, model.Normal, 1)

	b := NewStochastic(n, tid, model.StochasticProps{Rate: 1000, MaxBurst: 1}, 7)
	b.OnEnabled(0)
	fireAt, _ := b.NextEventTime(0)

	ok, err := b.Fire(fireAt + 0.001)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.CanFire(fireAt + 0.002)
	require.False(t, ok)
	require.ErrorIs(t, err, ErrTooEarly)

	b.OnDisabled()
	b.OnEnabled(fireAt + 0.002)
	_, ok2 := b.NextEventTime(fireAt + 0.002)
	require.True(t, ok2)
}

func TestContinuousLinearDecay(t *testing.T) {
	n := model.New()
	p1, err := n.AddPlace("A", 100, 0, nil)
	require.NoError(t, err)
	tid, err := n.AddTransition("decay", model.Continuous, model.ContinuousProps{
		RateExpr: "0.1 * A",
		MaxRate:  1000,
	})
	require.NoError(t, err)
	_, err = n.AddArc(p1, tid, model.Normal, 1)
	require.NoError(t, err)

	b, err := NewContinuous(n, tid, model.ContinuousProps{RateExpr: "0.1 * A", MaxRate: 1000}, nil, false)
	require.NoError(t, err)

	ok, err := b.Integrate(0, 0.01)
	require.NoError(t, err)
	require.True(t, ok)

	place, _ := n.Place(p1)
	require.Less(t, place.Tokens, 100.0)
	require.Greater(t, place.Tokens, 98.0)
}

func TestContinuousClampsToAvailability(t *testing.T) {
	n := model.New()
	p1, _ := n.AddPlace("A", 1, 0, nil)
	tid, _ := n.AddTransition("drain", model.Continuous, model.ContinuousProps{
		RateExpr: "1000",
		MaxRate:  1e9,
	})
	_, _ = n.AddArc(p1, tid, model.Normal, 1)

	b, err := NewContinuous(n, tid, model.ContinuousProps{RateExpr: "1000", MaxRate: 1e9}, nil, false)
	require.NoError(t, err)

	ok, err := b.Integrate(0, 1)
	require.True(t, ok)
	require.ErrorIs(t, err, ErrClampedByAvailability)

	place, _ := n.Place(p1)
	require.GreaterOrEqual(t, place.Tokens, 0.0)
}

func TestContinuousThresholdStopsFlow(t *testing.T) {
	n := model.New()
	p1, _ := n.AddPlace("A", 0.5, 0, nil)
	tid, _ := n.AddTransition("t", model.Continuous, model.ContinuousProps{
		RateExpr:          "A",
		MaxRate:           1000,
		MinTokenThreshold: 1,
	})
	_, _ = n.AddArc(p1, tid, model.Normal, 1)

	b, err := NewContinuous(n, tid, model.ContinuousProps{
		RateExpr:          "A",
		MaxRate:           1000,
		MinTokenThreshold: 1,
	}, nil, false)
	require.NoError(t, err)

	_, err = b.Integrate(0, 1)
	require.NoError(t, err)

	place, _ := n.Place(p1)
	require.Equal(t, 0.5, place.Tokens)
}

func TestContinuousPredictEquilibriumOnDecay(t *testing.T) {
	n := model.New()
	p1, _ := n.AddPlace("A", 100, 0, nil)
	tid, _ := n.AddTransition("decay", model.Continuous, model.ContinuousProps{
		RateExpr: "0.5 * A",
		MaxRate:  1000,
	})
	_, _ = n.AddArc(p1, tid, model.Normal, 1)

	b, err := NewContinuous(n, tid, model.ContinuousProps{RateExpr: "0.5 * A", MaxRate: 1000}, nil, false)
	require.NoError(t, err)

	result, err := b.PredictEquilibrium(0, 100, solver.FastEquilibriumOptions())
	require.NoError(t, err)
	require.True(t, result.Reached)

	place, _ := n.Place(p1)
	require.Less(t, result.State[placeLabel(place)], 1.0)
	require.Equal(t, 100.0, place.Tokens, "PredictEquilibrium must not mutate the net")
}

func TestFactoryCreateAll(t *testing.T) {
	n, _, _, _ := producerConsumer(t)
	f := NewFactory(n, 1, nil, false)
	behaviors, err := f.CreateAll()
	require.NoError(t, err)
	require.Len(t, behaviors, 1)
}

func TestTimedIsUrgentOnlyOnceFireable(t *testing.T) {
	n := model.New()
	p1, _ := n.AddPlace("P1", 1, 0, nil)
	tid, _ := n.AddTransition("T1", model.Timed, model.TimedProps{Earliest: 2, Latest: 5})
	_, _ = n.AddArc(p1, tid, model.Normal, 1)

	b, err := NewTimed(n, tid, model.TimedProps{Earliest: 2, Latest: 5})
	require.NoError(t, err)
	b.OnEnabled(0)

	require.False(t, b.IsUrgent(1), "still Waiting before earliest")
	require.True(t, b.IsUrgent(3), "Fireable before the forced deadline")
	require.True(t, b.IsUrgent(10), "still urgent past latest: CanFire is what rejects it")
}

func TestTimedGuardBlocksFiringUntilTrue(t *testing.T) {
	n := model.New()
	p1, _ := n.AddPlace("P1", 1, 0, nil)
	tid, _ := n.AddTransition("T1", model.Timed, model.TimedProps{Earliest: 0, Latest: 10, Guard: "P1 >= 2"})
	_, _ = n.AddArc(p1, tid, model.Read, 1)

	b, err := NewTimed(n, tid, model.TimedProps{Earliest: 0, Latest: 10, Guard: "P1 >= 2"})
	require.NoError(t, err)
	b.OnEnabled(0)

	ok, err := b.CanFire(1)
	require.False(t, ok)
	require.ErrorIs(t, err, ErrGuardFalse)

	place, _ := n.Place(p1)
	place.Tokens = 2

	ok, err = b.CanFire(1)
	require.NoError(t, err)
	require.True(t, ok)
}
