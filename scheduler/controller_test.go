package scheduler

import (
	"context"
	"testing"

	"github.com/pflow-xyz/hybridnet/collector"
	"github.com/pflow-xyz/hybridnet/model"
	"github.com/stretchr/testify/require"
)

func producerConsumer(t *testing.T) (*model.Net, model.PlaceID, model.PlaceID) {
	t.Helper()
	n := model.New()
	p1, err := n.AddPlace("P1", 5, 0, nil)
	require.NoError(t, err)
	p2, err := n.AddPlace("P2", 0, 0, nil)
	require.NoError(t, err)
	tid, err := n.AddTransition("T1", model.Immediate, model.ImmediateProps{Weight: 1})
	require.NoError(t, err)
	_, err = n.AddArc(p1, tid, model.Normal, 1)
	require.NoError(t, err)
	_, err = n.AddArc(tid, p2, model.Normal, 1)
	require.NoError(t, err)
	return n, p1, p2
}

func TestControllerLifecycle(t *testing.T) {
	n, _, _ := producerConsumer(t)
	c := NewController(n, collector.New(nil))

	require.Equal(t, Idle, c.State())
	require.NoError(t, c.Start(DefaultRunConfig()))
	require.Equal(t, Running, c.State())

	require.NoError(t, c.Pause())
	require.Equal(t, Paused, c.State())
	require.NoError(t, c.Resume())
	require.Equal(t, Running, c.State())

	c.Stop()
	require.Equal(t, Stopped, c.State())

	require.NoError(t, c.Reset())
	require.Equal(t, Idle, c.State())
}

func TestControllerRunsImmediateToQuiescence(t *testing.T) {
	n, p1, p2 := producerConsumer(t)
	col := collector.New(nil)
	c := NewController(n, col)

	cfg := DefaultRunConfig()
	cfg.TimeStep = 1
	cfg.MaxSteps = 20
	cfg.QuiescenceSteps = 3

	require.NoError(t, c.Start(cfg))
	require.NoError(t, c.RunToCompletion(context.Background()))
	require.Equal(t, Stopped, c.State())

	place1, _ := n.Place(p1)
	place2, _ := n.Place(p2)
	require.Equal(t, 0.0, place1.Tokens)
	require.Equal(t, 5.0, place2.Tokens)
}

func TestControllerRejectsStartWhileRunning(t *testing.T) {
	n, _, _ := producerConsumer(t)
	c := NewController(n, nil)
	require.NoError(t, c.Start(DefaultRunConfig()))
	require.ErrorIs(t, c.Start(DefaultRunConfig()), ErrNotIdle)
}

func TestControllerPauseRejectedWhenIdle(t *testing.T) {
	n, _, _ := producerConsumer(t)
	c := NewController(n, nil)
	require.ErrorIs(t, c.Pause(), ErrNotRunning)
}

func TestControllerStepRecordsCollector(t *testing.T) {
	n, _, _ := producerConsumer(t)
	col := collector.New(nil)
	c := NewController(n, col)

	cfg := DefaultRunConfig()
	cfg.TimeStep = 1
	require.NoError(t, c.Start(cfg))

	_, err := c.Step(context.Background())
	require.NoError(t, err)

	require.True(t, col.HasData())
	times := col.TimePoints()
	require.Len(t, times, 1)
}

func TestControllerStepListenerInvokedIdempotently(t *testing.T) {
	n, _, _ := producerConsumer(t)
	c := NewController(n, collector.New(nil))
	cfg := DefaultRunConfig()
	cfg.TimeStep = 1
	require.NoError(t, c.Start(cfg))

	calls := 0
	listener := func(s StepSnapshot) { calls++ }
	c.SubscribeStep(listener)
	c.SubscribeStep(listener)

	_, err := c.Step(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestControllerCompleteListenerFiresOnce(t *testing.T) {
	n, _, _ := producerConsumer(t)
	c := NewController(n, collector.New(nil))
	require.NoError(t, c.Start(DefaultRunConfig()))

	var summary RunSummary
	calls := 0
	c.SubscribeComplete(func(s RunSummary) {
		calls++
		summary = s
	})

	c.Stop()
	c.Stop() // idempotent

	require.Equal(t, 1, calls)
	require.False(t, summary.Cancelled)
}

func TestControllerAbortsOnFatalNegativeMarking(t *testing.T) {
	n, p1, _ := producerConsumer(t)
	c := NewController(n, nil)
	require.NoError(t, c.Start(DefaultRunConfig()))

	var fatal error
	c.SubscribeComplete(func(s RunSummary) { fatal = s.Fatal })

	place, _ := n.Place(p1)
	place.Tokens = -1 // simulate an invariant-breaking external corruption

	terminated, err := c.Step(context.Background())
	require.True(t, terminated)
	require.Error(t, err)
	require.Equal(t, Stopped, c.State())
	require.Error(t, fatal)
}

func TestControllerFiresTimedWithinWindowNotJustAtDeadline(t *testing.T) {
	n := model.New()
	p1, _ := n.AddPlace("P1", 1, 0, nil)
	p2, _ := n.AddPlace("P2", 0, 0, nil)
	tid, _ := n.AddTransition("T1", model.Timed, model.TimedProps{Earliest: 2, Latest: 5})
	_, _ = n.AddArc(p1, tid, model.Normal, 1)
	_, _ = n.AddArc(tid, p2, model.Normal, 1)

	c := NewController(n, collector.New(nil))
	cfg := DefaultRunConfig()
	cfg.TimeStep = 1
	require.NoError(t, c.Start(cfg))

	firedAt := -1.0
	for i := 0; i < 10; i++ {
		terminated, err := c.Step(context.Background())
		require.NoError(t, err)
		place2, _ := n.Place(p2)
		if place2.Tokens > 0 {
			firedAt = float64(i + 1)
			break
		}
		if terminated {
			break
		}
	}

	require.Greater(t, firedAt, 0.0)
	require.Less(t, firedAt, 5.0, "a Fireable Timed transition must be eligible before its forced deadline")
}

func TestControllerStiffDetectionDrivesContinuousIntegration(t *testing.T) {
	n := model.New()
	p1, _ := n.AddPlace("A", 100, 0, nil)
	tid, _ := n.AddTransition("decay", model.Continuous, model.ContinuousProps{
		RateExpr: "50 * A",
		MaxRate:  1e6,
	})
	_, _ = n.AddArc(p1, tid, model.Normal, 1)

	c := NewController(n, collector.New(nil))
	cfg := DefaultRunConfig()
	cfg.TimeStep = 0.01
	cfg.MaxSteps = 5
	cfg.StiffDetection = true
	require.NoError(t, c.Start(cfg))

	for i := 0; i < 5; i++ {
		_, err := c.Step(context.Background())
		require.NoError(t, err)
	}

	place, _ := n.Place(p1)
	require.GreaterOrEqual(t, place.Tokens, 0.0)
	require.Less(t, place.Tokens, 100.0)
}

func TestConflictResolutionPriority(t *testing.T) {
	n := model.New()
	shared, _ := n.AddPlace("Shared", 1, 0, nil)
	out1, _ := n.AddPlace("Out1", 0, 0, nil)
	out2, _ := n.AddPlace("Out2", 0, 0, nil)
	low, _ := n.AddTransition("low", model.Immediate, model.ImmediateProps{Priority: 1})
	high, _ := n.AddTransition("high", model.Immediate, model.ImmediateProps{Priority: 5})
	_, _ = n.AddArc(shared, low, model.Normal, 1)
	_, _ = n.AddArc(low, out1, model.Normal, 1)
	_, _ = n.AddArc(shared, high, model.Normal, 1)
	_, _ = n.AddArc(high, out2, model.Normal, 1)

	c := NewController(n, nil)
	cfg := DefaultRunConfig()
	cfg.ConflictPolicy = Priority
	cfg.TimeStep = 1
	require.NoError(t, c.Start(cfg))

	_, err := c.Step(context.Background())
	require.NoError(t, err)

	o1, _ := n.Place(out1)
	o2, _ := n.Place(out2)
	require.Equal(t, 0.0, o1.Tokens)
	require.Equal(t, 1.0, o2.Tokens)
}
