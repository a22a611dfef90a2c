package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderProducerConsumer(t *testing.T) {
	net, err := Build().
		Place("P1", 3).
		Place("P2", 0).
		Immediate("T1", 0, 1).
		Arc("P1", "T1", 1).
		Arc("T1", "P2", 1).
		Done()
	require.NoError(t, err)
	require.NoError(t, net.Validate())

	p1, ok := net.PlaceByName("P1")
	require.True(t, ok)
	require.Equal(t, 3.0, p1.Tokens)

	tid, ok := net.transNames["T1"]
	require.True(t, ok)
	require.Len(t, net.PreArcs(tid), 1)
	require.Len(t, net.PostArcs(tid), 1)
}

func TestAddPlaceDuplicateName(t *testing.T) {
	n := New()
	_, err := n.AddPlace("P1", 0, 0, nil)
	require.NoError(t, err)
	_, err = n.AddPlace("P1", 0, 0, nil)
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestAddArcBipartiteViolation(t *testing.T) {
	n := New()
	p1, _ := n.AddPlace("P1", 0, 0, nil)
	p2, _ := n.AddPlace("P2", 0, 0, nil)
	_, err := n.AddArc(p1, p2, Normal, 1)
	require.ErrorIs(t, err, ErrBipartiteViolation)
}

func TestAddTransitionInvalidProperties(t *testing.T) {
	n := New()
	_, err := n.AddTransition("T1", Timed, TimedProps{Earliest: 2, Latest: 1})
	require.ErrorIs(t, err, ErrInvalidProperties)

	_, err = n.AddTransition("T2", Stochastic, StochasticProps{Rate: 0, MaxBurst: 1})
	require.ErrorIs(t, err, ErrInvalidProperties)
}

func TestRemoveCascadesArcs(t *testing.T) {
	n := New()
	p1, _ := n.AddPlace("P1", 1, 0, nil)
	t1, _ := n.AddTransition("T1", Immediate, ImmediateProps{Weight: 1})
	arcID, err := n.AddArc(p1, t1, Normal, 1)
	require.NoError(t, err)

	require.NoError(t, n.Remove(t1))
	_, ok := n.arcs[arcID]
	require.False(t, ok, "removing a transition must cascade its incident arcs")
}

func TestResetRestoresInitialMarking(t *testing.T) {
	n := New()
	p1, _ := n.AddPlace("P1", 5, 0, nil)
	t1, _ := n.AddTransition("T1", Immediate, ImmediateProps{Weight: 1})
	place, _ := n.Place(p1)
	place.Tokens = 0
	trans, _ := n.Transition(t1)
	trans.FiringCount = 7

	n.Reset()

	place, _ = n.Place(p1)
	require.Equal(t, 5.0, place.Tokens)
	trans, _ = n.Transition(t1)
	require.Equal(t, 0.0, trans.FiringCount)
}

func TestRunActiveBlocksMutation(t *testing.T) {
	n := New()
	n.SetRunActive(true)
	_, err := n.AddPlace("P1", 0, 0, nil)
	require.ErrorIs(t, err, ErrRunActive)
}

func TestSetInitialMarkingNegative(t *testing.T) {
	n := New()
	p1, _ := n.AddPlace("P1", 0, 0, nil)
	err := n.SetInitialMarking(p1, -1)
	require.ErrorIs(t, err, ErrNegativeMarking)
}
