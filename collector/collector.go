package collector

import (
	"sync"

	"github.com/pflow-xyz/hybridnet/model"
)

// Sink is an optional durability hook a Collector fans every record out
// to in addition to its required in-memory sequences (spec.md 4.6,
// "Supplemented"). Errors returned by a Sink are discarded: they never
// fail Record or StopCollection.
type Sink interface {
	Record(runID string, t float64, places, transitions map[string]float64) error
	Close() error
}

// Collector holds the aligned time series for one open run (spec.md 4.6):
// time_points, place_data and transition_data, all appended exactly once
// per record call and always of equal length.
type Collector struct {
	mu sync.RWMutex

	runID string
	open  bool

	placeIDs      []model.PlaceID
	transitionIDs []model.TransitionID

	timePoints     []float64
	placeData      map[model.PlaceID][]float64
	transitionData map[model.TransitionID][]float64

	sink Sink
}

// New builds an empty, unopened Collector. sink may be nil.
func New(sink Sink) *Collector {
	return &Collector{sink: sink}
}

// StartCollection snapshots net's current topology (which places and
// transitions exist) and initializes every sequence empty (spec.md 4.6).
func (c *Collector) StartCollection(runID string, net *model.Net) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		return ErrAlreadyOpen
	}
	c.runID = runID
	c.placeIDs = net.Places()
	c.transitionIDs = net.Transitions()
	c.timePoints = nil
	c.placeData = make(map[model.PlaceID][]float64, len(c.placeIDs))
	for _, id := range c.placeIDs {
		c.placeData[id] = nil
	}
	c.transitionData = make(map[model.TransitionID][]float64, len(c.transitionIDs))
	for _, id := range c.transitionIDs {
		c.transitionData[id] = nil
	}
	c.open = true
	return nil
}

// Record appends one entry to every sequence, reading the current
// marking and firing counts straight from net. It rejects the record if
// net's topology has diverged from the run's opening snapshot.
func (c *Collector) Record(now float64, net *model.Net) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrNotCollecting
	}
	if !c.topologyMatches(net) {
		return ErrTopologyChanged
	}

	c.timePoints = append(c.timePoints, now)
	for _, id := range c.placeIDs {
		p, _ := net.Place(id)
		c.placeData[id] = append(c.placeData[id], p.Tokens)
	}
	for _, id := range c.transitionIDs {
		t, _ := net.Transition(id)
		c.transitionData[id] = append(c.transitionData[id], t.FiringCount)
	}

	if c.sink != nil {
		places := make(map[string]float64, len(c.placeIDs))
		for _, id := range c.placeIDs {
			p, _ := net.Place(id)
			places[p.Name] = p.Tokens
		}
		transitions := make(map[string]float64, len(c.transitionIDs))
		for _, id := range c.transitionIDs {
			t, _ := net.Transition(id)
			transitions[t.Name] = t.FiringCount
		}
		_ = c.sink.Record(c.runID, now, places, transitions)
	}
	return nil
}

func (c *Collector) topologyMatches(net *model.Net) bool {
	current := net.Places()
	if len(current) != len(c.placeIDs) {
		return false
	}
	for i, id := range current {
		if id != c.placeIDs[i] {
			return false
		}
	}
	currentT := net.Transitions()
	if len(currentT) != len(c.transitionIDs) {
		return false
	}
	for i, id := range currentT {
		if id != c.transitionIDs[i] {
			return false
		}
	}
	return true
}

// StopCollection closes the run; further Record calls fail until
// StartCollection is called again.
func (c *Collector) StopCollection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	if c.sink != nil {
		_ = c.sink.Close()
	}
}

// Clear discards every sequence and the open flag.
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.timePoints = nil
	c.placeData = nil
	c.transitionData = nil
	c.placeIDs = nil
	c.transitionIDs = nil
}

// HasData reports whether any record has been appended.
func (c *Collector) HasData() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.timePoints) > 0
}

// TimeRange returns (first, last) recorded time, or (0, 0, false) if
// empty.
func (c *Collector) TimeRange() (float64, float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.timePoints) == 0 {
		return 0, 0, false
	}
	return c.timePoints[0], c.timePoints[len(c.timePoints)-1], true
}

// TimePoints returns a copy of the recorded time sequence.
func (c *Collector) TimePoints() []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]float64, len(c.timePoints))
	copy(out, c.timePoints)
	return out
}

// PlaceSeries returns the recorded token sequence for a place id.
func (c *Collector) PlaceSeries(id model.PlaceID) ([]float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	series, ok := c.placeData[id]
	if !ok {
		return nil, ErrUnknownSeries
	}
	out := make([]float64, len(series))
	copy(out, series)
	return out, nil
}

// TransitionSeries returns the recorded cumulative firing-count sequence
// for a transition id.
func (c *Collector) TransitionSeries(id model.TransitionID) ([]float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	series, ok := c.transitionData[id]
	if !ok {
		return nil, ErrUnknownSeries
	}
	out := make([]float64, len(series))
	copy(out, series)
	return out, nil
}

// PlaceIDs returns the run's place snapshot, in recording order.
func (c *Collector) PlaceIDs() []model.PlaceID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.PlaceID, len(c.placeIDs))
	copy(out, c.placeIDs)
	return out
}

// TransitionIDs returns the run's transition snapshot, in recording order.
func (c *Collector) TransitionIDs() []model.TransitionID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.TransitionID, len(c.transitionIDs))
	copy(out, c.transitionIDs)
	return out
}
