// Package analyzer computes post-run metrics and invariant checks over a
// finished collector (spec.md 4.7): immutable per-place and per-transition
// summary rows, a reachability-style invariant replay, and transition
// contribution ranking. Every function here is pure over its arguments —
// it never mutates the collector or the model snapshot it reads.
//
// Grounded on a pure-function-over-marking-state style (simulation-derived
// metrics over a marking trajectory, generalized from live case
// prediction to post-run summary rows) and validation.Validator's
// reachability replay (generalized from state-space exploration to a
// linear replay of the P1/P5/P10 invariants against recorded data).
package analyzer

import (
	"github.com/pflow-xyz/hybridnet/collector"
	"github.com/pflow-xyz/hybridnet/model"
)

// Status classifies a transition's activity level (spec.md 4.7).
type Status int

const (
	Inactive Status = iota
	Low
	Active
	High
)

func (s Status) String() string {
	switch s {
	case Low:
		return "low"
	case Active:
		return "active"
	case High:
		return "high"
	default:
		return "inactive"
	}
}

// classify implements the fixed thresholds: 0 -> inactive;
// (0,10) -> low; [10,100] -> active; (100,inf) -> high.
func classify(totalFlux float64) Status {
	switch {
	case totalFlux <= 0:
		return Inactive
	case totalFlux < 10:
		return Low
	case totalFlux <= 100:
		return Active
	default:
		return High
	}
}

// SpeciesMetrics is one place's summary row (spec.md 4.7).
type SpeciesMetrics struct {
	PlaceID     model.PlaceID
	Name        string
	Initial     float64
	Final       float64
	Min         float64
	Max         float64
	Mean        float64
	TotalChange float64
	ChangeRate  float64
}

// ReactionMetrics is one transition's summary row (spec.md 4.7).
type ReactionMetrics struct {
	TransitionID model.TransitionID
	Name         string
	FiringCount  float64
	AverageRate  float64
	TotalFlux    float64
	Contribution float64
	Status       Status
}

// Report bundles every metric row produced by Analyze, plus the
// duration they were computed over.
type Report struct {
	Duration  float64
	Species   []SpeciesMetrics
	Reactions []ReactionMetrics
}

// Analyze computes species and reaction metrics from col's recorded
// series over net's topology (spec.md 4.7). duration is typically the
// run's final time minus its first recorded time; it may be passed
// explicitly so callers can analyze a sub-window.
func Analyze(col *collector.Collector, net *model.Net, duration float64) (*Report, error) {
	if !col.HasData() {
		return nil, ErrEmptyRun
	}
	species, err := SpeciesReport(col, net, duration)
	if err != nil {
		return nil, err
	}
	reactions, err := ReactionReport(col, net, duration)
	if err != nil {
		return nil, err
	}
	return &Report{Duration: duration, Species: species, Reactions: reactions}, nil
}

// SpeciesReport computes per-place metrics (spec.md 4.7 "Species metrics").
func SpeciesReport(col *collector.Collector, net *model.Net, duration float64) ([]SpeciesMetrics, error) {
	ids := col.PlaceIDs()
	out := make([]SpeciesMetrics, 0, len(ids))
	for _, id := range ids {
		series, err := col.PlaceSeries(id)
		if err != nil {
			return nil, err
		}
		p, _ := net.Place(id)
		out = append(out, speciesMetrics(id, nameOf(p), series, duration))
	}
	return out, nil
}

func nameOf(p *model.Place) string {
	if p == nil {
		return ""
	}
	return p.Name
}

func speciesMetrics(id model.PlaceID, name string, series []float64, duration float64) SpeciesMetrics {
	m := SpeciesMetrics{PlaceID: id, Name: name}
	if len(series) == 0 {
		return m
	}
	m.Initial = series[0]
	m.Final = series[len(series)-1]
	m.Min = series[0]
	m.Max = series[0]
	sum := 0.0
	for _, v := range series {
		if v < m.Min {
			m.Min = v
		}
		if v > m.Max {
			m.Max = v
		}
		sum += v
	}
	m.Mean = sum / float64(len(series))
	m.TotalChange = m.Final - m.Initial
	if duration > 0 {
		m.ChangeRate = m.TotalChange / duration
	}
	return m
}

// ReactionReport computes per-transition metrics (spec.md 4.7 "Reaction
// metrics"), including the cross-transition contribution ranking.
func ReactionReport(col *collector.Collector, net *model.Net, duration float64) ([]ReactionMetrics, error) {
	ids := col.TransitionIDs()
	rows := make([]ReactionMetrics, 0, len(ids))
	totalFluxSum := 0.0

	for _, id := range ids {
		series, err := col.TransitionSeries(id)
		if err != nil {
			return nil, err
		}
		t, _ := net.Transition(id)
		firingCount := 0.0
		if len(series) > 0 {
			firingCount = series[len(series)-1]
		}
		postWeightSum := 0.0
		for _, a := range net.PostArcs(id) {
			postWeightSum += a.Weight
		}
		totalFlux := firingCount * postWeightSum
		totalFluxSum += totalFlux

		row := ReactionMetrics{
			TransitionID: id,
			Name:         transitionName(t),
			FiringCount:  firingCount,
			TotalFlux:    totalFlux,
		}
		if duration > 0 {
			row.AverageRate = firingCount / duration
		}
		rows = append(rows, row)
	}

	for i := range rows {
		if totalFluxSum > 0 {
			rows[i].Contribution = rows[i].TotalFlux / totalFluxSum
		}
		rows[i].Status = classify(rows[i].TotalFlux)
	}
	return rows, nil
}

func transitionName(t *model.Transition) string {
	if t == nil {
		return ""
	}
	return t.Name
}

// Contribution ranks reactions by total_flux share, descending
// (spec.md 4.7 "Supplemented").
func Contribution(rows []ReactionMetrics) []ReactionMetrics {
	out := make([]ReactionMetrics, len(rows))
	copy(out, rows)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Contribution > out[j-1].Contribution; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
