package analyzer

import (
	"fmt"
	"math"

	"github.com/pflow-xyz/hybridnet/collector"
	"github.com/pflow-xyz/hybridnet/model"
)

// Violation names one broken invariant and the id(s) that broke it
// (spec.md 8). It mirrors the vocabulary of scheduler.FatalError so a
// post-run report reads the same as a live fatal abort.
type Violation struct {
	Invariant string
	PlaceID   model.PlaceID
	At        int // index into time_points where the violation was observed
}

func (v Violation) Error() string {
	return fmt.Sprintf("analyzer: %s violated at record %d (place %d)", v.Invariant, v.At, v.PlaceID)
}

// InvariantReport is the result of replaying a finished collector's
// recorded series against the testable properties that are checkable
// post-hoc (spec.md 8: P1, P5, P10). P2/P6/P7/P8/P9 require per-fire
// trace data the collector does not retain and are exercised instead
// by scheduler/behavior unit tests against live state.
type InvariantReport struct {
	Violations []Violation
}

func (r *InvariantReport) OK() bool { return len(r.Violations) == 0 }

// CheckInvariants replays col's recorded series against net's topology,
// checking non-negativity (P1), time monotonicity (P5), and sequence
// alignment (P10). Grounded on a reachability-style trajectory
// state-space replay, here walking a single recorded trajectory instead
// of exploring a reachability graph.
func CheckInvariants(col *collector.Collector, net *model.Net) (*InvariantReport, error) {
	report := &InvariantReport{}

	times := col.TimePoints()
	placeIDs := col.PlaceIDs()

	seriesLen := len(times)
	for _, id := range placeIDs {
		series, err := col.PlaceSeries(id)
		if err != nil {
			return nil, err
		}
		if len(series) != seriesLen {
			report.Violations = append(report.Violations, Violation{Invariant: "P10", PlaceID: id, At: len(series)})
			continue
		}
		for i, v := range series {
			if v < 0 {
				report.Violations = append(report.Violations, Violation{Invariant: "P1", PlaceID: id, At: i})
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				report.Violations = append(report.Violations, Violation{Invariant: "P1", PlaceID: id, At: i})
			}
		}
	}

	for _, id := range col.TransitionIDs() {
		series, err := col.TransitionSeries(id)
		if err != nil {
			return nil, err
		}
		if len(series) != seriesLen {
			report.Violations = append(report.Violations, Violation{Invariant: "P10", At: len(series)})
		}
	}

	for i := 1; i < len(times); i++ {
		if times[i] < times[i-1] {
			report.Violations = append(report.Violations, Violation{Invariant: "P5", At: i})
		}
	}

	return report, nil
}
