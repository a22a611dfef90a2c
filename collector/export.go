package collector

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pflow-xyz/hybridnet/model"
)

// ExportCSV writes one row per recorded time point: time, then each
// place's tokens in PlaceIDs order, then each transition's cumulative
// firing count in TransitionIDs order. Column-oriented writer pattern
// column-oriented writer pattern.
func (c *Collector) ExportCSV(w io.Writer, net *model.Net) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cw := csv.NewWriter(w)
	header := []string{"time"}
	for _, id := range c.placeIDs {
		p, _ := net.Place(id)
		header = append(header, p.Name)
	}
	for _, id := range c.transitionIDs {
		t, _ := net.Transition(id)
		header = append(header, t.Name)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("collector: writing csv header: %w", err)
	}

	for i, tp := range c.timePoints {
		row := []string{strconv.FormatFloat(tp, 'g', -1, 64)}
		for _, id := range c.placeIDs {
			row = append(row, strconv.FormatFloat(c.placeData[id][i], 'g', -1, 64))
		}
		for _, id := range c.transitionIDs {
			row = append(row, strconv.FormatFloat(c.transitionData[id][i], 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("collector: writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonlRow is one line of ExportJSONL's output.
type jsonlRow struct {
	Time        float64            `json:"time"`
	Places      map[string]float64 `json:"places"`
	Transitions map[string]float64 `json:"transitions"`
}

// ExportJSONL writes one JSON object per recorded time point, newline
// delimited, one JSON object per line.
func (c *Collector) ExportJSONL(w io.Writer, net *model.Net) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	enc := json.NewEncoder(w)
	for i, tp := range c.timePoints {
		row := jsonlRow{
			Time:        tp,
			Places:      make(map[string]float64, len(c.placeIDs)),
			Transitions: make(map[string]float64, len(c.transitionIDs)),
		}
		for _, id := range c.placeIDs {
			p, _ := net.Place(id)
			row.Places[p.Name] = c.placeData[id][i]
		}
		for _, id := range c.transitionIDs {
			t, _ := net.Transition(id)
			row.Transitions[t.Name] = c.transitionData[id][i]
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("collector: writing jsonl row: %w", err)
		}
	}
	return nil
}
