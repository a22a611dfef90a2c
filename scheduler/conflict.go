package scheduler

import (
	"math/rand"
	"sort"

	"github.com/pflow-xyz/hybridnet/model"
)

// candidate is one transition eligible to fire at the current logical
// time (spec.md 4.5 step 2).
type candidate struct {
	id          model.TransitionID
	priority    int
	weight      float64
	lastEnabled float64
}

// conflicts reports whether a and b share a pre-place, or one's
// pre-place is the other's post-place (spec.md 4.5 step 3a). inputs
// holds each candidate's pre-arc place set; touched holds its full
// incident place set (pre ∪ post).
func conflicts(net *model.Net, a, b model.TransitionID, inputs map[model.TransitionID]map[model.PlaceID]bool, touched map[model.TransitionID]map[model.PlaceID]bool) bool {
	for p := range inputs[a] {
		if touched[b][p] {
			return true
		}
	}
	for p := range inputs[b] {
		if touched[a][p] {
			return true
		}
	}
	return false
}

func placeSets(net *model.Net, ids []model.TransitionID) (inputs, touched map[model.TransitionID]map[model.PlaceID]bool) {
	inputs = make(map[model.TransitionID]map[model.PlaceID]bool, len(ids))
	touched = make(map[model.TransitionID]map[model.PlaceID]bool, len(ids))
	for _, id := range ids {
		in := make(map[model.PlaceID]bool)
		all := make(map[model.PlaceID]bool)
		for _, a := range net.PreArcs(id) {
			p := a.Source.(model.PlaceID)
			in[p] = true
			all[p] = true
		}
		for _, a := range net.PostArcs(id) {
			if p, ok := a.Target.(model.PlaceID); ok {
				all[p] = true
			}
		}
		inputs[id] = in
		touched[id] = all
	}
	return inputs, touched
}

// localityGroups partitions ids into connected components of the
// conflict graph (spec.md 4.5 step 3a): within a component at most one
// transition may fire this micro-step; distinct components fire
// independently and simultaneously.
func localityGroups(net *model.Net, ids []model.TransitionID) [][]model.TransitionID {
	inputs, touched := placeSets(net, ids)
	parent := make(map[model.TransitionID]model.TransitionID, len(ids))
	var find func(model.TransitionID) model.TransitionID
	find = func(x model.TransitionID) model.TransitionID {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(x, y model.TransitionID) {
		rx, ry := find(x), find(y)
		if rx != ry {
			parent[rx] = ry
		}
	}
	for _, id := range ids {
		parent[id] = id
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if conflicts(net, ids[i], ids[j], inputs, touched) {
				union(ids[i], ids[j])
			}
		}
	}

	groups := make(map[model.TransitionID][]model.TransitionID)
	for _, id := range ids {
		root := find(id)
		groups[root] = append(groups[root], id)
	}
	out := make([][]model.TransitionID, 0, len(groups))
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i] < g[j] })
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// resolve picks the single winner within one locality group per policy
// (spec.md 4.5 step 3b).
func resolve(policy ConflictPolicy, group []candidate, rng *rand.Rand) candidate {
	if len(group) == 1 {
		return group[0]
	}
	sorted := make([]candidate, len(group))
	copy(sorted, group)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].id < sorted[j].id })

	switch policy {
	case Priority:
		best := sorted[0]
		for _, c := range sorted[1:] {
			if c.priority > best.priority {
				best = c
			}
		}
		return best
	case FirstEnabled:
		best := sorted[0]
		for _, c := range sorted[1:] {
			if c.lastEnabled < best.lastEnabled {
				best = c
			}
		}
		return best
	default: // WeightedRandom
		total := 0.0
		for _, c := range sorted {
			total += c.weight
		}
		if total <= 0 {
			return sorted[0]
		}
		r := rng.Float64() * total
		acc := 0.0
		for _, c := range sorted {
			acc += c.weight
			if r <= acc {
				return c
			}
		}
		return sorted[len(sorted)-1]
	}
}
