package behavior

import "github.com/pflow-xyz/hybridnet/model"

// structurallyEnabled is the common helper shared by all four behavior
// kinds (spec.md 4.3 "common helpers", design note 9: "common structural
// enablement helper, not overridden per kind"): every normal/read pre-arc
// must have enough tokens, and every inhibitor pre-arc must NOT.
func structurallyEnabled(net *model.Net, id model.TransitionID) (bool, error) {
	for _, a := range net.PreArcs(id) {
		place, ok := net.Place(a.Source.(model.PlaceID))
		if !ok {
			return false, ErrInsufficientInput
		}
		switch a.Kind {
		case model.Normal, model.Read:
			if place.Tokens < a.Weight {
				return false, ErrInsufficientInput
			}
		case model.Inhibitor:
			if place.Tokens >= a.Weight {
				return false, ErrInhibited
			}
		}
	}
	return true, nil
}

// fireDiscrete atomically consumes each normal pre-arc's weight and
// produces each post-arc's weight once. Read and inhibitor arcs never
// consume (spec.md 4.3 common helpers). A post-arc into a place with a
// nonzero Capacity that would push its marking over that capacity aborts
// the whole firing with model.ErrCapacityExceeded before any tokens move.
func fireDiscrete(net *model.Net, id model.TransitionID, multiplier float64) error {
	pre := net.PreArcs(id)
	post := net.PostArcs(id)
	for _, a := range pre {
		if a.Kind != model.Normal {
			continue
		}
		place, ok := net.Place(a.Source.(model.PlaceID))
		if !ok {
			return ErrInsufficientInput
		}
		if place.Tokens < a.Weight*multiplier {
			return ErrInsufficientInput
		}
	}
	for _, a := range post {
		place, ok := net.Place(a.Target.(model.PlaceID))
		if !ok {
			continue
		}
		if place.Capacity > 0 && place.Tokens+a.Weight*multiplier > place.Capacity {
			return model.ErrCapacityExceeded
		}
	}
	for _, a := range pre {
		if a.Kind != model.Normal {
			continue
		}
		place, _ := net.Place(a.Source.(model.PlaceID))
		place.Tokens -= a.Weight * multiplier
	}
	for _, a := range post {
		place, ok := net.Place(a.Target.(model.PlaceID))
		if !ok {
			continue
		}
		place.Tokens += a.Weight * multiplier
	}
	return nil
}

// feasibleBurst returns the largest k in [0, maxBurst] such that every
// normal pre-arc still has place.tokens >= k*weight (spec.md 4.3.3).
func feasibleBurst(net *model.Net, id model.TransitionID, maxBurst int) int {
	pre := net.PreArcs(id)
	for k := maxBurst; k >= 1; k-- {
		ok := true
		for _, a := range pre {
			if a.Kind != model.Normal {
				continue
			}
			place, found := net.Place(a.Source.(model.PlaceID))
			if !found || place.Tokens < a.Weight*float64(k) {
				ok = false
				break
			}
		}
		if ok {
			return k
		}
	}
	return 0
}

func clampRate(r, min, max float64) float64 {
	if r < min {
		return min
	}
	if r > max {
		return max
	}
	return r
}
