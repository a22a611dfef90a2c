package model

import "sort"

func sortPlaceIDs(ids []PlaceID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortTransitionIDs(ids []TransitionID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortArcIDs(ids []ArcID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
