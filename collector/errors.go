// Package collector implements the Data Collector (spec.md 4.6): aligned
// time series of marking and firing-count data recorded once per
// scheduler tick, guarded the same way a concurrent cache guards
// its map (a sync.RWMutex plus hit/miss-style bookkeeping, here repurposed
// as append/reject bookkeeping).
package collector

import "errors"

var (
	ErrNotCollecting  = errors.New("collector: no collection in progress")
	ErrAlreadyOpen    = errors.New("collector: collection already open")
	ErrTopologyChanged = errors.New("collector: model topology diverged from run snapshot")
	ErrUnknownSeries  = errors.New("collector: unknown place or transition id")
)
