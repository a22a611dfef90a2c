package main

import "github.com/pflow-xyz/hybridnet/model"

// demoNet builds the producer-consumer scenario (spec.md 8,
// scenario 1): a single immediate transition moving tokens from P1 to
// P2. Standing in for a file-format model loader, which this kernel
// does not provide (SPEC_FULL.md Non-goals).
func demoNet() (*model.Net, error) {
	return model.Build().
		Place("P1", 3).
		Place("P2", 0).
		Immediate("T1", 0, 1).
		Arc("P1", "T1", 1).
		Arc("T1", "P2", 1).
		Done()
}
