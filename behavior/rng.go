package behavior

import (
	"hash/fnv"
	"math/rand"
	"strconv"

	"github.com/pflow-xyz/hybridnet/model"
)

// newTransitionRNG derives a per-transition rng stream deterministically
// from (runSeed, transitionID), independent across transitions (spec.md
// 4.3.3 "Randomness"). No ecosystem rng/crypto library in the example
// pack offers a seedable, splittable non-cryptographic PRNG better suited
// to this than math/rand's own NewSource — documented stdlib exception
// (see DESIGN.md).
func newTransitionRNG(runSeed int64, id model.TransitionID) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(strconv.FormatInt(runSeed, 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(int(id))))
	seed := int64(h.Sum64())
	return rand.New(rand.NewSource(seed))
}
