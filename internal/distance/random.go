package distance

import (
	"math/rand/v2"
	"time"
)

// ContextCheckInterval is how often (in samples) simulations check for
// cancellation.
var ContextCheckInterval = 4096

// resolveSeed turns the "pick one for me" seed 0 into a time based seed.
func resolveSeed(seed uint64) uint64 {
	if seed != 0 {
		return seed
	}
	return uint64(time.Now().UnixNano())
}

// newRand returns the generator for one worker of a run.
func newRand(seed uint64, worker int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0x9E3779B97F4A7C15^uint64(worker)))
}
