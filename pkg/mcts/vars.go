package mcts

import (
	"math"
	"time"
)

// Defaults for the Config knobs, see NewConfig
const (
	DefaultVirtualLoss           int64  = 0
	DefaultVisitsBeforeExpansion uint64 = 1
	DefaultNodeLimit             uint64 = math.MaxUint64
	DefaultMaxPlayoutLength      int    = 1_000_000
)

var SeedGeneratorFn SeedGeneratorFnType = func() int64 {
	return time.Now().UnixNano()
}

// Set custom seed generator function for random number generators in the
// driver and the randomized policies, by default uses current time in nanoseconds
func SetSeedGeneratorFn(f SeedGeneratorFnType) {
	if f != nil {
		SeedGeneratorFn = f
	}
}
