package arena

import (
	"math/rand"
	"time"
)

// Rand is the only source of randomness in the simulation. *rand.Rand
// satisfies it; tests script it.
type Rand interface {
	Float64() float64
}

// NewRand returns a seeded source. A zero seed picks one from the clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
