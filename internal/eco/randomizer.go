package eco

import "golang.org/x/exp/rand"

// DefaultSeed is the seed used when a configuration does not name one.
const DefaultSeed uint64 = 1111

// NewRandom returns a pseudo-random generator seeded with seed.
// The PCG source keeps runs reproducible across Go releases, so a fixed seed
// always replays the same simulation.
func NewRandom(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
