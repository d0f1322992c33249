package md

import (
	"hash/fnv"
	"math/rand"
	"time"
)

// newRNG seeds a private *rand.Rand per the seed rule from §4.5: -1 draws
// from wall-clock time, 0 hashes (T0, N) deterministically, anything else
// is used literally. No package-global RNG is ever touched, so two
// simulations never interfere with each other's draws.
func newRNG(seed int64, t0 float64, n int) *rand.Rand {
	switch {
	case seed == -1:
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	case seed == 0:
		h := fnv.New64a()
		h.Write([]byte{
			byte(int64(t0 * 1000)), byte(int64(t0*1000) >> 8),
			byte(n), byte(n >> 8),
		})
		return rand.New(rand.NewSource(int64(h.Sum64())))
	default:
		return rand.New(rand.NewSource(seed))
	}
}
