package simulator

import "math/rand"

// newZipf returns a generator over [0, imax]. rand.NewZipf needs s > 1.
func newZipf(rng *rand.Rand, s float64, imax uint64) *rand.Zipf {
	if s <= 1 {
		s = 1.07
	}
	return rand.NewZipf(rng, s, 1, imax)
}
