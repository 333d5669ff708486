// Package pop generates random particle positions and velocities.
package pop

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mathext/prng"
)

type Rng interface {
	Float64() float64
}

// NewRng returns a random number generator driven by a 64-bit Mersenne
// Twister seeded with seed.
func NewRng(seed uint64) *rand.Rand {
	src := prng.NewMT19937_64()
	src.Seed(seed)
	return rand.New(src)
}

// Uniform fills dst with values drawn uniformly from the box [low, up).
func Uniform(rng Rng, dst, low, up []float64) {
	if len(low) != len(up) || len(dst) != len(low) {
		panic("dst, low and up vectors are not same length")
	}
	for j := range dst {
		dst[j] = low[j] + rng.Float64()*(up[j]-low[j])
	}
}

// Velocity fills dst with values drawn uniformly from [-vmax[i], vmax[i]).
func Velocity(rng Rng, dst, vmax []float64) {
	if len(dst) != len(vmax) {
		panic("dst and vmax vectors are not same length")
	}
	for j, v := range vmax {
		dst[j] = v * (2*rng.Float64() - 1)
	}
}

// New generates n randomly positioned points in the boxed bounds defined by
// low and up.  The number of dimensions is equal to len(low).
func New(rng Rng, n int, low, up []float64) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		points[i] = make([]float64, len(low))
		Uniform(rng, points[i], low, up)
	}
	return points
}

// Seeds derives n seeds for independent random streams from rng.
func Seeds(rng *rand.Rand, n int) []uint64 {
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}
	return seeds
}
