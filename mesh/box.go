package mesh

import (
	"errors"
	"fmt"
	"math"
)

// Box is an axis-aligned search domain.  VMax holds the per-dimension
// speed limit (the "values range") particles are clamped to.
type Box struct {
	Low  []float64
	Up   []float64
	VMax []float64
}

// NewBox creates an ndim dimensional box with identical bounds min and max in
// every dimension.  The speed limit is set to half the range in each
// dimension, the rule of thumb given in:
//
//     Eberhart, R.C.; Yuhui Shi, "Particle swarm optimization: developments,
//     applications and resources," Evolutionary Computation, 2001. Proceedings of
//     the 2001 Congress on , vol.1, no., pp.81,86 vol. 1, 2001 doi:
//     10.1109/CEC.2001.934374
func NewBox(ndim int, min, max float64) Box {
	b := Box{
		Low:  make([]float64, ndim),
		Up:   make([]float64, ndim),
		VMax: make([]float64, ndim),
	}
	for i := 0; i < ndim; i++ {
		b.Low[i] = min
		b.Up[i] = max
		b.VMax[i] = (max - min) / 2
	}
	return b
}

// Dims returns the dimensionality of the box.
func (b Box) Dims() int { return len(b.Low) }

func (b Box) Validate() error {
	if len(b.Low) == 0 {
		return errors.New("box has zero dimensions")
	} else if len(b.Low) != len(b.Up) || len(b.Low) != len(b.VMax) {
		return fmt.Errorf("box vectors have different lengths: low=%v, up=%v, vmax=%v", len(b.Low), len(b.Up), len(b.VMax))
	}
	for i := range b.Low {
		if !(b.Low[i] < b.Up[i]) || math.IsInf(b.Up[i]-b.Low[i], 0) {
			return fmt.Errorf("box dimension %v has invalid bounds [%v, %v]", i, b.Low[i], b.Up[i])
		} else if !(b.VMax[i] > 0) || math.IsInf(b.VMax[i], 0) {
			return fmt.Errorf("box dimension %v has invalid speed limit %v", i, b.VMax[i])
		}
	}
	return nil
}

// Contains reports whether every coordinate of x lies inside the box.
func (b Box) Contains(x []float64) bool {
	for i, v := range x {
		if v < b.Low[i] || v > b.Up[i] {
			return false
		}
	}
	return true
}

// Reflect mirrors x back across the violated bound of dimension d until it
// lies inside [Low[d], Up[d]].  A single reflection can overshoot the
// opposite bound for large steps; repeated reflection is periodic in twice
// the range, so the overshoot is reduced modulo that first.  Non-finite
// coordinates have no meaningful mirror image and are moved to the centre of
// the range.
func (b Box) Reflect(d int, x float64) float64 {
	low, up := b.Low[d], b.Up[d]
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return low + (up-low)/2
	} else if x >= low && x <= up {
		return x
	}

	r := up - low
	t := math.Mod(x-low, 2*r)
	if t < 0 {
		t += 2 * r
	}
	if t > r {
		t = 2*r - t
	}
	return math.Max(low, math.Min(up, low+t))
}

// ClampVel limits v to [-VMax[d], VMax[d]].
func (b Box) ClampVel(d int, v float64) float64 {
	if v > b.VMax[d] {
		return b.VMax[d]
	} else if v < -b.VMax[d] {
		return -b.VMax[d]
	}
	return v
}

// Clamp slides every coordinate of x to the nearest value inside the box.
func (b Box) Clamp(x []float64) {
	for i := range x {
		x[i] = math.Max(b.Low[i], math.Min(b.Up[i], x[i]))
	}
}
