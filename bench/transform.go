package bench

import (
	"fmt"

	"github.com/rwcarlsen/swarmopt"
	"github.com/rwcarlsen/swarmopt/pop"
	"gonum.org/v1/gonum/mat"
)

// Shift returns an objective that evaluates obj at x - offset, moving obj's
// optima by offset.  The shifted position is built in the first len(x)
// elements of scratch and the remainder is passed on to obj, so scratch needs
// swarmopt.ScratchLen of the result elements to avoid allocating.
func Shift(obj swarmopt.Objectiver, offset []float64) swarmopt.Objectiver {
	return &shifted{obj: obj, offset: append([]float64{}, offset...)}
}

type shifted struct {
	obj    swarmopt.Objectiver
	offset []float64
}

func (s *shifted) Objective(x, scratch []float64) (float64, error) {
	if len(x) != len(s.offset) {
		return inf, fmt.Errorf("shift: %w: got %v, want %v", swarmopt.ErrDimension, len(x), len(s.offset))
	}
	z, rest := split(scratch, len(x))
	for i := range x {
		z[i] = x[i] - s.offset[i]
	}
	return s.obj.Objective(z, rest)
}

func (s *shifted) ScratchLen(ndim int) int { return ndim + swarmopt.ScratchLen(s.obj, ndim) }

// Rotate returns an objective that evaluates obj at r*x.  r must be square
// with one row per dimension.  Like Shift, it builds r*x at the front of
// scratch and hands the rest to obj.
func Rotate(obj swarmopt.Objectiver, r *mat.Dense) swarmopt.Objectiver {
	rows, cols := r.Dims()
	if rows != cols {
		panic(fmt.Sprintf("bench: non-square rotation %vx%v", rows, cols))
	}
	return &rotated{obj: obj, r: mat.DenseCopyOf(r)}
}

type rotated struct {
	obj swarmopt.Objectiver
	r   *mat.Dense
}

func (r *rotated) Objective(x, scratch []float64) (float64, error) {
	if n, _ := r.r.Dims(); len(x) != n {
		return inf, fmt.Errorf("rotate: %w: got %v, want %v", swarmopt.ErrDimension, len(x), n)
	}
	y, rest := split(scratch, len(x))
	if len(x) > 0 && &y[0] == &x[0] {
		// chained behind another transform that reuses the same buffer
		y = make([]float64, len(x))
	}
	yv := mat.NewVecDense(len(y), y)
	yv.MulVec(r.r, mat.NewVecDense(len(x), x))
	return r.obj.Objective(y, rest)
}

func (r *rotated) ScratchLen(ndim int) int { return ndim + swarmopt.ScratchLen(r.obj, ndim) }

// split carves an n element buffer off the front of scratch, allocating if
// scratch is too short.
func split(scratch []float64, n int) (buf, rest []float64) {
	if len(scratch) < n {
		return make([]float64, n), nil
	}
	return scratch[:n], scratch[n:]
}

// RandShift draws an offset uniformly from [frac*low, frac*up] in every
// dimension.
func RandShift(rng pop.Rng, ndim int, low, up, frac float64) []float64 {
	offset := make([]float64, ndim)
	for i := range offset {
		offset[i] = frac * (low + rng.Float64()*(up-low))
	}
	return offset
}

// RandRotation returns a random orthogonal n by n matrix: the Q factor of a
// matrix of standard normal draws.
func RandRotation(rng interface{ NormFloat64() float64 }, n int) *mat.Dense {
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, rng.NormFloat64())
		}
	}

	var qr mat.QR
	qr.Factorize(a)
	var q mat.Dense
	qr.QTo(&q)
	return &q
}
