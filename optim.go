// Package swarmopt holds the pieces shared by the swarm optimizers: points,
// the objective function contract and a few objective decorators.
package swarmopt

import (
	"crypto/sha1"
	"encoding/binary"
	"math"
)

type Point struct {
	pos []float64
	Val float64
}

func NewPoint(pos []float64, val float64) Point {
	cpos := make([]float64, len(pos))
	copy(cpos, pos)
	return Point{pos: cpos, Val: val}
}

func (p Point) At(i int) float64 { return p.pos[i] }

func (p Point) Len() int { return len(p.pos) }

func (p Point) Pos() []float64 {
	pos := make([]float64, len(p.pos))
	copy(pos, p.pos)
	return pos
}

// Hash returns the sha1 hash of the bit patterns of pos.  Positions that are
// bit-for-bit identical hash identically.
func Hash(pos []float64) [sha1.Size]byte {
	data := make([]byte, len(pos)*8)
	for i, x := range pos {
		binary.BigEndian.PutUint64(data[i*8:], math.Float64bits(x))
	}
	return sha1.Sum(data)
}

func (p Point) Hash() [sha1.Size]byte { return Hash(p.pos) }

// SerialEvaler evaluates points one at a time in order.  Evaluation stops
// at the first failure and the error is returned; vals beyond that point are
// left untouched.
type SerialEvaler struct{}

// Eval evaluates each of points using obj and stores the results in vals,
// which must be at least as long as points.  It returns the number of
// function evaluations performed.
func (SerialEvaler) Eval(obj Objectiver, scratch []float64, points [][]float64, vals []float64) (n int, err error) {
	for i, p := range points {
		vals[i], err = obj.Objective(p, scratch)
		n++
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
