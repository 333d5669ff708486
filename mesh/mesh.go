package mesh

import (
	"fmt"
	"math"

	"github.com/rwcarlsen/swarmopt"
	"gonum.org/v1/gonum/mat"
)

// Mesh is an interface for projecting arbitrary dimensional points onto some
// kind of (potentially discrete) mesh.
type Mesh interface {
	// Nearest returns the nearest mesh point to p in a newly allocated slice.
	Nearest(p []float64) []float64
}

// Infinite is a grid-based, linear-axis mesh that extends in all dimensions
// without bounds.  The length of Origin defines the dimensionality of the
// mesh. If Origin == nil, the dimensionality is set by the first call to
// Nearest.  If Basis == nil, a unit basis (the identity matrix) is used.  If
// Step == 0, then the mesh represents continuous space and the Nearest method
// just returns the point passed to it.
type Infinite struct {
	Origin []float64
	// Basis contains a set of column vectors defining the directions of each
	// mesh axis.
	Basis *mat.Dense
	// Step represents the discretization or grid size of the mesh.
	Step     float64
	inverter *mat.Dense
}

// Nearest returns the nearest grid point to p by rounding each dimensional
// position to the nearest grid point.  If the mesh basis is not the identity
// matrix, then p is transformed to the mesh basis before rounding and then
// retransformed back.
func (sm *Infinite) Nearest(p []float64) []float64 {
	if sm.Step == 0 {
		return append([]float64{}, p...)
	} else if l := len(sm.Origin); l != 0 && l != len(p) {
		panic(fmt.Sprintf("origin len %v incompatible with point len %v", l, len(p)))
	}

	// set up origin and inverter matrix if necessary
	if len(sm.Origin) == 0 {
		sm.Origin = make([]float64, len(p))
	}
	if sm.Basis != nil && sm.inverter == nil {
		sm.inverter = &mat.Dense{}
		if err := sm.inverter.Inverse(sm.Basis); err != nil {
			panic("mesh basis is singular: " + err.Error())
		}
	}

	// translate p based on origin and transform to new vector space
	newp := make([]float64, len(p))
	for i := range newp {
		newp[i] = p[i] - sm.Origin[i]
	}
	v := mat.NewVecDense(len(newp), newp)
	rotv := v
	if sm.inverter != nil {
		rotv = &mat.VecDense{}
		rotv.MulVec(sm.inverter, v)
	}

	// calculate nearest point
	nearest := mat.NewVecDense(len(p), nil)
	for i := range sm.Origin {
		nearest.SetVec(i, math.Round(rotv.AtVec(i)/sm.Step)*sm.Step)
	}

	// transform back to standard space
	if sm.Basis != nil {
		back := &mat.VecDense{}
		back.MulVec(sm.Basis, nearest)
		nearest = back
	}
	out := make([]float64, len(p))
	for i := range out {
		out[i] = nearest.AtVec(i) + sm.Origin[i]
	}
	return out
}

type Bounded struct {
	Box  Box
	core Mesh
}

func NewBounded(m Mesh, box Box) *Bounded {
	// force panic if bounds lengths don't match mesh m's # dims
	m.Nearest(box.Low)
	return &Bounded{Box: box, core: m}
}

// Nearest returns the nearest bounded grid point to p by sliding each
// dimensional position to the nearest value inside bounds and then rounding
// to the nearest grid point.  Grid points that fall outside the box after
// rounding are pulled back inside.
func (m *Bounded) Nearest(p []float64) []float64 {
	pdup := make([]float64, len(p))
	copy(pdup, p)
	m.Box.Clamp(pdup)
	out := m.core.Nearest(pdup)
	m.Box.Clamp(out)
	return out
}

type meshObjective struct {
	swarmopt.Objectiver
	m Mesh
}

// Objective returns an objective that evaluates obj at the mesh point
// nearest to each position it is given.
func Objective(obj swarmopt.Objectiver, m Mesh) swarmopt.Objectiver {
	return &meshObjective{Objectiver: obj, m: m}
}

func (mo *meshObjective) Objective(x, scratch []float64) (float64, error) {
	return mo.Objectiver.Objective(mo.m.Nearest(x), scratch)
}

func (mo *meshObjective) ScratchLen(ndim int) int { return swarmopt.ScratchLen(mo.Objectiver, ndim) }
