package swarm

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/rwcarlsen/swarmopt/pop"
)

type Particle struct {
	Id  int
	Pos []float64
	Vel []float64
	// Val is the objective value at Pos from the most recent evaluation.
	Val     float64
	BestPos []float64
	BestVal float64
	// Inertia is the particle's adaptive inertia weight.
	Inertia float64
	// Each particle owns its random stream so that particles can be updated
	// in parallel reproducibly.
	rng *rand.Rand
}

func newParticle(id, ndim int, seed uint64) *Particle {
	return &Particle{
		Id:      id,
		Pos:     make([]float64, ndim),
		Vel:     make([]float64, ndim),
		Val:     math.Inf(1),
		BestPos: make([]float64, ndim),
		BestVal: math.Inf(1),
		rng:     pop.NewRng(seed),
	}
}

// Update records val as the value at the particle's current position and
// reports whether it improved the particle's personal best.
func (p *Particle) Update(val float64) bool {
	p.Val = val
	if val < p.BestVal {
		p.BestVal = val
		copy(p.BestPos, p.Pos)
		return true
	}
	return false
}

func (p *Particle) String() string {
	return fmt.Sprintf("%v: f=%.4g x=%.3f v=%.3f bf=%.4g bx=%.3f w=%.3f", p.Id, p.Val, p.Pos, p.Vel, p.BestVal, p.BestPos, p.Inertia)
}

type Population []*Particle

func (pop Population) Points() [][]float64 {
	points := make([][]float64, len(pop))
	for i, p := range pop {
		points[i] = p.Pos
	}
	return points
}
