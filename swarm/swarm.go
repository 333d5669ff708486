// Package swarm implements a single particle swarm with adaptive inertia,
// chaotic velocity mutation and stagnation-triggered population resets.
//
// A Swarm is driven one iteration at a time, either through Iterate or by
// calling the individual steps in order:
//
//     CheckForPopulationReset, Mutate, UpdateVelocityAndPosition, Evaluate,
//     UpdateBest, UpdateInertia, AdvanceEpoch
//
// Mutate, UpdateVelocityAndPosition and UpdateInertia are computed in
// parallel across particles.  Evaluation is always sequential, so the
// objective only needs to be safe for use by one goroutine at a time.
package swarm

import (
	"database/sql"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/go-logr/logr"
	"github.com/rwcarlsen/swarmopt"
	"github.com/rwcarlsen/swarmopt/mesh"
	"github.com/rwcarlsen/swarmopt/pop"
	"github.com/rwcarlsen/swarmopt/stats"
	"golang.org/x/sync/errgroup"
)

// DefaultInertiaEps is the magnitude below which an evaluation is treated
// as zero by the inertia adaptation.
const DefaultInertiaEps = 1e-12

// TimerEval is the name under which evaluation step timings are recorded.
const TimerEval = "swarm.evaluate"

// State is the reset state of a swarm.
type State int

const (
	Active State = iota
	// Stagnant swarms have gone more than ResetThreshold iterations without
	// improving their global best.
	Stagnant
	// Reinitializing swarms are in the middle of a population reset.
	Reinitializing
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Stagnant:
		return "stagnant"
	case Reinitializing:
		return "reinitializing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Option func(*Swarm)

// Workers sets the number of goroutines used for the per-particle steps.
// Values less than 2 make every step sequential.
func Workers(n int) Option {
	return func(s *Swarm) {
		s.workers = n
	}
}

// Timer records the elapsed time of each evaluation step in r.
func Timer(r *stats.Recorder) Option {
	return func(s *Swarm) {
		s.timer = r
	}
}

func DB(db *sql.DB) Option {
	return func(s *Swarm) {
		s.db = db
	}
}

func Logger(l logr.Logger) Option {
	return func(s *Swarm) {
		s.log = l
	}
}

// InertiaEps sets the magnitude below which evaluations are treated as zero
// when adapting inertia.
func InertiaEps(eps float64) Option {
	return func(s *Swarm) {
		s.inertiaEps = eps
	}
}

type Swarm struct {
	Id  int
	cfg Config
	box mesh.Box
	pop Population
	// ring is the static ring neighbor table (see ringTable).
	ring []int

	obj     swarmopt.Objectiver
	points  [][]float64
	vals    []float64
	scratch []float64

	bestPos []float64
	bestVal float64

	epoch           int
	lastImprovement int
	resets          int
	neval           int
	state           State

	workers    int
	inertiaEps float64
	timer      *stats.Recorder
	db         *sql.DB
	log        logr.Logger
}

// New creates a swarm with hyperparameters cfg searching box.  Seed
// determines every random draw the swarm makes.  The swarm must be
// initialized with an objective before it is iterated.
func New(id int, cfg Config, box mesh.Box, seed uint64, opts ...Option) (*Swarm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	} else if err := box.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	ndim := box.Dims()
	s := &Swarm{
		Id:         id,
		cfg:        cfg,
		box:        box,
		pop:        make(Population, cfg.PopulationSize),
		ring:       ringTable(cfg.PopulationSize),
		vals:       make([]float64, cfg.PopulationSize),
		bestPos:    make([]float64, ndim),
		bestVal:    math.Inf(1),
		workers:    runtime.GOMAXPROCS(0),
		inertiaEps: DefaultInertiaEps,
		log:        logr.Discard(),
	}

	seeds := pop.Seeds(pop.NewRng(seed), cfg.PopulationSize)
	for i := range s.pop {
		s.pop[i] = newParticle(i, ndim, seeds[i])
		s.pop[i].Inertia = cfg.Inertia
	}
	s.points = s.pop.Points()

	for _, opt := range opts {
		opt(s)
	}

	if err := s.initdb(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Swarm) Config() Config { return s.cfg }

func (s *Swarm) Box() mesh.Box { return s.box }

// Particles returns the swarm's particles.  They are owned by the swarm.
func (s *Swarm) Particles() Population { return s.pop }

// Best returns the best point the swarm has ever found.
func (s *Swarm) Best() swarmopt.Point { return swarmopt.NewPoint(s.bestPos, s.bestVal) }

// BestVal returns the value of the swarm's best point.
func (s *Swarm) BestVal() float64 { return s.bestVal }

// Epoch returns the number of completed iterations.
func (s *Swarm) Epoch() int { return s.epoch }

// Stale returns the number of iterations since the global best last
// improved.
func (s *Swarm) Stale() int { return s.epoch - s.lastImprovement }

// Resets returns the number of stagnation-triggered population resets.
func (s *Swarm) Resets() int { return s.resets }

func (s *Swarm) State() State { return s.state }

// Neval returns the number of objective evaluations performed.
func (s *Swarm) Neval() int { return s.neval }

// Initialize binds the objective used for all evaluations and randomizes
// the population.  If obj implements swarmopt.ScratchSizer the evaluation
// scratch buffer is grown to what it asks for.
func (s *Swarm) Initialize(obj swarmopt.Objectiver) error {
	s.obj = obj
	s.scratch = make([]float64, swarmopt.ScratchLen(obj, s.box.Dims()))
	return s.ResetPopulation()
}

// ResetPopulation draws new positions and velocities for every particle,
// forgets their personal bests and evaluates them.  The global best and
// hyperparameters are kept.  The stagnation counter only restarts if the new
// population improves the global best.
func (s *Swarm) ResetPopulation() error {
	if s.obj == nil {
		panic("swarm: ResetPopulation called before Initialize")
	}
	s.state = Reinitializing

	s.parallel(func(p *Particle) {
		pop.Uniform(p.rng, p.Pos, s.box.Low, s.box.Up)
		pop.Velocity(p.rng, p.Vel, s.box.VMax)
		p.Val = math.Inf(1)
		p.BestVal = math.Inf(1)
		p.Inertia = s.cfg.Inertia
	})

	if err := s.Evaluate(); err != nil {
		return err
	}
	s.UpdateBest()
	s.state = Active
	return nil
}

// CheckForPopulationReset resets the population if the swarm has gone more
// than ResetThreshold iterations without improving its global best.  It
// reports whether a reset happened.
func (s *Swarm) CheckForPopulationReset() (bool, error) {
	if s.Stale() <= s.cfg.ResetThreshold {
		return false, nil
	}

	s.state = Stagnant
	s.resets++
	s.log.V(2).Info("resetting stagnant population", "swarm", s.Id, "epoch", s.epoch, "stale", s.Stale(), "best", s.bestVal)
	return true, s.ResetPopulation()
}

// Mutate replaces each velocity coordinate with a fresh random velocity
// with probability ChaosCoef.  It does nothing unless Augment is set.
func (s *Swarm) Mutate() {
	if !s.cfg.Augment {
		return
	}
	s.parallel(func(p *Particle) {
		for d := range p.Vel {
			if p.rng.Float64() < s.cfg.ChaosCoef {
				p.Vel[d] = s.box.VMax[d] * (2*p.rng.Float64() - 1)
			}
		}
	})
}

// UpdateVelocityAndPosition moves every particle.  crossBest is the best
// position across all cooperating swarms; if nil the swarm's own global best
// is used.  crossBest is only read.
func (s *Swarm) UpdateVelocityAndPosition(crossBest []float64) {
	if crossBest == nil {
		crossBest = s.bestPos
	}

	c := s.cfg
	s.parallel(func(p *Particle) {
		// one set of draws per particle, shared by all dimensions
		rCognition := p.rng.Float64()
		rSocial := p.rng.Float64()
		rInertia := p.rng.Float64()
		rSwarm := p.rng.Float64()

		vb := s.visible(p.Id)
		for d := range p.Vel {
			v := rInertia*p.Inertia*p.Vel[d] +
				c.Cognition*rCognition*(p.BestPos[d]-p.Pos[d]) +
				c.Social*rSocial*(vb[d]-p.Pos[d]) +
				c.SwarmAttraction*rSwarm*(crossBest[d]-p.Pos[d])
			p.Vel[d] = s.box.ClampVel(d, v)
			p.Pos[d] = s.box.Reflect(d, p.Pos[d]+p.Vel[d])
		}
	})
}

// Evaluate evaluates every particle's current position in index order.  The
// first objective error aborts the step and is returned.
func (s *Swarm) Evaluate() error {
	start := time.Now()
	n, err := swarmopt.SerialEvaler{}.Eval(s.obj, s.scratch, s.points, s.vals)
	if s.timer != nil {
		s.timer.Add(TimerEval, time.Since(start))
	}
	s.neval += n
	if err != nil {
		return fmt.Errorf("swarm %v: evaluation %v of epoch %v: %w", s.Id, n-1, s.epoch, err)
	}
	for i, p := range s.pop {
		p.Val = s.vals[i]
	}
	return nil
}

// UpdateBest folds the latest evaluations into the personal bests and the
// global best.  Improving the global best restarts the stagnation counter.
func (s *Swarm) UpdateBest() {
	for _, p := range s.pop {
		if !p.Update(p.Val) {
			continue
		}
		if p.BestVal < s.bestVal {
			s.bestVal = p.BestVal
			copy(s.bestPos, p.BestPos)
			s.lastImprovement = s.epoch
		}
	}
}

// UpdateInertia adapts each particle's inertia weight to how far its latest
// evaluation is from the global best:
//
//     w = (inertia + f*(1-inertia)) * rand
//
// where f = 1 - best/val.  Values within InertiaEps of zero count as being
// at the best if the best is also zero and as being far from it otherwise.
// Non-finite values get f = 1.
func (s *Swarm) UpdateInertia() {
	s.parallel(func(p *Particle) {
		p.Inertia = (s.cfg.Inertia + s.inertiaFactor(p.Val)*(1-s.cfg.Inertia)) * p.rng.Float64()
	})
}

func (s *Swarm) inertiaFactor(val float64) float64 {
	best := s.bestVal
	switch {
	case math.IsNaN(val) || math.IsInf(val, 0) || math.IsInf(best, 0):
		return 1
	case math.Abs(val) <= s.inertiaEps:
		if math.Abs(best) <= s.inertiaEps {
			return 0
		}
		return 1
	}
	return 1 - best/val
}

// AdvanceEpoch ends the current iteration.
func (s *Swarm) AdvanceEpoch() { s.epoch++ }

// Iterate runs one full iteration of the swarm.
func (s *Swarm) Iterate(crossBest []float64) error {
	if _, err := s.CheckForPopulationReset(); err != nil {
		return err
	}
	s.Mutate()
	s.UpdateVelocityAndPosition(crossBest)
	if err := s.Evaluate(); err != nil {
		return err
	}
	s.UpdateBest()
	s.UpdateInertia()
	if err := s.updateDb(); err != nil {
		return err
	}
	s.AdvanceEpoch()
	return nil
}

// parallel calls fn for every particle, splitting the population into
// contiguous chunks across the configured number of workers.  It returns
// once every call has completed.
func (s *Swarm) parallel(fn func(p *Particle)) {
	if s.workers < 2 || len(s.pop) < 2 {
		for _, p := range s.pop {
			fn(p)
		}
		return
	}

	chunk := (len(s.pop) + s.workers - 1) / s.workers
	var g errgroup.Group
	for lo := 0; lo < len(s.pop); lo += chunk {
		hi := min(lo+chunk, len(s.pop))
		g.Go(func() error {
			for _, p := range s.pop[lo:hi] {
				fn(p)
			}
			return nil
		})
	}
	g.Wait()
}
