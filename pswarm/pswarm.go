// Package pswarm runs several cooperating particle swarms over the same
// search box.  Each iteration every swarm is stepped (concurrently unless
// Serial is used) while reading the best point found by any swarm so far.
// Once all swarms have finished the iteration the cross-swarm best is
// recomputed, so iteration N always sees the state after iteration N-1.
package pswarm

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"github.com/rwcarlsen/swarmopt"
	"github.com/rwcarlsen/swarmopt/mesh"
	"github.com/rwcarlsen/swarmopt/pop"
	"github.com/rwcarlsen/swarmopt/swarm"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoSwarms is returned when a system is built without any swarm
	// configurations.
	ErrNoSwarms = errors.New("pswarm: no swarms configured")
	// ErrBudget is returned when neither an evaluation nor an iteration
	// budget allows a single iteration.
	ErrBudget = errors.New("pswarm: budget allows no iterations")
	// ErrDone is returned by Run on a system that has already run.
	ErrDone = errors.New("pswarm: system already ran")
)

type Option func(*System)

// MaxEval sets the total evaluation budget.  The number of iterations is
// the budget divided by the combined population of all swarms.
func MaxEval(n int) Option {
	return func(s *System) {
		s.maxeval = n
	}
}

// MaxIter fixes the number of iterations, overriding MaxEval.
func MaxIter(n int) Option {
	return func(s *System) {
		s.maxiter = n
	}
}

// Seed sets the seed every swarm's random streams are derived from.
func Seed(seed uint64) Option {
	return func(s *System) {
		s.seed = seed
	}
}

// Serial steps the swarms one after another instead of concurrently.
func Serial() Option {
	return func(s *System) {
		s.serial = true
	}
}

// SwarmOptions are passed on to every swarm.
func SwarmOptions(opts ...swarm.Option) Option {
	return func(s *System) {
		s.swarmOpts = append(s.swarmOpts, opts...)
	}
}

func Logger(l logr.Logger) Option {
	return func(s *System) {
		s.log = l
	}
}

// OnIteration registers fn to be called after every iteration barrier with
// the number of completed iterations and the cross-swarm best.
func OnIteration(fn func(iter int, best swarmopt.Point)) Option {
	return func(s *System) {
		s.onIter = fn
	}
}

// Shared returns a factory that hands the same objective to every swarm.
// Only objectives that are safe for concurrent use may be shared.
func Shared(obj swarmopt.ConcurrencySafe) func() swarmopt.Objectiver {
	return func() swarmopt.Objectiver { return obj }
}

type Result struct {
	Best   swarmopt.Point
	Niter  int
	Neval  int
	Resets int
}

func (r Result) String() string {
	return fmt.Sprintf("best=%v after %v iterations (%v evals, %v resets)", r.Best.Val, r.Niter, r.Neval, r.Resets)
}

// System is a set of swarms cooperating on one optimization run.
type System struct {
	swarms []*swarm.Swarm
	objs   []swarmopt.Objectiver
	box    mesh.Box

	maxeval   int
	maxiter   int
	seed      uint64
	serial    bool
	swarmOpts []swarm.Option
	log       logr.Logger
	onIter    func(int, swarmopt.Point)

	// crossPos is only written between iterations.
	crossPos []float64
	crossVal float64
	crossId  int
	history  []float64
	niter    int
	ran      bool
}

// New builds one swarm per configuration.  newobj is called once per swarm
// and each swarm evaluates exclusively through the objective it returns, so
// unsynchronized objectives are safe as long as newobj returns a distinct
// instance each time.
func New(cfgs []swarm.Config, box mesh.Box, newobj func() swarmopt.Objectiver, opts ...Option) (*System, error) {
	if len(cfgs) == 0 {
		return nil, ErrNoSwarms
	} else if err := box.Validate(); err != nil {
		return nil, fmt.Errorf("pswarm: %w", err)
	}

	s := &System{
		box:      box,
		log:      logr.Discard(),
		crossPos: make([]float64, box.Dims()),
		crossVal: math.Inf(1),
		crossId:  -1,
	}
	for _, opt := range opts {
		opt(s)
	}

	npop := 0
	for _, cfg := range cfgs {
		npop += cfg.PopulationSize
	}
	if s.maxiter <= 0 && npop > 0 {
		s.maxiter = s.maxeval / npop
	}

	swarmOpts := append([]swarm.Option{swarm.Logger(s.log.WithName("swarm"))}, s.swarmOpts...)
	seeds := pop.Seeds(pop.NewRng(s.seed), len(cfgs))
	for i, cfg := range cfgs {
		sw, err := swarm.New(i, cfg, box, seeds[i], swarmOpts...)
		if err != nil {
			return nil, fmt.Errorf("pswarm: swarm %v: %w", i, err)
		}
		s.swarms = append(s.swarms, sw)
		s.objs = append(s.objs, newobj())
	}

	if s.maxiter <= 0 {
		return nil, fmt.Errorf("%w: %v evals for a combined population of %v", ErrBudget, s.maxeval, npop)
	}
	return s, nil
}

func (s *System) Swarms() []*swarm.Swarm { return s.swarms }

// MaxIter returns the number of iterations Run performs.
func (s *System) MaxIter() int { return s.maxiter }

// CrossSwarmBest returns the best point found by any swarm as of the last
// completed iteration.
func (s *System) CrossSwarmBest() swarmopt.Point { return swarmopt.NewPoint(s.crossPos, s.crossVal) }

// BestSwarm returns the id of the swarm holding the cross-swarm best or -1
// before initialization.
func (s *System) BestSwarm() int { return s.crossId }

// History returns the cross-swarm best value after initialization followed
// by its value after each completed iteration.
func (s *System) History() []float64 { return append([]float64{}, s.history...) }

func (s *System) Neval() int {
	n := 0
	for _, sw := range s.swarms {
		n += sw.Neval()
	}
	return n
}

func (s *System) Resets() int {
	n := 0
	for _, sw := range s.swarms {
		n += sw.Resets()
	}
	return n
}

// Run initializes every swarm and then iterates until the iteration budget
// is used up.  The context is only checked between iterations.  A system
// can only be run once.
func (s *System) Run(ctx context.Context) (Result, error) {
	if s.ran {
		return s.result(), ErrDone
	}
	s.ran = true

	if err := s.Init(); err != nil {
		return s.result(), err
	}
	for s.niter < s.maxiter {
		if err := ctx.Err(); err != nil {
			return s.result(), err
		}
		if err := s.Iterate(); err != nil {
			return s.result(), err
		}
	}

	r := s.result()
	s.log.V(1).Info("run complete", "best", r.Best.Val, "iterations", r.Niter, "evals", r.Neval, "resets", r.Resets)
	return r, nil
}

// Init binds each swarm to its objective and evaluates the initial
// populations.
func (s *System) Init() error {
	err := s.each(func(i int, sw *swarm.Swarm) error {
		return sw.Initialize(s.objs[i])
	})
	if err != nil {
		return err
	}
	s.updateCrossBest()
	return nil
}

// Iterate steps every swarm once using the current cross-swarm best and
// then recomputes it.
func (s *System) Iterate() error {
	err := s.each(func(_ int, sw *swarm.Swarm) error {
		return sw.Iterate(s.crossPos)
	})
	if err != nil {
		return err
	}

	s.niter++
	s.updateCrossBest()
	s.log.V(3).Info("iteration complete", "iter", s.niter, "best", s.crossVal, "swarm", s.crossId)
	if s.onIter != nil {
		s.onIter(s.niter, s.CrossSwarmBest())
	}
	return nil
}

// each calls fn for every swarm and waits for all of them to return.
func (s *System) each(fn func(i int, sw *swarm.Swarm) error) error {
	if s.serial || len(s.swarms) == 1 {
		for i, sw := range s.swarms {
			if err := fn(i, sw); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	for i, sw := range s.swarms {
		g.Go(func() error { return fn(i, sw) })
	}
	return g.Wait()
}

func (s *System) updateCrossBest() {
	id := 0
	for i, sw := range s.swarms {
		if sw.BestVal() < s.swarms[id].BestVal() {
			id = i
		}
	}

	best := s.swarms[id].Best()
	s.crossId, s.crossVal = id, best.Val
	for d := range s.crossPos {
		s.crossPos[d] = best.At(d)
	}
	s.history = append(s.history, s.crossVal)
}

func (s *System) result() Result {
	return Result{
		Best:   s.CrossSwarmBest(),
		Niter:  s.niter,
		Neval:  s.Neval(),
		Resets: s.Resets(),
	}
}
