// Package config describes optimization experiments: which benchmark to
// minimize, the search box, the evaluation budget, the cache and the
// swarms to run.  Experiments are usually read from YAML files:
//
//     function: rastrigin
//     dimensions: 10
//     maxEval: 200000
//     cache: nearest
//     swarms:
//       - populationSize: 50
//         topology: ring
//       - populationSize: 50
//         social: 2
//
// Swarm fields left out of a file take their swarm.DefaultConfig values.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-logr/logr"
	"github.com/rwcarlsen/swarmopt"
	"github.com/rwcarlsen/swarmopt/bench"
	"github.com/rwcarlsen/swarmopt/cache"
	"github.com/rwcarlsen/swarmopt/mesh"
	"github.com/rwcarlsen/swarmopt/pop"
	"github.com/rwcarlsen/swarmopt/swarm"
	"go.uber.org/multierr"
	"sigs.k8s.io/yaml"
)

// ErrConfig is wrapped by every experiment validation failure.
var ErrConfig = errors.New("invalid experiment")

const (
	DefaultMin     = -100
	DefaultMax     = 100
	DefaultRepeats = 30
)

// Budget returns the conventional evaluation budget for ndim dimensions.
func Budget(ndim int) int {
	if ndim == 10 {
		return 200000
	}
	return 1000000
}

// Swarm is a swarm.Config that starts from swarm.DefaultConfig when decoded.
type Swarm swarm.Config

func (s *Swarm) UnmarshalJSON(data []byte) error {
	type plain swarm.Config
	c := plain(swarm.DefaultConfig())
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return err
	}
	*s = Swarm(c)
	return nil
}

type Experiment struct {
	Function   string  `json:"function"`
	Dimensions int     `json:"dimensions"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	// MaxEval is the evaluation budget of a single run.
	MaxEval int `json:"maxEval"`
	// Repeats is the number of independent runs.
	Repeats int `json:"repeats"`
	// Seed determines the shift and rotation of the function and the seeds
	// of every run.
	Seed        uint64         `json:"seed"`
	Cache       cache.Strategy `json:"cache"`
	CacheRadius float64        `json:"cacheRadius"`
	Shift       bool           `json:"shift"`
	Rotate      bool           `json:"rotate"`
	// MeshStep snaps every position onto a grid with this spacing, anchored
	// at the lower corner of the box, before it is evaluated.  Zero means
	// continuous space.
	MeshStep float64 `json:"meshStep,omitempty"`
	Swarms   []Swarm `json:"swarms"`
}

// Default returns an experiment running one default swarm on function with
// the conventional budget.  Functions with their own bounds override the
// default [-100, 100] box.
func Default(function string, ndim int) Experiment {
	e := Experiment{
		Function:    function,
		Dimensions:  ndim,
		Min:         DefaultMin,
		Max:         DefaultMax,
		MaxEval:     Budget(ndim),
		Repeats:     DefaultRepeats,
		Cache:       cache.Nearest,
		CacheRadius: cache.DefaultRadius,
		Swarms:      []Swarm{Swarm(swarm.DefaultConfig())},
	}
	if fn, err := bench.Lookup(function); err == nil {
		if b, ok := fn.(bench.Bounded); ok {
			e.Min, e.Max = b.Bounds()
		}
	}
	return e
}

// Load reads an experiment from a YAML (or JSON) file.  Unset fields take
// their Default values.
func Load(path string) (Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Experiment{}, err
	}
	e, err := Parse(data)
	if err != nil {
		return e, fmt.Errorf("%v: %w", path, err)
	}
	return e, nil
}

func Parse(data []byte) (Experiment, error) {
	e := Experiment{
		Dimensions:  10,
		Min:         DefaultMin,
		Max:         DefaultMax,
		Repeats:     DefaultRepeats,
		Cache:       cache.Nearest,
		CacheRadius: cache.DefaultRadius,
	}
	if err := yaml.UnmarshalStrict(data, &e); err != nil {
		return e, err
	}

	if e.MaxEval == 0 {
		e.MaxEval = Budget(e.Dimensions)
	}
	if len(e.Swarms) == 0 {
		e.Swarms = []Swarm{Swarm(swarm.DefaultConfig())}
	}
	return e, nil
}

// Marshal renders e as YAML.
func (e Experiment) Marshal() ([]byte, error) { return yaml.Marshal(e) }

// Validate reports every problem with e.
func (e Experiment) Validate() error {
	var err error
	bad := func(format string, args ...interface{}) {
		err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]interface{}{ErrConfig}, args...)...))
	}

	if fn, lerr := bench.Lookup(e.Function); lerr != nil {
		bad("%w", lerr)
	} else if derr := bench.CheckDims(fn, e.Dimensions); derr != nil {
		bad("%w", derr)
	}
	if e.Dimensions <= 0 {
		bad("non-positive dimensions %v", e.Dimensions)
	}
	if !(e.Min < e.Max) {
		bad("empty range [%v, %v]", e.Min, e.Max)
	}
	if e.Repeats <= 0 {
		bad("non-positive repeats %v", e.Repeats)
	}
	if e.CacheRadius < 0 {
		bad("negative cache radius %v", e.CacheRadius)
	}
	if !(e.MeshStep >= 0) || math.IsInf(e.MeshStep, 0) {
		bad("invalid mesh step %v", e.MeshStep)
	}
	if len(e.Swarms) == 0 {
		bad("no swarms")
	}

	npop := 0
	for i, s := range e.SwarmConfigs() {
		if serr := s.Validate(); serr != nil {
			for _, se := range multierr.Errors(serr) {
				bad("swarm %v: %w", i, se)
			}
		}
		npop += s.PopulationSize
	}
	if npop > 0 && e.MaxEval < npop {
		bad("budget of %v evals does not cover one iteration of %v particles", e.MaxEval, npop)
	}
	return err
}

func (e Experiment) SwarmConfigs() []swarm.Config {
	cfgs := make([]swarm.Config, len(e.Swarms))
	for i, s := range e.Swarms {
		cfgs[i] = swarm.Config(s)
	}
	return cfgs
}

func (e Experiment) Box() mesh.Box { return mesh.NewBox(e.Dimensions, e.Min, e.Max) }

// Name identifies the experiment in file names and reports.
func (e Experiment) Name() string {
	name := fmt.Sprintf("%v_%v", e.Function, e.Dimensions)
	if e.Shift {
		name += "_shift"
	}
	if e.Rotate {
		name += "_rot"
	}
	return name
}

// Objective builds the function to minimize: the benchmark, rotated and
// shifted as configured, evaluated on the mesh if there is one, behind a
// fresh cache.  The shift and rotation only
// depend on Seed, so every run of an experiment sees the same landscape.
// When log is enabled at verbosity 4 every evaluation that misses the cache
// is logged.
func (e Experiment) Objective(log logr.Logger) (*cache.Cache, error) {
	fn, err := bench.Lookup(e.Function)
	if err != nil {
		return nil, err
	} else if err := bench.CheckDims(fn, e.Dimensions); err != nil {
		return nil, err
	}

	rng := pop.NewRng(e.Seed)
	var obj swarmopt.Objectiver = bench.Objective(fn, e.Dimensions)
	if e.Rotate {
		obj = bench.Rotate(obj, bench.RandRotation(rng, e.Dimensions))
	}
	if e.Shift {
		obj = bench.Shift(obj, bench.RandShift(rng, e.Dimensions, e.Min, e.Max, 0.8))
	}
	if e.MeshStep > 0 {
		box := e.Box()
		m := &mesh.Infinite{Origin: box.Low, Step: e.MeshStep}
		obj = mesh.Objective(obj, mesh.NewBounded(m, box))
	}
	if log.V(4).Enabled() {
		obj = swarmopt.Logged(obj, log)
	}
	return cache.New(obj, e.Cache, cache.Radius(e.CacheRadius))
}
