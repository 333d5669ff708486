package swarm

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// ErrConfig is wrapped by all swarm configuration validation failures.
var ErrConfig = errors.New("invalid swarm configuration")

// Config holds a swarm's hyperparameters.  They are fixed for the lifetime
// of the swarm and survive population resets.
type Config struct {
	PopulationSize int `json:"populationSize"`
	// ResetThreshold is the number of iterations without a global best
	// improvement after which the population is reinitialized.
	ResetThreshold  int      `json:"resetThreshold"`
	Inertia         float64  `json:"inertia"`
	Cognition       float64  `json:"cognition"`
	Social          float64  `json:"social"`
	SwarmAttraction float64  `json:"swarmAttraction"`
	ChaosCoef       float64  `json:"chaosCoef"`
	Topology        Topology `json:"topology"`
	Augment         bool     `json:"augment"`
}

// DefaultConfig returns the hyperparameters that work well across the
// benchmark suite with 10 to 20 dimensions.
func DefaultConfig() Config {
	return Config{
		PopulationSize:  100,
		ResetThreshold:  100,
		Inertia:         0.3,
		Cognition:       1,
		Social:          3,
		SwarmAttraction: 0.1,
		ChaosCoef:       0.001,
		Topology:        Star,
		Augment:         true,
	}
}

// Validate reports every problem with c.  All returned errors wrap
// ErrConfig; unknown topologies additionally wrap ErrTopology.
func (c Config) Validate() error {
	var err error
	bad := func(format string, args ...interface{}) {
		err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]interface{}{ErrConfig}, args...)...))
	}

	if c.PopulationSize <= 0 {
		bad("non-positive population size %v", c.PopulationSize)
	}
	if c.ResetThreshold < 0 {
		bad("negative reset threshold %v", c.ResetThreshold)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"inertia", c.Inertia},
		{"cognition", c.Cognition},
		{"social", c.Social},
		{"swarm attraction", c.SwarmAttraction},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			bad("%v is not finite", f.name)
		}
	}
	if !(c.ChaosCoef >= 0 && c.ChaosCoef <= 1) {
		bad("chaos coefficient %v outside [0, 1]", c.ChaosCoef)
	}
	if !c.Topology.Valid() {
		err = multierr.Append(err, fmt.Errorf("%w: %w: %v", ErrConfig, ErrTopology, int(c.Topology)))
	}
	return err
}
