package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/google/go-cmp/cmp"
	"github.com/rwcarlsen/swarmopt"
	"github.com/rwcarlsen/swarmopt/bench"
	"github.com/rwcarlsen/swarmopt/cache"
	"github.com/rwcarlsen/swarmopt/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const sample = `
function: rastrigin_func
dimensions: 20
cache: exact
shift: true
swarms:
  - populationSize: 50
    topology: ring
  - populationSize: 30
    social: 2
    augment: false
`

func TestParse(t *testing.T) {
	e, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, e.Validate())

	assert.Equal(t, "rastrigin_func", e.Function)
	assert.Equal(t, 20, e.Dimensions)
	assert.Equal(t, 1000000, e.MaxEval)
	assert.Equal(t, DefaultRepeats, e.Repeats)
	assert.Equal(t, cache.Exact, e.Cache)
	assert.True(t, e.Shift)
	assert.False(t, e.Rotate)

	ring := swarm.DefaultConfig()
	ring.PopulationSize = 50
	ring.Topology = swarm.StaticRing
	other := swarm.DefaultConfig()
	other.PopulationSize = 30
	other.Social = 2
	other.Augment = false
	if diff := cmp.Diff([]swarm.Config{ring, other}, e.SwarmConfigs()); diff != "" {
		t.Errorf("swarm configs mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDefaults(t *testing.T) {
	e, err := Parse([]byte("function: sphere\n"))
	require.NoError(t, err)
	require.NoError(t, e.Validate())

	want := Default("sphere", 10)
	if diff := cmp.Diff(want, e); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejects(t *testing.T) {
	for _, doc := range []string{
		"function: sphere\nbogus: 1\n",
		"function: sphere\nswarms:\n  - populationSize: 10\n    topolgy: ring\n",
		"function: sphere\nswarms:\n  - topology: hypercube\n",
		"function: sphere\ncache: lru\n",
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestRoundTrip(t *testing.T) {
	e := Default("levy", 10)
	e.Swarms = append(e.Swarms, Swarm(swarm.DefaultConfig()))
	e.Swarms[1].Topology = swarm.StaticRing
	e.Rotate = true

	data, err := e.Marshal()
	require.NoError(t, err)
	got, err := Parse(data)
	require.NoError(t, err)
	if diff := cmp.Diff(e, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))
	e, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, e.Swarms, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	e := Default("nosuchfunc", 0)
	e.Min, e.Max = 5, 5
	e.Repeats = 0
	e.Swarms[0].PopulationSize = 0
	e.Swarms[0].ChaosCoef = -1

	err := e.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorIs(t, err, bench.ErrUnknown)
	assert.ErrorIs(t, err, swarm.ErrConfig)
	// function, dimensions, range, repeats and two swarm problems
	assert.Len(t, multierr.Errors(err), 6)

	e = Default("eggholder", 10)
	assert.Error(t, e.Validate())

	e = Default("sphere", 10)
	e.MaxEval = 50
	assert.ErrorIs(t, e.Validate(), ErrConfig)
}

func TestDefaultBounds(t *testing.T) {
	e := Default("eggholder", 2)
	assert.Equal(t, -512.0, e.Min)
	assert.Equal(t, 512.0, e.Max)
	assert.Equal(t, 1000000, e.MaxEval)

	b := e.Box()
	assert.Equal(t, 2, b.Dims())
	assert.Equal(t, 512.0, b.VMax[0])
}

func TestObjective(t *testing.T) {
	e := Default("sphere", 3)
	e.Cache = cache.Exact
	c, err := e.Objective(logr.Discard())
	require.NoError(t, err)

	val, err := c.Objective([]float64{1, 2, 2}, make([]float64, 3))
	require.NoError(t, err)
	assert.Equal(t, 9.0, val)

	// the same seed gives the same landscape
	e.Shift, e.Rotate = true, true
	e.Seed = 9
	c1, err := e.Objective(logr.Discard())
	require.NoError(t, err)
	c2, err := e.Objective(logr.Discard())
	require.NoError(t, err)
	x := []float64{3, -1, 4}
	v1, err := c1.Objective(x, make([]float64, 3))
	require.NoError(t, err)
	v2, err := c2.Objective(x, make([]float64, 3))
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.NotEqual(t, 26.0, v1)

	e.Function = "nosuchfunc"
	_, err = e.Objective(logr.Discard())
	assert.ErrorIs(t, err, bench.ErrUnknown)
}

func TestMeshObjective(t *testing.T) {
	e := Default("sphere", 3)
	e.MeshStep = 1
	c, err := e.Objective(logr.Discard())
	require.NoError(t, err)

	val, err := c.Objective([]float64{0.4, -0.3, 1.2}, make([]float64, 3))
	require.NoError(t, err)
	assert.Equal(t, 1.0, val)

	e.MeshStep = -1
	assert.ErrorIs(t, e.Validate(), ErrConfig)
}

func TestObjectiveScratchLen(t *testing.T) {
	e := Default("sphere", 4)
	c, err := e.Objective(logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, 4, swarmopt.ScratchLen(c, 4))

	// each transform needs its own buffer, whatever sits between them
	e.Shift, e.Rotate, e.MeshStep = true, true, 0.5
	c, err = e.Objective(logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, 12, swarmopt.ScratchLen(c, 4))
}

func TestObjectiveLogged(t *testing.T) {
	var lines []string
	log := funcr.New(func(prefix, args string) { lines = append(lines, args) }, funcr.Options{Verbosity: 4})

	e := Default("sphere", 2)
	e.Cache = cache.Exact
	c, err := e.Objective(log)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := c.Objective([]float64{1, 2}, make([]float64, 2))
		require.NoError(t, err)
	}
	assert.Len(t, lines, 1, "cache hits are not logged")
	assert.Equal(t, 2, c.Hits())
}

func TestName(t *testing.T) {
	e := Default("rosenbrock", 20)
	assert.Equal(t, "rosenbrock_20", e.Name())
	e.Shift, e.Rotate = true, true
	assert.Equal(t, "rosenbrock_20_shift_rot", e.Name())
}
