package pswarm

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rwcarlsen/swarmopt"
	"github.com/rwcarlsen/swarmopt/mesh"
	"github.com/rwcarlsen/swarmopt/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sphere = swarmopt.SimpleFunc(func(x []float64) float64 {
	tot := 0.0
	for _, v := range x {
		tot += v * v
	}
	return tot
})

func sphereFactory() swarmopt.Objectiver { return sphere }

func configs(n, npop int) []swarm.Config {
	cfgs := make([]swarm.Config, n)
	for i := range cfgs {
		cfgs[i] = swarm.DefaultConfig()
		cfgs[i].PopulationSize = npop
		if i%2 == 1 {
			cfgs[i].Topology = swarm.StaticRing
		}
	}
	return cfgs
}

func TestCrossSwarmBest(t *testing.T) {
	vals := []float64{5.0, 3.2, 9.1}
	next := 0
	newobj := func() swarmopt.Objectiver {
		v := vals[next]
		next++
		return swarmopt.SimpleFunc(func([]float64) float64 { return v })
	}

	sys, err := New(configs(3, 5), mesh.NewBox(4, -100, 100), newobj, MaxIter(1))
	require.NoError(t, err)
	require.NoError(t, sys.Init())

	best := sys.CrossSwarmBest()
	assert.Equal(t, 3.2, best.Val)
	assert.Equal(t, 1, sys.BestSwarm())
	if diff := cmp.Diff(sys.Swarms()[1].Best().Pos(), best.Pos()); diff != "" {
		t.Errorf("cross-swarm best position mismatch (-want +got):\n%s", diff)
	}
}

func TestBudget(t *testing.T) {
	cfgs := configs(2, 10)
	cfgs[1].PopulationSize = 15
	for i := range cfgs {
		cfgs[i].ResetThreshold = 100000
	}

	var counters []*swarmopt.Counter
	newobj := func() swarmopt.Objectiver {
		c := swarmopt.NewCounter(sphere)
		counters = append(counters, c)
		return c
	}

	sys, err := New(cfgs, mesh.NewBox(3, -100, 100), newobj, MaxEval(1000))
	require.NoError(t, err)
	assert.Equal(t, 40, sys.MaxIter())

	r, err := sys.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, r.Niter)
	assert.Equal(t, 25*41, r.Neval)
	assert.Equal(t, 0, r.Resets)
	assert.Equal(t, 10*41, counters[0].Count())
	assert.Equal(t, 15*41, counters[1].Count())

	_, err = New(cfgs, mesh.NewBox(3, -100, 100), newobj, MaxEval(24))
	assert.ErrorIs(t, err, ErrBudget)

	sys, err = New(cfgs, mesh.NewBox(3, -100, 100), newobj, MaxEval(24), MaxIter(3))
	require.NoError(t, err)
	assert.Equal(t, 3, sys.MaxIter())
}

func TestHistory(t *testing.T) {
	var iters []int
	onIter := func(iter int, best swarmopt.Point) {
		iters = append(iters, iter)
	}

	sys, err := New(configs(3, 20), mesh.NewBox(5, -100, 100), sphereFactory, MaxIter(50), Seed(3), OnIteration(onIter))
	require.NoError(t, err)
	r, err := sys.Run(context.Background())
	require.NoError(t, err)

	h := sys.History()
	require.Len(t, h, 51)
	assert.Len(t, iters, 50)
	assert.Equal(t, 50, iters[len(iters)-1])
	for i := 1; i < len(h); i++ {
		if h[i] > h[i-1] {
			t.Errorf("cross-swarm best worsened at iteration %v: %v -> %v", i, h[i-1], h[i])
		}
	}
	assert.Equal(t, r.Best.Val, h[len(h)-1])

	// the cross-swarm best is the minimum over all swarms
	for _, sw := range sys.Swarms() {
		assert.LessOrEqual(t, r.Best.Val, sw.BestVal())
	}
}

func TestSerialMatchesConcurrent(t *testing.T) {
	run := func(opts ...Option) (Result, []float64) {
		opts = append(opts, MaxEval(20000), Seed(11))
		sys, err := New(configs(4, 25), mesh.NewBox(6, -100, 100), sphereFactory, opts...)
		require.NoError(t, err)
		r, err := sys.Run(context.Background())
		require.NoError(t, err)
		return r, sys.History()
	}

	r1, h1 := run(Serial())
	r2, h2 := run()
	if diff := cmp.Diff(h1, h2); diff != "" {
		t.Errorf("history mismatch (-serial +concurrent):\n%s", diff)
	}
	if diff := cmp.Diff(r1.Best.Pos(), r2.Best.Pos()); diff != "" {
		t.Errorf("best position mismatch (-serial +concurrent):\n%s", diff)
	}
	assert.Equal(t, r1.Neval, r2.Neval)
}

func TestConverges(t *testing.T) {
	sys, err := New(configs(3, 50), mesh.NewBox(5, -100, 100), sphereFactory, MaxEval(60000), Seed(5))
	require.NoError(t, err)
	r, err := sys.Run(context.Background())
	require.NoError(t, err)

	t.Logf("[INFO] %v", r)
	assert.Less(t, r.Best.Val, 1.0)
	assert.Less(t, r.Best.Val, sys.History()[0])
}

type failObj struct {
	n, after int
	err      error
}

func (o *failObj) Objective(x, scratch []float64) (float64, error) {
	o.n++
	if o.n > o.after {
		return math.Inf(1), o.err
	}
	return sphere(x), nil
}

func TestErrorPropagates(t *testing.T) {
	fail := errors.New("bad input")
	next := 0
	newobj := func() swarmopt.Objectiver {
		next++
		if next == 2 {
			return &failObj{after: 30, err: fail}
		}
		return sphere
	}

	sys, err := New(configs(3, 10), mesh.NewBox(2, -10, 10), newobj, MaxIter(10))
	require.NoError(t, err)
	r, err := sys.Run(context.Background())
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, 2, r.Niter)

	// dimension faults surface during initialization
	sys, err = New(configs(2, 10), mesh.NewBox(2, -10, 10), func() swarmopt.Objectiver {
		return swarmopt.CheckDims(sphere, 3)
	}, MaxIter(10))
	require.NoError(t, err)
	_, err = sys.Run(context.Background())
	assert.ErrorIs(t, err, swarmopt.ErrDimension)
}

func TestRunOnce(t *testing.T) {
	sys, err := New(configs(1, 5), mesh.NewBox(2, -1, 1), sphereFactory, MaxIter(2))
	require.NoError(t, err)
	_, err = sys.Run(context.Background())
	require.NoError(t, err)
	_, err = sys.Run(context.Background())
	assert.ErrorIs(t, err, ErrDone)
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sys, err := New(configs(2, 5), mesh.NewBox(2, -1, 1), sphereFactory, MaxIter(100))
	require.NoError(t, err)
	r, err := sys.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, r.Niter)
	assert.Equal(t, 10, r.Neval)
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, mesh.NewBox(2, -1, 1), sphereFactory, MaxIter(1))
	assert.ErrorIs(t, err, ErrNoSwarms)

	cfgs := configs(2, 5)
	cfgs[1].ChaosCoef = 2
	_, err = New(cfgs, mesh.NewBox(2, -1, 1), sphereFactory, MaxIter(1))
	assert.ErrorIs(t, err, swarm.ErrConfig)

	_, err = New(configs(1, 5), mesh.NewBox(2, 1, -1), sphereFactory, MaxIter(1))
	assert.Error(t, err)
}

func TestDb(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	sys, err := New(configs(3, 10), mesh.NewBox(2, -5, 5), sphereFactory, MaxIter(4), SwarmOptions(swarm.DB(db)))
	require.NoError(t, err)
	_, err = sys.Run(context.Background())
	require.NoError(t, err)

	var count int
	err = db.QueryRow("SELECT COUNT(DISTINCT swarm) FROM " + swarm.TblBest).Scan(&count)
	if err != nil {
		t.Errorf("[ERROR] best table query failed: %v", err)
	} else if count != 3 {
		t.Errorf("[ERROR] best table: want rows for 3 swarms, got %v", count)
	}

	count = 0
	err = db.QueryRow("SELECT COUNT(*) FROM " + swarm.TblParticles).Scan(&count)
	if err != nil {
		t.Errorf("[ERROR] particles table query failed: %v", err)
	} else if count != 3*10*4 {
		t.Errorf("[ERROR] particles table: want %v rows, got %v", 3*10*4, count)
	}
}
