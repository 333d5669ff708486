package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rwcarlsen/swarmopt/bench"
	"github.com/rwcarlsen/swarmopt/config"
	"github.com/rwcarlsen/swarmopt/pop"
	"github.com/rwcarlsen/swarmopt/pswarm"
	"github.com/rwcarlsen/swarmopt/stats"
	"github.com/rwcarlsen/swarmopt/swarm"
	"golang.org/x/sync/errgroup"
)

const timerRun = "mswarm.run"

type runResult struct {
	pswarm.Result
	Hits    int
	History []float64
}

// runExperiment performs all repeats of e and writes the result file, the
// experiment description and optionally a convergence plot.
func runExperiment(ctx context.Context, log logr.Logger, e config.Experiment, o options) (string, error) {
	start := time.Now()
	rec := stats.NewRecorder()
	results := make([]runResult, e.Repeats)
	seeds := pop.Seeds(pop.NewRng(e.Seed), e.Repeats)

	g, ctx := errgroup.WithContext(ctx)
	if o.parallel > 0 {
		g.SetLimit(o.parallel)
	}
	for i := range results {
		g.Go(func() error {
			return rec.Time(timerRun, func() error {
				r, err := runOnce(ctx, log.WithValues("experiment", e.Name(), "run", i), e, seeds[i], i, o.db, rec)
				results[i] = r
				return err
			})
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	if err := writeResults(o.out, e, results); err != nil {
		return "", err
	}
	if o.plot != "" {
		histories := make([][]float64, len(results))
		for i, r := range results {
			histories[i] = r.History
		}
		path := filepath.Join(o.plot, e.Name()+".html")
		if err := plotConvergence(path, e.Name(), histories); err != nil {
			return "", err
		}
	}

	for _, s := range rec.Report() {
		log.V(1).Info("timing", "experiment", e.Name(), "summary", s.String())
	}
	return summarize(e, results, time.Since(start)), nil
}

func runOnce(ctx context.Context, log logr.Logger, e config.Experiment, seed uint64, run int, dbdir string, rec *stats.Recorder) (runResult, error) {
	c, err := e.Objective(log)
	if err != nil {
		return runResult{}, err
	}

	opts := []pswarm.Option{
		pswarm.MaxEval(e.MaxEval),
		pswarm.Seed(seed),
		pswarm.Logger(log),
		pswarm.SwarmOptions(swarm.Timer(rec)),
	}
	if dbdir != "" {
		db, err := openDB(filepath.Join(dbdir, fmt.Sprintf("%v_%v.sqlite", e.Name(), run)))
		if err != nil {
			return runResult{}, err
		}
		defer db.Close()
		opts = append(opts, pswarm.SwarmOptions(swarm.DB(db)))
	}

	sys, err := pswarm.New(e.SwarmConfigs(), e.Box(), pswarm.Shared(c), opts...)
	if err != nil {
		return runResult{}, err
	}
	r, err := sys.Run(ctx)
	log.V(2).Info("run finished", "best", r.Best.Val, "evals", r.Neval, "hits", c.Hits(), "resets", r.Resets)
	return runResult{Result: r, Hits: c.Hits(), History: sys.History()}, err
}

func openDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	os.Remove(path)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// concurrent swarms share the file
	db.SetMaxOpenConns(1)
	return db, nil
}

// writeResults writes <dir>/<name>.txt holding the best value of every run
// on the first line and the cache hits of every run on the second, plus
// <dir>/<name>.yaml describing the experiment.
func writeResults(dir string, e config.Experiment, results []runResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, e.Name()+".txt"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, r := range results {
		w.WriteString(strconv.FormatFloat(r.Best.Val, 'g', -1, 64))
		w.WriteByte(' ')
	}
	w.WriteByte('\n')
	for _, r := range results {
		w.WriteString(strconv.Itoa(r.Hits))
		w.WriteByte(' ')
	}
	w.WriteByte('\n')
	if err := w.Flush(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	data, err := e.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, e.Name()+".yaml"), data, 0644)
}

func summarize(e config.Experiment, results []runResult, took time.Duration) string {
	vals := make([]float64, len(results))
	neval, hits, solved := 0, 0, 0
	fn, _ := bench.Lookup(e.Function)
	for i, r := range results {
		vals[i] = r.Best.Val
		neval += r.Neval
		hits += r.Hits
		if fn != nil && bench.Solved(fn, e.Dimensions, r.Best.Val, .01) {
			solved++
		}
	}

	s := stats.Summarize(e.Name(), vals)
	return fmt.Sprintf("%v\n    solved %v/%v, %v evals, %v cache hits, took %v",
		s, solved, len(results), humanize.Comma(int64(neval)), humanize.Comma(int64(hits)), took.Round(time.Millisecond))
}
