// Package stats collects named samples (timings, run results) and
// summarizes them.
package stats

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/petar/GoLLRB/llrb"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the distribution of a named set of samples.
type Summary struct {
	Name   string
	N      int
	Mean   float64
	Std    float64
	Min    float64
	Max    float64
	Median float64
}

func (s Summary) String() string {
	return fmt.Sprintf("%v: n=%v mean=%g std=%g min=%g median=%g max=%g", s.Name, s.N, s.Mean, s.Std, s.Min, s.Median, s.Max)
}

// Summarize computes a Summary of vals.  The sample standard deviation is
// reported as zero for fewer than two samples.
func Summarize(name string, vals []float64) Summary {
	s := Summary{Name: name, N: len(vals)}
	if len(vals) == 0 {
		s.Mean, s.Std, s.Min, s.Max, s.Median = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}

	sorted := append([]float64{}, vals...)
	sort.Float64s(sorted)

	s.Mean, s.Std = stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		s.Std = 0
	}
	s.Min = floats.Min(sorted)
	s.Max = floats.Max(sorted)
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return s
}

type series struct {
	name string
	vals []float64
}

func (s *series) Less(than llrb.Item) bool { return s.name < than.(*series).name }

// Recorder accumulates named samples.  Timing samples are stored in
// seconds.  A Recorder is safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	tree *llrb.LLRB
}

func NewRecorder() *Recorder { return &Recorder{tree: llrb.New()} }

// Observe adds the sample v to the series name.
func (r *Recorder) Observe(name string, v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tree == nil {
		r.tree = llrb.New()
	}

	if item := r.tree.Get(&series{name: name}); item != nil {
		s := item.(*series)
		s.vals = append(s.vals, v)
		return
	}
	r.tree.ReplaceOrInsert(&series{name: name, vals: []float64{v}})
}

// Add records a timing sample.
func (r *Recorder) Add(name string, d time.Duration) { r.Observe(name, d.Seconds()) }

// Time runs fn and records its elapsed wall time under name.
func (r *Recorder) Time(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.Add(name, time.Since(start))
	return err
}

// Samples returns a copy of the samples recorded under name.
func (r *Recorder) Samples(name string) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tree == nil {
		return nil
	}
	if item := r.tree.Get(&series{name: name}); item != nil {
		return append([]float64{}, item.(*series).vals...)
	}
	return nil
}

// Report summarizes every series, ordered by name.
func (r *Recorder) Report() []Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tree == nil {
		return nil
	}

	var sums []Summary
	r.tree.AscendGreaterOrEqual(&series{}, func(item llrb.Item) bool {
		s := item.(*series)
		sums = append(sums, Summarize(s.name, s.vals))
		return true
	})
	return sums
}

// Reset discards all samples.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tree = llrb.New()
}
