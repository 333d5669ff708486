package swarmopt

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/go-logr/logr"
)

// ErrDimension is returned by objectives that receive a position with the
// wrong number of dimensions.
var ErrDimension = errors.New("position has wrong dimensionality")

type Objectiver interface {
	// Objective evaluates the variables in x and returns the objective
	// function value.  The objective function must be framed so that lower
	// values are better. If the evaluation fails, positive infinity should be
	// returned along with an error.  Scratch is a caller-owned buffer of at
	// least len(x) elements that the objective may use freely; its contents
	// are undefined on entry and on return.
	Objective(x, scratch []float64) (float64, error)
}

// ScratchSizer is implemented by objectives that need more than ndim
// elements of scratch space to evaluate an ndim long position without
// allocating.  Decorators pass the request on to the objective they wrap.
type ScratchSizer interface {
	ScratchLen(ndim int) int
}

// ScratchLen returns the scratch length obj needs for ndim long positions:
// what obj asks for if it is a ScratchSizer, never less than ndim.
func ScratchLen(obj Objectiver, ndim int) int {
	if ss, ok := obj.(ScratchSizer); ok {
		return max(ndim, ss.ScratchLen(ndim))
	}
	return ndim
}

// ConcurrencySafe is implemented by objectives that may be called from
// several goroutines at once.
type ConcurrencySafe interface {
	Objectiver
	ConcurrencySafe()
}

// Func adapts a plain function to the Objectiver interface.
type Func func(x, scratch []float64) float64

func (fn Func) Objective(x, scratch []float64) (float64, error) { return fn(x, scratch), nil }

// SimpleFunc adapts a function that needs no scratch space.
type SimpleFunc func(x []float64) float64

func (fn SimpleFunc) Objective(x, _ []float64) (float64, error) { return fn(x), nil }

type dimChecker struct {
	Objectiver
	ndim int
}

// CheckDims returns an objective that fails with ErrDimension whenever it is
// handed a position that is not ndim long.
func CheckDims(obj Objectiver, ndim int) Objectiver {
	return &dimChecker{Objectiver: obj, ndim: ndim}
}

func (c *dimChecker) Objective(x, scratch []float64) (float64, error) {
	if len(x) != c.ndim {
		return math.Inf(1), fmt.Errorf("%w: got %v, want %v", ErrDimension, len(x), c.ndim)
	}
	return c.Objectiver.Objective(x, scratch)
}

func (c *dimChecker) ScratchLen(ndim int) int { return ScratchLen(c.Objectiver, ndim) }

// Counter counts the number of objective evaluations performed through it.
// It is safe for concurrent use as long as the wrapped objective is.
type Counter struct {
	Objectiver
	n atomic.Int64
}

func NewCounter(obj Objectiver) *Counter { return &Counter{Objectiver: obj} }

func (c *Counter) Objective(x, scratch []float64) (float64, error) {
	c.n.Add(1)
	return c.Objectiver.Objective(x, scratch)
}

// Count returns the number of evaluations so far.
func (c *Counter) Count() int { return int(c.n.Load()) }

func (c *Counter) ScratchLen(ndim int) int { return ScratchLen(c.Objectiver, ndim) }

// LoggedObjective logs every evaluation (position and value) at verbosity 4
// and every failed evaluation as an error.
type LoggedObjective struct {
	Objectiver
	Log   logr.Logger
	count atomic.Int64
}

func Logged(obj Objectiver, log logr.Logger) *LoggedObjective {
	return &LoggedObjective{Objectiver: obj, Log: log}
}

func (lo *LoggedObjective) Objective(x, scratch []float64) (float64, error) {
	val, err := lo.Objectiver.Objective(x, scratch)
	n := lo.count.Add(1)
	if err != nil {
		lo.Log.Error(err, "objective evaluation failed", "eval", n, "x", x)
	} else {
		lo.Log.V(4).Info("objective evaluated", "eval", n, "x", x, "val", val)
	}
	return val, err
}

func (lo *LoggedObjective) ScratchLen(ndim int) int { return ScratchLen(lo.Objectiver, ndim) }

// Count returns the number of evaluations logged so far.
func (lo *LoggedObjective) Count() int { return int(lo.count.Load()) }
