// Package bench provides benchmark optimization functions from
// http://en.wikipedia.org/wiki/Test_functions_for_optimization and the CEC
// 2022 single objective suite, plus shift and rotation transforms for
// building harder variants of them.
package bench

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rwcarlsen/swarmopt"
)

var (
	sin  = math.Sin
	cos  = math.Cos
	abs  = math.Abs
	exp  = math.Exp
	sqrt = math.Sqrt
	inf  = math.Inf(1)
)

// ErrUnknown is returned by Lookup for unregistered function names.
var ErrUnknown = errors.New("unknown benchmark function")

type Func interface {
	Name() string
	Eval(x []float64) float64
	// Optima returns the global minima of the function in ndim dimensions.
	Optima(ndim int) []swarmopt.Point
}

// Fixed is implemented by functions only defined for one dimensionality.
type Fixed interface {
	Dims() int
}

// Bounded is implemented by functions whose optima lie outside the default
// [-100, 100] search range.
type Bounded interface {
	Bounds() (low, up float64)
}

// AllFuncs holds every registered function in name order.
var AllFuncs = []Func{
	Ackley{},
	CrossTray{},
	Eggholder{},
	Griewank{},
	HolderTable{},
	Levy{},
	Rastrigin{},
	Rosenbrock{},
	Schaffer2{},
	SchafferF7{},
	Sphere{},
	Styblinski{},
	Zakharov{},
}

// Lookup finds a registered function by name.  Names are matched without
// regard to case, underscores or a trailing "func", so "schaffer_F7_func"
// finds SchafferF7.
func Lookup(name string) (Func, error) {
	want := normalize(name)
	for _, fn := range AllFuncs {
		if normalize(fn.Name()) == want {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
}

func normalize(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, "_", ""))
	return strings.TrimSuffix(name, "func")
}

// Names returns the names of all registered functions, sorted.
func Names() []string {
	names := make([]string, len(AllFuncs))
	for i, fn := range AllFuncs {
		names[i] = fn.Name()
	}
	sort.Strings(names)
	return names
}

// CheckDims returns an error if fn cannot be evaluated in ndim dimensions.
func CheckDims(fn Func, ndim int) error {
	if f, ok := fn.(Fixed); ok && f.Dims() != ndim {
		return fmt.Errorf("%v: %w: got %v, want %v", fn.Name(), swarmopt.ErrDimension, ndim, f.Dims())
	} else if ndim < 1 {
		return fmt.Errorf("%v: %w: got %v", fn.Name(), swarmopt.ErrDimension, ndim)
	} else if _, ok := fn.(SchafferF7); ok && ndim < 2 {
		return fmt.Errorf("%v: %w: needs at least 2, got %v", fn.Name(), swarmopt.ErrDimension, ndim)
	}
	return nil
}

// Objective returns fn as an objective that rejects positions that do not
// have ndim dimensions.
func Objective(fn Func, ndim int) swarmopt.Objectiver {
	return swarmopt.CheckDims(swarmopt.SimpleFunc(fn.Eval), ndim)
}

// Solved reports whether val is close enough to fn's optimum in ndim
// dimensions.  The tolerance is relative to the optimum but never tighter
// than 0.001.
func Solved(fn Func, ndim int, val, tol float64) bool {
	optimum := fn.Optima(ndim)[0].Val
	thresh := math.Max(tol*abs(optimum), 0.001)
	return abs(optimum-val) < thresh
}

func fill(ndim int, v float64) []float64 {
	x := make([]float64, ndim)
	for i := range x {
		x[i] = v
	}
	return x
}

type Sphere struct{}

func (fn Sphere) Name() string { return "Sphere" }

func (fn Sphere) Eval(x []float64) float64 {
	tot := 0.0
	for _, v := range x {
		tot += v * v
	}
	return tot
}

func (fn Sphere) Optima(ndim int) []swarmopt.Point {
	return []swarmopt.Point{swarmopt.NewPoint(fill(ndim, 0), 0)}
}

type Zakharov struct{}

func (fn Zakharov) Name() string { return "Zakharov" }

func (fn Zakharov) Eval(x []float64) float64 {
	sq, lin := 0.0, 0.0
	for i, v := range x {
		sq += v * v
		lin += 0.5 * float64(i+1) * v
	}
	return sq + lin*lin + math.Pow(lin, 4)
}

func (fn Zakharov) Optima(ndim int) []swarmopt.Point {
	return []swarmopt.Point{swarmopt.NewPoint(fill(ndim, 0), 0)}
}

type Rosenbrock struct{}

func (fn Rosenbrock) Name() string { return "Rosenbrock" }

func (fn Rosenbrock) Eval(x []float64) float64 {
	tot := 0.0
	for i := 0; i < len(x)-1; i++ {
		tot += 100*math.Pow(x[i+1]-x[i]*x[i], 2) + math.Pow(x[i]-1, 2)
	}
	return tot
}

func (fn Rosenbrock) Optima(ndim int) []swarmopt.Point {
	return []swarmopt.Point{swarmopt.NewPoint(fill(ndim, 1), 0)}
}

// SchafferF7 is the expanded Schaffer F7 function over consecutive pairs of
// coordinates.  It needs at least two dimensions.
type SchafferF7 struct{}

func (fn SchafferF7) Name() string { return "SchafferF7" }

func (fn SchafferF7) Eval(x []float64) float64 {
	if len(x) < 2 {
		return math.Inf(1)
	}
	tot := 0.0
	for i := 0; i < len(x)-1; i++ {
		s := sqrt(x[i]*x[i] + x[i+1]*x[i+1])
		t := sin(50 * math.Pow(s, 0.2))
		tot += sqrt(s) + sqrt(s)*t*t
	}
	tot /= float64(len(x) - 1)
	return tot * tot
}

func (fn SchafferF7) Optima(ndim int) []swarmopt.Point {
	return []swarmopt.Point{swarmopt.NewPoint(fill(ndim, 0), 0)}
}

type Rastrigin struct{}

func (fn Rastrigin) Name() string { return "Rastrigin" }

func (fn Rastrigin) Eval(x []float64) float64 {
	tot := 10 * float64(len(x))
	for _, v := range x {
		tot += v*v - 10*cos(2*math.Pi*v)
	}
	return tot
}

func (fn Rastrigin) Optima(ndim int) []swarmopt.Point {
	return []swarmopt.Point{swarmopt.NewPoint(fill(ndim, 0), 0)}
}

type Levy struct{}

func (fn Levy) Name() string { return "Levy" }

func (fn Levy) Eval(x []float64) float64 {
	w := func(i int) float64 { return 1 + (x[i]-1)/4 }

	n := len(x)
	s := sin(math.Pi * w(0))
	tot := s * s
	for i := 0; i < n-1; i++ {
		wi := w(i)
		s := sin(math.Pi*wi + 1)
		tot += (wi - 1) * (wi - 1) * (1 + 10*s*s)
	}
	wn := w(n - 1)
	s = sin(2 * math.Pi * wn)
	return tot + (wn-1)*(wn-1)*(1+s*s)
}

func (fn Levy) Optima(ndim int) []swarmopt.Point {
	return []swarmopt.Point{swarmopt.NewPoint(fill(ndim, 1), 0)}
}

type Ackley struct{}

func (fn Ackley) Name() string { return "Ackley" }

func (fn Ackley) Eval(x []float64) float64 {
	sq, cs := 0.0, 0.0
	for _, v := range x {
		sq += v * v
		cs += cos(2 * math.Pi * v)
	}
	n := float64(len(x))
	return -20*exp(-0.2*sqrt(sq/n)) - exp(cs/n) + 20 + math.E
}

func (fn Ackley) Optima(ndim int) []swarmopt.Point {
	return []swarmopt.Point{swarmopt.NewPoint(fill(ndim, 0), 0)}
}

type Styblinski struct{}

func (fn Styblinski) Name() string { return "Styblinski" }

func (fn Styblinski) Eval(x []float64) float64 {
	tot := 0.0
	for _, v := range x {
		tot += math.Pow(v, 4) - 16*math.Pow(v, 2) + 5*v
	}
	return tot / 2
}

func (fn Styblinski) Bounds() (low, up float64) { return -5, 5 }

func (fn Styblinski) Optima(ndim int) []swarmopt.Point {
	return []swarmopt.Point{
		swarmopt.NewPoint(fill(ndim, -2.903534), -39.16599*float64(ndim)),
	}
}

type Griewank struct{}

func (fn Griewank) Name() string { return "Griewank" }

func (fn Griewank) Eval(x []float64) float64 {
	sum, prod := 0.0, 1.0
	for i, v := range x {
		sum += v * v / 4000
		prod *= cos(v / sqrt(float64(i+1)))
	}
	return 1 + sum - prod
}

func (fn Griewank) Optima(ndim int) []swarmopt.Point {
	return []swarmopt.Point{swarmopt.NewPoint(fill(ndim, 0), 0)}
}

type CrossTray struct{}

func (fn CrossTray) Name() string { return "CrossTray" }

func (fn CrossTray) Dims() int { return 2 }

func (fn CrossTray) Bounds() (low, up float64) { return -10, 10 }

func (fn CrossTray) Eval(v []float64) float64 {
	x := v[0]
	y := v[1]
	return -.0001 * math.Pow(abs(sin(x)*sin(y)*exp(abs(100-sqrt(x*x+y*y)/math.Pi)))+1, 0.1)
}

func (fn CrossTray) Optima(int) []swarmopt.Point {
	return []swarmopt.Point{
		swarmopt.NewPoint([]float64{1.34941, -1.34941}, -2.06261),
		swarmopt.NewPoint([]float64{1.34941, 1.34941}, -2.06261),
		swarmopt.NewPoint([]float64{-1.34941, 1.34941}, -2.06261),
		swarmopt.NewPoint([]float64{-1.34941, -1.34941}, -2.06261),
	}
}

type Eggholder struct{}

func (fn Eggholder) Name() string { return "Eggholder" }

func (fn Eggholder) Dims() int { return 2 }

func (fn Eggholder) Bounds() (low, up float64) { return -512, 512 }

func (fn Eggholder) Eval(v []float64) float64 {
	x := v[0]
	y := v[1]
	return -(y+47)*sin(sqrt(abs(y+x/2+47))) - x*sin(sqrt(abs(x-(y+47))))
}

func (fn Eggholder) Optima(int) []swarmopt.Point {
	return []swarmopt.Point{
		swarmopt.NewPoint([]float64{512, 404.2319}, -959.6407),
	}
}

type HolderTable struct{}

func (fn HolderTable) Name() string { return "HolderTable" }

func (fn HolderTable) Dims() int { return 2 }

func (fn HolderTable) Bounds() (low, up float64) { return -10, 10 }

func (fn HolderTable) Eval(v []float64) float64 {
	x := v[0]
	y := v[1]
	return -abs(sin(x) * cos(y) * exp(abs(1-sqrt(x*x+y*y)/math.Pi)))
}

func (fn HolderTable) Optima(int) []swarmopt.Point {
	return []swarmopt.Point{
		swarmopt.NewPoint([]float64{8.05502, 9.66459}, -19.2085),
		swarmopt.NewPoint([]float64{-8.05502, 9.66459}, -19.2085),
		swarmopt.NewPoint([]float64{8.05502, -9.66459}, -19.2085),
		swarmopt.NewPoint([]float64{-8.05502, -9.66459}, -19.2085),
	}
}

type Schaffer2 struct{}

func (fn Schaffer2) Name() string { return "Schaffer2" }

func (fn Schaffer2) Dims() int { return 2 }

func (fn Schaffer2) Eval(v []float64) float64 {
	x := v[0]
	y := v[1]
	return 0.5 + (math.Pow(sin(x*x-y*y), 2)-0.5)/math.Pow(1+.0001*(x*x+y*y), 2)
}

func (fn Schaffer2) Optima(int) []swarmopt.Point {
	return []swarmopt.Point{swarmopt.NewPoint([]float64{0, 0}, 0)}
}
