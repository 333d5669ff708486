// Command mswarm benchmarks the multi-swarm optimizer.  Every selected
// function is minimized repeatedly (concurrently, one independent run per
// repeat) and the best value and cache hit count of each run are written to
// a result file:
//
//     <out>/<function>_<dims>.txt
//
// whose first line holds the run values and second line the cache hits.  A
// summary of each experiment is printed to stdout.
package main

import (
	"context"
	goflag "flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/rwcarlsen/swarmopt/bench"
	"github.com/rwcarlsen/swarmopt/cache"
	"github.com/rwcarlsen/swarmopt/config"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"k8s.io/klog/v2"
)

var defaultFuncs = []string{"zakharov", "rosenbrock", "schafferf7", "rastrigin", "levy"}

type options struct {
	config   string
	funcs    []string
	dims     int
	repeats  int
	maxEval  int
	seed     uint64
	cache    string
	shift    bool
	rotate   bool
	meshStep float64
	out      string
	db       string
	plot     string
	parallel int
	list     bool
}

func main() {
	var o options
	klog.InitFlags(nil)
	pflag.CommandLine.AddGoFlagSet(goflag.CommandLine)
	pflag.StringVar(&o.config, "config", "", "YAML experiment file; replaces --func and --dims")
	pflag.StringSliceVar(&o.funcs, "func", defaultFuncs, "benchmark functions to minimize (see --list)")
	pflag.IntVar(&o.dims, "dims", 10, "number of dimensions")
	pflag.IntVar(&o.repeats, "repeats", config.DefaultRepeats, "independent runs per function")
	pflag.IntVar(&o.maxEval, "max-eval", 0, "evaluation budget per run (0 picks the budget for --dims)")
	pflag.Uint64Var(&o.seed, "seed", 0, "seed for function transforms and runs")
	pflag.StringVar(&o.cache, "cache", cache.Nearest.String(), "evaluation cache: none, exact or nearest")
	pflag.BoolVar(&o.shift, "shift", false, "randomly shift the functions' optima")
	pflag.BoolVar(&o.rotate, "rotate", false, "randomly rotate the functions")
	pflag.Float64Var(&o.meshStep, "mesh-step", 0, "snap positions onto a grid with this spacing before evaluating")
	pflag.StringVar(&o.out, "out", "experiments", "directory for result files")
	pflag.StringVar(&o.db, "db", "", "directory for per-run sqlite trace databases")
	pflag.StringVar(&o.plot, "plot", "", "directory for html convergence plots")
	pflag.IntVar(&o.parallel, "parallel", runtime.GOMAXPROCS(0), "maximum number of concurrent runs")
	pflag.BoolVar(&o.list, "list", false, "list the benchmark functions and exit")
	pflag.Parse()
	defer klog.Flush()

	if o.list {
		for _, name := range bench.Names() {
			fmt.Println(name)
		}
		return
	}

	exps, err := o.experiments(pflag.CommandLine)
	if err != nil {
		klog.ErrorS(err, "invalid experiment")
		klog.FlushAndExit(klog.ExitFlushTimeout, 2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log := klog.Background().WithName("mswarm")
	for _, e := range exps {
		summary, err := runExperiment(ctx, log, e, o)
		if err != nil {
			klog.ErrorS(err, "experiment failed", "experiment", e.Name())
			klog.FlushAndExit(klog.ExitFlushTimeout, 1)
		}
		fmt.Println(summary)
	}
}

// experiments builds the experiments selected on the command line.  Flags
// set explicitly override values from a config file.
func (o options) experiments(fs *pflag.FlagSet) ([]config.Experiment, error) {
	var exps []config.Experiment
	if o.config != "" {
		e, err := config.Load(o.config)
		if err != nil {
			return nil, err
		}
		exps = append(exps, e)
	} else {
		for _, fn := range o.funcs {
			exps = append(exps, config.Default(fn, o.dims))
		}
	}

	strategy, err := cache.ParseStrategy(o.cache)
	if err != nil {
		return nil, err
	}

	fromFile := o.config != ""
	set := func(name string) bool { return !fromFile || fs.Changed(name) }
	for i := range exps {
		e := &exps[i]
		if set("repeats") {
			e.Repeats = o.repeats
		}
		if o.maxEval > 0 {
			e.MaxEval = o.maxEval
		}
		if set("seed") {
			e.Seed = o.seed
		}
		if set("cache") {
			e.Cache = strategy
		}
		if set("shift") {
			e.Shift = o.shift
		}
		if set("rotate") {
			e.Rotate = o.rotate
		}
		if set("mesh-step") {
			e.MeshStep = o.meshStep
		}
		if verr := e.Validate(); verr != nil {
			err = multierr.Append(err, fmt.Errorf("%v: %w", e.Name(), verr))
		}
	}
	return exps, err
}
