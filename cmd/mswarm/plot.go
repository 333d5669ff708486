package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// plotConvergence writes an html line chart of the cross-swarm best value
// per iteration: the mean over all runs and the run that ended best.
func plotConvergence(path, name string, histories [][]float64) error {
	if len(histories) == 0 {
		return fmt.Errorf("no runs to plot for %v", name)
	}

	best := 0
	niter := 0
	for i, h := range histories {
		if len(h) == 0 {
			continue
		}
		if len(histories[best]) == 0 || h[len(h)-1] < histories[best][len(histories[best])-1] {
			best = i
		}
		niter = max(niter, len(h))
	}

	xs := make([]int, niter)
	mean := make([]opts.LineData, niter)
	for k := range xs {
		xs[k] = k
		tot, n := 0.0, 0
		for _, h := range histories {
			if k < len(h) && !math.IsInf(h[k], 0) {
				tot += h[k]
				n++
			}
		}
		mean[k] = opts.LineData{Value: tot / float64(max(n, 1))}
	}
	bestLine := make([]opts.LineData, len(histories[best]))
	for k, v := range histories[best] {
		bestLine[k] = opts.LineData{Value: v}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Convergence for %s", name),
			Subtitle: fmt.Sprintf("%v runs", len(histories)),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "iteration",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "best value",
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}))

	line.SetXAxis(xs).
		AddSeries("mean", mean).
		AddSeries(fmt.Sprintf("best run (%v)", best), bestLine)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		return fmt.Errorf("render %v: %w", path, err)
	}
	return f.Close()
}
