/*
Copyright © 2026 the sfex authors.
This file is part of sfex.

sfex is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

sfex is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with sfex.  If not, see <http://www.gnu.org/licenses/>.
*/

package sfexutil

import (
	"context"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/sfexmodel/sfex/lack"
	"github.com/sfexmodel/sfex/report"
	"github.com/sfexmodel/sfex/reverchon"
)

// RunLack evaluates m for every row of table on grid and writes the yield
// curves to sink as lack.png and lack.xlsx.
func RunLack(ctx context.Context, sink *report.Sink, m lack.Model, table []lack.Parameters, grid []float64, workers int) (map[lack.Parameters]lack.Series, error) {
	results, err := lack.SweepRunner{Model: m, Workers: workers}.Run(ctx, table, grid)
	if err != nil {
		return nil, err
	}
	series := report.LackSeries(table, results)
	p, err := report.LinePlot("Lack model", "τ", "yield", series, nil)
	if err != nil {
		return nil, err
	}
	if err := sink.PNG(ctx, "lack.png", p); err != nil {
		return nil, err
	}
	if err := sink.XLSX(ctx, "lack.xlsx", report.Sheet{Name: "yield", Series: series}); err != nil {
		return nil, err
	}
	return results, nil
}

// RunSimulate integrates the Reverchon model from x0 over grid with kinetics
// k and writes the trajectory to sink as reverchon.png and reverchon.xlsx.
func RunSimulate(ctx context.Context, sink *report.Sink, sim *reverchon.Simulator, x0 reverchon.State, grid []float64, k reverchon.Kinetics) (*reverchon.Trajectory, error) {
	tr, err := sim.Simulate(ctx, x0, grid, k)
	if err != nil {
		return nil, err
	}
	q, c := report.TrajectorySeries(tr)
	p, err := report.LinePlot("Reverchon model", "t [min]", "C [kg/m³]", []report.Series{c}, nil)
	if err != nil {
		return nil, err
	}
	if err := sink.PNG(ctx, "reverchon.png", p); err != nil {
		return nil, err
	}
	if err := sink.XLSX(ctx, "reverchon.xlsx", report.Sheet{Name: "trajectory", Series: []report.Series{q, c}}); err != nil {
		return nil, err
	}
	return tr, nil
}

// FitRun describes a fit for its summary file.
type FitRun struct {
	ID      string // run identifier
	Dataset string // name of the observations

	// SplinePoints is the number of times the fitted model is simulated
	// at; EvalPoints is the number of points on the smoothed curve.
	SplinePoints, EvalPoints int
}

// RunFit fits the kinetics of f's simulator to obs starting from guess, then
// simulates the fitted model on run.SplinePoints times spanning the
// observations and smooths it onto run.EvalPoints times. The plot, the
// series and a summary are written to sink as fit.png, fit.xlsx and
// fit.toml.
func RunFit(ctx context.Context, sink *report.Sink, f *reverchon.Fitter, obs reverchon.Dataset, guess reverchon.Kinetics, x0 reverchon.State, run FitRun) (*reverchon.FitResult, error) {
	res, err := f.Fit(ctx, obs, guess, x0)
	if err != nil {
		return nil, err
	}

	lo, hi := obs.X[0], obs.X[len(obs.X)-1]
	grid := floats.Span(make([]float64, run.SplinePoints), lo, hi)
	tr, err := f.Simulator.Simulate(ctx, x0, grid, res.Kinetics)
	if err != nil {
		return nil, err
	}
	xeval := floats.Span(make([]float64, run.EvalPoints), lo, hi)
	smooth, err := report.Smooth(grid, tr.C(), xeval)
	if err != nil {
		return nil, err
	}

	data := report.Series{Name: "data", X: obs.X, Y: obs.Y}
	model := report.Series{Name: "model", X: xeval, Y: smooth}
	p, err := report.LinePlot("Reverchon fit: "+res.Kinetics.String(), "t [min]", "C", []report.Series{model}, []report.Series{data})
	if err != nil {
		return nil, err
	}
	if err := sink.PNG(ctx, "fit.png", p); err != nil {
		return nil, err
	}
	_, simulated := report.TrajectorySeries(tr)
	simulated.Name = "simulated"
	err = sink.XLSX(ctx, "fit.xlsx",
		report.Sheet{Name: "data", Series: []report.Series{data}},
		report.Sheet{Name: "model", Series: []report.Series{simulated, model}},
	)
	if err != nil {
		return nil, err
	}
	summary := report.NewFitSummary(run.ID, run.Dataset, f.Method, guess, res)
	if err := sink.Write(ctx, "fit.toml", summary.WriteTOML); err != nil {
		return nil, err
	}
	return res, nil
}

// logFit reports the outcome of a fit.
func logFit(log logrus.FieldLogger, res *reverchon.FitResult) {
	log.WithFields(logrus.Fields{
		"Di":          res.Kinetics.Di,
		"kp":          res.Kinetics.Kp,
		"ssr":         res.SSR,
		"r_squared":   res.RSquared,
		"iterations":  res.Iterations,
		"evaluations": res.Evaluations,
		"ti":          res.DiffusionTime,
	}).Info("sfexutil: fitted kinetics")
}
