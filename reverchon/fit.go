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

package reverchon

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/sfexmodel/sfex"
)

// Method selects the minimization algorithm of a Fitter.
type Method int

const (
	// NelderMead is the derivative-free downhill simplex method.
	NelderMead Method = iota
	// BFGS is a quasi-Newton method driven by central-difference
	// gradients.
	BFGS
)

func (m Method) String() string {
	switch m {
	case NelderMead:
		return "NelderMead"
	case BFGS:
		return "BFGS"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod returns the Method named s, ignoring case.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(s) {
	case "neldermead", "nelder-mead", "":
		return NelderMead, nil
	case "bfgs":
		return BFGS, nil
	}
	return 0, fmt.Errorf("reverchon: unknown fit method %q", s)
}

// Default budgets for a Fitter.
const (
	DefaultMaxIterations  = 5000
	DefaultMaxEvaluations = 20000
	DefaultTolerance      = 1e-14
)

// Fitter estimates kinetic parameters from observed fluid concentrations.
type Fitter struct {
	Simulator *Simulator
	Method    Method

	// MaxIterations and MaxEvaluations bound the search. Reaching either
	// is a divergence.
	MaxIterations  int
	MaxEvaluations int

	// Tolerance is the improvement of the normalized objective below which
	// the search is considered converged.
	Tolerance float64

	// Timeout bounds the wall time of a fit. If <= 0, only ctx bounds it.
	Timeout time.Duration

	// Log receives progress messages. If nil, the standard logger is used.
	Log logrus.FieldLogger
}

// FitResult is the outcome of a successful fit.
type FitResult struct {
	Kinetics    Kinetics
	Converged   bool
	Status      string // solver termination status
	Iterations  int
	Evaluations int
	SSR         float64 // sum of squared residuals
	RSquared    float64

	// DiffusionTime is r²/(15 Di) for the fitted Di. DiffusionLimited is
	// set when it is shorter than the first observation interval, in which
	// case the data barely constrain Di.
	DiffusionTime    float64
	DiffusionLimited bool
}

// Residuals returns obs.Y minus the simulated fluid concentration at obs.X,
// starting from x0 at obs.X[0].
func Residuals(ctx context.Context, sim *Simulator, obs Dataset, k Kinetics, x0 State) ([]float64, error) {
	tr, err := sim.Simulate(ctx, x0, obs.X, k)
	if err != nil {
		return nil, err
	}
	r := make([]float64, len(obs.Y))
	for i, y := range obs.Y {
		r[i] = y - tr.States[i].C
	}
	return r, nil
}

// Fit minimizes the sum of squared residuals over Di and kp, starting from
// guess. The search runs on the logarithms of the parameters so that every
// candidate is positive. Candidates whose simulation fails are treated as
// infeasible. A search that exhausts its budget, cannot improve on the guess
// or cannot evaluate the guess at all fails with a FitDivergenceError.
func (f *Fitter) Fit(ctx context.Context, obs Dataset, guess Kinetics, x0 State) (*FitResult, error) {
	const op = "reverchon.Fit"
	if f.Simulator == nil {
		return nil, errors.New("reverchon: Fitter has no Simulator")
	}
	if err := obs.Validate(); err != nil {
		return nil, err
	}
	if err := guess.Validate(); err != nil {
		return nil, err
	}
	if err := f.Simulator.Constants.Validate(); err != nil {
		return nil, err
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	log := f.log().WithFields(logrus.Fields{"method": f.Method, "Di0": guess.Di, "kp0": guess.Kp})

	// Normalizing by the largest observation keeps the objective O(1) for
	// any concentration unit.
	scale := math.Pow(floats.Norm(obs.Y, math.Inf(1)), 2)
	if scale == 0 {
		scale = 1
	}
	var (
		evaluations int64
		mu          sync.Mutex
		lastErr     error
	)
	objective := func(x []float64) float64 {
		atomic.AddInt64(&evaluations, 1)
		k := Kinetics{Di: math.Exp(x[0]), Kp: math.Exp(x[1])}
		r, err := Residuals(ctx, f.Simulator, obs, k, x0)
		if err != nil {
			mu.Lock()
			lastErr = err
			mu.Unlock()
			return math.Inf(1)
		}
		return floats.Dot(r, r) / scale
	}

	start := []float64{math.Log(guess.Di), math.Log(guess.Kp)}
	r0, err := Residuals(ctx, f.Simulator, obs, guess, x0)
	if err != nil {
		return nil, &sfex.FitDivergenceError{Op: op, Params: guess.fields(), Err: fmt.Errorf("evaluating initial guess: %w", err)}
	}
	f0 := floats.Dot(r0, r0) / scale

	problem := optimize.Problem{
		Func: objective,
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	var method optimize.Method
	switch f.Method {
	case NelderMead:
		method = &optimize.NelderMead{}
	case BFGS:
		problem.Grad = func(grad, x []float64) {
			fd.Gradient(grad, objective, x, &fd.Settings{Formula: fd.Central, Step: 1e-4, Concurrent: true})
		}
		method = &optimize.BFGS{}
	default:
		return nil, fmt.Errorf("reverchon: unsupported fit method %v", f.Method)
	}

	tol := valueOr(f.Tolerance, DefaultTolerance)
	settings := &optimize.Settings{
		InitValues: &optimize.Location{F: f0},
		Converger: &optimize.FunctionConverge{
			Absolute:   tol,
			Iterations: 50,
		},
		GradientThreshold: gradientThreshold,
		MajorIterations:   intOr(f.MaxIterations, DefaultMaxIterations),
		FuncEvaluations:   intOr(f.MaxEvaluations, DefaultMaxEvaluations),
		Runtime:           f.Timeout,
		Recorder:          recorder{log: log},
	}
	res, err := optimize.Minimize(problem, start, settings, method)
	if err != nil && ctx.Err() == nil && stalled(res, f0, tol) {
		log.WithError(err).Debug("reverchon: line search stalled at the minimum")
		res.Status, err = optimize.MethodConverge, nil
	}
	mu.Lock()
	if lastErr != nil {
		log.WithError(lastErr).Warn("reverchon: some candidates could not be simulated")
	}
	mu.Unlock()

	fields := map[string]float64{"Di0": guess.Di, "kp0": guess.Kp}
	if err != nil {
		if res != nil && !math.IsInf(res.F, 1) {
			fields["Di"], fields["kp"] = math.Exp(res.X[0]), math.Exp(res.X[1])
		}
		return nil, &sfex.FitDivergenceError{Op: op, Status: statusOf(res), Params: fields, Err: err}
	}
	k := Kinetics{Di: math.Exp(res.X[0]), Kp: math.Exp(res.X[1])}
	fields["Di"], fields["kp"] = k.Di, k.Kp
	fields["objective"] = res.F
	log = log.WithFields(logrus.Fields{
		"status":      res.Status,
		"iterations":  res.Stats.MajorIterations,
		"evaluations": res.Stats.FuncEvaluations,
		"objective":   res.F,
	})
	switch {
	case res.Status.Early():
		return nil, &sfex.FitDivergenceError{Op: op, Status: res.Status.String(), Params: fields, Err: res.Status.Err()}
	case math.IsNaN(res.F) || math.IsInf(res.F, 0) || k.Validate() != nil:
		return nil, &sfex.FitDivergenceError{Op: op, Status: res.Status.String(), Params: fields, Err: errors.New("no feasible parameters found")}
	case f0 > 0 && !(res.F < f0):
		return nil, &sfex.FitDivergenceError{Op: op, Status: res.Status.String(), Params: fields, Err: errors.New("residual norm not reduced")}
	}

	tr, err := f.Simulator.Simulate(ctx, x0, obs.X, k)
	if err != nil {
		return nil, &sfex.FitDivergenceError{Op: op, Status: res.Status.String(), Params: fields, Err: err}
	}
	c := tr.C()
	ssr := floats.Distance(obs.Y, c, 2)
	result := &FitResult{
		Kinetics:    k,
		Converged:   true,
		Status:      res.Status.String(),
		Iterations:  res.Stats.MajorIterations,
		Evaluations: int(atomic.LoadInt64(&evaluations)) + 1,
		SSR:         ssr * ssr,
		RSquared:    stat.RSquaredFrom(c, obs.Y, nil),

		DiffusionTime:    k.DiffusionTime(f.Simulator.Constants.R),
		DiffusionLimited: diffusionLimited(k, f.Simulator.Constants, obs),
	}
	if result.DiffusionLimited {
		log.WithField("ti", result.DiffusionTime).Warn("reverchon: fitted diffusion time is shorter than the sampling interval; Di is poorly determined")
	}
	log.WithFields(logrus.Fields{"Di": k.Di, "kp": k.Kp, "r2": result.RSquared}).Info("reverchon: fit converged")
	return result, nil
}

// gradientThreshold stops a gradient-based search at a vanishing gradient
// of the normalized objective.
const gradientThreshold = 1e-12

// stalled reports whether a search that ended in failure had nevertheless
// reached a minimum: its best point improves on f0 and either the objective
// is at most tol or the gradient there has vanished. A line search next to
// the optimum fails this way once finite-difference gradients are noise.
func stalled(res *optimize.Result, f0, tol float64) bool {
	if res == nil || res.Status != optimize.Failure || len(res.X) == 0 {
		return false
	}
	if math.IsNaN(res.F) || math.IsInf(res.F, 0) || !(res.F < f0) {
		return false
	}
	for _, x := range res.X {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	if res.F <= tol {
		return true
	}
	return len(res.Gradient) == len(res.X) && floats.Norm(res.Gradient, 2) <= math.Sqrt(tol)
}

// diffusionLimited reports whether the diffusion time of k is shorter than
// the first interval of obs.
func diffusionLimited(k Kinetics, c Constants, obs Dataset) bool {
	if len(obs.X) < 2 {
		return false
	}
	return k.DiffusionTime(c.R) < obs.X[1]-obs.X[0]
}

func (f *Fitter) log() logrus.FieldLogger {
	if f.Log == nil {
		return logrus.StandardLogger()
	}
	return f.Log
}

func statusOf(res *optimize.Result) string {
	if res == nil {
		return ""
	}
	return res.Status.String()
}

// recorder logs every major iteration of the search.
type recorder struct {
	log logrus.FieldLogger
}

func (recorder) Init() error { return nil }

func (r recorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if op != optimize.MajorIteration {
		return nil
	}
	r.log.WithFields(logrus.Fields{
		"iteration": stats.MajorIterations,
		"Di":        math.Exp(loc.X[0]),
		"kp":        math.Exp(loc.X[1]),
		"objective": loc.F,
	}).Debug("reverchon: fit iteration")
	return nil
}

func valueOr(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

func intOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
