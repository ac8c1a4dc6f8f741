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

package ivp

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Default settings for DormandPrince.
const (
	DefaultRelTol   = 1e-8
	DefaultAbsTol   = 1e-12
	DefaultMaxSteps = 500000
)

// Dormand and Prince (1980) coefficients.
var (
	dpC = [7]float64{0, 1. / 5, 3. / 10, 4. / 5, 8. / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1. / 5},
		{3. / 40, 9. / 40},
		{44. / 45, -56. / 15, 32. / 9},
		{19372. / 6561, -25360. / 2187, 64448. / 6561, -212. / 729},
		{9017. / 3168, -355. / 33, 46732. / 5247, 49. / 176, -5103. / 18656},
		{35. / 384, 0, 500. / 1113, 125. / 192, -2187. / 6784, 11. / 84},
	}
	// dpE is the difference between the fifth and fourth order weights.
	dpE = [7]float64{71. / 57600, 0, -71. / 16695, 71. / 1920, -17253. / 339200, 22. / 525, -1. / 40}
)

// DormandPrince is an adaptive explicit Runge-Kutta integrator of order 5
// with an embedded order 4 error estimate. Steps are shortened so that the
// solution lands exactly on every grid point. The zero value uses the
// default tolerances and step budget.
type DormandPrince struct {
	RelTol, AbsTol float64

	// InitialStep is the first trial step. If <= 0 it is estimated from
	// the initial slope.
	InitialStep float64

	// MaxStep caps the step size. If <= 0 the whole grid span is allowed.
	MaxStep float64

	// MaxSteps caps the number of attempted (accepted plus rejected)
	// steps over the whole grid.
	MaxSteps int
}

func (dp DormandPrince) settings() (rtol, atol float64, maxSteps int) {
	rtol, atol, maxSteps = dp.RelTol, dp.AbsTol, dp.MaxSteps
	if rtol <= 0 {
		rtol = DefaultRelTol
	}
	if atol <= 0 {
		atol = DefaultAbsTol
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return
}

// Integrate implements Integrator.
func (dp DormandPrince) Integrate(ctx context.Context, f Func, y0 []float64, grid []float64) (*Solution, error) {
	if err := CheckGrid(grid); err != nil {
		return nil, err
	}
	n := len(y0)
	if n == 0 {
		return nil, fmt.Errorf("ivp: empty initial state")
	}
	if !finite(y0) {
		return nil, fmt.Errorf("%w: initial state %v", ErrNonFinite, y0)
	}
	rtol, atol, maxSteps := dp.settings()

	sol := &Solution{
		Time: append([]float64(nil), grid...),
		Y:    make([][]float64, len(grid)),
	}
	y := append([]float64(nil), y0...)
	sol.Y[0] = append([]float64(nil), y...)

	var k [7][]float64
	for i := range k {
		k[i] = make([]float64, n)
	}
	ytmp := make([]float64, n)
	ynew := make([]float64, n)

	t := grid[0]
	tEnd := grid[len(grid)-1]
	f(t, y, k[0])
	sol.Stats.Evaluations++

	hmax := dp.MaxStep
	if hmax <= 0 {
		hmax = tEnd - t
	}
	h := dp.InitialStep
	if h <= 0 {
		h = initialStep(y, k[0], rtol, atol)
	}
	h = math.Min(h, hmax)

	next := 1
	for next < len(grid) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sol.Stats.Steps+sol.Stats.Rejected >= maxSteps {
			return nil, fmt.Errorf("%w: %d steps attempted, stopped at t=%g of %g", ErrMaxSteps, maxSteps, t, tEnd)
		}
		target := grid[next]
		proposed := h
		landing := false
		if t+1.01*h >= target {
			h = target - t
			landing = true
		}
		if h <= 16*epsilon*math.Max(math.Abs(t), 1) {
			return nil, fmt.Errorf("%w: h=%g at t=%g", ErrStepSize, h, t)
		}

		for s := 1; s < 7; s++ {
			floats.AddScaledTo(ytmp, y, h*dpA[s][0], k[0])
			for j := 1; j < s; j++ {
				if dpA[s][j] != 0 {
					floats.AddScaled(ytmp, h*dpA[s][j], k[j])
				}
			}
			if s == 6 {
				copy(ynew, ytmp)
			}
			f(t+dpC[s]*h, ytmp, k[s])
		}
		sol.Stats.Evaluations += 6

		errNorm := 0.
		for i := range y {
			var e float64
			for s := range dpE {
				e += dpE[s] * k[s][i]
			}
			sc := atol + rtol*math.Max(math.Abs(y[i]), math.Abs(ynew[i]))
			e *= h / sc
			errNorm += e * e
		}
		errNorm = math.Sqrt(errNorm / float64(n))

		if math.IsNaN(errNorm) || errNorm > 1 {
			sol.Stats.Rejected++
			factor := 0.2
			if !math.IsNaN(errNorm) && !math.IsInf(errNorm, 0) {
				factor = math.Max(0.2, 0.9*math.Pow(errNorm, -0.2))
			}
			h *= factor
			continue
		}
		if !finite(ynew) {
			return nil, fmt.Errorf("%w: at t=%g", ErrNonFinite, t+h)
		}

		sol.Stats.Steps++
		if landing {
			t = target
		} else {
			t += h
		}
		y, ynew = ynew, y
		k[0], k[6] = k[6], k[0] // first same as last

		factor := 5.
		if errNorm > 0 {
			factor = math.Min(5, math.Max(0.2, 0.9*math.Pow(errNorm, -0.2)))
		}
		h *= factor
		if landing {
			sol.Y[next] = append([]float64(nil), y...)
			next++
			h = math.Max(h, proposed)
		}
		h = math.Min(h, hmax)
	}
	return sol, nil
}

const epsilon = 2.220446049250313e-16

// initialStep estimates a first step from the size of the state relative to
// its slope, following Hairer, Nørsett and Wanner (1993), section II.4.
func initialStep(y, dydt []float64, rtol, atol float64) float64 {
	var d0, d1 float64
	for i := range y {
		sc := atol + rtol*math.Abs(y[i])
		d0 += (y[i] / sc) * (y[i] / sc)
		d1 += (dydt[i] / sc) * (dydt[i] / sc)
	}
	d0 = math.Sqrt(d0 / float64(len(y)))
	d1 = math.Sqrt(d1 / float64(len(y)))
	if d0 < 1e-5 || d1 < 1e-5 {
		return 1e-6
	}
	return 0.01 * d0 / d1
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
