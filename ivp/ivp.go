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

// Package ivp integrates systems of ordinary differential equations
// y'(t) = f(t, y) from a known initial state over an output time grid.
package ivp

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Errors returned by integrators. They are wrapped with context about where
// the integration stopped.
var (
	ErrGrid      = errors.New("ivp: invalid time grid")
	ErrMaxSteps  = errors.New("ivp: step budget exhausted")
	ErrStepSize  = errors.New("ivp: step size underflow")
	ErrNonFinite = errors.New("ivp: non-finite state")
)

// Func evaluates the right-hand side of the system at time t and state y,
// writing the derivatives into dydt. It must not retain y or dydt and may be
// called any number of times per step.
type Func func(t float64, y, dydt []float64)

// Stats counts the work done by an integration.
type Stats struct {
	Steps       int // accepted steps
	Rejected    int // rejected steps
	Evaluations int // right-hand side evaluations
}

// Solution holds the integrated states aligned with the output grid.
type Solution struct {
	Time  []float64
	Y     [][]float64 // Y[i] is the state at Time[i]
	Stats Stats
}

// An Integrator solves an initial-value problem, returning the state at
// every point of grid. grid[0] is the time of the initial state y0.
type Integrator interface {
	Integrate(ctx context.Context, f Func, y0 []float64, grid []float64) (*Solution, error)
}

// CheckGrid returns an error wrapping ErrGrid unless grid has at least two
// finite, strictly increasing points.
func CheckGrid(grid []float64) error {
	if len(grid) < 2 {
		return fmt.Errorf("%w: need at least 2 points, have %d", ErrGrid, len(grid))
	}
	for i, t := range grid {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w: point %d is %g", ErrGrid, i, t)
		}
		if i > 0 && !(t > grid[i-1]) {
			return fmt.Errorf("%w: not strictly increasing at index %d (%g after %g)", ErrGrid, i, t, grid[i-1])
		}
	}
	return nil
}
