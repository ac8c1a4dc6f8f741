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

package report

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Smooth fits a natural cubic spline through (x, y) and evaluates it at
// every point of xeval. x must be strictly increasing. The spline
// interpolates the data exactly, so it is only for display.
func Smooth(x, y, xeval []float64) ([]float64, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("report: smoothing %d x values and %d y values", len(x), len(y))
	}
	if len(x) < 2 {
		return nil, fmt.Errorf("report: smoothing needs at least 2 points, have %d", len(x))
	}
	for i := 1; i < len(x); i++ {
		if !(x[i] > x[i-1]) {
			return nil, fmt.Errorf("report: smoothing: x not strictly increasing at index %d", i)
		}
	}
	var nc interp.NaturalCubic
	if err := nc.Fit(x, y); err != nil {
		return nil, fmt.Errorf("report: fitting spline: %w", err)
	}
	out := make([]float64, len(xeval))
	for i, v := range xeval {
		out[i] = nc.Predict(v)
	}
	return out, nil
}
