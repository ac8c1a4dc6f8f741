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
	"github.com/sfexmodel/sfex/ivp"
)

// Rate is the time derivative of a State.
type Rate struct {
	DqDt float64
	DCDt float64
}

// Derivative returns the rate of change of s at time t. The system is
// autonomous, so t does not enter the result.
func Derivative(s State, t float64, k Kinetics, c Constants) (Rate, error) {
	if err := k.Validate(); err != nil {
		return Rate{}, err
	}
	if err := c.Validate(); err != nil {
		return Rate{}, err
	}
	dq, dC := rate(s.Q, s.C, k, c)
	return Rate{DqDt: dq, DCDt: dC}, nil
}

// rate relaxes the solid loading toward equilibrium with the fluid and
// closes the fluid mass balance through dq/dt.
func rate(q, C float64, k Kinetics, c Constants) (dqdt, dCdt float64) {
	ti := k.DiffusionTime(c.R)
	qE := C / k.Kp
	dqdt = -(q - qE) / ti
	dCdt = -(float64(c.N) / (c.Porosity * c.V)) * (c.W*(C-c.Cm)/c.Rho + (1-c.Porosity)*c.V*dqdt)
	return dqdt, dCdt
}

// system returns the right-hand side for state vectors [q, C]. k and c must
// already be validated.
func system(k Kinetics, c Constants) ivp.Func {
	return func(_ float64, y, dydt []float64) {
		dydt[0], dydt[1] = rate(y[0], y[1], k, c)
	}
}
