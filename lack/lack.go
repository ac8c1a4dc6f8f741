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

// Package lack evaluates the Lack model of supercritical fluid extraction,
// a piecewise-analytic yield curve with a constant-rate period, a
// falling-rate period and a diffusion-controlled period.
//
// All times are dimensionless (tao). Every function takes the process
// constants explicitly; nothing in the package holds global state.
package lack

import (
	"fmt"
	"math"

	"github.com/sfexmodel/sfex"
)

// maxExponent is the largest argument math.Exp accepts without overflowing.
var maxExponent = math.Log(math.MaxFloat64)

// Constants are the process-wide settings shared by every evaluation.
type Constants struct {
	Xo    float64 // initial solute fraction in the solid
	Gamma float64 // yield efficiency factor
	Yr    float64 // solubility rate constant
	TAO   float64 // time horizon
}

// DefaultConstants returns the constants of the reference extraction run.
func DefaultConstants() Constants {
	return Constants{Xo: 0.5, Gamma: 0.8, Yr: 0.1, TAO: 15}
}

// Validate returns a DomainError unless every constant is positive and finite.
func (c Constants) Validate() error {
	for _, v := range []struct {
		name string
		val  float64
	}{{"xo", c.Xo}, {"gamma", c.Gamma}, {"yr", c.Yr}, {"TAO", c.TAO}} {
		if !(v.val > 0) || math.IsInf(v.val, 0) {
			return &sfex.DomainError{
				Op:     "lack.Constants",
				Reason: fmt.Sprintf("%s must be positive and finite", v.name),
				Params: map[string]float64{v.name: v.val},
			}
		}
	}
	return nil
}

// Parameters is one row of a parameter table.
type Parameters struct {
	Xk float64 // critical solute fraction
	A  float64 // structural constant of the bed
}

func (p Parameters) String() string { return fmt.Sprintf("xk=%g, A=%g", p.Xk, p.A) }

func (p Parameters) fields() map[string]float64 {
	return map[string]float64{"xk": p.Xk, "A": p.A}
}

// Validate returns a DomainError unless 0 < xk < xo and A > 0, and
// exp(xo/xk*A) is representable.
func (p Parameters) Validate(c Constants) error {
	const op = "lack.Parameters"
	switch {
	case !(p.Xk > 0) || !(p.Xk < c.Xo):
		f := p.fields()
		f["xo"] = c.Xo
		return &sfex.DomainError{Op: op, Reason: "xk must lie in (0, xo)", Params: f}
	case !(p.A > 0) || math.IsInf(p.A, 0):
		return &sfex.DomainError{Op: op, Reason: "A must be positive and finite", Params: p.fields()}
	case c.Xo/p.Xk*p.A > maxExponent:
		f := p.fields()
		f["xo"] = c.Xo
		return &sfex.DomainError{Op: op, Reason: "exp(xo/xk*A) overflows", Params: f}
	}
	return nil
}

// ReferenceTable returns the parameter table of the reference run.
func ReferenceTable() []Parameters {
	return []Parameters{
		{Xk: 0.1, A: 1},
		{Xk: 0.3, A: 2},
		{Xk: 0.4, A: 4},
	}
}

func validate(op string, tao float64, p Parameters, c Constants) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := p.Validate(c); err != nil {
		return err
	}
	if !(tao >= 0) || math.IsInf(tao, 0) {
		return &sfex.DomainError{Op: op, Reason: "tao must be non-negative and finite", Params: map[string]float64{"tao": tao}}
	}
	return nil
}
