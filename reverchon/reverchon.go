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

// Package reverchon implements the Reverchon model of supercritical fluid
// extraction: a two-state system coupling the solute loading inside the
// particles to the solute concentration in the fluid phase, its forward
// simulation, and a least-squares fit of its kinetic parameters to observed
// fluid concentrations.
package reverchon

import (
	"fmt"
	"math"

	"github.com/sfexmodel/sfex"
)

// Constants are the physical properties of one extraction run. Only R, N,
// Porosity, V, W, Rho and Cm enter the model equations; the remaining values
// describe the run and supply the default kinetics.
type Constants struct {
	P           float64 `validate:"gt=0"`       // pressure, MPa
	T           float64 `validate:"gt=0"`       // temperature, K
	Q           float64 `validate:"gt=0"`       // solvent flow rate, g/min
	Porosity    float64 `validate:"gt=0,lt=1"`  // bed void fraction
	Rho         float64 `validate:"gt=0"`       // solvent density, kg/m³
	Mu          float64 `validate:"gt=0"`       // solvent viscosity, Pa s
	Dp          float64 `validate:"gt=0"`       // particle diameter, m
	Dl          float64 `validate:"gt=0"`       // axial dispersion coefficient, m²/s
	De          float64 `validate:"gt=0"`       // effective diffusivity, m²/s
	Di          float64 `validate:"gt=0"`       // internal diffusivity, m²/s
	U           float64 `validate:"gt=0"`       // superficial velocity, m/s
	Kf          float64 `validate:"gt=0"`       // external mass transfer coefficient, m/s
	BedDiameter float64 `validate:"gt=0"`       // m
	W           float64 `validate:"gt=0"`       // bed mass, kg
	Kp          float64 `validate:"gt=0"`       // partition coefficient
	R           float64 `validate:"gt=0"`       // particle radius, m
	N           int     `validate:"gt=0"`       // number of bed stages
	V           float64 `validate:"gt=0"`       // extractor volume
	C0          float64 `validate:"gte=0"`      // nominal fluid concentration
	Cn          float64 `validate:"gte=0"`      // fluid concentration at the outlet
	Cm          float64 `validate:"gte=0"`      // minimum fluid concentration
}

// DefaultConstants returns the constants of the reference run.
func DefaultConstants() Constants {
	return Constants{
		P:           9,
		T:           323,
		Q:           8.83,
		Porosity:    0.4,
		Rho:         285,
		Mu:          2.31e-5,
		Dp:          0.75e-3,
		Dl:          0.24e-5,
		De:          8.48e-12,
		Di:          6e-13,
		U:           0.455e-3,
		Kf:          1.91e-5,
		BedDiameter: 0.06,
		W:           0.160,
		Kp:          0.2,
		R:           0.31,
		N:           10,
		V:           12,
		C0:          0.1,
		Cn:          0.05,
		Cm:          0.02,
	}
}

// Validate returns a DomainError if a constant that enters the model
// equations would make them undefined.
func (c Constants) Validate() error {
	const op = "reverchon.Constants"
	for _, v := range []struct {
		name string
		val  float64
	}{{"r", c.R}, {"n", float64(c.N)}, {"V", c.V}, {"W", c.W}, {"rho", c.Rho}} {
		if !(v.val > 0) || math.IsInf(v.val, 0) {
			return &sfex.DomainError{Op: op, Reason: v.name + " must be positive and finite", Params: map[string]float64{v.name: v.val}}
		}
	}
	if !(c.Porosity > 0 && c.Porosity < 1) {
		return &sfex.DomainError{Op: op, Reason: "porosity must lie in (0, 1)", Params: map[string]float64{"e": c.Porosity}}
	}
	if math.IsNaN(c.Cm) || math.IsInf(c.Cm, 0) {
		return &sfex.DomainError{Op: op, Reason: "Cm must be finite", Params: map[string]float64{"Cm": c.Cm}}
	}
	return nil
}

// Kinetics returns the default kinetic parameters carried by c.
func (c Constants) Kinetics() Kinetics {
	return Kinetics{Di: c.Di, Kp: c.Kp}
}

// Kinetics are the free parameters of the model.
type Kinetics struct {
	Di float64 // internal diffusivity
	Kp float64 // partition coefficient
}

func (k Kinetics) String() string { return fmt.Sprintf("Di=%g, kp=%g", k.Di, k.Kp) }

func (k Kinetics) fields() map[string]float64 {
	return map[string]float64{"Di": k.Di, "kp": k.Kp}
}

// Validate returns a DomainError unless Di and kp are positive and finite.
func (k Kinetics) Validate() error {
	if !(k.Di > 0) || !(k.Kp > 0) || math.IsInf(k.Di, 0) || math.IsInf(k.Kp, 0) {
		return &sfex.DomainError{
			Op:     "reverchon.Kinetics",
			Reason: "kinetic parameters must be positive and finite",
			Params: k.fields(),
		}
	}
	return nil
}

// DiffusionTime returns the characteristic internal diffusion time
// r²/(15 Di) for particles of radius r.
func (k Kinetics) DiffusionTime(r float64) float64 {
	return r * r / (15 * k.Di)
}

// State is the model state at one instant.
type State struct {
	Q float64 // solute loading of the solid phase
	C float64 // solute concentration of the fluid phase
}

// Equilibrium returns the solid loading in equilibrium with the fluid
// concentration of s.
func (s State) Equilibrium(kp float64) float64 {
	return s.C / kp
}
