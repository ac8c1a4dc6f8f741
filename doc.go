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

// Package sfex holds the pieces shared by the supercritical fluid extraction
// kinetics models: the error taxonomy and the version number.
//
// The models themselves live in subpackages. Package lack evaluates the
// piecewise-analytic Lack yield curve over its constant-rate, falling-rate and
// diffusion-controlled regimes. Package reverchon integrates the two-state
// Reverchon mass-transfer system and fits its kinetic parameters to observed
// fluid-phase concentrations. Package report turns model output into plots
// and spreadsheets, and package sfexutil wires everything into the sfex
// command-line program.
package sfex

// Version is the version of sfex.
const Version = "0.3.0"
