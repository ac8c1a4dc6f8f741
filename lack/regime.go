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

package lack

import (
	"fmt"
	"math"

	"github.com/sfexmodel/sfex"
)

// Regime is an extraction period of the Lack model.
type Regime int

// The three extraction periods, in time order.
const (
	ConstantRate Regime = iota
	FallingRate
	DiffusionControlled
)

func (r Regime) String() string {
	switch r {
	case ConstantRate:
		return "ConstantRate"
	case FallingRate:
		return "FallingRate"
	case DiffusionControlled:
		return "DiffusionControlled"
	default:
		return fmt.Sprintf("Regime(%d)", int(r))
	}
}

// Classify returns the regime that tao falls in. The checks run in time
// order, so tao == tao1 is ConstantRate and tao == tao2 is FallingRate.
func Classify(tao, tao1, tao2 float64) Regime {
	switch {
	case tao <= tao1:
		return ConstantRate
	case tao <= tao2:
		return FallingRate
	default:
		return DiffusionControlled
	}
}

// Boundaries are the regime boundary times for one evaluation, together
// with the regime that tao falls in. Zk is only set in the falling-rate
// period and is zero otherwise.
type Boundaries struct {
	Tao1, Tao2 float64
	Zk         float64
	Regime     Regime
}

// Compute returns the regime boundaries at tao.
func Compute(tao float64, p Parameters, c Constants) (Boundaries, error) {
	if err := validate("lack.Compute", tao, p, c); err != nil {
		return Boundaries{}, err
	}
	b := Boundaries{Tao1: tao1(p, c), Tao2: tao2(p, c)}
	b.Regime = Classify(tao, b.Tao1, b.Tao2)
	if b.Regime == FallingRate {
		zk, err := zk(tao, b.Tao1, p, c)
		if err != nil {
			return Boundaries{}, err
		}
		b.Zk = zk
	}
	return b, nil
}

// ZK returns the normalized internal coordinate of the extraction front at
// tao. The expression is only real-valued inside the falling-rate period;
// elsewhere its logarithm argument can be non-positive, which is reported as
// a DomainError.
func ZK(tao float64, p Parameters, c Constants) (float64, error) {
	if err := validate("lack.ZK", tao, p, c); err != nil {
		return 0, err
	}
	return zk(tao, tao1(p, c), p, c)
}

// tao1 is the time when the easily accessible solute is exhausted.
func tao1(p Parameters, c Constants) float64 {
	return (c.Xo - p.Xk) / (c.Gamma * p.A * c.Yr)
}

// tao2 is the end of the falling-rate period.
func tao2(p Parameters, c Constants) float64 {
	r := p.Xk / c.Xo
	return tao1(p, c) + p.Xk/(c.Gamma*p.A*c.Yr)*math.Log(r+(1-r)*math.Exp(c.Xo/p.Xk*p.A))
}

func zk(tao, t1 float64, p Parameters, c Constants) (float64, error) {
	exponent := c.Gamma * p.A * c.Yr / p.Xk * (tao - t1)
	if exponent > maxExponent {
		f := p.fields()
		f["tao"] = tao
		f["tao1"] = t1
		return 0, &sfex.DomainError{Op: "lack.ZK", Reason: "exponent overflows", Params: f}
	}
	arg := (c.Xo*math.Exp(exponent) - p.Xk) / (c.Xo - p.Xk)
	if !(arg > 0) {
		f := p.fields()
		f["tao"] = tao
		f["tao1"] = t1
		f["arg"] = arg
		return 0, &sfex.DomainError{Op: "lack.ZK", Reason: "logarithm argument is not positive", Params: f}
	}
	return p.Xk / (p.A * c.Xo) * math.Log(arg), nil
}
