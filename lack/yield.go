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
	"math"

	"github.com/sirupsen/logrus"
)

// Yield returns the extracted solute fraction at tao and the regime used to
// compute it.
func Yield(tao float64, p Parameters, c Constants) (float64, Regime, error) {
	b, err := Compute(tao, p, c)
	if err != nil {
		return 0, 0, err
	}
	switch b.Regime {
	case ConstantRate:
		return c.Gamma * c.Yr * tao * (1 - math.Exp(-p.A)), b.Regime, nil
	case FallingRate:
		// zk is recomputed from its general expression at this tao.
		z, err := zk(tao, b.Tao1, p, c)
		if err != nil {
			return 0, 0, err
		}
		return c.Gamma * c.Yr * (tao - b.Tao1*math.Exp(-p.A*(1-z))), b.Regime, nil
	default:
		r := p.Xk / c.Xo
		decay := math.Exp(c.Gamma * p.A * c.Yr / p.Xk * (b.Tao1 - tao))
		return c.Xo - p.Xk/p.A*math.Log(1+r*(math.Exp(c.Xo/p.Xk*p.A)-1)*decay), b.Regime, nil
	}
}

// Evaluation describes one successful yield evaluation.
type Evaluation struct {
	Tao    float64
	Params Parameters
	Regime Regime
	Yield  float64
}

// An Observer is notified of every evaluation a Model makes. Observers
// used with a SweepRunner are called from several goroutines at once.
type Observer interface {
	Observe(Evaluation)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Evaluation)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Evaluation) { f(e) }

type logObserver struct {
	log logrus.FieldLogger
}

// LogObserver returns an Observer that logs each evaluation at debug level.
func LogObserver(log logrus.FieldLogger) Observer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return logObserver{log: log}
}

func (o logObserver) Observe(e Evaluation) {
	o.log.WithFields(logrus.Fields{
		"tao":    e.Tao,
		"xk":     e.Params.Xk,
		"A":      e.Params.A,
		"regime": e.Regime,
		"yield":  e.Yield,
	}).Debug("lack: evaluated yield")
}

// Model evaluates the yield curve for fixed constants.
type Model struct {
	Constants Constants

	// Observer, if not nil, receives every evaluation.
	Observer Observer
}

// Yield returns the extracted fraction at tao for parameters p.
func (m Model) Yield(tao float64, p Parameters) (float64, error) {
	e, regime, err := Yield(tao, p, m.Constants)
	if err != nil {
		return 0, err
	}
	if m.Observer != nil {
		m.Observer.Observe(Evaluation{Tao: tao, Params: p, Regime: regime, Yield: e})
	}
	return e, nil
}
