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

package sfexutil

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sfexmodel/sfex/ivp"
	"github.com/sfexmodel/sfex/lack"
	"github.com/sfexmodel/sfex/reverchon"
)

// metrics counts the work done by one command. Counters live in a private
// registry so that separate runs in one process do not collide.
type metrics struct {
	registry *prometheus.Registry

	lackEvaluations *prometheus.CounterVec
	simulations     prometheus.Counter
	fits            *prometheus.CounterVec
	fitEvaluations  prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		lackEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sfex_lack_evaluations_total",
			Help: "The number of Lack yield evaluations, by extraction regime.",
		}, []string{"regime"}),
		simulations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sfex_reverchon_simulations_total",
			Help: "The number of Reverchon trajectories integrated, including those evaluated by fits. Cached trajectories are not counted.",
		}),
		fits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sfex_reverchon_fits_total",
			Help: "The number of Reverchon fits, by outcome.",
		}, []string{"outcome"}),
		fitEvaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sfex_reverchon_fit_evaluations_total",
			Help: "The number of objective evaluations made by Reverchon fits.",
		}),
	}
	m.registry.MustRegister(m.lackEvaluations, m.simulations, m.fits, m.fitEvaluations)
	return m
}

// Observe implements lack.Observer.
func (m *metrics) Observe(e lack.Evaluation) {
	m.lackEvaluations.WithLabelValues(e.Regime.String()).Inc()
}

func (m *metrics) fit(res *reverchon.FitResult, err error) {
	if err != nil {
		m.fits.WithLabelValues("diverged").Inc()
		return
	}
	m.fits.WithLabelValues("converged").Inc()
	m.fitEvaluations.Add(float64(res.Evaluations))
}

// count returns an integrator that adds every trajectory integrated by i to
// the simulation counter. A nil i stands for the default integrator.
func (m *metrics) count(i ivp.Integrator) ivp.Integrator {
	if i == nil {
		i = ivp.DormandPrince{}
	}
	return countingIntegrator{Integrator: i, n: m.simulations}
}

type countingIntegrator struct {
	ivp.Integrator
	n prometheus.Counter
}

func (c countingIntegrator) Integrate(ctx context.Context, f ivp.Func, y0, grid []float64) (*ivp.Solution, error) {
	c.n.Inc()
	return c.Integrator.Integrate(ctx, f, y0, grid)
}

// write saves the counters to path in the Prometheus text format. An empty
// path writes nothing.
func (m *metrics) write(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("sfexutil: writing metrics: %w", err)
	}
	return nil
}

// observers fans one evaluation out to several observers.
type observers []lack.Observer

func (o observers) Observe(e lack.Evaluation) {
	for _, ob := range o {
		ob.Observe(e)
	}
}
