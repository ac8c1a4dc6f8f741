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
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/sfexmodel/sfex"
	"github.com/sfexmodel/sfex/ivp"
)

func TestDerivative(t *testing.T) {
	c := DefaultConstants()
	k := Kinetics{Di: 6e-13, Kp: 0.2}
	have, err := Derivative(State{Q: 1, C: 2}, 0, k, c)
	if err != nil {
		t.Fatal(err)
	}
	ti := c.R * c.R / (15 * k.Di)
	dq := -(1 - 2/k.Kp) / ti
	dC := -(float64(c.N) / (c.Porosity * c.V)) * (c.W*(2-c.Cm)/c.Rho + (1-c.Porosity)*c.V*dq)
	if !scalar.EqualWithinRel(have.DqDt, dq, 1e-12) || !scalar.EqualWithinRel(have.DCDt, dC, 1e-12) {
		t.Errorf("have %+v, want {%g %g}", have, dq, dC)
	}
	if !scalar.EqualWithinRel(have.DqDt, 8.428720083246617e-10, 1e-12) ||
		!scalar.EqualWithinRel(have.DCDt, -0.0023158021167643352, 1e-12) {
		t.Errorf("have %+v, want {8.428720083246617e-10 -0.0023158021167643352}", have)
	}
}

func TestDerivativeEquilibrium(t *testing.T) {
	c := DefaultConstants()
	for _, k := range []Kinetics{{Di: 6e-13, Kp: 0.2}, {Di: 1e-3, Kp: 3}} {
		for _, C := range []float64{0, 0.02, 0.7} {
			s := State{C: C}
			s.Q = s.Equilibrium(k.Kp)
			r, err := Derivative(s, 0, k, c)
			if err != nil {
				t.Fatal(err)
			}
			if r.DqDt != 0 {
				t.Errorf("%v at %+v: dq/dt = %g, want 0", k, s, r.DqDt)
			}
		}
	}
}

func TestDerivativeDomain(t *testing.T) {
	c := DefaultConstants()
	porous := DefaultConstants()
	porous.Porosity = 1
	tests := []struct {
		name string
		k    Kinetics
		c    Constants
	}{
		{name: "Di zero", k: Kinetics{Di: 0, Kp: 0.2}, c: c},
		{name: "kp negative", k: Kinetics{Di: 6e-13, Kp: -0.2}, c: c},
		{name: "Di NaN", k: Kinetics{Di: math.NaN(), Kp: 0.2}, c: c},
		{name: "kp Inf", k: Kinetics{Di: 6e-13, Kp: math.Inf(1)}, c: c},
		{name: "porosity one", k: c.Kinetics(), c: porous},
		{name: "no stages", k: c.Kinetics(), c: Constants{R: 1, V: 1, W: 1, Rho: 1, Porosity: 0.5}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Derivative(State{Q: 1, C: 2}, 0, test.k, test.c)
			if !errors.Is(err, sfex.ErrDomain) {
				t.Errorf("have %v, want a domain error", err)
			}
		})
	}
}

func TestSimulate(t *testing.T) {
	c := DefaultConstants()
	sim := &Simulator{Constants: c}
	grid := floats.Span(make([]float64, 30), 0, 3000)
	tr, err := sim.Simulate(context.Background(), State{}, grid, c.Kinetics())
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.States) != len(grid) || len(tr.Time) != len(grid) {
		t.Fatalf("have %d states at %d times, want %d", len(tr.States), len(tr.Time), len(grid))
	}
	// With Di this small the solid barely exchanges solute, so the fluid
	// relaxes toward Cm at rate n W / (e V rho).
	lambda := float64(c.N) * c.W / (c.Porosity * c.V * c.Rho)
	for i, s := range tr.States {
		want := c.Cm * (1 - math.Exp(-lambda*grid[i]))
		if math.Abs(s.C-want) > 2e-6 {
			t.Errorf("t=%g: C = %g, want %g", grid[i], s.C, want)
		}
		if s.Q < 0 || s.Q > 1e-6 {
			t.Errorf("t=%g: q = %g out of range", grid[i], s.Q)
		}
	}
	if q, C := tr.Q(), tr.C(); len(q) != len(grid) || C[0] != 0 {
		t.Errorf("bad accessors: %v %v", q, C)
	}
}

type countingIntegrator struct {
	ivp.Integrator
	calls int64
}

func (c *countingIntegrator) Integrate(ctx context.Context, f ivp.Func, y0, grid []float64) (*ivp.Solution, error) {
	atomic.AddInt64(&c.calls, 1)
	return c.Integrator.Integrate(ctx, f, y0, grid)
}

func TestSimulateCache(t *testing.T) {
	counter := &countingIntegrator{Integrator: ivp.DormandPrince{}}
	sim := &Simulator{Constants: DefaultConstants(), Integrator: counter, CacheSize: 10}
	grid := floats.Span(make([]float64, 10), 0, 9)
	k := Kinetics{Di: 3e-6, Kp: 0.02}

	a, err := sim.Simulate(context.Background(), State{Q: 1}, grid, k)
	if err != nil {
		t.Fatal(err)
	}
	want := a.States[5]
	a.States[5] = State{Q: -1, C: -1}
	b, err := sim.Simulate(context.Background(), State{Q: 1}, grid, k)
	if err != nil {
		t.Fatal(err)
	}
	if calls := atomic.LoadInt64(&counter.calls); calls != 1 {
		t.Errorf("have %d integrations, want 1", calls)
	}
	if b.States[5] != want {
		t.Errorf("cached trajectory was modified: have %+v, want %+v", b.States[5], want)
	}
	if _, err := sim.Simulate(context.Background(), State{Q: 1}, grid, Kinetics{Di: 3e-6, Kp: 0.03}); err != nil {
		t.Fatal(err)
	}
	if calls := atomic.LoadInt64(&counter.calls); calls != 2 {
		t.Errorf("have %d integrations, want 2", calls)
	}
}

func TestSimulateCacheWorkers(t *testing.T) {
	sim := &Simulator{Constants: DefaultConstants(), CacheSize: 10}
	grid := floats.Span(make([]float64, 10), 0, 9)
	if _, err := sim.Simulate(context.Background(), State{Q: 1}, grid, Kinetics{Di: 3e-6, Kp: 0.02}); err != nil {
		t.Fatal(err)
	}
	started := runtime.NumGoroutine()
	for i := 1; i <= 20; i++ {
		k := Kinetics{Di: 3e-6, Kp: 0.02 + 0.001*float64(i)}
		if _, err := sim.Simulate(context.Background(), State{Q: 1}, grid, k); err != nil {
			t.Fatal(err)
		}
	}
	// Reusing a Simulator must not start more cache workers.
	if n := runtime.NumGoroutine(); n > started+2 {
		t.Errorf("have %d goroutines after reuse, had %d", n, started)
	}
}

func TestSimulateErrors(t *testing.T) {
	c := DefaultConstants()
	grid := floats.Span(make([]float64, 10), 0, 9)
	t.Run("grid", func(t *testing.T) {
		sim := &Simulator{Constants: c}
		for _, g := range [][]float64{nil, {0}, {0, 2, 1}} {
			_, err := sim.Simulate(context.Background(), State{}, g, c.Kinetics())
			if !errors.Is(err, sfex.ErrIntegration) || !errors.Is(err, ivp.ErrGrid) {
				t.Errorf("grid %v: have %v, want an integration error", g, err)
			}
		}
	})
	t.Run("domain", func(t *testing.T) {
		counter := &countingIntegrator{Integrator: ivp.DormandPrince{}}
		sim := &Simulator{Constants: c, Integrator: counter}
		_, err := sim.Simulate(context.Background(), State{}, grid, Kinetics{Di: 0, Kp: 0.2})
		if !errors.Is(err, sfex.ErrDomain) {
			t.Errorf("have %v, want a domain error", err)
		}
		if counter.calls != 0 {
			t.Error("integrated with invalid kinetics")
		}
	})
	t.Run("budget", func(t *testing.T) {
		sim := &Simulator{Constants: c, Integrator: ivp.DormandPrince{MaxSteps: 10}}
		_, err := sim.Simulate(context.Background(), State{Q: 1}, grid, Kinetics{Di: 10, Kp: 0.01})
		var ie *sfex.IntegrationError
		if !errors.As(err, &ie) || !errors.Is(err, ivp.ErrMaxSteps) {
			t.Fatalf("have %v, want an integration error", err)
		}
		if ie.Params["Di"] != 10 || ie.Params["kp"] != 0.01 {
			t.Errorf("error does not report the kinetics: %v", ie.Params)
		}
	})
}

func TestDataset(t *testing.T) {
	if err := ReferenceDataset().Validate(); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	good := filepath.Join(dir, "good.toml")
	if err := os.WriteFile(good, []byte("x = [0.0, 1.0, 2.0]\ny = [0.1, 0.2, 0.25]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := LoadDataset(good)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(d.X, []float64{0, 1, 2}) || !floats.Equal(d.Y, []float64{0.1, 0.2, 0.25}) {
		t.Errorf("have %+v", d)
	}

	for name, content := range map[string]string{
		"mismatch":   "x = [0.0, 1.0]\ny = [0.1]\n",
		"decreasing": "x = [1.0, 0.0]\ny = [0.1, 0.2]\n",
		"syntax":     "x = [0.0, 1.0\n",
	} {
		if _, err := ReadDataset(strings.NewReader(content)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
	if _, err := LoadDataset(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("missing file: expected an error")
	}
}
