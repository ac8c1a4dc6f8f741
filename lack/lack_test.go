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
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/sfexmodel/sfex"
)

func TestYieldReference(t *testing.T) {
	c := DefaultConstants()
	tests := []struct {
		p      Parameters
		tao    float64
		want   float64
		regime Regime
	}{
		{p: Parameters{Xk: 0.1, A: 1}, tao: 0, want: 0, regime: ConstantRate},
		{p: Parameters{Xk: 0.1, A: 1}, tao: 2, want: 0.10113928941256925, regime: ConstantRate},
		{p: Parameters{Xk: 0.1, A: 1}, tao: 8, want: 0.3922472639915352, regime: FallingRate},
		{p: Parameters{Xk: 0.1, A: 1}, tao: 15, want: 0.499015826796625, regime: DiffusionControlled},
		{p: Parameters{Xk: 0.3, A: 2}, tao: 5, want: 0.3259950652930676, regime: FallingRate},
		{p: Parameters{Xk: 0.3, A: 2}, tao: 8, want: 0.44497443907376083, regime: DiffusionControlled},
		{p: Parameters{Xk: 0.3, A: 2}, tao: 15, want: 0.49841876152514436, regime: DiffusionControlled},
		{p: Parameters{Xk: 0.4, A: 4}, tao: 5, want: 0.3672007602689983, regime: DiffusionControlled},
		{p: Parameters{Xk: 0.4, A: 4}, tao: 15, want: 0.4999070040309815, regime: DiffusionControlled},
	}
	for _, test := range tests {
		e, regime, err := Yield(test.tao, test.p, c)
		if err != nil {
			t.Fatalf("%v at %g: %v", test.p, test.tao, err)
		}
		if math.Abs(e-test.want) > 1e-12 {
			t.Errorf("%v at %g: have %.17g, want %.17g", test.p, test.tao, e, test.want)
		}
		if regime != test.regime {
			t.Errorf("%v at %g: have regime %v, want %v", test.p, test.tao, regime, test.regime)
		}
	}
}

func TestBoundaries(t *testing.T) {
	b, err := Compute(8, Parameters{Xk: 0.1, A: 1}, DefaultConstants())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(b.Tao1-5) > 1e-12 {
		t.Errorf("tao1: have %g, want 5", b.Tao1)
	}
	if math.Abs(b.Tao2-10.973174397848734) > 1e-12 {
		t.Errorf("tao2: have %g, want 10.973174397848734", b.Tao2)
	}
	if b.Regime != FallingRate || !(b.Zk > 0 && b.Zk < 1) {
		t.Errorf("have %+v, want falling rate with zk in (0, 1)", b)
	}
	// The extraction front reaches the particle surface at tao2.
	z, err := ZK(b.Tao2, Parameters{Xk: 0.1, A: 1}, DefaultConstants())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(z-1) > 1e-12 {
		t.Errorf("zk(tao2) = %g, want 1", z)
	}
}

func TestYieldZero(t *testing.T) {
	c := DefaultConstants()
	for _, p := range append(ReferenceTable(), Parameters{Xk: 0.01, A: 0.5}, Parameters{Xk: 0.49, A: 10}) {
		e, regime, err := Yield(0, p, c)
		if err != nil {
			t.Fatalf("%v: %v", p, err)
		}
		if e != 0 || regime != ConstantRate {
			t.Errorf("%v: have %g (%v), want 0 (ConstantRate)", p, e, regime)
		}
	}
}

func TestYieldContinuity(t *testing.T) {
	const eps = 1e-9
	c := DefaultConstants()
	for _, p := range ReferenceTable() {
		b, err := Compute(0, p, c)
		if err != nil {
			t.Fatal(err)
		}
		for _, edge := range []float64{b.Tao1, b.Tao2} {
			lo, rlo, err := Yield(edge-eps, p, c)
			if err != nil {
				t.Fatal(err)
			}
			hi, rhi, err := Yield(edge+eps, p, c)
			if err != nil {
				t.Fatal(err)
			}
			if rlo == rhi {
				t.Errorf("%v: same regime %v on both sides of %g", p, rlo, edge)
			}
			if math.Abs(hi-lo) > 1e-6 {
				t.Errorf("%v: jump of %g at %g", p, hi-lo, edge)
			}
		}
	}
}

func TestYieldMonotoneAndBounded(t *testing.T) {
	c := DefaultConstants()
	grid := Grid(c, 2000)
	for _, p := range ReferenceTable() {
		prev := 0.
		for _, tao := range grid {
			e, _, err := Yield(tao, p, c)
			if err != nil {
				t.Fatalf("%v at %g: %v", p, tao, err)
			}
			if e < prev-1e-12 {
				t.Errorf("%v: yield decreases at %g: %g < %g", p, tao, e, prev)
			}
			if e < 0 || e > c.Xo {
				t.Errorf("%v: yield %g at %g outside [0, %g]", p, e, tao, c.Xo)
			}
			prev = e
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		tao  float64
		want Regime
	}{
		{0, ConstantRate},
		{1, ConstantRate},
		{math.Nextafter(1, 2), FallingRate},
		{2, FallingRate},
		{math.Nextafter(2, 3), DiffusionControlled},
		{100, DiffusionControlled},
	}
	for _, test := range tests {
		if have := Classify(test.tao, 1, 2); have != test.want {
			t.Errorf("Classify(%g, 1, 2) = %v, want %v", test.tao, have, test.want)
		}
	}
}

func TestBoundaryAtTao1(t *testing.T) {
	c := DefaultConstants()
	p := Parameters{Xk: 0.3, A: 2}
	b, err := Compute(0, p, c)
	if err != nil {
		t.Fatal(err)
	}
	_, regime, err := Yield(b.Tao1, p, c)
	if err != nil {
		t.Fatal(err)
	}
	if regime != ConstantRate {
		t.Errorf("have %v at tao1, want ConstantRate", regime)
	}
}

func TestDomainErrors(t *testing.T) {
	c := DefaultConstants()
	tests := []struct {
		name string
		tao  float64
		p    Parameters
		c    Constants
	}{
		{name: "xk zero", tao: 1, p: Parameters{Xk: 0, A: 1}, c: c},
		{name: "xk equals xo", tao: 1, p: Parameters{Xk: 0.5, A: 1}, c: c},
		{name: "xk above xo", tao: 1, p: Parameters{Xk: 0.6, A: 1}, c: c},
		{name: "A zero", tao: 1, p: Parameters{Xk: 0.1, A: 0}, c: c},
		{name: "A negative", tao: 1, p: Parameters{Xk: 0.1, A: -1}, c: c},
		{name: "A NaN", tao: 1, p: Parameters{Xk: 0.1, A: math.NaN()}, c: c},
		{name: "exp overflow", tao: 1, p: Parameters{Xk: 0.1, A: 200}, c: c},
		{name: "tao negative", tao: -1, p: Parameters{Xk: 0.1, A: 1}, c: c},
		{name: "tao NaN", tao: math.NaN(), p: Parameters{Xk: 0.1, A: 1}, c: c},
		{name: "gamma zero", tao: 1, p: Parameters{Xk: 0.1, A: 1}, c: Constants{Xo: 0.5, Gamma: 0, Yr: 0.1, TAO: 15}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := Yield(test.tao, test.p, test.c)
			if !errors.Is(err, sfex.ErrDomain) {
				t.Errorf("have %v, want a domain error", err)
			}
		})
	}
}

func TestZKOutsideFallingRate(t *testing.T) {
	for _, p := range []Parameters{{Xk: 0.1, A: 1}, {Xk: 0.4, A: 4}} {
		_, err := ZK(0, p, DefaultConstants())
		var de *sfex.DomainError
		if !errors.As(err, &de) {
			t.Fatalf("%v: have %v, want a domain error", p, err)
		}
		if _, ok := de.Params["arg"]; !ok {
			t.Errorf("%v: error does not report the logarithm argument: %v", p, err)
		}
	}
}

func TestModelObserver(t *testing.T) {
	var (
		mu     sync.Mutex
		events []Evaluation
	)
	m := Model{
		Constants: DefaultConstants(),
		Observer: ObserverFunc(func(e Evaluation) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		}),
	}
	p := Parameters{Xk: 0.1, A: 1}
	for _, tao := range []float64{1, 8, 15} {
		if _, err := m.Yield(tao, p); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := m.Yield(-1, p); err == nil {
		t.Fatal("expected an error for negative tao")
	}
	want := []Regime{ConstantRate, FallingRate, DiffusionControlled}
	if len(events) != len(want) {
		t.Fatalf("have %d events, want %d", len(events), len(want))
	}
	for i, e := range events {
		if e.Regime != want[i] || e.Params != p {
			t.Errorf("event %d: have %+v, want regime %v", i, e, want[i])
		}
	}
}

func TestRegimeString(t *testing.T) {
	if s := FallingRate.String(); s != "FallingRate" {
		t.Errorf("have %q", s)
	}
	if s := Regime(7).String(); s != "Regime(7)" {
		t.Errorf("have %q", s)
	}
}
