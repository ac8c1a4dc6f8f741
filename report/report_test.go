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
	"bytes"
	"context"
	"io"
	"math"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/tealeg/xlsx"
	"gonum.org/v1/gonum/floats"

	"github.com/sfexmodel/sfex/lack"
	"github.com/sfexmodel/sfex/reverchon"
)

func TestLackSeries(t *testing.T) {
	c := lack.DefaultConstants()
	table := lack.ReferenceTable()
	res, err := lack.SweepRunner{Model: lack.Model{Constants: c}}.Run(context.Background(), table, lack.Grid(c, 5))
	if err != nil {
		t.Fatal(err)
	}
	series := LackSeries(table, res)
	want := []string{"xk=0.1, A=1", "xk=0.3, A=2", "xk=0.4, A=4"}
	if len(series) != len(want) {
		t.Fatalf("have %d series", len(series))
	}
	for i, s := range series {
		if s.Name != want[i] || s.Len() != 5 || s.X[4] != c.TAO {
			t.Errorf("series %d: have %+v", i, s)
		}
	}
}

func TestTrajectorySeries(t *testing.T) {
	tr := &reverchon.Trajectory{
		Time:   []float64{0, 1},
		States: []reverchon.State{{Q: 1, C: 0}, {Q: 0.9, C: 0.01}},
	}
	q, c := TrajectorySeries(tr)
	if !floats.Equal(q.Y, []float64{1, 0.9}) || !floats.Equal(c.Y, []float64{0, 0.01}) || q.Name != "q" || c.Name != "C" {
		t.Errorf("have %+v %+v", q, c)
	}
}

func TestSmooth(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{1, 3, 5, 7}
	xeval := floats.Span(make([]float64, 13), 0, 3)
	have, err := Smooth(x, y, xeval)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range xeval {
		if want := 1 + 2*v; math.Abs(have[i]-want) > 1e-12 {
			t.Errorf("at %g: have %g, want %g", v, have[i], want)
		}
	}

	// The spline passes through every knot.
	y2 := []float64{0, 1, 0, 1}
	have, err = Smooth(x, y2, x)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.EqualApprox(have, y2, 1e-12) {
		t.Errorf("have %v, want %v", have, y2)
	}

	for name, in := range map[string][2][]float64{
		"mismatch":   {{0, 1}, {0}},
		"too few":    {{0}, {0}},
		"decreasing": {{0, 2, 1}, {0, 0, 0}},
	} {
		if _, err := Smooth(in[0], in[1], xeval); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestWritePNG(t *testing.T) {
	lines := []Series{{Name: "model", X: []float64{0, 1, 2}, Y: []float64{0, 1, 4}}}
	points := []Series{{Name: "data", X: []float64{0, 1, 2}, Y: []float64{0.1, 0.9, 4.2}}}
	p, err := LinePlot("fit", "t [min]", "C", lines, points)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WritePNG(&buf, p); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG image")
	}
	if _, err := LinePlot("bad", "", "", []Series{{Name: "x", X: []float64{0}}}, nil); err == nil {
		t.Error("expected an error for a malformed series")
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	err := WriteXLSX(&buf,
		Sheet{Name: "lack", Series: []Series{
			{Name: "a", X: []float64{0, 1, 2}, Y: []float64{0, 0.5, 0.75}},
			{Name: "b", X: []float64{0, 1}, Y: []float64{3, 4}},
		}},
		Sheet{Name: "other", Series: []Series{{Name: "c", X: []float64{1}, Y: []float64{2}}}},
	)
	if err != nil {
		t.Fatal(err)
	}
	f, err := xlsx.OpenBinary(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	s, ok := f.Sheet["lack"]
	if !ok {
		t.Fatal("missing sheet")
	}
	if _, ok := f.Sheet["other"]; !ok {
		t.Error("missing second sheet")
	}
	if v := s.Cell(0, 0).Value; v != "a x" {
		t.Errorf("header: have %q", v)
	}
	if v := s.Cell(0, 3).Value; v != "b y" {
		t.Errorf("header: have %q", v)
	}
	for _, c := range []struct {
		row, col int
		want     float64
	}{{2, 1, 0.5}, {3, 1, 0.75}, {2, 3, 4}} {
		v, err := strconv.ParseFloat(s.Cell(c.row, c.col).Value, 64)
		if err != nil || v != c.want {
			t.Errorf("cell (%d, %d): have %q, want %g", c.row, c.col, s.Cell(c.row, c.col).Value, c.want)
		}
	}
}

func TestFitSummary(t *testing.T) {
	res := &reverchon.FitResult{
		Kinetics:    reverchon.Kinetics{Di: 2.5e-6, Kp: 0.019},
		Converged:   true,
		Status:      "FunctionConvergence",
		Iterations:  120,
		Evaluations: 241,
		SSR:         1.5e-7,
		RSquared:    0.998,

		DiffusionTime:    0.0198,
		DiffusionLimited: true,
	}
	s := NewFitSummary("run-1", "reference", reverchon.NelderMead, reverchon.Kinetics{Di: 0.2, Kp: 0.3}, res)
	var buf bytes.Buffer
	if err := s.WriteTOML(&buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("[fitted]")) {
		t.Errorf("missing fitted table:\n%s", buf.String())
	}
	back, err := ReadFitSummary(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if back.Fitted != s.Fitted || back.Guess != s.Guess || back.Status != s.Status ||
		back.Iterations != s.Iterations || back.RSquared != s.RSquared || !back.Created.Equal(s.Created) ||
		back.DiffusionTime != s.DiffusionTime || !back.DiffusionLimited {
		t.Errorf("have %+v, want %+v", back, s)
	}
}

func TestSink(t *testing.T) {
	ctx := context.Background()
	log := logrus.New()
	log.SetOutput(io.Discard)
	sink, err := OpenSink(ctx, "mem://", log)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()
	p, err := LinePlot("t", "x", "y", []Series{{Name: "s", X: []float64{0, 1}, Y: []float64{0, 1}}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.PNG(ctx, "a.png", p); err != nil {
		t.Fatal(err)
	}
	if err := sink.XLSX(ctx, "a.xlsx", Sheet{Name: "s", Series: []Series{{Name: "s", X: []float64{0}, Y: []float64{1}}}}); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"a.png", "a.xlsx"} {
		if ok, err := sink.Bucket().Exists(ctx, key); err != nil || !ok {
			t.Errorf("%s not stored: %v", key, err)
		}
	}
}
