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
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// DefaultGridPoints is the number of grid points Grid uses when asked for
// fewer than two.
const DefaultGridPoints = 50

// Grid returns n evenly spaced times on [0, c.TAO].
func Grid(c Constants, n int) []float64 {
	if n < 2 {
		n = DefaultGridPoints
	}
	return floats.Span(make([]float64, n), 0, c.TAO)
}

// Point is one (tao, yield) pair.
type Point struct {
	Tao, Yield float64
}

// Series is the yield curve of one parameter row, in grid order.
type Series struct {
	Params Parameters
	Points []Point
}

// Tao returns the times of s.
func (s Series) Tao() []float64 {
	v := make([]float64, len(s.Points))
	for i, p := range s.Points {
		v[i] = p.Tao
	}
	return v
}

// Yield returns the yields of s.
func (s Series) Yield() []float64 {
	v := make([]float64, len(s.Points))
	for i, p := range s.Points {
		v[i] = p.Yield
	}
	return v
}

// SweepRunner evaluates a Model over a time grid for every row of a
// parameter table.
type SweepRunner struct {
	Model Model

	// Workers is the number of rows evaluated at once. If <= 0,
	// GOMAXPROCS is used.
	Workers int
}

// Run returns one Series per distinct row of table. The first error stops the
// sweep. Rows that repeat an earlier row are evaluated once.
func (r SweepRunner) Run(ctx context.Context, table []Parameters, grid []float64) (map[Parameters]Series, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("lack: empty time grid")
	}
	if err := r.Model.Constants.Validate(); err != nil {
		return nil, err
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(-1)
	}

	rows := make([]Parameters, 0, len(table))
	seen := make(map[Parameters]bool, len(table))
	for _, p := range table {
		if !seen[p] {
			seen[p] = true
			rows = append(rows, p)
		}
	}

	out := make([]Series, len(rows))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range rows {
		i, p := i, p
		g.Go(func() error {
			s := Series{Params: p, Points: make([]Point, len(grid))}
			for j, tao := range grid {
				if err := gCtx.Err(); err != nil {
					return err
				}
				e, err := r.Model.Yield(tao, p)
				if err != nil {
					return fmt.Errorf("lack: row %v: %w", p, err)
				}
				s.Points[j] = Point{Tao: tao, Yield: e}
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(map[Parameters]Series, len(out))
	for _, s := range out {
		result[s.Params] = s
	}
	return result, nil
}
