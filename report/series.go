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

// Package report renders model output as plots, spreadsheets and summary
// files, and stores them in a blob bucket.
package report

import (
	"fmt"

	"github.com/sfexmodel/sfex/lack"
	"github.com/sfexmodel/sfex/reverchon"
)

// Series is a named sequence of (x, y) pairs. It implements
// plotter.XYer.
type Series struct {
	Name string
	X, Y []float64
}

// Len implements plotter.XYer.
func (s Series) Len() int { return len(s.X) }

// XY implements plotter.XYer.
func (s Series) XY(i int) (x, y float64) { return s.X[i], s.Y[i] }

// Validate returns an error if X and Y differ in length.
func (s Series) Validate() error {
	if len(s.X) != len(s.Y) {
		return fmt.Errorf("report: series %q has %d x values and %d y values", s.Name, len(s.X), len(s.Y))
	}
	return nil
}

// LackSeries returns one series per row of table, in table order, from the
// output of a lack.SweepRunner. Rows missing from results are skipped.
func LackSeries(table []lack.Parameters, results map[lack.Parameters]lack.Series) []Series {
	out := make([]Series, 0, len(table))
	seen := make(map[lack.Parameters]bool)
	for _, p := range table {
		s, ok := results[p]
		if !ok || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, Series{Name: p.String(), X: s.Tao(), Y: s.Yield()})
	}
	return out
}

// TrajectorySeries returns the solid loading and fluid concentration of tr.
func TrajectorySeries(tr *reverchon.Trajectory) (q, c Series) {
	return Series{Name: "q", X: tr.Time, Y: tr.Q()}, Series{Name: "C", X: tr.Time, Y: tr.C()}
}
