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
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Figure size for WritePNG.
const (
	figWidth  = 6 * vg.Inch
	figHeight = 4 * vg.Inch
)

// LinePlot draws lines as continuous curves and points as unconnected
// markers, each with its own legend entry.
func LinePlot(title, xlabel, ylabel string, lines, points []Series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, s := range lines {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		l, err := plotter.NewLine(s)
		if err != nil {
			return nil, fmt.Errorf("report: plotting %q: %w", s.Name, err)
		}
		l.LineStyle.Width = vg.Points(1.5)
		l.LineStyle.Color = plotutil.Color(i)
		p.Add(l)
		p.Legend.Add(s.Name, l)
	}
	for i, s := range points {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		sc, err := plotter.NewScatter(s)
		if err != nil {
			return nil, fmt.Errorf("report: plotting %q: %w", s.Name, err)
		}
		sc.GlyphStyle = draw.GlyphStyle{
			Color:  plotutil.Color(len(lines) + i),
			Shape:  draw.CircleGlyph{},
			Radius: vg.Points(3),
		}
		p.Add(sc)
		p.Legend.Add(s.Name, sc)
	}
	return p, nil
}

// WritePNG renders p to w as a PNG image.
func WritePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(figWidth, figHeight, "png")
	if err != nil {
		return fmt.Errorf("report: rendering plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("report: writing plot: %w", err)
	}
	return nil
}
