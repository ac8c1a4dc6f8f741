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
	"fmt"
	"io"
	"math"
	"os"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/floats"

	"github.com/sfexmodel/sfex/ivp"
)

// Dataset holds observed fluid concentrations Y at times X.
type Dataset struct {
	X []float64 `toml:"x"`
	Y []float64 `toml:"y"`
}

// ReferenceDataset returns the ten observations of the reference run,
// one per minute.
func ReferenceDataset() Dataset {
	return Dataset{
		X: floats.Span(make([]float64, 10), 0, 9),
		Y: []float64{
			0.00429861, 0.00907806, 0.01142553, 0.01471523, 0.01585107,
			0.01674278, 0.01744284, 0.01799243, 0.01860349, 0.01902855,
		},
	}
}

// Validate checks that d can serve as a fitting target: X and Y have the
// same length, X is a valid time grid, and every Y is finite.
func (d Dataset) Validate() error {
	if len(d.X) != len(d.Y) {
		return fmt.Errorf("reverchon: dataset has %d times but %d observations", len(d.X), len(d.Y))
	}
	if err := ivp.CheckGrid(d.X); err != nil {
		return fmt.Errorf("reverchon: dataset times: %w", err)
	}
	for i, y := range d.Y {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return fmt.Errorf("reverchon: dataset observation %d is %g", i, y)
		}
	}
	return nil
}

// ReadDataset decodes a TOML dataset with arrays x and y.
func ReadDataset(r io.Reader) (Dataset, error) {
	var d Dataset
	if _, err := toml.NewDecoder(r).Decode(&d); err != nil {
		return Dataset{}, fmt.Errorf("reverchon: decoding dataset: %w", err)
	}
	return d, d.Validate()
}

// LoadDataset reads a TOML dataset from path.
func LoadDataset(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("reverchon: opening dataset: %w", err)
	}
	defer f.Close()
	return ReadDataset(f)
}
