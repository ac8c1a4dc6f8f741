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
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sfexmodel/sfex/reverchon"
)

// FitSummary records the inputs and outcome of a Reverchon fit.
type FitSummary struct {
	Run     string    `toml:"run"`
	Created time.Time `toml:"created"`
	Dataset string    `toml:"dataset"`
	Method  string    `toml:"method"`

	Guess  Kinetics `toml:"guess"`
	Fitted Kinetics `toml:"fitted"`

	Converged   bool    `toml:"converged"`
	Status      string  `toml:"status"`
	Iterations  int     `toml:"iterations"`
	Evaluations int     `toml:"evaluations"`
	SSR         float64 `toml:"ssr"`
	RSquared    float64 `toml:"r_squared"`

	// DiffusionLimited marks fits whose diffusion time is shorter than the
	// sampling interval, so that Di is poorly determined.
	DiffusionTime    float64 `toml:"diffusion_time"`
	DiffusionLimited bool    `toml:"diffusion_limited"`
}

// Kinetics is the TOML form of reverchon.Kinetics.
type Kinetics struct {
	Di float64 `toml:"Di"`
	Kp float64 `toml:"kp"`
}

// NewFitSummary collects res and its inputs into a FitSummary.
func NewFitSummary(run, dataset string, method reverchon.Method, guess reverchon.Kinetics, res *reverchon.FitResult) FitSummary {
	return FitSummary{
		Run:         run,
		Created:     time.Now().UTC().Truncate(time.Second),
		Dataset:     dataset,
		Method:      method.String(),
		Guess:       Kinetics{Di: guess.Di, Kp: guess.Kp},
		Fitted:      Kinetics{Di: res.Kinetics.Di, Kp: res.Kinetics.Kp},
		Converged:   res.Converged,
		Status:      res.Status,
		Iterations:  res.Iterations,
		Evaluations: res.Evaluations,
		SSR:         res.SSR,
		RSquared:    res.RSquared,

		DiffusionTime:    res.DiffusionTime,
		DiffusionLimited: res.DiffusionLimited,
	}
}

// WriteTOML writes s to w.
func (s FitSummary) WriteTOML(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("report: encoding fit summary: %w", err)
	}
	return nil
}

// ReadFitSummary decodes a summary written by WriteTOML.
func ReadFitSummary(r io.Reader) (FitSummary, error) {
	var s FitSummary
	if _, err := toml.NewDecoder(r).Decode(&s); err != nil {
		return FitSummary{}, fmt.Errorf("report: decoding fit summary: %w", err)
	}
	return s, nil
}
