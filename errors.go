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

package sfex

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for classification with errors.Is.
var (
	ErrDomain        = errors.New("domain error")
	ErrIntegration   = errors.New("integration error")
	ErrFitDivergence = errors.New("fit divergence")
)

// DomainError is returned when the inputs to a model would make one of its
// expressions mathematically undefined.
type DomainError struct {
	Op     string             // operation that rejected the inputs
	Reason string             // what is undefined
	Params map[string]float64 // offending values
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s: %s%s", e.Op, ErrDomain, e.Reason, formatParams(e.Params))
}

// Is reports whether target is ErrDomain.
func (e *DomainError) Is(target error) bool { return target == ErrDomain }

// IntegrationError is returned when an initial-value problem cannot be
// integrated over the requested time grid.
type IntegrationError struct {
	Op     string
	Params map[string]float64
	Err    error
}

func (e *IntegrationError) Error() string {
	s := fmt.Sprintf("%s: %s%s", e.Op, ErrIntegration, formatParams(e.Params))
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Is reports whether target is ErrIntegration.
func (e *IntegrationError) Is(target error) bool { return target == ErrIntegration }

func (e *IntegrationError) Unwrap() error { return e.Err }

// FitDivergenceError is returned when a least-squares search does not
// converge within its budget or cannot reduce the residual norm.
type FitDivergenceError struct {
	Op     string
	Status string             // solver termination status
	Params map[string]float64 // initial guess and last iterate
	Err    error
}

func (e *FitDivergenceError) Error() string {
	s := fmt.Sprintf("%s: %s", e.Op, ErrFitDivergence)
	if e.Status != "" {
		s += " (status " + e.Status + ")"
	}
	s += formatParams(e.Params)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Is reports whether target is ErrFitDivergence.
func (e *FitDivergenceError) Is(target error) bool { return target == ErrFitDivergence }

func (e *FitDivergenceError) Unwrap() error { return e.Err }

// formatParams prints params in sorted key order so that messages are
// reproducible.
func formatParams(p map[string]float64) string {
	if len(p) == 0 {
		return ""
	}
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, p[k])
	}
	return " [" + strings.Join(parts, " ") + "]"
}
