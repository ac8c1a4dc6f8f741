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
	"runtime"
	"sync"

	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"

	"github.com/sfexmodel/sfex"
	"github.com/sfexmodel/sfex/internal/hash"
	"github.com/sfexmodel/sfex/ivp"
)

// Trajectory is a simulated solution aligned with its time grid.
type Trajectory struct {
	Time   []float64
	States []State
	Stats  ivp.Stats
}

// Q returns the solid loading at every time.
func (tr *Trajectory) Q() []float64 {
	v := make([]float64, len(tr.States))
	for i, s := range tr.States {
		v[i] = s.Q
	}
	return v
}

// C returns the fluid concentration at every time.
func (tr *Trajectory) C() []float64 {
	v := make([]float64, len(tr.States))
	for i, s := range tr.States {
		v[i] = s.C
	}
	return v
}

func (tr *Trajectory) clone() *Trajectory {
	return &Trajectory{
		Time:   append([]float64(nil), tr.Time...),
		States: append([]State(nil), tr.States...),
		Stats:  tr.Stats,
	}
}

// Simulator integrates the model forward in time. A Simulator is safe for
// concurrent use and must not be copied after first use.
type Simulator struct {
	Constants Constants

	// Integrator solves the initial-value problem. If nil, an
	// ivp.DormandPrince with default settings is used.
	Integrator ivp.Integrator

	// CacheSize is the number of trajectories kept in memory. Repeated
	// simulations with identical inputs are served from the cache.
	// If <= 0, nothing is cached.
	//
	// The first cached simulation starts GOMAXPROCS+2 worker goroutines
	// that live as long as the process: the cache cannot be shut down.
	// Long-lived callers should share one Simulator per set of Constants
	// rather than create one per request.
	CacheSize int

	// Log receives debug messages. If nil, the standard logger is used.
	Log logrus.FieldLogger

	cacheInit sync.Once
	cache     *requestcache.Cache
}

type simRequest struct {
	x0   State
	grid []float64
	k    Kinetics
}

// Simulate integrates the model from x0 at grid[0], returning one state per
// grid point. Invalid kinetics or constants are reported as a DomainError
// before integrating; a malformed grid or a failed integration is reported as
// an IntegrationError.
func (s *Simulator) Simulate(ctx context.Context, x0 State, grid []float64, k Kinetics) (*Trajectory, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	if err := s.Constants.Validate(); err != nil {
		return nil, err
	}
	if err := ivp.CheckGrid(grid); err != nil {
		return nil, s.integrationError(x0, k, err)
	}
	if s.CacheSize <= 0 {
		return s.simulate(ctx, simRequest{x0: x0, grid: grid, k: k})
	}

	s.cacheInit.Do(func() {
		s.cache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
			return s.simulate(ctx, request.(simRequest))
		}, runtime.GOMAXPROCS(-1), requestcache.Memory(s.CacheSize))
	})
	req := s.cache.NewRequest(ctx, simRequest{x0: x0, grid: grid, k: k}, hash.Key(x0, grid, k, s.Constants))
	result, err := req.Result()
	if err != nil {
		return nil, err
	}
	return result.(*Trajectory).clone(), nil
}

func (s *Simulator) simulate(ctx context.Context, r simRequest) (*Trajectory, error) {
	integrator := s.Integrator
	if integrator == nil {
		integrator = ivp.DormandPrince{}
	}
	sol, err := integrator.Integrate(ctx, system(r.k, s.Constants), []float64{r.x0.Q, r.x0.C}, r.grid)
	if err != nil {
		return nil, s.integrationError(r.x0, r.k, err)
	}
	tr := &Trajectory{
		Time:   sol.Time,
		States: make([]State, len(sol.Y)),
		Stats:  sol.Stats,
	}
	for i, y := range sol.Y {
		tr.States[i] = State{Q: y[0], C: y[1]}
	}
	s.log().WithFields(logrus.Fields{
		"Di":          r.k.Di,
		"kp":          r.k.Kp,
		"steps":       sol.Stats.Steps,
		"rejected":    sol.Stats.Rejected,
		"evaluations": sol.Stats.Evaluations,
	}).Debug("reverchon: simulated")
	return tr, nil
}

func (s *Simulator) integrationError(x0 State, k Kinetics, err error) error {
	p := k.fields()
	p["q0"] = x0.Q
	p["C0"] = x0.C
	return &sfex.IntegrationError{Op: "reverchon.Simulate", Params: p, Err: err}
}

func (s *Simulator) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}
