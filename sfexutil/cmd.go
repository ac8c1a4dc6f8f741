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

// Package sfexutil contains the sfex command-line interface: the command
// tree, its configuration options and the functions the commands run.
package sfexutil

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/sfexmodel/sfex"
	"github.com/sfexmodel/sfex/lack"
	"github.com/sfexmodel/sfex/report"
	"github.com/sfexmodel/sfex/reverchon"
)

// commands creates the command tree.
func (cfg *Cfg) commands() {
	cfg.Root = &cobra.Command{
		Use:   "sfex",
		Short: "Supercritical fluid extraction kinetics models.",
		Long: `sfex evaluates the Lack and Reverchon models of supercritical fluid
extraction and fits the Reverchon kinetic parameters to observed data.
Use the subcommands specified below to access the model functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'SFEX_var' where 'var' is the
name of the variable to be set, with dots replaced by underscores
(for example SFEX_LACK_TAO).
Refer to https://github.com/spf13/viper for additional configuration information.`,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return cfg.setConfig() },
	}

	cfg.versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Long:  "version prints the version number of this version of sfex.",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("sfex v%s\n", sfex.Version)
		},
		DisableAutoGenTag: true,
	}

	cfg.lackCmd = &cobra.Command{
		Use:   "lack",
		Short: "Evaluate the Lack model.",
		Long: `lack evaluates the Lack yield curve on an even grid over [0, Lack.TAO]
for every [xk, A] row of Lack.Parameters, and writes lack.png and
lack.xlsx to OutputDir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.lackConfig()
			if err != nil {
				return err
			}
			r, err := cfg.start(cmd)
			if err != nil {
				return err
			}
			m := lack.Model{
				Constants: c.Constants,
				Observer:  observers{r.metrics, lack.LogObserver(r.log)},
			}
			_, err = RunLack(cmd.Context(), r.sink, m, c.Parameters, lack.Grid(c.Constants, c.GridPoints), cfg.GetInt("Workers"))
			return r.finish(err)
		},
		DisableAutoGenTag: true,
	}

	cfg.reverchonCmd = &cobra.Command{
		Use:   "reverchon",
		Short: "Simulate or fit the Reverchon model.",
		Long: `reverchon holds the Reverchon model commands. The Reverchon.* options
set the physical constants of the extraction run, and the Integrator.*
options control the ODE integration.`,
		DisableAutoGenTag: true,
	}

	cfg.simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Simulate the Reverchon model.",
		Long: `simulate integrates the Reverchon model with the kinetics given by
Reverchon.Di and Reverchon.Kp from the initial state
[Reverchon.Simulate.InitialQ, Reverchon.Simulate.InitialC] over
Reverchon.Simulate.Points times on [0, Reverchon.Simulate.TEnd] minutes,
and writes reverchon.png and reverchon.xlsx to OutputDir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.simulateConfig()
			if err != nil {
				return err
			}
			r, err := cfg.start(cmd)
			if err != nil {
				return err
			}
			sim, err := cfg.simulator(r.log)
			if err != nil {
				return r.finish(err)
			}
			sim.Integrator = r.metrics.count(sim.Integrator)
			grid := floats.Span(make([]float64, c.Points), 0, c.TEnd)
			_, err = RunSimulate(cmd.Context(), r.sink, sim, reverchon.State{Q: c.InitialQ, C: c.InitialC}, grid, sim.Constants.Kinetics())
			return r.finish(err)
		},
		DisableAutoGenTag: true,
	}

	cfg.fitCmd = &cobra.Command{
		Use:   "fit",
		Short: "Fit the Reverchon kinetic parameters.",
		Long: `fit estimates the internal diffusivity Di and partition coefficient kp
that best reproduce the observed fluid concentrations in
Reverchon.Fit.DataFile (or the reference dataset if none is given),
starting from [Reverchon.Fit.GuessDi, Reverchon.Fit.GuessKp]. It writes
fit.png, fit.xlsx and fit.toml to OutputDir.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.fitConfig()
			if err != nil {
				return err
			}
			r, err := cfg.start(cmd)
			if err != nil {
				return err
			}
			obs, name, err := c.dataset(cmd.Context(), r.log)
			if err != nil {
				return r.finish(err)
			}
			sim, err := cfg.simulator(r.log)
			if err != nil {
				return r.finish(err)
			}
			sim.Integrator = r.metrics.count(sim.Integrator)
			f := &reverchon.Fitter{
				Simulator:      sim,
				Method:         c.Method,
				MaxIterations:  c.MaxIterations,
				MaxEvaluations: c.MaxEvaluations,
				Tolerance:      c.Tolerance,
				Timeout:        c.Timeout,
				Log:            r.log,
			}
			guess := reverchon.Kinetics{Di: c.GuessDi, Kp: c.GuessKp}
			x0 := reverchon.State{Q: c.InitialQ, C: c.InitialC}
			res, err := RunFit(cmd.Context(), r.sink, f, obs, guess, x0, FitRun{
				ID:           r.id,
				Dataset:      name,
				SplinePoints: c.SplinePoints,
				EvalPoints:   c.EvalPoints,
			})
			r.metrics.fit(res, err)
			if err == nil {
				logFit(r.log, res)
			}
			return r.finish(err)
		},
		DisableAutoGenTag: true,
	}

	// Link the commands together.
	cfg.Root.AddCommand(cfg.versionCmd)
	cfg.Root.AddCommand(cfg.lackCmd)
	cfg.Root.AddCommand(cfg.reverchonCmd)
	cfg.reverchonCmd.AddCommand(cfg.simulateCmd)
	cfg.reverchonCmd.AddCommand(cfg.fitCmd)
}

// run holds the resources of one command invocation.
type run struct {
	id          string
	log         logrus.FieldLogger
	sink        *report.Sink
	metrics     *metrics
	metricsFile string
}

// start creates the logger, output sink and counters for cmd.
func (cfg *Cfg) start(cmd *cobra.Command) (*run, error) {
	logger, err := cfg.newLogger(cmd)
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()
	log := logger.WithFields(logrus.Fields{"run": id, "command": cmd.CommandPath()})
	sink, err := report.OpenSink(cmd.Context(), cfg.GetString("OutputDir"), log)
	if err != nil {
		return nil, err
	}
	log.Info("sfexutil: starting")
	return &run{
		id:          id,
		log:         log,
		sink:        sink,
		metrics:     newMetrics(),
		metricsFile: cfg.GetString("MetricsFile"),
	}, nil
}

// finish releases the resources of r and writes its counters. cmdErr is
// the outcome of the command and takes precedence over cleanup errors.
func (r *run) finish(cmdErr error) error {
	if cmdErr != nil {
		r.log.WithError(cmdErr).Error("sfexutil: failed")
	}
	errs := []error{cmdErr, r.metrics.write(r.metricsFile), r.sink.Close()}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	r.log.Info("sfexutil: done")
	return nil
}

// Execute runs the command named by the process arguments.
func (cfg *Cfg) Execute() error {
	if err := cfg.Root.Execute(); err != nil {
		return fmt.Errorf("sfex: %w", err)
	}
	return nil
}
