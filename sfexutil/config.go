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

package sfexutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sfexmodel/sfex/ivp"
	"github.com/sfexmodel/sfex/lack"
	"github.com/sfexmodel/sfex/reverchon"
)

// Cfg holds configuration information and the command tree that reads it.
type Cfg struct {
	*viper.Viper

	// Root is the main command.
	Root *cobra.Command

	lackCmd, reverchonCmd, simulateCmd, fitCmd, versionCmd *cobra.Command
}

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

var validate = validator.New()

// InitializeConfig builds the command tree, registers every configuration
// option as a flag and binds the flags to a new viper instance.
func InitializeConfig() *Cfg {
	cfg := &Cfg{Viper: viper.New()}
	cfg.commands()

	rc := reverchon.DefaultConstants()
	lc := lack.DefaultConstants()
	table, err := json.Marshal(parameterRows(lack.ReferenceTable()))
	if err != nil {
		panic(err)
	}

	root := []*pflag.FlagSet{cfg.Root.PersistentFlags()}
	lackFlags := []*pflag.FlagSet{cfg.lackCmd.Flags()}
	revFlags := []*pflag.FlagSet{cfg.reverchonCmd.PersistentFlags()}
	simFlags := []*pflag.FlagSet{cfg.simulateCmd.Flags()}
	fitFlags := []*pflag.FlagSet{cfg.fitCmd.Flags()}

	options := []option{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   root,
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum severity of log messages: one of
              trace, debug, info, warn or error.`,
			defaultVal: "info",
			flagsets:   root,
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is where plots, spreadsheets and summaries are written.
              It can be a local directory or a blob URL (file://, mem://,
              gs://bucket/prefix or s3://bucket/prefix).`,
			shorthand:  "o",
			defaultVal: "output",
			flagsets:   root,
		},
		{
			name: "MetricsFile",
			usage: `
              MetricsFile, if set, is a local file that receives run counters
              in the Prometheus text format after each command.`,
			defaultVal: "",
			flagsets:   root,
		},
		{
			name: "Workers",
			usage: `
              Workers is the number of parameter rows evaluated at once.
              Values <= 0 use one worker per processor.`,
			defaultVal: 0,
			flagsets:   lackFlags,
		},
		{
			name: "Lack.Xo",
			usage: `
              Lack.Xo is the initial solute fraction in the solid.`,
			defaultVal: lc.Xo,
			flagsets:   lackFlags,
		},
		{
			name: "Lack.Gamma",
			usage: `
              Lack.Gamma is the yield efficiency factor.`,
			defaultVal: lc.Gamma,
			flagsets:   lackFlags,
		},
		{
			name: "Lack.Yr",
			usage: `
              Lack.Yr is the solubility rate constant.`,
			defaultVal: lc.Yr,
			flagsets:   lackFlags,
		},
		{
			name: "Lack.TAO",
			usage: `
              Lack.TAO is the end of the dimensionless time horizon.`,
			defaultVal: lc.TAO,
			flagsets:   lackFlags,
		},
		{
			name: "Lack.GridPoints",
			usage: `
              Lack.GridPoints is the number of evenly spaced times on [0, TAO].`,
			defaultVal: lack.DefaultGridPoints,
			flagsets:   lackFlags,
		},
		{
			name: "Lack.Parameters",
			usage: `
              Lack.Parameters is the table of [xk, A] rows to evaluate, as a
              JSON array on the command line or an array in the configuration file.`,
			defaultVal: string(table),
			flagsets:   lackFlags,
		},
		{
			name: "CacheSize",
			usage: `
              CacheSize is the number of simulated trajectories kept in memory.`,
			defaultVal: 1000,
			flagsets:   revFlags,
		},
		{
			name: "Integrator.RelTol",
			usage: `
              Integrator.RelTol is the relative error tolerance of each step.`,
			defaultVal: ivp.DefaultRelTol,
			flagsets:   revFlags,
		},
		{
			name: "Integrator.AbsTol",
			usage: `
              Integrator.AbsTol is the absolute error tolerance of each step.`,
			defaultVal: ivp.DefaultAbsTol,
			flagsets:   revFlags,
		},
		{
			name: "Integrator.MaxSteps",
			usage: `
              Integrator.MaxSteps is the step budget of one simulation.`,
			defaultVal: ivp.DefaultMaxSteps,
			flagsets:   revFlags,
		},
		{
			name: "Reverchon.Simulate.InitialQ",
			usage: `
              Reverchon.Simulate.InitialQ is the initial solid loading.`,
			defaultVal: 0.0,
			flagsets:   simFlags,
		},
		{
			name: "Reverchon.Simulate.InitialC",
			usage: `
              Reverchon.Simulate.InitialC is the initial fluid concentration.`,
			defaultVal: 0.0,
			flagsets:   simFlags,
		},
		{
			name: "Reverchon.Simulate.TEnd",
			usage: `
              Reverchon.Simulate.TEnd is the end of the simulation [min].`,
			defaultVal: 3000.0,
			flagsets:   simFlags,
		},
		{
			name: "Reverchon.Simulate.Points",
			usage: `
              Reverchon.Simulate.Points is the number of output times on [0, TEnd].`,
			defaultVal: 30,
			flagsets:   simFlags,
		},
		{
			name: "Reverchon.Fit.InitialQ",
			usage: `
              Reverchon.Fit.InitialQ is the initial solid loading of fitted runs.`,
			defaultVal: 1.0,
			flagsets:   fitFlags,
		},
		{
			name: "Reverchon.Fit.InitialC",
			usage: `
              Reverchon.Fit.InitialC is the initial fluid concentration of fitted runs.`,
			defaultVal: 0.0,
			flagsets:   fitFlags,
		},
		{
			name: "Reverchon.Fit.GuessDi",
			usage: `
              Reverchon.Fit.GuessDi is the starting internal diffusivity.`,
			defaultVal: 0.2,
			flagsets:   fitFlags,
		},
		{
			name: "Reverchon.Fit.GuessKp",
			usage: `
              Reverchon.Fit.GuessKp is the starting partition coefficient.`,
			defaultVal: 0.3,
			flagsets:   fitFlags,
		},
		{
			name: "Reverchon.Fit.Method",
			usage: `
              Reverchon.Fit.Method is the search method: neldermead or bfgs.`,
			defaultVal: "neldermead",
			flagsets:   fitFlags,
		},
		{
			name: "Reverchon.Fit.MaxIterations",
			usage: `
              Reverchon.Fit.MaxIterations bounds the number of search iterations.`,
			defaultVal: reverchon.DefaultMaxIterations,
			flagsets:   fitFlags,
		},
		{
			name: "Reverchon.Fit.MaxEvaluations",
			usage: `
              Reverchon.Fit.MaxEvaluations bounds the number of objective evaluations.`,
			defaultVal: reverchon.DefaultMaxEvaluations,
			flagsets:   fitFlags,
		},
		{
			name: "Reverchon.Fit.Tolerance",
			usage: `
              Reverchon.Fit.Tolerance is the objective improvement below which
              the search has converged.`,
			defaultVal: reverchon.DefaultTolerance,
			flagsets:   fitFlags,
		},
		{
			name: "Reverchon.Fit.Timeout",
			usage: `
              Reverchon.Fit.Timeout bounds the wall time of the fit, e.g. "10m".
              Zero means no limit.`,
			defaultVal: "0s",
			flagsets:   fitFlags,
		},
		{
			name: "Reverchon.Fit.DataFile",
			usage: `
              Reverchon.Fit.DataFile is a TOML file holding the observations as
              x = [...] and y = [...]. If empty, the reference dataset is used.`,
			defaultVal: "",
			flagsets:   fitFlags,
		},
		{
			name: "Reverchon.Fit.SplinePoints",
			usage: `
              Reverchon.Fit.SplinePoints is the number of times the fitted model
              is simulated at before smoothing.`,
			defaultVal: 30,
			flagsets:   fitFlags,
		},
		{
			name: "Reverchon.Fit.EvalPoints",
			usage: `
              Reverchon.Fit.EvalPoints is the number of points on the smoothed
              model curve.`,
			defaultVal: 200,
			flagsets:   fitFlags,
		},
	}
	for _, c := range []struct {
		name, usage string
		val         interface{}
	}{
		{"P", "pressure [MPa]", rc.P},
		{"T", "temperature [K]", rc.T},
		{"Q", "solvent flow rate [g/min]", rc.Q},
		{"Porosity", "bed void fraction", rc.Porosity},
		{"Rho", "solvent density [kg/m³]", rc.Rho},
		{"Mu", "solvent viscosity [Pa s]", rc.Mu},
		{"Dp", "particle diameter [m]", rc.Dp},
		{"Dl", "axial dispersion coefficient [m²/s]", rc.Dl},
		{"De", "effective diffusivity [m²/s]", rc.De},
		{"Di", "internal diffusivity used for simulation [m²/s]", rc.Di},
		{"U", "superficial velocity [m/s]", rc.U},
		{"Kf", "external mass transfer coefficient [m/s]", rc.Kf},
		{"BedDiameter", "bed diameter [m]", rc.BedDiameter},
		{"W", "bed mass [kg]", rc.W},
		{"Kp", "partition coefficient used for simulation", rc.Kp},
		{"R", "particle radius [m]", rc.R},
		{"N", "number of bed stages", rc.N},
		{"V", "extractor volume", rc.V},
		{"C0", "initial fluid concentration", rc.C0},
		{"Cn", "fluid concentration at the outlet", rc.Cn},
		{"Cm", "minimum fluid concentration", rc.Cm},
	} {
		options = append(options, option{
			name:       "Reverchon." + c.name,
			usage:      "\n              Reverchon." + c.name + " is the " + c.usage + ".",
			defaultVal: c.val,
			flagsets:   revFlags,
		})
	}

	// Set the prefix for configuration environment variables.
	cfg.SetEnvPrefix("SFEX")
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic(fmt.Errorf("invalid default for option %s: %#v", option.name, option.defaultVal))
			}
			if err := cfg.BindPFlag(option.name, set.Lookup(option.name)); err != nil {
				panic(err)
			}
		}
	}
	return cfg
}

// setConfig finds and reads in the configuration file, if there is one.
func (cfg *Cfg) setConfig() error {
	if cfgpath := cfg.GetString("config"); cfgpath != "" {
		cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("sfexutil: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// checkStruct runs the validate tags of v, naming the configuration section
// in the error.
func checkStruct(section string, v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("sfexutil: invalid %s configuration: %w", section, err)
	}
	return nil
}

// newLogger returns a logger writing to cmd's error stream at the configured
// level.
func (cfg *Cfg) newLogger(cmd *cobra.Command) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.GetString("LogLevel"))
	if err != nil {
		return nil, fmt.Errorf("sfexutil: LogLevel: %w", err)
	}
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(level)
	return log, nil
}

// lackConfig is the decoded configuration of the lack command.
type lackConfig struct {
	Constants  lack.Constants
	GridPoints int               `validate:"gte=2"`
	Parameters []lack.Parameters `validate:"min=1"`
}

func (cfg *Cfg) lackConfig() (*lackConfig, error) {
	table, err := toParameters(cfg.Get("Lack.Parameters"))
	if err != nil {
		return nil, fmt.Errorf("sfexutil: Lack.Parameters: %w", err)
	}
	c := &lackConfig{
		Constants: lack.Constants{
			Xo:    cfg.GetFloat64("Lack.Xo"),
			Gamma: cfg.GetFloat64("Lack.Gamma"),
			Yr:    cfg.GetFloat64("Lack.Yr"),
			TAO:   cfg.GetFloat64("Lack.TAO"),
		},
		GridPoints: cfg.GetInt("Lack.GridPoints"),
		Parameters: table,
	}
	if err := checkStruct("Lack", c); err != nil {
		return nil, err
	}
	return c, nil
}

// toParameters reads a table of [xk, A] rows. On the command line the table
// is a JSON string; in a configuration file it is a nested array.
func toParameters(v interface{}) ([]lack.Parameters, error) {
	var rows []interface{}
	switch t := v.(type) {
	case [][]float64:
		for _, r := range t {
			rows = append(rows, r)
		}
	case string:
		d := json.NewDecoder(bytes.NewBufferString(t))
		if err := d.Decode(&rows); err != nil {
			return nil, err
		}
	default:
		var err error
		if rows, err = cast.ToSliceE(v); err != nil {
			return nil, err
		}
	}
	table := make([]lack.Parameters, len(rows))
	for i, r := range rows {
		var cells []float64
		switch rt := r.(type) {
		case []float64:
			cells = rt
		default:
			s, err := cast.ToSliceE(r)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			for _, c := range s {
				f, err := cast.ToFloat64E(c)
				if err != nil {
					return nil, fmt.Errorf("row %d: %w", i, err)
				}
				cells = append(cells, f)
			}
		}
		if len(cells) != 2 {
			return nil, fmt.Errorf("row %d: want [xk, A], have %v", i, r)
		}
		table[i] = lack.Parameters{Xk: cells[0], A: cells[1]}
	}
	return table, nil
}

func parameterRows(table []lack.Parameters) [][]float64 {
	rows := make([][]float64, len(table))
	for i, p := range table {
		rows[i] = []float64{p.Xk, p.A}
	}
	return rows
}

// reverchonConstants decodes the Reverchon.* physical constants.
func (cfg *Cfg) reverchonConstants() (reverchon.Constants, error) {
	f := func(name string) float64 { return cfg.GetFloat64("Reverchon." + name) }
	c := reverchon.Constants{
		P: f("P"), T: f("T"), Q: f("Q"),
		Porosity: f("Porosity"), Rho: f("Rho"), Mu: f("Mu"),
		Dp: f("Dp"), Dl: f("Dl"), De: f("De"), Di: f("Di"),
		U: f("U"), Kf: f("Kf"), BedDiameter: f("BedDiameter"),
		W: f("W"), Kp: f("Kp"), R: f("R"),
		N: cfg.GetInt("Reverchon.N"),
		V: f("V"), C0: f("C0"), Cn: f("Cn"), Cm: f("Cm"),
	}
	if err := checkStruct("Reverchon", c); err != nil {
		return c, err
	}
	return c, nil
}

// integratorConfig is the decoded Integrator section.
type integratorConfig struct {
	RelTol   float64 `validate:"gte=0"`
	AbsTol   float64 `validate:"gte=0"`
	MaxSteps int     `validate:"gte=0"`
}

// simulator builds a Simulator from the Reverchon, Integrator and CacheSize
// options.
func (cfg *Cfg) simulator(log logrus.FieldLogger) (*reverchon.Simulator, error) {
	c, err := cfg.reverchonConstants()
	if err != nil {
		return nil, err
	}
	ic := integratorConfig{
		RelTol:   cfg.GetFloat64("Integrator.RelTol"),
		AbsTol:   cfg.GetFloat64("Integrator.AbsTol"),
		MaxSteps: cfg.GetInt("Integrator.MaxSteps"),
	}
	if err := checkStruct("Integrator", ic); err != nil {
		return nil, err
	}
	return &reverchon.Simulator{
		Constants:  c,
		Integrator: ivp.DormandPrince{RelTol: ic.RelTol, AbsTol: ic.AbsTol, MaxSteps: ic.MaxSteps},
		CacheSize:  cfg.GetInt("CacheSize"),
		Log:        log,
	}, nil
}

// simulateConfig is the decoded Reverchon.Simulate section.
type simulateConfig struct {
	InitialQ float64 `validate:"gte=0"`
	InitialC float64 `validate:"gte=0"`
	TEnd     float64 `validate:"gt=0"`
	Points   int     `validate:"gte=2"`
}

func (cfg *Cfg) simulateConfig() (*simulateConfig, error) {
	c := &simulateConfig{
		InitialQ: cfg.GetFloat64("Reverchon.Simulate.InitialQ"),
		InitialC: cfg.GetFloat64("Reverchon.Simulate.InitialC"),
		TEnd:     cfg.GetFloat64("Reverchon.Simulate.TEnd"),
		Points:   cfg.GetInt("Reverchon.Simulate.Points"),
	}
	if err := checkStruct("Reverchon.Simulate", c); err != nil {
		return nil, err
	}
	return c, nil
}

// fitConfig is the decoded Reverchon.Fit section.
type fitConfig struct {
	InitialQ       float64 `validate:"gte=0"`
	InitialC       float64 `validate:"gte=0"`
	GuessDi        float64 `validate:"gt=0"`
	GuessKp        float64 `validate:"gt=0"`
	Method         reverchon.Method
	MaxIterations  int           `validate:"gte=0"`
	MaxEvaluations int           `validate:"gte=0"`
	Tolerance      float64       `validate:"gte=0"`
	Timeout        time.Duration `validate:"gte=0"`
	DataFile       string
	SplinePoints   int `validate:"gte=2"`
	EvalPoints     int `validate:"gte=2"`
}

func (cfg *Cfg) fitConfig() (*fitConfig, error) {
	method, err := reverchon.ParseMethod(cfg.GetString("Reverchon.Fit.Method"))
	if err != nil {
		return nil, fmt.Errorf("sfexutil: Reverchon.Fit.Method: %w", err)
	}
	timeout, err := cast.ToDurationE(cfg.Get("Reverchon.Fit.Timeout"))
	if err != nil {
		return nil, fmt.Errorf("sfexutil: Reverchon.Fit.Timeout: %w", err)
	}
	c := &fitConfig{
		InitialQ:       cfg.GetFloat64("Reverchon.Fit.InitialQ"),
		InitialC:       cfg.GetFloat64("Reverchon.Fit.InitialC"),
		GuessDi:        cfg.GetFloat64("Reverchon.Fit.GuessDi"),
		GuessKp:        cfg.GetFloat64("Reverchon.Fit.GuessKp"),
		Method:         method,
		MaxIterations:  cfg.GetInt("Reverchon.Fit.MaxIterations"),
		MaxEvaluations: cfg.GetInt("Reverchon.Fit.MaxEvaluations"),
		Tolerance:      cfg.GetFloat64("Reverchon.Fit.Tolerance"),
		Timeout:        timeout,
		DataFile:       os.ExpandEnv(cfg.GetString("Reverchon.Fit.DataFile")),
		SplinePoints:   cfg.GetInt("Reverchon.Fit.SplinePoints"),
		EvalPoints:     cfg.GetInt("Reverchon.Fit.EvalPoints"),
	}
	if err := checkStruct("Reverchon.Fit", c); err != nil {
		return nil, err
	}
	return c, nil
}

// dataset returns the observations named by DataFile, or the reference
// dataset, along with a name for the fit summary.
func (c *fitConfig) dataset(ctx context.Context, log logrus.FieldLogger) (reverchon.Dataset, string, error) {
	if c.DataFile == "" {
		return reverchon.ReferenceDataset(), "reference", nil
	}
	b, err := readInput(ctx, c.DataFile, log)
	if err != nil {
		return reverchon.Dataset{}, "", fmt.Errorf("sfexutil: reading dataset: %w", err)
	}
	d, err := reverchon.ReadDataset(bytes.NewReader(b))
	if err != nil {
		return reverchon.Dataset{}, "", err
	}
	return d, c.DataFile, nil
}
