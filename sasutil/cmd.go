/*
Copyright © 2017 the SAS authors.
This file is part of SAS.

SAS is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SAS is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SAS.  If not, see <http://www.gnu.org/licenses/>.
*/

package sasutil

import (
	"fmt"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/sas"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to the run driver.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Model",
			usage: `
              Model is the turbulence model to use. Options are
              kOmegaSST, kOmegaSSTSAS, and kOmegaSSTSASnew (the SAS model
              reading the kOmegaSSTSASnewCoeffs group).`,
			shorthand:  "m",
			defaultVal: sas.KOmegaSSTSASName,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), coeffsCmd.Flags()},
		},
		{
			name: "CoeffFile",
			usage: `
              CoeffFile is the path to a TOML file holding the model
              coefficient groups, for example a [kOmegaSSTSASCoeffs] table.
              The file is read again every ReadInterval iterations, so
              coefficients can be changed while the model is running.
              Missing coefficients take their default values.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), coeffsCmd.Flags()},
		},
		{
			name: "InputFile",
			usage: `
              InputFile is the path to a netCDF flow data file holding the
              velocity (Ux, Uy, Uz) to calculate turbulence for. If it is
              empty, an analytic channel flow is used instead.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Mesh.Nx",
			usage: `
              Mesh.Nx is the number of cells in the streamwise (x) direction
              of the channel case.`,
			defaultVal: 8,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Mesh.Ny",
			usage: `
              Mesh.Ny is the number of cells in the wall-normal (y) direction
              of the channel case.`,
			defaultVal: 32,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Mesh.Nz",
			usage: `
              Mesh.Nz is the number of cells in the spanwise (z) direction
              of the channel case.`,
			defaultVal: 4,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Mesh.Lx",
			usage: `
              Mesh.Lx is the length of the channel case [m].`,
			defaultVal: 0.2,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Mesh.Ly",
			usage: `
              Mesh.Ly is the height of the channel case [m].`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Mesh.Lz",
			usage: `
              Mesh.Lz is the width of the channel case [m].`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Mesh.Periodic",
			usage: `
              Mesh.Periodic lists the periodic axes (x, y, or z).`,
			defaultVal: []string{"x", "z"},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Mesh.Walls",
			usage: `
              Mesh.Walls lists the boundary patches that are walls
              (xmin, xmax, ymin, ymax, zmin, or zmax).`,
			defaultVal: []string{sas.YMin, sas.YMax},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Case.CenterlineVelocity",
			usage: `
              Case.CenterlineVelocity is the velocity at the center of the
              channel case [m/s].`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Case.VortexAmplitude",
			usage: `
              Case.VortexAmplitude is the amplitude of a vortex added to the
              channel case to create resolved flow structures [m/s].`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Nu",
			usage: `
              Nu is the laminar kinematic viscosity of the fluid [m²/s].`,
			defaultVal: 1.5e-5,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "NumIterations",
			usage: `
              NumIterations is the number of turbulence corrections to run.`,
			defaultVal: 100,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ReadInterval",
			usage: `
              ReadInterval is the number of iterations between re-reading
              the model coefficients. If it is zero, the coefficients are only
              read when the model is created.`,
			defaultVal: 10,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Controls.DeltaT",
			usage: `
              Controls.DeltaT is the pseudo time step used when solving the
              k and omega equations [s].`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Controls.RelaxK",
			usage: `
              Controls.RelaxK is the under-relaxation factor for k.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Controls.RelaxOmega",
			usage: `
              Controls.RelaxOmega is the under-relaxation factor for omega.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Controls.Tolerance",
			usage: `
              Controls.Tolerance is the residual tolerance of the linear solver.`,
			defaultVal: 1.0e-8,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Controls.MaxIterations",
			usage: `
              Controls.MaxIterations is the maximum number of linear solver
              sweeps per equation.`,
			defaultVal: 200,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the netCDF file where the results
              should be written. Environment variables such as $HOME are
              expanded.`,
			shorthand:  "o",
			defaultVal: "sas_output.nc",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "PlotFile",
			usage: `
              PlotFile is the path to a PNG file where wall-normal profiles
              of the results should be plotted. If it is empty, no plot is
              created.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can
              include environment variables. If LogFile is left blank, the
              logfile will be saved in the same location as the OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of log messages to write
              (debug, info, warning, or error).`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("SAS")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				Cfg.BindPFlag(option.name, set.Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
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
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(coeffsCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("sas: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "sas",
	Short: "A scale-adaptive turbulence model.",
	Long: `sas calculates turbulence fields for a given velocity field using the
k-omega-SST RANS model or its scale-adaptive simulation (SAS) variant.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'SAS_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of sas.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("sas v%s\n", sas.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd is a command that runs the turbulence model.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the turbulence model.",
	Long: `run calculates turbulence fields for the velocity in InputFile, or for
an analytic channel flow if no InputFile is given, and writes them to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := RunConfigFromViper(Cfg)
		if err != nil {
			return err
		}
		return Run(cmd.OutOrStdout(), c)
	},
	DisableAutoGenTag: true,
}

// coeffsCmd is a command that prints the resolved model coefficients.
var coeffsCmd = &cobra.Command{
	Use:   "coeffs",
	Short: "Print the model coefficients.",
	Long: `coeffs prints the coefficients of the selected Model after they have
been read from CoeffFile, with defaults filled in for missing values.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tables, err := Coefficients(Cfg.GetString("Model"), coeffSource(Cfg.GetString("CoeffFile")))
		if err != nil {
			return err
		}
		for _, t := range tables {
			cmd.Print(t)
		}
		return nil
	},
	DisableAutoGenTag: true,
}
