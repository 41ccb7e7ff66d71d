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
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/sas"
)

// RunConfig holds the settings for a model run.
type RunConfig struct {
	Model     string
	CoeffFile string
	InputFile string

	// Mesh settings for the channel case.
	Nx, Ny, Nz int
	Lx, Ly, Lz float64
	Periodic   [3]bool
	Walls      []string

	// Velocity settings for the channel case [m/s].
	CenterlineVelocity float64
	VortexAmplitude    float64

	Nu float64 // m²/s

	NumIterations int
	ReadInterval  int
	Controls      sas.Controls

	OutputFile string
	PlotFile   string
	LogFile    string
	LogLevel   logrus.Level
}

// RunConfigFromViper reads and checks the run settings held by cfg.
func RunConfigFromViper(cfg *viper.Viper) (*RunConfig, error) {
	c := &RunConfig{
		Model:              cfg.GetString("Model"),
		CoeffFile:          os.ExpandEnv(cfg.GetString("CoeffFile")),
		InputFile:          os.ExpandEnv(cfg.GetString("InputFile")),
		Nx:                 cfg.GetInt("Mesh.Nx"),
		Ny:                 cfg.GetInt("Mesh.Ny"),
		Nz:                 cfg.GetInt("Mesh.Nz"),
		Lx:                 cfg.GetFloat64("Mesh.Lx"),
		Ly:                 cfg.GetFloat64("Mesh.Ly"),
		Lz:                 cfg.GetFloat64("Mesh.Lz"),
		Walls:              expandStringSlice(cfg.GetStringSlice("Mesh.Walls")),
		CenterlineVelocity: cfg.GetFloat64("Case.CenterlineVelocity"),
		VortexAmplitude:    cfg.GetFloat64("Case.VortexAmplitude"),
		Nu:                 cfg.GetFloat64("Nu"),
		NumIterations:      cfg.GetInt("NumIterations"),
		ReadInterval:       cfg.GetInt("ReadInterval"),
		Controls: sas.Controls{
			DeltaT:        cfg.GetFloat64("Controls.DeltaT"),
			RelaxK:        cfg.GetFloat64("Controls.RelaxK"),
			RelaxOmega:    cfg.GetFloat64("Controls.RelaxOmega"),
			Tolerance:     cfg.GetFloat64("Controls.Tolerance"),
			MaxIterations: cfg.GetInt("Controls.MaxIterations"),
		},
		PlotFile: os.ExpandEnv(cfg.GetString("PlotFile")),
	}

	var err error
	c.Periodic, err = checkPeriodic(expandStringSlice(cfg.GetStringSlice("Mesh.Periodic")))
	if err != nil {
		return nil, err
	}
	if c.NumIterations < 0 {
		return nil, fmt.Errorf("sas: NumIterations must not be negative, but it is %d", c.NumIterations)
	}
	if c.ReadInterval < 0 {
		return nil, fmt.Errorf("sas: ReadInterval must not be negative, but it is %d", c.ReadInterval)
	}
	if err := c.Controls.Validate(); err != nil {
		return nil, err
	}
	if c.Nu <= 0 {
		return nil, fmt.Errorf("sas: Nu must be positive, but it is %g", c.Nu)
	}
	c.OutputFile, err = checkOutputFile(cfg.GetString("OutputFile"))
	if err != nil {
		return nil, err
	}
	c.LogFile = checkLogFile(os.ExpandEnv(cfg.GetString("LogFile")), c.OutputFile)
	c.LogLevel, err = logrus.ParseLevel(cfg.GetString("LogLevel"))
	if err != nil {
		return nil, fmt.Errorf("sas: invalid LogLevel: %v", err)
	}
	return c, nil
}

// checkOutputFile expands any environment variables in f and makes
// sure the directory it is in exists.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.nc"`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("sas: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}

// checkPeriodic converts a list of axis names to periodicity flags.
func checkPeriodic(axes []string) ([3]bool, error) {
	var p [3]bool
	for _, a := range axes {
		switch strings.ToLower(a) {
		case "x":
			p[0] = true
		case "y":
			p[1] = true
		case "z":
			p[2] = true
		default:
			return p, fmt.Errorf("sas: invalid periodic axis %q; valid axes are x, y, and z", a)
		}
	}
	return p, nil
}

// expandStringSlice expands the environment variables in every item
// of s.
func expandStringSlice(s []string) []string {
	o := make([]string, len(s))
	for i, v := range s {
		o[i] = os.ExpandEnv(v)
	}
	return o
}

// coeffSource returns the coefficient source for the coefficient file
// path f.
func coeffSource(f string) sas.DictSource {
	if f == "" {
		return sas.NewStaticDict(nil)
	}
	return sas.TOMLFile(os.ExpandEnv(f))
}

// Coefficients returns tables of the coefficients of the named model
// as read from source.
func Coefficients(model string, source sas.DictSource) ([]string, error) {
	sets, err := sas.ReadCoefficients(model, source)
	if err != nil {
		return nil, err
	}
	o := make([]string, len(sets))
	for i, s := range sets {
		o[i] = s.String()
	}
	return o, nil
}
