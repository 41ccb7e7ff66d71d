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
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/sas"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Run creates the model configured in c, corrects it c.NumIterations
// times and writes the results to c.OutputFile, and to c.PlotFile if it
// is set. Log messages are written to w and to c.LogFile.
func Run(w io.Writer, c *RunConfig) error {
	logfile, err := os.Create(c.LogFile)
	if err != nil {
		return fmt.Errorf("sas: problem creating log file: %v", err)
	}
	defer logfile.Close()
	log := logrus.New()
	log.Out = io.MultiWriter(w, logfile)
	log.Formatter = &logrus.TextFormatter{DisableColors: true}
	log.Level = c.LogLevel

	m, u, err := loadFlow(c)
	if err != nil {
		return err
	}
	phi := sas.FluxFromVelocity(u)

	model, err := sas.New(c.Model, nil, nil, u, nil, phi, sas.NewNewtonian(c.Nu),
		coeffSource(c.CoeffFile), sas.WithLogger(log), sas.WithControls(c.Controls))
	if err != nil {
		return err
	}

	for i := 0; i < c.NumIterations; i++ {
		model.Correct()
		if c.ReadInterval > 0 && (i+1)%c.ReadInterval == 0 {
			changed, err := model.Read()
			if err != nil {
				return err
			}
			if changed {
				log.WithField("iteration", i+1).Info("coefficients re-read")
			}
		}
		log.WithFields(logrus.Fields{
			"iteration": i + 1,
			"k":         [2]float64{model.K().Min(), model.K().Max()},
			"nut":       [2]float64{model.Nut().Min(), model.Nut().Max()},
		}).Debug("iteration complete")
	}

	d := results(m, u, model)
	f, err := os.Create(c.OutputFile)
	if err != nil {
		return fmt.Errorf("sas: problem creating output file: %v", err)
	}
	if err := d.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"file":       c.OutputFile,
		"iterations": c.NumIterations,
	}).Info("wrote results")

	if c.PlotFile != "" {
		if err := plotProfiles(m, d, c.PlotFile); err != nil {
			return err
		}
		log.WithField("file", c.PlotFile).Info("wrote profile plot")
	}
	return nil
}

// loadFlow returns the mesh and velocity from c.InputFile, or the
// channel case if no input file is given.
func loadFlow(c *RunConfig) (*sas.Mesh, *sas.VectorField, error) {
	if c.InputFile == "" {
		return Channel(c)
	}
	f, err := os.Open(c.InputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("sas: problem opening InputFile: %v", err)
	}
	defer f.Close()
	d, err := sas.LoadFlowData(f)
	if err != nil {
		return nil, nil, err
	}
	m, err := d.Mesh(c.Periodic, c.Walls)
	if err != nil {
		return nil, nil, err
	}
	u, err := d.Velocity(m)
	if err != nil {
		return nil, nil, err
	}
	return m, u, nil
}

// results gathers the velocity and turbulence fields of model.
func results(m *sas.Mesh, u *sas.VectorField, model sas.TurbulenceClosure) *sas.FlowData {
	d := sas.NewFlowData(m)
	d.AddVelocity(u)
	d.AddField("k", "turbulence kinetic energy", "m2 s-2", model.K().Copy())
	d.AddField("omega", "specific dissipation rate", "s-1", model.Omega().Copy())
	d.AddField("nut", "turbulent kinematic viscosity", "m2 s-1", model.Nut().Copy())
	d.AddField("wallDist", "distance to the nearest wall", "m", m.WallDist().Copy())
	switch t := model.(type) {
	case *sas.KOmegaSST:
		d.AddField("epsilon", "turbulence dissipation rate", "m2 s-3", t.Epsilon())
	case *sas.KOmegaSSTSAS:
		d.AddField("epsilon", "turbulence dissipation rate", "m2 s-3", t.Base().Epsilon())
		d.AddField("Qsas", "scale-adaptive source in the omega equation", "s-2", t.Qsas().Copy())
		d.AddField("Lvk", "von Kármán length scale", "m", t.Lvk().Copy())
		d.AddField("delta", "filter width ("+t.DeltaName()+")", "m", t.Delta().Copy())
	}
	return d
}

// profileVariables are plotted by plotProfiles when they are present.
var profileVariables = []string{"k", "omega", "nut", "Qsas"}

// plotProfiles plots the wall-normal profiles of the turbulence fields
// in d, averaged over x and z and normalized by their maximum values,
// to a PNG file.
func plotProfiles(m *sas.Mesh, d *sas.FlowData, file string) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = "Wall-normal profiles"
	p.X.Label.Text = "y (m)"
	p.Y.Label.Text = "value / max"
	_, y, _ := m.Centers()

	var lines []interface{}
	for _, name := range profileVariables {
		v, ok := d.Data[name]
		if !ok {
			continue
		}
		prof := profile(m, v.Data.Elements)
		max := floats.Max(prof)
		xy := make(plotter.XYs, len(prof))
		for j, pv := range prof {
			xy[j].X = y[j]
			if max > 0 {
				xy[j].Y = pv / max
			}
		}
		lines = append(lines, name, xy)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return err
	}
	return p.Save(5*vg.Inch, 4*vg.Inch, file)
}

// profile averages the cell values v over the x and z directions.
func profile(m *sas.Mesh, v []float64) []float64 {
	o := make([]float64, m.Ny)
	for row, val := range v {
		_, j, _ := m.Index(row)
		o[j] += val
	}
	n := float64(m.Nx * m.Nz)
	for j := range o {
		o[j] /= n
	}
	return o
}
