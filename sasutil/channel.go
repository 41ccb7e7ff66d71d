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
	"math"

	"github.com/spatialmodel/sas"
)

// vonKarman is the von Kármán constant used in the wall law.
const vonKarman = 0.41

// reichardt returns the dimensionless velocity u⁺ at dimensionless wall
// distance y⁺, following Reichardt's law of the wall, which covers the
// viscous sublayer, the buffer layer and the log layer.
func reichardt(yPlus float64) float64 {
	return math.Log(1+vonKarman*yPlus)/vonKarman +
		7.8*(1-math.Exp(-yPlus/11)-yPlus/11*math.Exp(-yPlus/3))
}

// frictionVelocity returns the friction velocity [m/s] for which the
// wall law gives velocity u at wall distance y, for kinematic
// viscosity nu.
func frictionVelocity(u, y, nu float64) float64 {
	// u⁺(y⁺)·uτ increases monotonically with uτ.
	f := func(uTau float64) float64 { return uTau*reichardt(uTau*y/nu) - u }
	lo, hi := 0., u
	for f(hi) < 0 {
		hi *= 2
	}
	for i := 0; i < 200 && hi-lo > 1e-12*hi; i++ {
		mid := (lo + hi) / 2
		if f(mid) < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// Channel creates the mesh and velocity of a flow between walls at the
// ymin and ymax patches. The streamwise velocity follows the wall law
// with the centerline velocity c.CenterlineVelocity, and a
// divergence-free vortex with amplitude c.VortexAmplitude is added to it.
// Without walls the streamwise velocity is uniform.
func Channel(c *RunConfig) (*sas.Mesh, *sas.VectorField, error) {
	if c.Nx <= 0 || c.Ny <= 0 || c.Nz <= 0 {
		return nil, nil, fmt.Errorf("sas: invalid channel size %dx%dx%d", c.Nx, c.Ny, c.Nz)
	}
	m, err := sas.NewMesh(sas.MeshConfig{
		Nx: c.Nx, Ny: c.Ny, Nz: c.Nz,
		Dx:       []float64{c.Lx / float64(c.Nx)},
		Dy:       []float64{c.Ly / float64(c.Ny)},
		Dz:       []float64{c.Lz / float64(c.Nz)},
		Periodic: c.Periodic,
		Walls:    c.Walls,
	})
	if err != nil {
		return nil, nil, err
	}

	uc := c.CenterlineVelocity
	var uTau float64
	if uc > 0 {
		uTau = frictionVelocity(uc, c.Ly/2, c.Nu)
	}
	x, y, _ := m.Centers()
	y0 := m.WallDist()
	u := sas.NewVectorField(m)
	h, a := c.Ly, c.VortexAmplitude
	for row := range u.X.Elements {
		_, j, i := m.Index(row)
		ux := uc
		if yw := y0.Elements[row]; !math.IsInf(yw, 1) && uc > 0 {
			ux = math.Min(uTau*reichardt(uTau*yw/c.Nu), uc)
		}
		sx, cx := math.Sincos(2 * math.Pi * x[i] / c.Lx)
		sy := math.Sin(math.Pi * y[j] / h)
		u.X.Elements[row] = ux + a*sx*math.Sin(2*math.Pi*y[j]/h)
		u.Y.Elements[row] = -a * 2 * h / c.Lx * cx * sy * sy
	}
	return m, u, nil
}
