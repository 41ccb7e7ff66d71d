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

package sas

import (
	"testing"
)

func TestGrad(t *testing.T) {
	m, err := NewMesh(MeshConfig{Nx: 5, Ny: 1, Nz: 1, Dx: []float64{0.5}, Dy: []float64{1}, Dz: []float64{1}})
	if err != nil {
		t.Fatal(err)
	}
	x, _, _ := m.Centers()
	f := m.NewField()
	for i, xx := range x {
		f.Elements[i] = 2 * xx
	}
	g := Grad(m, f, ZeroGradient)
	for i := 1; i < m.Nx-1; i++ {
		if different(g.X.Elements[i], 2, 1.0e-10) {
			t.Errorf("cell %d: have %g, want 2", i, g.X.Elements[i])
		}
		if g.Y.Elements[i] != 0 || g.Z.Elements[i] != 0 {
			t.Errorf("cell %d: transverse gradient should be zero", i)
		}
	}
	// Boundary faces take the cell value.
	if different(g.X.Elements[0], 1, 1.0e-10) {
		t.Errorf("boundary cell: have %g, want 1", g.X.Elements[0])
	}
}

func TestGradUShear(t *testing.T) {
	m, err := NewMesh(MeshConfig{Nx: 1, Ny: 6, Nz: 1, Dx: []float64{1}, Dy: []float64{0.1}, Dz: []float64{1},
		Periodic: [3]bool{true, false, true}})
	if err != nil {
		t.Fatal(err)
	}
	u := NewVectorField(m)
	_, y, _ := m.Centers()
	for j, yy := range y {
		u.X.Elements[j] = 3 * yy
	}
	gradU := GradU(u)
	for j := 1; j < m.Ny-1; j++ {
		g := gradU[j]
		if different(g[1][0], 3, 1.0e-10) {
			t.Errorf("cell %d: dUx/dy = %g, want 3", j, g[1][0])
		}
		if s2 := 2 * g.Symm().MagSqr(); different(s2, 9, 1.0e-10) {
			t.Errorf("cell %d: S2 = %g, want 9", j, s2)
		}
		if p := DoubleDot(g, g.TwoSymm().Dev()); different(p, 9, 1.0e-10) {
			t.Errorf("cell %d: production = %g, want 9", j, p)
		}
	}
	lap := LaplacianVector(u)
	for j := 1; j < m.Ny-1; j++ {
		if l := lap.X.Elements[j]; l > 1.0e-9 || l < -1.0e-9 {
			t.Errorf("cell %d: laplacian of linear field is %g", j, l)
		}
	}
}

func TestLaplacianQuadratic(t *testing.T) {
	m, err := NewMesh(MeshConfig{Nx: 1, Ny: 8, Nz: 1, Dx: []float64{1}, Dy: []float64{1}, Dz: []float64{1}})
	if err != nil {
		t.Fatal(err)
	}
	_, y, _ := m.Centers()
	f := m.NewField()
	for j, yy := range y {
		f.Elements[j] = yy * yy
	}
	l := laplacian(m, f, ZeroGradient)
	for j := 1; j < m.Ny-1; j++ {
		if different(l.Elements[j], 2, 1.0e-10) {
			t.Errorf("cell %d: have %g, want 2", j, l.Elements[j])
		}
	}
}

func TestDivFluxUniform(t *testing.T) {
	m, err := NewMesh(MeshConfig{Nx: 3, Ny: 3, Nz: 3, Dx: []float64{1}, Dy: []float64{2}, Dz: []float64{3},
		Periodic: [3]bool{true, true, true}})
	if err != nil {
		t.Fatal(err)
	}
	u := NewVectorField(m)
	for i := range u.X.Elements {
		u.X.Elements[i] = 1
		u.Y.Elements[i] = -2
		u.Z.Elements[i] = 0.5
	}
	div := DivFlux(m, FluxFromVelocity(u))
	for i, d := range div.Elements {
		if d != 0 {
			t.Errorf("cell %d: divergence %g", i, d)
		}
	}
}

func TestFluxWalls(t *testing.T) {
	m, err := NewMesh(MeshConfig{Nx: 1, Ny: 2, Nz: 1, Dx: []float64{1}, Dy: []float64{1}, Dz: []float64{1},
		Walls: []string{YMin, YMax}})
	if err != nil {
		t.Fatal(err)
	}
	u := NewVectorField(m)
	for i := range u.Y.Elements {
		u.Y.Elements[i] = 1
	}
	f := FluxFromVelocity(u)
	if v := f.V.Get(0, 0, 0); v != 0 {
		t.Errorf("wall face velocity: have %g, want 0", v)
	}
	if v := f.V.Get(0, 1, 0); v != 1 {
		t.Errorf("interior face velocity: have %g, want 1", v)
	}
	if v := f.V.Get(0, 2, 0); v != 0 {
		t.Errorf("wall face velocity: have %g, want 0", v)
	}
}

func TestTensor(t *testing.T) {
	a := Tensor{{1, 2, 3}, {4, 5, 6}, {7, 8, 10}}
	if tr := a.Dev().Trace(); tr > 1.0e-14 || tr < -1.0e-14 {
		t.Errorf("deviatoric trace: %g", tr)
	}
	s := a.Symm()
	if s[0][1] != s[1][0] || s[0][1] != 3 {
		t.Errorf("symm: %v", s)
	}
	if a.TwoSymm() != (Tensor{{2, 6, 10}, {6, 10, 14}, {10, 14, 20}}) {
		t.Errorf("twoSymm: %v", a.TwoSymm())
	}
	if a.T()[0][2] != 7 {
		t.Errorf("transpose: %v", a.T())
	}
	if d := DoubleDot(a, Tensor{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}); d != 16 {
		t.Errorf("double dot with identity: have %g, want 16", d)
	}
}
