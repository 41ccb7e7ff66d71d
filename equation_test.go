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

func oneDMesh(t *testing.T, n int, walls ...string) *Mesh {
	m, err := NewMesh(MeshConfig{Nx: 1, Ny: n, Nz: 1, Dx: []float64{1}, Dy: []float64{1 / float64(n)},
		Dz: []float64{1}, Periodic: [3]bool{true, false, true}, Walls: walls})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// Steady diffusion with a uniform source between two walls has a
// parabolic solution.
func TestEquationDiffusion(t *testing.T) {
	const (
		n     = 20
		gamma = 0.5
		s     = 2.0
	)
	m := oneDMesh(t, n, YMin, YMax)
	phi := m.NewField()
	sp := NewEquation("phi", m, phi, NoSlip).
		Laplacian(m.UniformField(gamma)).
		Su(m.UniformField(s)).
		Solve(1.0e-12, 10000)
	if !sp.Converged {
		t.Fatalf("did not converge: %v", sp)
	}
	if sp.Iterations == 0 || sp.FinalResidual >= sp.InitialResidual {
		t.Errorf("bad solver performance: %v", sp)
	}
	_, y, _ := m.Centers()
	for j, yy := range y {
		want := s / (2 * gamma) * yy * (1 - yy)
		if different(phi.Elements[j], want, 0.05) {
			t.Errorf("cell %d: have %g, want %g", j, phi.Elements[j], want)
		}
	}
}

func TestEquationSourceSink(t *testing.T) {
	m := oneDMesh(t, 4)
	phi := m.UniformField(1)
	NewEquation("phi", m, phi, ZeroGradient).
		Su(m.UniformField(6)).
		Sp(m.UniformField(3)).
		Solve(1.0e-12, 10)
	for i, v := range phi.Elements {
		if different(v, 2, 1.0e-10) {
			t.Errorf("cell %d: have %g, want 2", i, v)
		}
	}
}

func TestEquationSuSp(t *testing.T) {
	m := oneDMesh(t, 3)

	// A negative coefficient is an explicit source.
	phi := m.UniformField(2)
	NewEquation("phi", m, phi, ZeroGradient).
		Ddt(1, nil).
		SuSp(m.UniformField(-0.5)).
		Solve(1.0e-12, 10)
	for i, v := range phi.Elements {
		if different(v, 3, 1.0e-10) {
			t.Errorf("explicit cell %d: have %g, want 3", i, v)
		}
	}

	// A positive coefficient is an implicit sink.
	phi = m.UniformField(2)
	NewEquation("phi", m, phi, ZeroGradient).
		Ddt(1, nil).
		SuSp(m.UniformField(1)).
		Solve(1.0e-12, 10)
	for i, v := range phi.Elements {
		if different(v, 1, 1.0e-10) {
			t.Errorf("implicit cell %d: have %g, want 1", i, v)
		}
	}
}

func TestEquationRelax(t *testing.T) {
	m := oneDMesh(t, 2)
	phi := m.UniformField(0)
	NewEquation("phi", m, phi, ZeroGradient).
		Sp(m.UniformField(1)).
		Su(m.UniformField(4)).
		Relax(0.5).
		Solve(1.0e-12, 10)
	// The relaxed solution moves half way from 0 to 4.
	for i, v := range phi.Elements {
		if different(v, 2, 1.0e-10) {
			t.Errorf("cell %d: have %g, want 2", i, v)
		}
	}
}

func TestEquationSetValues(t *testing.T) {
	m := oneDMesh(t, 5)
	phi := m.NewField()
	NewEquation("phi", m, phi, ZeroGradient).
		Laplacian(m.UniformField(1)).
		SetValues([]int{0, 4}, []float64{1, 3}).
		Solve(1.0e-12, 10000)
	for j, want := range []float64{1, 1.5, 2, 2.5, 3} {
		if different(phi.Elements[j], want, 1.0e-6) {
			t.Errorf("cell %d: have %g, want %g", j, phi.Elements[j], want)
		}
	}
}

func TestEquationConvection(t *testing.T) {
	m, err := NewMesh(MeshConfig{Nx: 4, Ny: 1, Nz: 1, Dx: []float64{0.25}, Dy: []float64{1}, Dz: []float64{1},
		Periodic: [3]bool{true, true, true}})
	if err != nil {
		t.Fatal(err)
	}
	u := NewVectorField(m)
	for i := range u.X.Elements {
		u.X.Elements[i] = 1
	}
	phi := m.NewField()
	phi.Elements[1] = 1
	NewEquation("phi", m, phi, ZeroGradient).
		Ddt(0.25, nil).
		Div(FluxFromVelocity(u)).
		Solve(1.0e-14, 1000)
	// Upwinding moves the pulse downstream and conserves its mass.
	for i, want := range []float64{1. / 15, 8. / 15, 4. / 15, 2. / 15} {
		if different(phi.Elements[i], want, 1.0e-8) {
			t.Errorf("cell %d: have %g, want %g", i, phi.Elements[i], want)
		}
	}
}
