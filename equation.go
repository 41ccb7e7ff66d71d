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
	"fmt"
	"math"

	"github.com/ctessum/atmos/advect"
	"github.com/ctessum/sparse"
)

// SolverPerformance reports the outcome of solving an Equation.
type SolverPerformance struct {
	Field           string
	InitialResidual float64
	FinalResidual   float64
	Iterations      int
	Converged       bool
}

func (s SolverPerformance) String() string {
	return fmt.Sprintf("GaussSeidel: Solving for %s, Initial residual = %.3g, Final residual = %.3g, No Iterations %d",
		s.Field, s.InitialResidual, s.FinalResidual, s.Iterations)
}

// Equation is a finite-volume transport equation for a scalar field
// written in the form
//	aP φP = Σ aNb φNb + b
// Terms are added by calling its methods, and Solve updates the field.
type Equation struct {
	name string
	mesh *Mesh
	psi  *sparse.DenseArray
	bc   BoundaryCondition

	diag   []float64
	nb     [6][]float64 // neighbor coefficients by face direction
	source []float64

	relax float64
	fixed map[int]float64
}

// NewEquation creates an empty equation for field psi, which is
// updated in place by Solve.
func NewEquation(name string, m *Mesh, psi *sparse.DenseArray, bc BoundaryCondition) *Equation {
	n := m.NCells()
	e := &Equation{
		name:   name,
		mesh:   m,
		psi:    psi,
		bc:     bc,
		diag:   make([]float64, n),
		source: make([]float64, n),
		relax:  1,
	}
	for d := range e.nb {
		e.nb[d] = make([]float64, n)
	}
	return e
}

// Ddt adds an implicit Euler time derivative of ρφ with time step dt [s],
// using the current field as the old-time value. If rho is nil it is
// taken to be 1.
func (e *Equation) Ddt(dt float64, rho *sparse.DenseArray) *Equation {
	vol := e.mesh.Volume().Elements
	for row, v := range vol {
		c := v / dt
		if rho != nil {
			c *= rho.Elements[row]
		}
		e.diag[row] += c
		e.source[row] += c * e.psi.Elements[row]
	}
	return e
}

// Laplacian adds the diffusion term ∇·(Γ∇φ), where gamma
// is the diffusivity [m²/s] in each cell.
func (e *Equation) Laplacian(gamma *sparse.DenseArray) *Equation {
	m := e.mesh
	g := gamma.Elements
	forEachCell(m, func(row, k, j, i int) {
		for _, d := range directions {
			fc := m.face(k, j, i, d)
			switch {
			case fc.nb >= 0:
				gf := fc.weight*g[row] + (1-fc.weight)*g[fc.nb]
				c := gf * fc.area / fc.dist
				e.nb[d][row] += c
				e.diag[row] += c
			case fc.wall && e.bc.WallFixed:
				c := g[row] * fc.area / fc.dist
				e.diag[row] += c
				e.source[row] += c * e.bc.WallValue
			}
		}
	})
	return e
}

// Div adds the bounded convection term -(∇·(uφ) - φ∇·u) using
// first-order upwind differencing. Interior faces are implicit and
// boundary inflow is explicit.
func (e *Equation) Div(f *Flux) *Equation {
	m := e.mesh
	vol := m.Volume().Elements
	psi := e.psi.Elements
	forEachCell(m, func(row, k, j, i int) {
		for _, d := range directions {
			fc := m.face(k, j, i, d)
			dx := m.width(k, j, i, d.axis())
			u := f.face(k, j, i, d)
			if d.positive() {
				u = -u // velocity into the cell
			}
			if fc.nb < 0 {
				ghost := e.bc.faceValue(psi, row, fc)
				e.source[row] += vol[row] * (advect.UpwindFlux(u, ghost, psi[row], dx) -
					advect.UpwindFlux(u, psi[row], psi[row], dx))
				continue
			}
			// Only inflow faces contribute once the continuity
			// error has been removed.
			in := vol[row] * advect.UpwindFlux(u, 1, 0, dx)
			e.nb[d][row] += in
			e.diag[row] += in
		}
	})
	return e
}

// Su adds the explicit source s [φ/s] in each cell.
func (e *Equation) Su(s *sparse.DenseArray) *Equation {
	vol := e.mesh.Volume().Elements
	for row, v := range vol {
		e.source[row] += v * s.Elements[row]
	}
	return e
}

// Sp adds the implicit sink -cφ, where c [1/s] is given for each cell.
func (e *Equation) Sp(c *sparse.DenseArray) *Equation {
	vol := e.mesh.Volume().Elements
	for row, v := range vol {
		e.diag[row] += v * c.Elements[row]
	}
	return e
}

// SuSp adds the term -cφ, implicitly where c is positive and explicitly
// where it is negative so that the diagonal is never reduced.
func (e *Equation) SuSp(c *sparse.DenseArray) *Equation {
	vol := e.mesh.Volume().Elements
	for row, v := range vol {
		cc := c.Elements[row]
		if cc > 0 {
			e.diag[row] += v * cc
		} else {
			e.source[row] -= v * cc * e.psi.Elements[row]
		}
	}
	return e
}

// Relax sets the implicit under-relaxation factor alpha, in (0, 1].
func (e *Equation) Relax(alpha float64) *Equation {
	if alpha > 0 && alpha <= 1 {
		e.relax = alpha
	}
	return e
}

// SetValues fixes the solution in the given cells to the given values.
func (e *Equation) SetValues(rows []int, values []float64) *Equation {
	if e.fixed == nil {
		e.fixed = make(map[int]float64)
	}
	for i, row := range rows {
		e.fixed[row] = values[i]
	}
	return e
}

// finalize applies relaxation and fixed values to the coefficients.
func (e *Equation) finalize() {
	psi := e.psi.Elements
	if e.relax < 1 {
		for row := range e.diag {
			d := e.diag[row] / e.relax
			e.source[row] += (d - e.diag[row]) * psi[row]
			e.diag[row] = d
		}
	}
	for row, v := range e.fixed {
		e.diag[row] = 1
		e.source[row] = v
		for d := range e.nb {
			e.nb[d][row] = 0
		}
		psi[row] = v
	}
}

// residual returns the normalized sum of the absolute row residuals.
func (e *Equation) residual() float64 {
	m := e.mesh
	psi := e.psi.Elements
	var r, norm float64
	for row := range e.diag {
		k, j, i := m.Index(row)
		s := e.source[row] - e.diag[row]*psi[row]
		for _, d := range directions {
			if c := e.nb[d][row]; c != 0 {
				s += c * psi[m.neighbor(k, j, i, d)]
			}
		}
		r += math.Abs(s)
		norm += math.Abs(e.diag[row]*psi[row]) + math.Abs(e.source[row])
	}
	return r / (norm + vSmall)
}

// Solve solves the equation with Gauss-Seidel iteration until the
// residual falls below tol or maxIter sweeps have been made. The
// equation cannot be solved again afterwards.
func (e *Equation) Solve(tol float64, maxIter int) SolverPerformance {
	e.finalize()
	m := e.mesh
	psi := e.psi.Elements
	sp := SolverPerformance{Field: e.name}
	sp.InitialResidual = e.residual()
	sp.FinalResidual = sp.InitialResidual
	if sp.InitialResidual < tol {
		sp.Converged = true
		return sp
	}
	for sp.Iterations < maxIter {
		for row := range psi {
			if e.diag[row] == 0 {
				continue
			}
			k, j, i := m.Index(row)
			s := e.source[row]
			for _, d := range directions {
				if c := e.nb[d][row]; c != 0 {
					s += c * psi[m.neighbor(k, j, i, d)]
				}
			}
			psi[row] = s / e.diag[row]
		}
		sp.Iterations++
		sp.FinalResidual = e.residual()
		if sp.FinalResidual < tol {
			sp.Converged = true
			break
		}
	}
	return sp
}
