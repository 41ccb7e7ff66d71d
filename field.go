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
	"runtime"
	"sync"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// Vector is a three-component vector.
type Vector [3]float64

// MagSqr returns the squared magnitude of v.
func (v Vector) MagSqr() float64 { return v[0]*v[0] + v[1]*v[1] + v[2]*v[2] }

// Dot returns the inner product of v and w.
func (v Vector) Dot(w Vector) float64 { return v[0]*w[0] + v[1]*w[1] + v[2]*w[2] }

// Tensor is a second-rank tensor. For a velocity gradient, T[i][j]
// holds ∂U_j/∂x_i.
type Tensor [3][3]float64

// T returns the transpose of t.
func (t Tensor) T() Tensor {
	var o Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			o[i][j] = t[j][i]
		}
	}
	return o
}

// Symm returns the symmetric part of t.
func (t Tensor) Symm() Tensor {
	var o Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			o[i][j] = 0.5 * (t[i][j] + t[j][i])
		}
	}
	return o
}

// TwoSymm returns t + tᵀ.
func (t Tensor) TwoSymm() Tensor {
	var o Tensor
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			o[i][j] = t[i][j] + t[j][i]
		}
	}
	return o
}

// Trace returns the sum of the diagonal of t.
func (t Tensor) Trace() float64 { return t[0][0] + t[1][1] + t[2][2] }

// Dev returns the deviatoric part of t.
func (t Tensor) Dev() Tensor {
	o := t
	tr := t.Trace() / 3
	for i := 0; i < 3; i++ {
		o[i][i] -= tr
	}
	return o
}

// MagSqr returns t && t.
func (t Tensor) MagSqr() float64 { return DoubleDot(t, t) }

// DoubleDot returns the double inner product a && b.
func DoubleDot(a, b Tensor) float64 {
	s := 0.
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			s += a[i][j] * b[i][j]
		}
	}
	return s
}

// BoundaryCondition specifies the value of a field at wall boundary
// faces. Boundary faces that are not walls are treated as zero-gradient.
type BoundaryCondition struct {
	// WallFixed is true when the field has a fixed value at walls.
	WallFixed bool
	// WallValue is the value at walls when WallFixed is true.
	WallValue float64
}

var (
	// ZeroGradient is a boundary condition where the field has zero
	// normal gradient at every boundary.
	ZeroGradient = BoundaryCondition{}
	// NoSlip is a boundary condition where the field is zero at walls.
	NoSlip = BoundaryCondition{WallFixed: true}
)

// faceValue returns the value of field f on face fc of cell row.
func (bc BoundaryCondition) faceValue(f []float64, row int, fc faceInfo) float64 {
	if fc.nb >= 0 {
		return fc.weight*f[row] + (1-fc.weight)*f[fc.nb]
	}
	if fc.wall && bc.WallFixed {
		return bc.WallValue
	}
	return f[row]
}

// VectorField holds the three components of a vector quantity on a mesh.
type VectorField struct {
	Mesh    *Mesh
	X, Y, Z *sparse.DenseArray
}

// NewVectorField returns a zero-valued vector field on m.
func NewVectorField(m *Mesh) *VectorField {
	return &VectorField{Mesh: m, X: m.NewField(), Y: m.NewField(), Z: m.NewField()}
}

// Component returns the field for axis a (0=x, 1=y, 2=z).
func (v *VectorField) Component(a int) *sparse.DenseArray {
	switch a {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// At returns the vector at cell row.
func (v *VectorField) At(row int) Vector {
	return Vector{v.X.Elements[row], v.Y.Elements[row], v.Z.Elements[row]}
}

// MagSqr returns the squared magnitude of v in each cell.
func (v *VectorField) MagSqr() *sparse.DenseArray {
	o := v.Mesh.NewField()
	for i := range o.Elements {
		o.Elements[i] = v.At(i).MagSqr()
	}
	return o
}

// Flux holds staggered face-normal velocities [m/s]. U has shape
// [nz, ny, nx+1], V has shape [nz, ny+1, nx] and W has shape [nz+1, ny, nx],
// so that the west face of cell (k, j, i) is U(k, j, i) and the east
// face is U(k, j, i+1).
type Flux struct {
	U, V, W *sparse.DenseArray
}

// FluxFromVelocity interpolates cell-centered velocities to faces.
// Velocity is zero on wall faces; on other non-periodic boundaries
// the adjacent cell velocity is used.
func FluxFromVelocity(u *VectorField) *Flux {
	m := u.Mesh
	f := &Flux{
		U: sparse.ZerosDense(m.Nz, m.Ny, m.Nx+1),
		V: sparse.ZerosDense(m.Nz, m.Ny+1, m.Nx),
		W: sparse.ZerosDense(m.Nz+1, m.Ny, m.Nx),
	}
	for k := 0; k < m.Nz; k++ {
		for j := 0; j < m.Ny; j++ {
			for i := 0; i < m.Nx; i++ {
				row := m.Row(k, j, i)
				for _, d := range []direction{west, south, below} {
					a := d.axis()
					fc := m.face(k, j, i, d)
					vel := NoSlip.faceValue(u.Component(a).Elements, row, fc)
					f.setFace(k, j, i, d, vel)
				}
				// The last cell along each axis also sets its positive face.
				if i == m.Nx-1 {
					f.setFace(k, j, i, east, NoSlip.faceValue(u.X.Elements, row, m.face(k, j, i, east)))
				}
				if j == m.Ny-1 {
					f.setFace(k, j, i, north, NoSlip.faceValue(u.Y.Elements, row, m.face(k, j, i, north)))
				}
				if k == m.Nz-1 {
					f.setFace(k, j, i, above, NoSlip.faceValue(u.Z.Elements, row, m.face(k, j, i, above)))
				}
			}
		}
	}
	return f
}

// faceIndex returns the array and flat index holding the velocity
// through face d of cell (k, j, i).
func (f *Flux) faceIndex(k, j, i int, d direction) (*sparse.DenseArray, int) {
	switch d {
	case west, east:
		if d == east {
			i++
		}
		return f.U, f.U.Index1d(k, j, i)
	case south, north:
		if d == north {
			j++
		}
		return f.V, f.V.Index1d(k, j, i)
	default:
		if d == above {
			k++
		}
		return f.W, f.W.Index1d(k, j, i)
	}
}

func (f *Flux) setFace(k, j, i int, d direction, v float64) {
	a, idx := f.faceIndex(k, j, i, d)
	a.Elements[idx] = v
}

// face returns the velocity through face d of cell (k, j, i) in the
// positive axis direction.
func (f *Flux) face(k, j, i int, d direction) float64 {
	a, idx := f.faceIndex(k, j, i, d)
	return a.Elements[idx]
}

// DivFlux returns the divergence of the face velocities in each cell [1/s].
func DivFlux(m *Mesh, f *Flux) *sparse.DenseArray {
	o := m.NewField()
	vol := m.Volume().Elements
	forEachCell(m, func(row, k, j, i int) {
		div := 0.
		for a := 0; a < 3; a++ {
			area := m.faceArea(k, j, i, a)
			lo, hi := direction(2*a), direction(2*a+1)
			div += (f.face(k, j, i, hi) - f.face(k, j, i, lo)) * area
		}
		o.Elements[row] = div / vol[row]
	})
	return o
}

// Grad returns the Gauss gradient of the scalar field s.
func Grad(m *Mesh, s *sparse.DenseArray, bc BoundaryCondition) *VectorField {
	g := NewVectorField(m)
	forEachCell(m, func(row, k, j, i int) {
		for a := 0; a < 3; a++ {
			lo := bc.faceValue(s.Elements, row, m.face(k, j, i, direction(2*a)))
			hi := bc.faceValue(s.Elements, row, m.face(k, j, i, direction(2*a+1)))
			g.Component(a).Elements[row] = (hi - lo) / m.width(k, j, i, a)
		}
	})
	return g
}

// GradU returns the velocity gradient tensor in each cell.
func GradU(u *VectorField) []Tensor {
	m := u.Mesh
	o := make([]Tensor, m.NCells())
	for c := 0; c < 3; c++ {
		g := Grad(m, u.Component(c), NoSlip)
		for row := range o {
			for a := 0; a < 3; a++ {
				o[row][a][c] = g.Component(a).Elements[row]
			}
		}
	}
	return o
}

// laplacian returns ∇²s in each cell.
func laplacian(m *Mesh, s *sparse.DenseArray, bc BoundaryCondition) *sparse.DenseArray {
	o := m.NewField()
	vol := m.Volume().Elements
	forEachCell(m, func(row, k, j, i int) {
		sum := 0.
		for _, d := range directions {
			fc := m.face(k, j, i, d)
			switch {
			case fc.nb >= 0:
				sum += fc.area * (s.Elements[fc.nb] - s.Elements[row]) / fc.dist
			case fc.wall && bc.WallFixed:
				sum += fc.area * (bc.WallValue - s.Elements[row]) / fc.dist
			}
		}
		o.Elements[row] = sum / vol[row]
	})
	return o
}

// LaplacianVector returns the Laplacian of each component of u.
func LaplacianVector(u *VectorField) *VectorField {
	return &VectorField{
		Mesh: u.Mesh,
		X:    laplacian(u.Mesh, u.X, NoSlip),
		Y:    laplacian(u.Mesh, u.Y, NoSlip),
		Z:    laplacian(u.Mesh, u.Z, NoSlip),
	}
}

// forEachCell concurrently runs f on every cell of m. f must only
// write to data belonging to its own cell.
func forEachCell(m *Mesh, f func(row, k, j, i int)) {
	nprocs := runtime.GOMAXPROCS(0)
	n := m.NCells()
	if nprocs > n {
		nprocs = n
	}
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			for row := pp; row < n; row += nprocs {
				k, j, i := m.Index(row)
				f(row, k, j, i)
			}
			wg.Done()
		}(pp)
	}
	wg.Wait()
}

// FieldView is a read-only view of a scalar field.
type FieldView struct {
	a *sparse.DenseArray
}

// At returns the value in cell row.
func (v FieldView) At(row int) float64 { return v.a.Elements[row] }

// Get returns the value in cell (k, j, i).
func (v FieldView) Get(k, j, i int) float64 { return v.a.Get(k, j, i) }

// Len returns the number of cells.
func (v FieldView) Len() int { return len(v.a.Elements) }

// Copy returns a copy of the underlying data.
func (v FieldView) Copy() *sparse.DenseArray { return v.a.Copy() }

// Min returns the minimum value of the field.
func (v FieldView) Min() float64 { return floats.Min(v.a.Elements) }

// Max returns the maximum value of the field.
func (v FieldView) Max() float64 { return floats.Max(v.a.Elements) }

