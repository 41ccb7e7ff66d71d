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

	"github.com/ctessum/sparse"
)

// Names of the six boundary patches of a Mesh.
const (
	XMin = "xmin"
	XMax = "xmax"
	YMin = "ymin"
	YMax = "ymax"
	ZMin = "zmin"
	ZMax = "zmax"
)

// direction is one of the six face directions of a cell.
type direction int

const (
	west direction = iota
	east
	south
	north
	below
	above
)

var directions = [6]direction{west, east, south, north, below, above}

var patchNames = [6]string{XMin, XMax, YMin, YMax, ZMin, ZMax}

// axis returns the coordinate axis (0=x, 1=y, 2=z) normal to d.
func (d direction) axis() int { return int(d) / 2 }

// positive reports whether d points in the positive axis direction.
func (d direction) positive() bool { return int(d)%2 == 1 }

// MeshConfig holds the information needed to create a structured
// Cartesian Mesh.
type MeshConfig struct {
	Nx, Ny, Nz int // Number of cells in each direction

	// Dx, Dy, and Dz are cell edge lengths [m] along each axis. They
	// can either have one value per cell index or a single value
	// that is used for every index.
	Dx, Dy, Dz []float64

	// Periodic specifies whether the x, y, and z axes wrap around.
	Periodic [3]bool

	// Walls lists the boundary patches that are no-slip walls.
	// Valid names are xmin, xmax, ymin, ymax, zmin, and zmax.
	Walls []string
}

// Mesh is a structured Cartesian finite-volume mesh. Field data on
// the mesh is stored in arrays with shape [Nz, Ny, Nx].
type Mesh struct {
	Nx, Ny, Nz int
	Dx, Dy, Dz []float64 // cell edge lengths [m]

	periodic [3]bool
	walls    [6]bool

	volume   *sparse.DenseArray // m³
	wallDist *sparse.DenseArray // m

	// version is incremented whenever the cell geometry changes.
	version uint64
}

// NewMesh creates a new mesh from the given configuration.
func NewMesh(c MeshConfig) (*Mesh, error) {
	if c.Nx < 1 || c.Ny < 1 || c.Nz < 1 {
		return nil, &ConfigurationError{Group: "mesh",
			Err: fmt.Errorf("mesh dimensions must be >= 1 but are %dx%dx%d", c.Nx, c.Ny, c.Nz)}
	}
	m := &Mesh{Nx: c.Nx, Ny: c.Ny, Nz: c.Nz, periodic: c.Periodic}
	var err error
	if m.Dx, err = spacing("Dx", c.Dx, c.Nx); err != nil {
		return nil, err
	}
	if m.Dy, err = spacing("Dy", c.Dy, c.Ny); err != nil {
		return nil, err
	}
	if m.Dz, err = spacing("Dz", c.Dz, c.Nz); err != nil {
		return nil, err
	}
	for _, w := range c.Walls {
		found := false
		for i, name := range patchNames {
			if w == name {
				if c.Periodic[direction(i).axis()] {
					return nil, &ConfigurationError{Group: "mesh", Key: w,
						Err: fmt.Errorf("patch %s cannot be a wall on a periodic axis", w)}
				}
				m.walls[i] = true
				found = true
			}
		}
		if !found {
			return nil, &ConfigurationError{Group: "mesh", Key: w,
				Err: fmt.Errorf("invalid wall patch name %q", w)}
		}
	}
	m.calcGeometry()
	return m, nil
}

func spacing(name string, d []float64, n int) ([]float64, error) {
	var o []float64
	switch len(d) {
	case 1:
		o = make([]float64, n)
		for i := range o {
			o[i] = d[0]
		}
	case n:
		o = make([]float64, n)
		copy(o, d)
	default:
		return nil, &ConfigurationError{Group: "mesh", Key: name,
			Err: fmt.Errorf("has %d values but should have 1 or %d", len(d), n)}
	}
	for i, v := range o {
		if !(v > 0) {
			return nil, &ConfigurationError{Group: "mesh", Key: name,
				Err: fmt.Errorf("%s[%d]=%g but should be >0", name, i, v)}
		}
	}
	return o, nil
}

// calcGeometry calculates cell volumes and wall distances and
// increments the geometry version.
func (m *Mesh) calcGeometry() {
	m.volume = m.NewField()
	m.wallDist = m.NewField()
	x, y, z := m.Centers()
	lx, ly, lz := sum(m.Dx), sum(m.Dy), sum(m.Dz)
	for k := 0; k < m.Nz; k++ {
		for j := 0; j < m.Ny; j++ {
			for i := 0; i < m.Nx; i++ {
				row := m.Row(k, j, i)
				m.volume.Elements[row] = m.Dx[i] * m.Dy[j] * m.Dz[k]
				dists := [6]float64{x[i], lx - x[i], y[j], ly - y[j], z[k], lz - z[k]}
				d := math.Inf(1)
				for w, isWall := range m.walls {
					if isWall && dists[w] < d {
						d = dists[w]
					}
				}
				m.wallDist.Elements[row] = d
			}
		}
	}
	m.version++
}

func sum(v []float64) float64 {
	s := 0.
	for _, vv := range v {
		s += vv
	}
	return s
}

// Stretch multiplies the cell edge lengths along each axis by the given
// factors, for example to follow a moving or refined mesh. It increments
// the geometry version.
func (m *Mesh) Stretch(fx, fy, fz float64) {
	for i := range m.Dx {
		m.Dx[i] *= fx
	}
	for j := range m.Dy {
		m.Dy[j] *= fy
	}
	for k := range m.Dz {
		m.Dz[k] *= fz
	}
	m.calcGeometry()
}

// Version returns a counter that changes whenever the geometry
// of the mesh changes.
func (m *Mesh) Version() uint64 { return m.version }

// NCells returns the number of cells in the mesh.
func (m *Mesh) NCells() int { return m.Nx * m.Ny * m.Nz }

// NewField returns a new zero-valued scalar field on the mesh.
func (m *Mesh) NewField() *sparse.DenseArray {
	return sparse.ZerosDense(m.Nz, m.Ny, m.Nx)
}

// UniformField returns a new scalar field with every cell set to v.
func (m *Mesh) UniformField(v float64) *sparse.DenseArray {
	f := m.NewField()
	for i := range f.Elements {
		f.Elements[i] = v
	}
	return f
}

// Row returns the flat cell index of cell (k, j, i).
func (m *Mesh) Row(k, j, i int) int {
	return (k*m.Ny+j)*m.Nx + i
}

// Index returns the (k, j, i) index of the cell at flat index row.
func (m *Mesh) Index(row int) (k, j, i int) {
	i = row % m.Nx
	j = (row / m.Nx) % m.Ny
	k = row / (m.Nx * m.Ny)
	return
}

// Volume returns cell volumes [m³].
func (m *Mesh) Volume() *sparse.DenseArray { return m.volume }

// WallDist returns the distance from each cell center to the
// nearest wall [m]. It is +Inf when the mesh has no walls.
func (m *Mesh) WallDist() *sparse.DenseArray { return m.wallDist }

// HasWalls reports whether any boundary patch is a wall.
func (m *Mesh) HasWalls() bool {
	for _, w := range m.walls {
		if w {
			return true
		}
	}
	return false
}

// Centers returns the cell center coordinates along each axis,
// measured from the lower corner of the domain.
func (m *Mesh) Centers() (x, y, z []float64) {
	centers := func(d []float64) []float64 {
		c := make([]float64, len(d))
		pos := 0.
		for i, v := range d {
			c[i] = pos + v/2
			pos += v
		}
		return c
	}
	return centers(m.Dx), centers(m.Dy), centers(m.Dz)
}

// width returns the edge length of cell (k, j, i) along axis a.
func (m *Mesh) width(k, j, i, a int) float64 {
	switch a {
	case 0:
		return m.Dx[i]
	case 1:
		return m.Dy[j]
	default:
		return m.Dz[k]
	}
}

// faceArea returns the area of the face of cell (k, j, i) normal to axis a.
func (m *Mesh) faceArea(k, j, i, a int) float64 {
	switch a {
	case 0:
		return m.Dy[j] * m.Dz[k]
	case 1:
		return m.Dx[i] * m.Dz[k]
	default:
		return m.Dx[i] * m.Dy[j]
	}
}

// neighbor returns the flat index of the neighbor of cell (k, j, i) in
// direction d, or -1 if the face is on a non-periodic boundary.
func (m *Mesh) neighbor(k, j, i int, d direction) int {
	idx := [3]int{i, j, k}
	n := [3]int{m.Nx, m.Ny, m.Nz}
	a := d.axis()
	if d.positive() {
		idx[a]++
	} else {
		idx[a]--
	}
	if idx[a] < 0 || idx[a] >= n[a] {
		if !m.periodic[a] {
			return -1
		}
		idx[a] = (idx[a] + n[a]) % n[a]
	}
	return m.Row(idx[2], idx[1], idx[0])
}

// isWall reports whether the boundary face in direction d is a wall.
func (m *Mesh) isWall(d direction) bool { return m.walls[d] }

// faceInfo holds the geometry of one face of a cell.
type faceInfo struct {
	nb       int     // neighbor row, -1 at a boundary
	wall     bool    // boundary face is a wall
	area     float64 // face area [m²]
	dist     float64 // distance to neighbor center, or to the boundary face [m]
	weight   float64 // interpolation weight of the owner cell
	nbWidth  float64 // neighbor edge length along the face normal [m]
	ownWidth float64 // owner edge length along the face normal [m]
}

// face returns geometric information about the face of cell (k, j, i)
// in direction d.
func (m *Mesh) face(k, j, i int, d direction) faceInfo {
	a := d.axis()
	f := faceInfo{
		nb:       m.neighbor(k, j, i, d),
		area:     m.faceArea(k, j, i, a),
		ownWidth: m.width(k, j, i, a),
	}
	if f.nb < 0 {
		f.wall = m.isWall(d)
		f.dist = f.ownWidth / 2
		f.weight = 1
		return f
	}
	nk, nj, ni := m.Index(f.nb)
	f.nbWidth = m.width(nk, nj, ni, a)
	f.dist = (f.ownWidth + f.nbWidth) / 2
	f.weight = f.nbWidth / (f.ownWidth + f.nbWidth)
	return f
}
