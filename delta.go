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

// Names of the built-in filter width strategies.
const (
	CubeRootVolDelta = "cubeRootVol"
	MaxDeltaxyzDelta = "maxDeltaxyz"
	PrandtlDelta     = "Prandtl"
)

// DeltaStrategy computes a filter width [m] for every cell of a mesh.
type DeltaStrategy interface {
	// Read re-reads the strategy's coefficients from its
	// coefficient dictionary, which may be nil, and reports whether
	// any of them changed.
	Read(coeffs Dict) (bool, error)

	// Value returns the current filter width.
	Value() FieldView
}

// DeltaConstructor creates a DeltaStrategy on mesh m from its
// coefficient dictionary, which may be nil.
type DeltaConstructor func(m *Mesh, coeffs Dict) (DeltaStrategy, error)

// deltaCoeffsName returns the name of the coefficient dictionary for
// the named strategy.
func deltaCoeffsName(name string) string { return name + "Coeffs" }

// newDelta creates the delta strategy selected by the "delta" entry in
// parent, which is the dictionary for the given group. Strategies in
// extra are checked before the built-in ones.
func newDelta(group string, m *Mesh, parent Dict, extra map[string]DeltaConstructor) (string, DeltaStrategy, error) {
	name, err := toWord(parent, group, "delta", CubeRootVolDelta)
	if err != nil {
		return "", nil, err
	}
	coeffs := parent.SubDict(deltaCoeffsName(name))
	subGroup := group + "." + deltaCoeffsName(name)
	if ctor, ok := extra[name]; ok {
		d, err := ctor(m, coeffs)
		if err != nil {
			return "", nil, &ConfigurationError{Group: subGroup, Err: err}
		}
		return name, d, nil
	}
	var d DeltaStrategy
	switch name {
	case CubeRootVolDelta:
		d, err = newGeometricDelta(subGroup, m, 1, cubeRootVol, coeffs)
	case MaxDeltaxyzDelta:
		d, err = newGeometricDelta(subGroup, m, 2, maxDeltaxyz, coeffs)
	case PrandtlDelta:
		d, err = newPrandtlDelta(subGroup, m, coeffs, extra)
	default:
		valid := []string{CubeRootVolDelta, MaxDeltaxyzDelta, PrandtlDelta}
		for n := range extra {
			valid = append(valid, n)
		}
		return "", nil, &ConfigurationError{Group: group, Key: "delta",
			Err: fmt.Errorf("unknown delta type %q; valid types are %v", name, valid)}
	}
	if err != nil {
		return "", nil, err
	}
	return name, d, nil
}

// deltaCache holds a computed filter width and the mesh version it was
// computed for.
type deltaCache struct {
	mesh    *Mesh
	field   *sparse.DenseArray
	version uint64
	valid   bool

	// computations counts how many times the field has been computed.
	computations int
}

// get returns the cached field, calling compute first if the cache
// is invalid or the mesh geometry has changed.
func (c *deltaCache) get(compute func(*sparse.DenseArray)) FieldView {
	if !c.valid || c.version != c.mesh.Version() {
		if c.field == nil || len(c.field.Elements) != c.mesh.NCells() {
			c.field = c.mesh.NewField()
		}
		compute(c.field)
		c.version = c.mesh.Version()
		c.valid = true
		c.computations++
	}
	return FieldView{a: c.field}
}

func (c *deltaCache) invalidate() { c.valid = false }

// cellLength returns a length scale for a single cell.
type cellLength func(m *Mesh, k, j, i int) float64

// cubeRootVol is the cube root of the cell volume.
func cubeRootVol(m *Mesh, k, j, i int) float64 {
	return math.Cbrt(m.Dx[i] * m.Dy[j] * m.Dz[k])
}

// maxDeltaxyz is the largest distance from the cell center to a face.
func maxDeltaxyz(m *Mesh, k, j, i int) float64 {
	return math.Max(m.Dx[i], math.Max(m.Dy[j], m.Dz[k])) / 2
}

// geometricDelta is a filter width that is a coefficient times a
// length computed from the cell geometry.
type geometricDelta struct {
	coeffs *CoefficientSet
	length cellLength
	deltaCache
}

func newGeometricDelta(group string, m *Mesh, defaultCoeff float64, l cellLength, coeffs Dict) (*geometricDelta, error) {
	d := &geometricDelta{
		coeffs:     NewCoefficientSet(group, Coefficient{Name: "deltaCoeff", Default: defaultCoeff}),
		length:     l,
		deltaCache: deltaCache{mesh: m},
	}
	if _, err := d.coeffs.Resolve(coeffs); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *geometricDelta) Read(coeffs Dict) (bool, error) {
	ch, err := d.coeffs.Resolve(coeffs)
	if err != nil {
		return false, err
	}
	if len(ch) > 0 {
		d.invalidate()
	}
	return len(ch) > 0, nil
}

func (d *geometricDelta) Value() FieldView {
	return d.get(func(f *sparse.DenseArray) {
		c := d.coeffs.Value("deltaCoeff")
		forEachCell(d.mesh, func(row, k, j, i int) {
			f.Elements[row] = c * d.length(d.mesh, k, j, i)
		})
	})
}

// prandtlDelta limits a geometric filter width by the mixing length
// kappa*y/Cdelta near walls.
type prandtlDelta struct {
	coeffs     *CoefficientSet
	geometric  DeltaStrategy
	nestedName string
	deltaCache
}

func newPrandtlDelta(group string, m *Mesh, coeffs Dict, extra map[string]DeltaConstructor) (*prandtlDelta, error) {
	d := &prandtlDelta{
		coeffs: NewCoefficientSet(group,
			Coefficient{Name: "kappa", Default: 0.41},
			Coefficient{Name: "Cdelta", Default: 0.158},
		),
		deltaCache: deltaCache{mesh: m},
	}
	if _, err := d.coeffs.Resolve(coeffs); err != nil {
		return nil, err
	}
	var err error
	d.nestedName, d.geometric, err = newDelta(group, m, coeffs, extra)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *prandtlDelta) Read(coeffs Dict) (bool, error) {
	old := d.coeffs.snapshot()
	ch, err := d.coeffs.Resolve(coeffs)
	if err != nil {
		return false, err
	}
	nestedChanged, err := d.geometric.Read(coeffs.SubDict(deltaCoeffsName(d.nestedName)))
	if err != nil {
		d.coeffs.restore(old)
		return false, err
	}
	changed := len(ch) > 0 || nestedChanged
	if changed {
		d.invalidate()
	}
	return changed, nil
}

func (d *prandtlDelta) Value() FieldView {
	geo := d.geometric.Value()
	return d.get(func(f *sparse.DenseArray) {
		kappa, cDelta := d.coeffs.Value("kappa"), d.coeffs.Value("Cdelta")
		y := d.mesh.WallDist().Elements
		for row := range f.Elements {
			f.Elements[row] = math.Min(kappa*y[row]/cDelta, geo.At(row))
		}
	})
}
