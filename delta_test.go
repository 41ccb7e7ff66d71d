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
	"errors"
	"math"
	"testing"
)

func deltaMesh(t *testing.T) *Mesh {
	m, err := NewMesh(MeshConfig{Nx: 2, Ny: 4, Nz: 1, Dx: []float64{1, 8}, Dy: []float64{0.5},
		Dz: []float64{2}, Walls: []string{YMin}})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCubeRootVol(t *testing.T) {
	m := deltaMesh(t)
	for _, test := range []struct {
		parent Dict
		coeff  float64
	}{
		{parent: nil, coeff: 1},
		{parent: Dict{"delta": "cubeRootVol"}, coeff: 1},
		{parent: Dict{"delta": "cubeRootVol", "cubeRootVolCoeffs": Dict{"deltaCoeff": 0.5}}, coeff: 0.5},
	} {
		name, d, err := newDelta("g", m, test.parent, nil)
		if err != nil {
			t.Fatal(err)
		}
		if name != CubeRootVolDelta {
			t.Errorf("name: %s", name)
		}
		v := d.Value()
		if have, want := v.Get(0, 0, 0), test.coeff*1; different(have, want, 1.0e-12) {
			t.Errorf("cell 0: have %g, want %g", have, want)
		}
		if have, want := v.Get(0, 0, 1), test.coeff*2; different(have, want, 1.0e-12) {
			t.Errorf("cell 1: have %g, want %g", have, want)
		}
	}
}

func TestMaxDeltaxyz(t *testing.T) {
	m := deltaMesh(t)
	_, d, err := newDelta("g", m, Dict{"delta": "maxDeltaxyz"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	v := d.Value()
	if have := v.Get(0, 0, 0); different(have, 2, 1.0e-12) {
		t.Errorf("cell 0: have %g, want 2", have)
	}
	if have := v.Get(0, 0, 1); different(have, 8, 1.0e-12) {
		t.Errorf("cell 1: have %g, want 8", have)
	}
}

func TestPrandtlDelta(t *testing.T) {
	m := deltaMesh(t)
	_, d, err := newDelta("g", m, Dict{
		"delta": "Prandtl",
		"PrandtlCoeffs": Dict{
			"delta":             "cubeRootVol",
			"cubeRootVolCoeffs": Dict{"deltaCoeff": 1},
		},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	v := d.Value()
	y := m.WallDist()
	for j := 0; j < m.Ny; j++ {
		want := math.Min(0.41*y.Get(0, j, 0)/0.158, 1)
		if have := v.Get(0, j, 0); different(have, want, 1.0e-12) {
			t.Errorf("cell %d: have %g, want %g", j, have, want)
		}
	}

	changed, err := d.Read(Dict{"Cdelta": 0.2, "delta": "cubeRootVol"})
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Error("changing Cdelta should report a change")
	}
	if have, want := d.Value().Get(0, 0, 0), 0.41*0.25/0.2; different(have, want, 1.0e-12) {
		t.Errorf("after read: have %g, want %g", have, want)
	}
}

func TestUnknownDelta(t *testing.T) {
	m := deltaMesh(t)
	_, d, err := newDelta("kOmegaSSTSASCoeffs", m, Dict{"delta": "vanDriest"}, nil)
	var cErr *ConfigurationError
	if !errors.As(err, &cErr) {
		t.Fatalf("want ConfigurationError, have %v", err)
	}
	if d != nil {
		t.Error("strategy should not be created")
	}
	if cErr.Key != "delta" {
		t.Errorf("key: %s", cErr.Key)
	}
	_, _, err = newDelta("g", m, Dict{"delta": 3}, nil)
	if !errors.As(err, &cErr) {
		t.Errorf("non-string name: want ConfigurationError, have %v", err)
	}
}

func TestDeltaCache(t *testing.T) {
	m := deltaMesh(t)
	_, ds, err := newDelta("g", m, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	d := ds.(*geometricDelta)
	d.Value()
	d.Value()
	if d.computations != 1 {
		t.Errorf("computed %d times, want 1", d.computations)
	}

	// Reading unchanged coefficients does not invalidate the cache.
	if changed, err := d.Read(nil); err != nil || changed {
		t.Errorf("read: %v, %v", changed, err)
	}
	d.Value()
	if d.computations != 1 {
		t.Errorf("computed %d times after read, want 1", d.computations)
	}

	if changed, err := d.Read(Dict{"deltaCoeff": 3}); err != nil || !changed {
		t.Errorf("read: %v, %v", changed, err)
	}
	if v := d.Value().Get(0, 0, 0); different(v, 3, 1.0e-12) {
		t.Errorf("after coefficient change: have %g, want 3", v)
	}

	m.Stretch(8, 1, 1)
	if v := d.Value().Get(0, 0, 0); different(v, 6, 1.0e-12) {
		t.Errorf("after stretch: have %g, want 6", v)
	}
	if d.computations != 3 {
		t.Errorf("computed %d times, want 3", d.computations)
	}
}

type constantDelta struct {
	m *Mesh
	v float64
}

func (c *constantDelta) Read(d Dict) (bool, error) {
	v, ok := d["value"].(float64)
	if !ok || v == c.v {
		return false, nil
	}
	c.v = v
	return true, nil
}

func (c *constantDelta) Value() FieldView {
	f := c.m.UniformField(c.v)
	return FieldView{a: f}
}

func TestCustomDelta(t *testing.T) {
	m := deltaMesh(t)
	extra := map[string]DeltaConstructor{
		"constant": func(m *Mesh, d Dict) (DeltaStrategy, error) {
			c := &constantDelta{m: m, v: 1}
			_, err := c.Read(d)
			return c, err
		},
	}
	name, d, err := newDelta("g", m, Dict{"delta": "constant", "constantCoeffs": Dict{"value": 0.1}}, extra)
	if err != nil {
		t.Fatal(err)
	}
	if name != "constant" || d.Value().Max() != 0.1 {
		t.Errorf("custom delta: %s %g", name, d.Value().Max())
	}
}
