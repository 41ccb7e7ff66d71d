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
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// FlowDataVersion is the version of the flow data file format.
const FlowDataVersion = "1.0.0"

// cellDims are the netcdf dimensions of a cell-centered field.
var cellDims = []string{"z", "y", "x"}

// Variable is a gridded variable in a FlowData.
type Variable struct {
	Dims        []string           // netcdf dimensions for this variable
	Description string             // variable description
	Units       string             // variable units
	Data        *sparse.DenseArray // variable data
}

// FlowData holds gridded flow and turbulence fields and the cell
// spacing of the mesh they are defined on.
type FlowData struct {
	Dx, Dy, Dz []float64 // m

	// Data holds the variables, with the keys being the variable names.
	Data map[string]Variable
}

// NewFlowData returns an empty FlowData for mesh m.
func NewFlowData(m *Mesh) *FlowData {
	return &FlowData{
		Dx: append([]float64{}, m.Dx...),
		Dy: append([]float64{}, m.Dy...),
		Dz: append([]float64{}, m.Dz...),
	}
}

// AddVariable adds data for a new variable to d.
func (d *FlowData) AddVariable(name string, dims []string, description, units string, data *sparse.DenseArray) {
	if d.Data == nil {
		d.Data = make(map[string]Variable)
	}
	d.Data[name] = Variable{
		Dims:        dims,
		Description: description,
		Units:       units,
		Data:        data,
	}
}

// AddField adds a cell-centered field to d.
func (d *FlowData) AddField(name, description, units string, data *sparse.DenseArray) {
	d.AddVariable(name, cellDims, description, units, data)
}

// AddVelocity adds the components of velocity u to d as Ux, Uy, and Uz.
func (d *FlowData) AddVelocity(u *VectorField) {
	for i, c := range []string{"Ux", "Uy", "Uz"} {
		d.AddField(c, fmt.Sprintf("velocity in the %c direction", "xyz"[i]), "m s-1", u.Component(i))
	}
}

// Mesh creates a mesh with the spacing of d.
func (d *FlowData) Mesh(periodic [3]bool, walls []string) (*Mesh, error) {
	return NewMesh(MeshConfig{
		Nx: len(d.Dx), Ny: len(d.Dy), Nz: len(d.Dz),
		Dx: d.Dx, Dy: d.Dy, Dz: d.Dz,
		Periodic: periodic,
		Walls:    walls,
	})
}

// Velocity returns the velocity stored in d as a field on m.
func (d *FlowData) Velocity(m *Mesh) (*VectorField, error) {
	u := &VectorField{Mesh: m}
	for i, c := range []string{"Ux", "Uy", "Uz"} {
		v, ok := d.Data[c]
		if !ok {
			return nil, &ConfigurationError{Group: "U", Key: c, Err: fmt.Errorf("missing from flow data")}
		}
		if err := checkShape(m, c, v.Data); err != nil {
			return nil, err
		}
		switch i {
		case 0:
			u.X = v.Data
		case 1:
			u.Y = v.Data
		case 2:
			u.Z = v.Data
		}
	}
	return u, nil
}

// LoadFlowData loads flow data from a netcdf file.
func LoadFlowData(rw cdf.ReaderWriterAt) (*FlowData, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("sas.LoadFlowData: %v", err)
	}
	dataVersion, ok := f.Header.GetAttribute("", "data_version").(string)
	if !ok || dataVersion != FlowDataVersion {
		return nil, fmt.Errorf("sas.LoadFlowData: data version %v is incompatible "+
			"with the required version %s", dataVersion, FlowDataVersion)
	}
	o := new(FlowData)
	for _, a := range []struct {
		name string
		v    *[]float64
	}{{"dx", &o.Dx}, {"dy", &o.Dy}, {"dz", &o.Dz}} {
		v, ok := f.Header.GetAttribute("", a.name).([]float64)
		if !ok {
			return nil, fmt.Errorf("sas.LoadFlowData: missing attribute %s", a.name)
		}
		*a.v = v
	}

	for _, v := range f.Header.Variables() {
		var d Variable
		d.Description, _ = f.Header.GetAttribute(v, "description").(string)
		d.Units, _ = f.Header.GetAttribute(v, "units").(string)
		dims := f.Header.Lengths(v)
		r := f.Reader(v, nil, nil)
		d.Data = sparse.ZerosDense(dims...)
		tmp := make([]float32, len(d.Data.Elements))
		if _, err = r.Read(tmp); err != nil {
			return nil, fmt.Errorf("sas.LoadFlowData: reading %s: %v", v, err)
		}
		d.Dims = f.Header.Dimensions(v)
		for i, val := range tmp {
			d.Data.Elements[i] = float64(val)
		}
		o.AddVariable(v, d.Dims, d.Description, d.Units, d.Data)
	}
	return o, nil
}

// Write writes d to netcdf file w.
func (d *FlowData) Write(w *os.File) error {
	h := cdf.NewHeader(cellDims, []int{len(d.Dz), len(d.Dy), len(d.Dx)})
	h.AddAttribute("", "comment", "SAS turbulence model flow data file")
	h.AddAttribute("", "dx", d.Dx)
	h.AddAttribute("", "dy", d.Dy)
	h.AddAttribute("", "dz", d.Dz)
	h.AddAttribute("", "data_version", FlowDataVersion)

	// Sort the names so they write in the same order every time.
	names := make([]string, 0, len(d.Data))
	for n := range d.Data {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		dd := d.Data[name]
		h.AddVariable(name, dd.Dims, []float32{0})
		h.AddAttribute(name, "description", dd.Description)
		h.AddAttribute(name, "units", dd.Units)
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return err
	}
	for _, name := range names {
		if err = writeNCF(f, name, d.Data[name].Data); err != nil {
			return fmt.Errorf("sas: writing variable %s to netcdf file: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeNCF(f *cdf.File, name string, data *sparse.DenseArray) error {
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}
	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		data32[i] = float32(e)
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	_, err := f.Writer(name, start, end).Write(data32)
	return err
}
