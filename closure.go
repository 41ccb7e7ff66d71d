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

	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
	"github.com/sirupsen/logrus"
)

// Names of the available turbulence models.
const (
	KOmegaSSTName    = "kOmegaSST"
	KOmegaSSTSASName = "kOmegaSSTSAS"

	// KOmegaSSTSASNewName selects the same model as KOmegaSSTSASName, with
	// its coefficients read from the "kOmegaSSTSASnewCoeffs" group.
	KOmegaSSTSASNewName = "kOmegaSSTSASnew"
)

// isSAS reports whether typeName selects the SAS model.
func isSAS(typeName string) bool {
	return typeName == KOmegaSSTSASName || typeName == KOmegaSSTSASNewName
}

// unknownModel returns the error for an unknown model type.
func unknownModel(typeName string) error {
	return &ConfigurationError{Group: "turbulence", Key: "model",
		Err: fmt.Errorf("unknown model type %q; valid types are [%s %s %s]",
			typeName, KOmegaSSTName, KOmegaSSTSASName, KOmegaSSTSASNewName)}
}

// TurbulenceClosure is a RANS turbulence model that provides an eddy
// viscosity to a flow solver.
type TurbulenceClosure interface {
	// Correct advances the turbulence fields by one step. It must
	// be called once per outer iteration of the flow solver.
	Correct()

	// Read re-reads the model coefficients from the configuration
	// and reports whether any of them changed.
	Read() (bool, error)

	K() FieldView
	Omega() FieldView
	Nut() FieldView
	TypeName() string
}

// TransportModel provides the laminar transport properties of a fluid.
type TransportModel interface {
	// Nu returns the kinematic viscosity, which must have units of m²/s.
	Nu() *unit.Unit
}

// Newtonian is a fluid with constant kinematic viscosity.
type Newtonian struct {
	nu *unit.Unit
}

// NewNewtonian returns a fluid with kinematic viscosity nu [m²/s].
func NewNewtonian(nu float64) Newtonian {
	return Newtonian{nu: unit.New(nu, kinematicViscosity)}
}

// Nu returns the kinematic viscosity.
func (n Newtonian) Nu() *unit.Unit { return n.nu }

var kinematicViscosity = unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -1}

// settings hold the optional configuration of a model.
type settings struct {
	propertiesName string
	log            logrus.FieldLogger
	controls       Controls
	k0, omega0     *sparse.DenseArray
	deltas         map[string]DeltaConstructor
}

// Option configures a model created with New.
type Option func(*settings)

// WithPropertiesName sets the name of the model instance, which is
// used to label its log messages and solved fields.
func WithPropertiesName(name string) Option {
	return func(s *settings) { s.propertiesName = name }
}

// WithLogger sets the logger the model writes to. The default is
// the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *settings) { s.log = l }
}

// WithControls sets the solver controls.
func WithControls(c Controls) Option {
	return func(s *settings) { s.controls = c }
}

// WithInitialFields sets the initial k and omega fields. The fields
// are copied. By default the fields are set to the uniform kInlet and
// omegaInlet coefficients.
func WithInitialFields(k, omega *sparse.DenseArray) Option {
	return func(s *settings) { s.k0, s.omega0 = k, omega }
}

// WithDeltaStrategy makes an additional delta strategy available under
// the given name.
func WithDeltaStrategy(name string, c DeltaConstructor) Option {
	return func(s *settings) {
		if s.deltas == nil {
			s.deltas = make(map[string]DeltaConstructor)
		}
		s.deltas[name] = c
	}
}

// New creates the turbulence model called typeName, which must be
// "kOmegaSST", "kOmegaSSTSAS" or "kOmegaSSTSASnew". alpha is the phase fraction and
// rho is the density; either can be nil, in which case it is taken to be
// one. U is the velocity, alphaRhoPhi is the phase mass flux, and phi is
// the volumetric flux; alphaRhoPhi can be nil for a single phase of
// unit density, in which case phi is used. The coefficients are read from
// the "<typeName>Coeffs" group of source, and missing coefficients
// take their default values.
func New(typeName string, alpha, rho *sparse.DenseArray, U *VectorField, alphaRhoPhi, phi *Flux,
	transport TransportModel, source DictSource, opts ...Option) (TurbulenceClosure, error) {

	s := settings{
		log:      logrus.StandardLogger(),
		controls: DefaultControls(),
	}
	for _, o := range opts {
		o(&s)
	}

	if typeName != KOmegaSSTName && !isSAS(typeName) {
		return nil, unknownModel(typeName)
	}

	if err := s.controls.Validate(); err != nil {
		return nil, err
	}

	if source == nil {
		source = NewStaticDict(nil)
	}
	d, err := source.Dict()
	if err != nil {
		return nil, err
	}

	base, err := newKOmegaSST(typeName, alpha, rho, U, alphaRhoPhi, phi, transport, source, d, s)
	if err != nil {
		return nil, err
	}

	var m TurbulenceClosure = base
	fields := logrus.Fields{
		"model": typeName,
		"group": base.CoeffGroup(),
	}
	if isSAS(typeName) {
		sasModel, err := newKOmegaSSTSAS(base, d, s.deltas)
		if err != nil {
			return nil, err
		}
		fields["delta"] = sasModel.DeltaName()
		m = sasModel
	}
	base.log.WithFields(fields).Info("created turbulence model")
	return m, nil
}

// ReadCoefficients returns the coefficients of the model called
// typeName as they would be read from source, without creating the
// model. The delta strategy coefficients are not included.
func ReadCoefficients(typeName string, source DictSource) ([]*CoefficientSet, error) {
	var decls [][]Coefficient
	switch {
	case typeName == KOmegaSSTName:
		decls = [][]Coefficient{sstCoefficients()}
	case isSAS(typeName):
		decls = [][]Coefficient{sstCoefficients(), sasCoefficients()}
	default:
		return nil, unknownModel(typeName)
	}
	if source == nil {
		source = NewStaticDict(nil)
	}
	d, err := source.Dict()
	if err != nil {
		return nil, err
	}
	group := typeName + "Coeffs"
	var sets []*CoefficientSet
	for _, decl := range decls {
		c := NewCoefficientSet(group, decl...)
		if _, err := c.Resolve(d.SubDict(group)); err != nil {
			return nil, err
		}
		sets = append(sets, c)
	}
	return sets, nil
}

// checkShape returns an error if f does not have the same shape as
// the mesh.
func checkShape(m *Mesh, name string, f *sparse.DenseArray) error {
	if f == nil {
		return &ConfigurationError{Group: name, Err: fmt.Errorf("missing field")}
	}
	if len(f.Shape) != 3 || f.Shape[0] != m.Nz || f.Shape[1] != m.Ny || f.Shape[2] != m.Nx {
		return &ConfigurationError{Group: name,
			Err: fmt.Errorf("shape %v does not match mesh [%d %d %d]", f.Shape, m.Nz, m.Ny, m.Nx)}
	}
	return nil
}

// checkFlux returns an error if f does not have face arrays matching
// the mesh.
func checkFlux(m *Mesh, name string, f *Flux) error {
	if f == nil || f.U == nil || f.V == nil || f.W == nil {
		return &ConfigurationError{Group: name, Err: fmt.Errorf("missing flux")}
	}
	want := [3][]int{{m.Nz, m.Ny, m.Nx + 1}, {m.Nz, m.Ny + 1, m.Nx}, {m.Nz + 1, m.Ny, m.Nx}}
	for i, a := range []*sparse.DenseArray{f.U, f.V, f.W} {
		if fmt.Sprint(a.Shape) != fmt.Sprint(want[i]) {
			return &ConfigurationError{Group: name,
				Err: fmt.Errorf("face array %d has shape %v but should be %v", i, a.Shape, want[i])}
		}
	}
	return nil
}

// newKOmegaSST creates a k-omega-SST model reading its coefficients from
// the "<typeName>Coeffs" group of d.
func newKOmegaSST(typeName string, alpha, rho *sparse.DenseArray, U *VectorField, alphaRhoPhi, phi *Flux,
	transport TransportModel, source DictSource, d Dict, s settings) (*KOmegaSST, error) {

	if U == nil || U.Mesh == nil {
		return nil, &ConfigurationError{Group: "U", Err: fmt.Errorf("missing velocity field")}
	}
	mesh := U.Mesh
	for i, c := range []*sparse.DenseArray{U.X, U.Y, U.Z} {
		if err := checkShape(mesh, fmt.Sprintf("U.%c", "xyz"[i]), c); err != nil {
			return nil, err
		}
	}
	if err := checkFlux(mesh, "phi", phi); err != nil {
		return nil, err
	}
	if alphaRhoPhi == nil {
		if alpha != nil || rho != nil {
			return nil, &ConfigurationError{Group: "alphaRhoPhi",
				Err: fmt.Errorf("missing mass flux for variable density flow")}
		}
		alphaRhoPhi = phi
	} else if err := checkFlux(mesh, "alphaRhoPhi", alphaRhoPhi); err != nil {
		return nil, err
	}
	alphaRho := mesh.UniformField(1)
	for _, f := range []struct {
		name string
		a    *sparse.DenseArray
	}{{"alpha", alpha}, {"rho", rho}} {
		if f.a == nil {
			continue
		}
		if err := checkShape(mesh, f.name, f.a); err != nil {
			return nil, err
		}
		for i, v := range f.a.Elements {
			alphaRho.Elements[i] *= v
		}
	}
	if transport == nil || transport.Nu() == nil {
		return nil, &ConfigurationError{Group: "transport", Err: fmt.Errorf("missing transport model")}
	}
	if err := transport.Nu().Check(kinematicViscosity); err != nil {
		return nil, &ConfigurationError{Group: "transport", Key: "nu", Err: err}
	}

	log := s.log
	if s.propertiesName != "" {
		log = log.WithField("properties", s.propertiesName)
	}
	m := &KOmegaSST{
		typeName:    typeName,
		log:         log,
		controls:    s.controls,
		source:      source,
		coeffs:      NewCoefficientSet(typeName+"Coeffs", sstCoefficients()...),
		mesh:        mesh,
		alphaRho:    alphaRho,
		u:           U,
		alphaRhoPhi: alphaRhoPhi,
		phi:         phi,
		nu:          transport.Nu().Value(),
		nut:         mesh.NewField(),
	}
	if _, err := m.coeffs.Resolve(d.SubDict(m.coeffs.Group())); err != nil {
		return nil, err
	}

	if s.k0 != nil || s.omega0 != nil {
		if err := checkShape(mesh, "k", s.k0); err != nil {
			return nil, err
		}
		if err := checkShape(mesh, "omega", s.omega0); err != nil {
			return nil, err
		}
		m.k, m.omega = s.k0.Copy(), s.omega0.Copy()
	} else {
		m.k = mesh.UniformField(m.coeffs.Value("kInlet"))
		m.omega = mesh.UniformField(m.coeffs.Value("omegaInlet"))
	}
	bound(m.k, kMin)
	bound(m.omega, omegaMin)

	forEachCellSerial(mesh, func(row, k, j, i int) {
		for _, dir := range directions {
			if fc := mesh.face(k, j, i, dir); fc.nb < 0 && fc.wall {
				m.nearWall = append(m.nearWall, row)
				return
			}
		}
	})

	s2, _ := m.strainInvariants()
	m.correctNut(s2)
	return m, nil
}

// forEachCellSerial runs f on every cell of m in order.
func forEachCellSerial(m *Mesh, f func(row, k, j, i int)) {
	for row := 0; row < m.NCells(); row++ {
		k, j, i := m.Index(row)
		f(row, k, j, i)
	}
}
