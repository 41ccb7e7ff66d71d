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
	"github.com/sirupsen/logrus"
)

const (
	vSmall     = 1.0e-300
	rootVSmall = 1.0e-150

	// kMin and omegaMin are the lower bounds k and omega are clipped to
	// after they are solved for.
	kMin     = 1.0e-15 // m²/s²
	omegaMin = 1.0e-15 // 1/s
)

// sstCoefficients are the coefficients of the k-omega-SST model.
func sstCoefficients() []Coefficient {
	return []Coefficient{
		{Name: "alphaK1", Default: 0.85},
		{Name: "alphaK2", Default: 1.0},
		{Name: "alphaOmega1", Default: 0.5},
		{Name: "alphaOmega2", Default: 0.856},
		{Name: "gamma1", Default: 5.0 / 9.0},
		{Name: "gamma2", Default: 0.44},
		{Name: "beta1", Default: 0.075},
		{Name: "beta2", Default: 0.0828},
		{Name: "betaStar", Default: 0.09},
		{Name: "a1", Default: 0.31},
		{Name: "b1", Default: 1.0},
		{Name: "c1", Default: 10.0},
		{Name: "F3", Default: 0, Switch: true},
		{Name: "kInlet", Default: 1.0e-4},
		{Name: "omegaInlet", Default: 1.0},
	}
}

// blend returns the value of a coefficient blended between its
// inner (a) and outer (b) values by f1.
func blend(f1, a, b float64) float64 { return f1*(a-b) + b }

// cdKOmega returns the cross-diffusion term 2 αω2 (∇k·∇ω)/ω.
func cdKOmega(alphaOmega2, gradKGradOmega, omega float64) float64 {
	return 2 * alphaOmega2 * gradKGradOmega / omega
}

// f1 is the blending function that is one near walls and zero in the
// free stream. y is the wall distance and cdKOmega is the cross-diffusion
// term.
func f1(k, omega, y, nu, betaStar, alphaOmega2, cdKOmega float64) float64 {
	cdKOmegaPlus := math.Max(cdKOmega, 1.0e-10)
	arg1 := math.Min(
		math.Min(
			math.Max(
				math.Sqrt(k)/(betaStar*omega*y),
				500*nu/(y*y*omega),
			),
			4*alphaOmega2*k/(cdKOmegaPlus*y*y),
		),
		10,
	)
	return math.Tanh(math.Pow(arg1, 4))
}

// f2 is the blending function used in the eddy viscosity limiter.
func f2(k, omega, y, nu, betaStar float64) float64 {
	arg2 := math.Min(
		math.Max(
			2*math.Sqrt(k)/(betaStar*omega*y),
			500*nu/(y*y*omega),
		),
		100,
	)
	return math.Tanh(arg2 * arg2)
}

// f3 is the blending function that prevents the eddy viscosity
// limiter from acting in the roughness sublayer.
func f3(omega, y, nu float64) float64 {
	arg3 := math.Min(150*nu/(omega*y*y), 10)
	return 1 - math.Tanh(math.Pow(arg3, 4))
}

// turbVisc returns the eddy viscosity a1 k / max(a1 ω, b1 F23 √S2).
func turbVisc(k, omega, s2, f23, a1, b1 float64) float64 {
	return a1 * k / math.Max(a1*omega, b1*f23*math.Sqrt(s2))
}

// Controls hold the settings used to solve the k and omega equations.
type Controls struct {
	DeltaT        float64 // pseudo time step [s]
	RelaxK        float64 // under-relaxation factor for k
	RelaxOmega    float64 // under-relaxation factor for omega
	Tolerance     float64 // linear solver residual tolerance
	MaxIterations int     // maximum number of linear solver sweeps
}

// DefaultControls returns the default solver controls.
func DefaultControls() Controls {
	return Controls{
		DeltaT:        1,
		RelaxK:        1,
		RelaxOmega:    1,
		Tolerance:     1.0e-8,
		MaxIterations: 200,
	}
}

// Validate returns a ConfigurationError if any of the controls is
// out of range.
func (c Controls) Validate() error {
	bad := func(key string, v interface{}) error {
		return &ConfigurationError{Group: "controls", Key: key,
			Err: fmt.Errorf("invalid value %v", v)}
	}
	switch {
	case !(c.DeltaT > 0) || math.IsInf(c.DeltaT, 1):
		return bad("DeltaT", c.DeltaT)
	case !(c.RelaxK > 0 && c.RelaxK <= 1):
		return bad("RelaxK", c.RelaxK)
	case !(c.RelaxOmega > 0 && c.RelaxOmega <= 1):
		return bad("RelaxOmega", c.RelaxOmega)
	case !(c.Tolerance >= 0):
		return bad("Tolerance", c.Tolerance)
	case c.MaxIterations < 1:
		return bad("MaxIterations", c.MaxIterations)
	}
	return nil
}

// SourceState holds the fields computed during a correction that
// extra omega sources depend on. Its fields must not be modified.
type SourceState struct {
	Mesh *Mesh

	U *VectorField

	// S2 is 2|symm(∇U)|².
	S2 *sparse.DenseArray

	// F1 is the k-omega/k-epsilon blending function.
	F1 *sparse.DenseArray

	// Beta and Gamma are the F1-blended beta and gamma coefficients.
	Beta, Gamma *sparse.DenseArray

	K, Omega         *sparse.DenseArray
	GradK, GradOmega *VectorField

	// DeltaT is the pseudo time step.
	DeltaT float64
}

// omegaSourceFunc returns an extra explicit kinematic source for the
// omega equation [1/s²].
type omegaSourceFunc func(*SourceState) *sparse.DenseArray

// KOmegaSST is the k-omega-SST turbulence closure of Menter, Kuntz and
// Langtry (2003), with the optional F3 term of Hellsten (1998).
type KOmegaSST struct {
	typeName string
	log      logrus.FieldLogger
	controls Controls
	source   DictSource
	coeffs   *CoefficientSet

	mesh             *Mesh
	alphaRho         *sparse.DenseArray
	u                *VectorField
	alphaRhoPhi, phi *Flux
	nu               float64

	k, omega, nut *sparse.DenseArray

	// nearWall holds the cells that have a wall face.
	nearWall []int

	omegaSource omegaSourceFunc
}

// TypeName returns the name the model was selected with.
func (m *KOmegaSST) TypeName() string { return m.typeName }

// CoeffGroup returns the name of the configuration group the model
// coefficients are read from.
func (m *KOmegaSST) CoeffGroup() string { return m.coeffs.Group() }

// Coefficients returns the model's resolved coefficients.
func (m *KOmegaSST) Coefficients() *CoefficientSet { return m.coeffs }

// K returns the turbulent kinetic energy [m²/s²].
func (m *KOmegaSST) K() FieldView { return FieldView{a: m.k} }

// Omega returns the specific dissipation rate [1/s].
func (m *KOmegaSST) Omega() FieldView { return FieldView{a: m.omega} }

// Nut returns the turbulent kinematic viscosity [m²/s].
func (m *KOmegaSST) Nut() FieldView { return FieldView{a: m.nut} }

// Epsilon returns the turbulent dissipation rate betaStar k omega [m²/s³].
func (m *KOmegaSST) Epsilon() *sparse.DenseArray {
	e := m.mesh.NewField()
	betaStar := m.coeffs.Value("betaStar")
	for i := range e.Elements {
		e.Elements[i] = betaStar * m.k.Elements[i] * m.omega.Elements[i]
	}
	return e
}

// Read re-reads the model coefficients from the configuration and
// reports whether any of them changed.
func (m *KOmegaSST) Read() (bool, error) {
	d, err := m.source.Dict()
	if err != nil {
		return false, err
	}
	changes, err := m.coeffs.Resolve(d.SubDict(m.coeffs.Group()))
	if err != nil {
		return false, err
	}
	logChanges(m.log, m.coeffs.Group(), changes)
	return len(changes) > 0, nil
}

func logChanges(log logrus.FieldLogger, group string, changes []Change) {
	for _, c := range changes {
		log.WithFields(logrus.Fields{
			"group": group,
			"name":  c.Name,
			"old":   c.Old,
			"new":   c.New,
		}).Info("coefficient changed")
	}
}

// strainInvariants returns S2 = 2|symm(∇U)|² and ∇U && dev(twoSymm(∇U)).
func (m *KOmegaSST) strainInvariants() (s2, gByNu0 *sparse.DenseArray) {
	gradU := GradU(m.u)
	s2, gByNu0 = m.mesh.NewField(), m.mesh.NewField()
	forEachCell(m.mesh, func(row, _, _, _ int) {
		g := gradU[row]
		s2.Elements[row] = 2 * g.Symm().MagSqr()
		gByNu0.Elements[row] = DoubleDot(g, g.TwoSymm().Dev())
	})
	return s2, gByNu0
}

// f23 returns F2, or F2*F3 if the F3 switch is on, in each cell.
func (m *KOmegaSST) f23() *sparse.DenseArray {
	o := m.mesh.NewField()
	betaStar, useF3 := m.coeffs.Value("betaStar"), m.coeffs.Bool("F3")
	y := m.mesh.WallDist().Elements
	forEachCell(m.mesh, func(row, _, _, _ int) {
		k, omega := m.k.Elements[row], m.omega.Elements[row]
		f := f2(k, omega, y[row], m.nu, betaStar)
		if useF3 {
			f *= f3(omega, y[row], m.nu)
		}
		o.Elements[row] = f
	})
	return o
}

// correctNut updates the eddy viscosity from k, omega and s2.
func (m *KOmegaSST) correctNut(s2 *sparse.DenseArray) {
	f23 := m.f23()
	a1, b1 := m.coeffs.Value("a1"), m.coeffs.Value("b1")
	for row := range m.nut.Elements {
		m.nut.Elements[row] = turbVisc(m.k.Elements[row], m.omega.Elements[row],
			s2.Elements[row], f23.Elements[row], a1, b1)
	}
}

// nearWallOmega returns the viscous sublayer value of omega,
// 6ν/(β1 y²), for each cell adjacent to a wall.
func (m *KOmegaSST) nearWallOmega() []float64 {
	beta1 := m.coeffs.Value("beta1")
	y := m.mesh.WallDist().Elements
	o := make([]float64, len(m.nearWall))
	for i, row := range m.nearWall {
		o[i] = 6 * m.nu / (beta1 * y[row] * y[row])
	}
	return o
}

// Correct solves the omega and k equations for one step and
// updates the eddy viscosity.
func (m *KOmegaSST) Correct() {
	mesh := m.mesh
	c := m.coeffs
	alphaK1, alphaK2 := c.Value("alphaK1"), c.Value("alphaK2")
	alphaOmega1, alphaOmega2 := c.Value("alphaOmega1"), c.Value("alphaOmega2")
	gamma1, gamma2 := c.Value("gamma1"), c.Value("gamma2")
	beta1, beta2 := c.Value("beta1"), c.Value("beta2")
	betaStar, a1, b1, c1 := c.Value("betaStar"), c.Value("a1"), c.Value("b1"), c.Value("c1")
	useF3 := c.Bool("F3")
	y := mesh.WallDist().Elements
	ar := m.alphaRho.Elements

	divU := DivFlux(mesh, m.phi)
	s2, gByNu0 := m.strainInvariants()

	omegaW := m.nearWallOmega()
	for i, row := range m.nearWall {
		m.omega.Elements[row] = omegaW[i]
	}

	gradK := Grad(mesh, m.k, NoSlip)
	gradOmega := Grad(mesh, m.omega, ZeroGradient)

	F1 := mesh.NewField()
	beta, gamma := mesh.NewField(), mesh.NewField()
	omegaSu, omegaSp := mesh.NewField(), mesh.NewField()
	omegaDivU, omegaCD := mesh.NewField(), mesh.NewField()
	dOmegaEff, dKEff := mesh.NewField(), mesh.NewField()
	kSu, kSp, kDivU := mesh.NewField(), mesh.NewField(), mesh.NewField()
	forEachCell(mesh, func(row, _, _, _ int) {
		k, omega, nut := m.k.Elements[row], m.omega.Elements[row], m.nut.Elements[row]
		cd := cdKOmega(alphaOmega2, gradK.At(row).Dot(gradOmega.At(row)), omega)
		f := f1(k, omega, y[row], m.nu, betaStar, alphaOmega2, cd)
		F1.Elements[row] = f
		fF2 := f2(k, omega, y[row], m.nu, betaStar)
		b := blend(f, beta1, beta2)
		g := blend(f, gamma1, gamma2)
		beta.Elements[row], gamma.Elements[row] = b, g

		gByNu := math.Min(gByNu0.Elements[row],
			(c1/a1)*betaStar*omega*math.Max(a1*omega, b1*fF2*math.Sqrt(s2.Elements[row])))
		omegaSu.Elements[row] = ar[row] * g * gByNu
		omegaDivU.Elements[row] = ar[row] * (2.0 / 3.0) * g * divU.Elements[row]
		omegaSp.Elements[row] = ar[row] * b * omega
		omegaCD.Elements[row] = ar[row] * (f - 1) * cd / omega
		dOmegaEff.Elements[row] = ar[row] * (blend(f, alphaOmega1, alphaOmega2)*nut + m.nu)

		kDivU.Elements[row] = ar[row] * (2.0 / 3.0) * divU.Elements[row]
		dKEff.Elements[row] = ar[row] * (blend(f, alphaK1, alphaK2)*nut + m.nu)
	})

	if m.omegaSource != nil {
		q := m.omegaSource(&SourceState{
			Mesh:      mesh,
			U:         m.u,
			S2:        s2,
			F1:        F1,
			Beta:      beta,
			Gamma:     gamma,
			K:         m.k,
			Omega:     m.omega,
			GradK:     gradK,
			GradOmega: gradOmega,
			DeltaT:    m.controls.DeltaT,
		})
		for row, v := range q.Elements {
			omegaSu.Elements[row] += ar[row] * v
		}
	}

	omegaEqn := NewEquation("omega", mesh, m.omega, ZeroGradient).
		Ddt(m.controls.DeltaT, m.alphaRho).
		Div(m.alphaRhoPhi).
		Laplacian(dOmegaEff).
		Su(omegaSu).
		SuSp(omegaDivU).
		Sp(omegaSp).
		SuSp(omegaCD).
		Relax(m.controls.RelaxOmega).
		SetValues(m.nearWall, omegaW)
	m.logSolve(omegaEqn.Solve(m.controls.Tolerance, m.controls.MaxIterations))
	bound(m.omega, omegaMin)

	// The k production and destruction use the updated omega.
	forEachCell(mesh, func(row, _, _, _ int) {
		k, omega := m.k.Elements[row], m.omega.Elements[row]
		G := m.nut.Elements[row] * gByNu0.Elements[row]
		kSu.Elements[row] = ar[row] * math.Min(G, c1*betaStar*k*omega)
		kSp.Elements[row] = ar[row] * betaStar * omega
	})
	kEqn := NewEquation("k", mesh, m.k, NoSlip).
		Ddt(m.controls.DeltaT, m.alphaRho).
		Div(m.alphaRhoPhi).
		Laplacian(dKEff).
		Su(kSu).
		SuSp(kDivU).
		Sp(kSp).
		Relax(m.controls.RelaxK)
	m.logSolve(kEqn.Solve(m.controls.Tolerance, m.controls.MaxIterations))
	bound(m.k, kMin)

	m.correctNut(s2)

	m.log.WithFields(logrus.Fields{
		"model": m.typeName,
		"k":     [2]float64{m.K().Min(), m.K().Max()},
		"omega": [2]float64{m.Omega().Min(), m.Omega().Max()},
		"nut":   [2]float64{m.Nut().Min(), m.Nut().Max()},
		"F3":    useF3,
	}).Debug("turbulence corrected")
}

func (m *KOmegaSST) logSolve(sp SolverPerformance) {
	m.log.WithFields(logrus.Fields{
		"field":           sp.Field,
		"initialResidual": sp.InitialResidual,
		"finalResidual":   sp.FinalResidual,
		"iterations":      sp.Iterations,
		"converged":       sp.Converged,
	}).Debug("solved")
}

// bound clips f so that every value is at least min. NaN values
// are also set to min.
func bound(f *sparse.DenseArray, min float64) {
	for i, v := range f.Elements {
		if !(v >= min) {
			f.Elements[i] = min
		}
	}
}
