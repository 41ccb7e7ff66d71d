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
	"math"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// sasCoefficients are the coefficients of the SAS source term.
func sasCoefficients() []Coefficient {
	return []Coefficient{
		{Name: "Cs", Default: 0.262},
		{Name: "kappa", Default: 0.41},
		{Name: "zeta2", Default: 1.47},
		{Name: "sigmaPhi", Default: 2.0 / 3.0},
		{Name: "C", Default: 2},
		// QsasLimit, if greater than zero, limits the source to
		// QsasLimit*omega/deltaT.
		{Name: "QsasLimit", Default: 0},
	}
}

// SASCoeffs hold the coefficients used to calculate the SAS source.
type SASCoeffs struct {
	Cs, Kappa, Zeta2, SigmaPhi, C, BetaStar float64
}

// SASCell holds the values in one cell that the SAS source depends on.
type SASCell struct {
	K, Omega float64

	// S2 is 2|symm(∇U)|².
	S2 float64

	// MagLapU is |∇²U|.
	MagLapU float64

	// MagSqrGradK and MagSqrGradOmega are |∇k|² and |∇ω|².
	MagSqrGradK, MagSqrGradOmega float64

	// Beta and Gamma are the F1-blended model coefficients.
	Beta, Gamma float64

	// Delta is the filter width.
	Delta float64
}

// SASSource returns the scale-adaptive source term for the omega
// equation [1/s²] and the von Karman length scale [m] for one cell.
// The source is never negative.
func SASSource(c SASCell, p SASCoeffs) (qsas, lvk float64) {
	l := math.Sqrt(c.K) / (math.Pow(p.BetaStar, 0.25) * c.Omega)

	lvk = p.Kappa * math.Sqrt(c.S2) / (c.MagLapU + rootVSmall)
	if arg := p.Kappa * p.Zeta2 / (c.Beta/p.BetaStar - c.Gamma); arg > 0 {
		lvk = math.Max(lvk, p.Cs*math.Sqrt(arg)*c.Delta)
	}

	var production float64
	if lvk > 0 {
		production = p.Zeta2 * p.Kappa * c.S2 * (l / lvk) * (l / lvk)
	}
	destruction := (2 * p.C / p.SigmaPhi) * c.K * math.Max(
		c.MagSqrGradOmega/math.Max(c.Omega*c.Omega, vSmall),
		c.MagSqrGradK/math.Max(c.K*c.K, vSmall),
	)
	qsas = production - destruction
	if !(qsas > 0) {
		qsas = 0
	}
	return qsas, lvk
}

// KOmegaSSTSAS is the scale-adaptive simulation variant of the
// k-omega-SST model of Egorov and Menter (2010). It adds a source
// term to the omega equation of a KOmegaSST model that it holds.
type KOmegaSSTSAS struct {
	base *KOmegaSST

	coeffs    *CoefficientSet
	deltaName string
	delta     DeltaStrategy

	qsas, lvk *sparse.DenseArray
}

// newKOmegaSSTSAS attaches the SAS source to base, reading the SAS
// coefficients and delta strategy from d.
func newKOmegaSSTSAS(base *KOmegaSST, d Dict, deltas map[string]DeltaConstructor) (*KOmegaSSTSAS, error) {
	group := base.CoeffGroup()
	m := &KOmegaSSTSAS{
		base:   base,
		coeffs: NewCoefficientSet(group, sasCoefficients()...),
		qsas:   base.mesh.NewField(),
		lvk:    base.mesh.NewField(),
	}
	gd := d.SubDict(group)
	if _, err := m.coeffs.Resolve(gd); err != nil {
		return nil, err
	}
	var err error
	m.deltaName, m.delta, err = newDelta(group, base.mesh, gd, deltas)
	if err != nil {
		return nil, err
	}
	base.omegaSource = m.source
	return m, nil
}

// source calculates the SAS source term for the current state.
func (m *KOmegaSSTSAS) source(s *SourceState) *sparse.DenseArray {
	p := SASCoeffs{
		Cs:       m.coeffs.Value("Cs"),
		Kappa:    m.coeffs.Value("kappa"),
		Zeta2:    m.coeffs.Value("zeta2"),
		SigmaPhi: m.coeffs.Value("sigmaPhi"),
		C:        m.coeffs.Value("C"),
		BetaStar: m.base.coeffs.Value("betaStar"),
	}
	limit := m.coeffs.Value("QsasLimit")
	lapU := LaplacianVector(s.U)
	delta := m.Delta()
	forEachCell(s.Mesh, func(row, _, _, _ int) {
		q, lvk := SASSource(SASCell{
			K:               s.K.Elements[row],
			Omega:           s.Omega.Elements[row],
			S2:              s.S2.Elements[row],
			MagLapU:         math.Sqrt(lapU.At(row).MagSqr()),
			MagSqrGradK:     s.GradK.At(row).MagSqr(),
			MagSqrGradOmega: s.GradOmega.At(row).MagSqr(),
			Beta:            s.Beta.Elements[row],
			Gamma:           s.Gamma.Elements[row],
			Delta:           delta.At(row),
		}, p)
		if limit > 0 {
			q = math.Min(q, limit*s.Omega.Elements[row]/s.DeltaT)
		}
		m.qsas.Elements[row] = q
		m.lvk.Elements[row] = lvk
	})
	m.base.log.WithFields(logrus.Fields{
		"model": m.base.typeName,
		"Qsas":  [2]float64{m.Qsas().Min(), m.Qsas().Max()},
	}).Debug("SAS source")
	return m.qsas
}

// Correct solves the omega and k equations, including the SAS source,
// for one step and updates the eddy viscosity.
func (m *KOmegaSSTSAS) Correct() { m.base.Correct() }

// Read re-reads the base model coefficients, the SAS coefficients and
// the delta coefficients from the configuration and reports whether
// any of them changed. If any of them is invalid, none of them are
// changed.
func (m *KOmegaSSTSAS) Read() (bool, error) {
	d, err := m.base.source.Dict()
	if err != nil {
		return false, err
	}
	base := m.base.coeffs
	gd := d.SubDict(m.coeffs.Group())
	baseVals, err := base.prepare(d.SubDict(base.Group()))
	if err != nil {
		return false, err
	}
	sasVals, err := m.coeffs.prepare(gd)
	if err != nil {
		return false, err
	}
	baseOld, sasOld := base.snapshot(), m.coeffs.snapshot()
	baseChanges := base.commit(baseVals)
	sasChanges := m.coeffs.commit(sasVals)
	deltaChanged, err := m.delta.Read(gd.SubDict(deltaCoeffsName(m.deltaName)))
	if err != nil {
		base.restore(baseOld)
		m.coeffs.restore(sasOld)
		return false, err
	}
	logChanges(m.base.log, base.Group(), baseChanges)
	logChanges(m.base.log, m.coeffs.Group(), sasChanges)
	return len(baseChanges) > 0 || len(sasChanges) > 0 || deltaChanged, nil
}

// Base returns the underlying k-omega-SST model.
func (m *KOmegaSSTSAS) Base() *KOmegaSST { return m.base }

// TypeName returns the name the model was selected with.
func (m *KOmegaSSTSAS) TypeName() string { return m.base.TypeName() }

// K returns the turbulent kinetic energy [m²/s²].
func (m *KOmegaSSTSAS) K() FieldView { return m.base.K() }

// Omega returns the specific dissipation rate [1/s].
func (m *KOmegaSSTSAS) Omega() FieldView { return m.base.Omega() }

// Nut returns the turbulent kinematic viscosity [m²/s].
func (m *KOmegaSSTSAS) Nut() FieldView { return m.base.Nut() }

// SASCoefficients returns the resolved SAS coefficients.
func (m *KOmegaSSTSAS) SASCoefficients() *CoefficientSet { return m.coeffs }

// DeltaName returns the name of the selected delta strategy.
func (m *KOmegaSSTSAS) DeltaName() string { return m.deltaName }

// Delta returns the filter width [m].
func (m *KOmegaSSTSAS) Delta() FieldView { return m.delta.Value() }

// Qsas returns the SAS source calculated during the last correction [1/s²].
func (m *KOmegaSSTSAS) Qsas() FieldView { return FieldView{a: m.qsas} }

// Lvk returns the von Karman length scale calculated during the last
// correction [m].
func (m *KOmegaSSTSAS) Lvk() FieldView { return FieldView{a: m.lvk} }
